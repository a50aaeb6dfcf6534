package sessions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/sessions"
	"github.com/jrsteele09/openlabs-client/users"
	"github.com/stretchr/testify/require"
)

var testUser = users.User{
	ID:        42,
	FirstName: "Ada",
	LastName:  "Lovelace",
	Username:  "ada",
	Email:     "ada@example.com",
	Role:      users.RoleUser,
	Balance:   5,
}

func TestMemoryStoreReportsOnlyForeignWrites(t *testing.T) {
	backend := sessions.NewMemoryBackend()
	tabA := backend.NewStore()
	tabB := backend.NewStore()

	var seenA, seenB []sessions.Change
	tabA.Subscribe(func(c sessions.Change) { seenA = append(seenA, c) })
	tabB.Subscribe(func(c sessions.Change) { seenB = append(seenB, c) })

	require.NoError(t, tabA.Set(sessions.Entry{Key: "k", Value: "v1"}))
	require.Empty(t, seenA)
	require.Equal(t, []sessions.Change{{Key: "k", NewValue: "v1"}}, seenB)

	// Rewriting the same value is not a change.
	require.NoError(t, tabA.Set(sessions.Entry{Key: "k", Value: "v1"}))
	require.Len(t, seenB, 1)

	require.NoError(t, tabB.Clear("k", "missing"))
	require.Equal(t, []sessions.Change{{Key: "k", OldValue: "v1", Removed: true}}, seenA)

	v, ok, err := tabA.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, v)
}

func TestMemoryStoreClose(t *testing.T) {
	backend := sessions.NewMemoryBackend()
	tabA := backend.NewStore()
	tabB := backend.NewStore()

	calls := 0
	tabB.Subscribe(func(sessions.Change) { calls++ })
	tabB.Close()

	require.NoError(t, tabA.Set(sessions.Entry{Key: "k", Value: "v"}))
	require.Zero(t, calls)
}

func TestSessionSaveLoadClear(t *testing.T) {
	store := sessions.NewMemoryStore()

	s, err := sessions.Load(store)
	require.NoError(t, err)
	require.False(t, s.Authenticated())

	require.NoError(t, sessions.Save(store, "access-1", "refresh-1", testUser))
	s, err = sessions.Load(store)
	require.NoError(t, err)
	require.True(t, s.Authenticated())
	require.Equal(t, "access-1", s.AccessToken)
	require.Equal(t, "refresh-1", s.RefreshToken)
	require.Equal(t, testUser, *s.User)

	// An empty refresh token keeps the stored one.
	require.NoError(t, sessions.SaveTokens(store, "access-2", ""))
	s, err = sessions.Load(store)
	require.NoError(t, err)
	require.Equal(t, "access-2", s.AccessToken)
	require.Equal(t, "refresh-1", s.RefreshToken)

	require.NoError(t, sessions.Clear(store))
	s, err = sessions.Load(store)
	require.NoError(t, err)
	require.Equal(t, sessions.Session{}, s)
}

func TestSessionSaveIsOneWrite(t *testing.T) {
	backend := sessions.NewMemoryBackend()
	writer := backend.NewStore()
	reader := backend.NewStore()

	// Every change notification must already see token and user together.
	var partial bool
	reader.Subscribe(func(sessions.Change) {
		s, err := sessions.Load(reader)
		require.NoError(t, err)
		if (s.AccessToken == "") != (s.User == nil) {
			partial = true
		}
	})

	require.NoError(t, sessions.Save(writer, "access", "refresh", testUser))
	require.NoError(t, sessions.Clear(writer))
	require.False(t, partial)
}

func TestLoadMalformedUser(t *testing.T) {
	store := sessions.NewMemoryStore()
	require.NoError(t, store.Set(
		sessions.Entry{Key: sessions.KeyAuthToken, Value: "access"},
		sessions.Entry{Key: sessions.KeyUser, Value: "{not json"},
	))

	s, err := sessions.Load(store)
	require.ErrorIs(t, err, apperrors.ErrMalformedSession)
	require.Nil(t, s.User)
	require.Equal(t, "access", s.AccessToken)
	require.False(t, s.Authenticated())
}

func TestFileStorePersists(t *testing.T) {
	dir := t.TempDir()

	first, err := sessions.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, sessions.Save(first, "access", "refresh", testUser))

	second, err := sessions.NewFileStore(dir)
	require.NoError(t, err)
	s, err := sessions.Load(second)
	require.NoError(t, err)
	require.True(t, s.Authenticated())
	require.Equal(t, testUser, *s.User)

	require.NoError(t, second.Clear(sessions.KeyAuthToken))
	_, ok, err := first.Get(sessions.KeyAuthToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStoreRequiresDir(t *testing.T) {
	_, err := sessions.NewFileStore("  ")
	require.Error(t, err)
}

func TestFileStoreWatchReportsForeignWrites(t *testing.T) {
	dir := t.TempDir()

	watcher, err := sessions.NewFileStore(dir)
	require.NoError(t, err)
	writer, err := sessions.NewFileStore(dir)
	require.NoError(t, err)

	var mu sync.Mutex
	var changes []sessions.Change
	watcher.Subscribe(func(c sessions.Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Watch(ctx))
	require.NoError(t, watcher.Watch(ctx))
	defer watcher.Close()

	require.NoError(t, writer.Set(sessions.Entry{Key: sessions.KeyUser, Value: `{"id":42}`}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range changes {
			if c.Key == sessions.KeyUser && c.NewValue == `{"id":42}` {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	// The watcher's own writes are not reported back to it.
	mu.Lock()
	changes = nil
	mu.Unlock()
	require.NoError(t, watcher.Set(sessions.Entry{Key: "own", Value: "x"}))
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	for _, c := range changes {
		require.NotEqual(t, "own", c.Key)
	}
	mu.Unlock()
}
