package sessions

import (
	apperrors "github.com/jrsteele09/openlabs-client/internal/errors"
	"github.com/jrsteele09/openlabs-client/users"
	"github.com/pkg/errors"
)

// Session is a snapshot of the persisted credentials and user record.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *users.User
}

// Authenticated is true only when both the access token and the user record exist.
func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// Load reads the current session. A user record that cannot be parsed is
// reported as ErrMalformedSession alongside the rest of the snapshot with
// User left nil.
func Load(store Store) (Session, error) {
	var s Session
	var err error

	if s.AccessToken, _, err = store.Get(KeyAuthToken); err != nil {
		return Session{}, errors.Wrap(err, "[sessions.Load] authToken")
	}
	if s.RefreshToken, _, err = store.Get(KeyRefreshToken); err != nil {
		return Session{}, errors.Wrap(err, "[sessions.Load] refreshToken")
	}
	raw, ok, err := store.Get(KeyUser)
	if err != nil {
		return Session{}, errors.Wrap(err, "[sessions.Load] user")
	}
	if !ok || raw == "" {
		return s, nil
	}
	u, err := users.Unmarshal(raw)
	if err != nil {
		return s, apperrors.Wrapf(apperrors.ErrMalformedSession, "%v", err)
	}
	s.User = u
	return s, nil
}

// Save writes the access token, refresh token and user record in one write.
// An empty refresh token keeps the one already stored.
func Save(store Store, accessToken, refreshToken string, user users.User) error {
	raw, err := user.Marshal()
	if err != nil {
		return errors.Wrap(err, "[sessions.Save] marshal user")
	}
	entries := []Entry{
		{Key: KeyAuthToken, Value: accessToken},
		{Key: KeyUser, Value: raw},
	}
	if refreshToken != "" {
		entries = append(entries, Entry{Key: KeyRefreshToken, Value: refreshToken})
	}
	return store.Set(entries...)
}

// SaveUser rewrites the full user record.
func SaveUser(store Store, user users.User) error {
	raw, err := user.Marshal()
	if err != nil {
		return errors.Wrap(err, "[sessions.SaveUser] marshal user")
	}
	return store.Set(Entry{Key: KeyUser, Value: raw})
}

// SaveTokens replaces the credentials while leaving the user record untouched.
func SaveTokens(store Store, accessToken, refreshToken string) error {
	entries := []Entry{{Key: KeyAuthToken, Value: accessToken}}
	if refreshToken != "" {
		entries = append(entries, Entry{Key: KeyRefreshToken, Value: refreshToken})
	}
	return store.Set(entries...)
}

// Clear removes the whole session triple.
func Clear(store Store) error {
	return store.Clear(KeyAuthToken, KeyRefreshToken, KeyUser)
}

// AccessTokenFunc returns a func reading the stored access token on every
// call, for use as a request helper's bearer source.
func AccessTokenFunc(store Store) func() string {
	return func() string {
		tok, _, err := store.Get(KeyAuthToken)
		if err != nil {
			return ""
		}
		return tok
	}
}
