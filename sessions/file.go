package sessions

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const sessionFileName = "session.json"

// fileState is the on-disk layout. Writer identifies the FileStore that
// produced the file so a store can tell its own writes from foreign ones.
type fileState struct {
	Writer string            `json:"writer"`
	Values map[string]string `json:"values"`
}

var _ Store = (*FileStore)(nil)

// FileStore persists the session in a single JSON file. Several processes can
// share the same directory; once Watch is running, writes by the other
// processes are reported to this store's listeners.
type FileStore struct {
	dir  string
	path string
	id   string
	log  zerolog.Logger

	writeMu sync.Mutex // serializes read-modify-write cycles in this process

	mu        sync.Mutex
	last      map[string]string // values as of the last read or write
	listeners map[int]Listener
	nextID    int

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(l zerolog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.log = l
	}
}

// NewFileStore opens (creating if needed) the session file in dir.
func NewFileStore(dir string, options ...FileStoreOption) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("session directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[NewFileStore] create session dir")
	}
	s := &FileStore{
		dir:       dir,
		path:      filepath.Join(dir, sessionFileName),
		id:        uuid.New().String(),
		log:       zerolog.Nop(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range options {
		opt(s)
	}

	state, err := s.read()
	if err != nil {
		return nil, err
	}
	s.last = state.Values
	return s, nil
}

// Path is the session file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, bool, error) {
	state, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := state.Values[key]
	return v, ok, nil
}

func (s *FileStore) Set(entries ...Entry) error {
	return s.update(func(values map[string]string) {
		for _, e := range entries {
			values[e.Key] = e.Value
		}
	})
}

func (s *FileStore) Clear(keys ...string) error {
	return s.update(func(values map[string]string) {
		for _, k := range keys {
			delete(values, k)
		}
	})
}

func (s *FileStore) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Watch starts reporting foreign writes to listeners. It is non-blocking and
// returns nil if the watcher is already running.
func (s *FileStore) Watch(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "[FileStore.Watch] new watcher")
	}
	// The directory is watched, not the file: writes replace the file by rename.
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		s.mu.Unlock()
		return errors.Wrap(err, "[FileStore.Watch] watch session dir")
	}
	s.watcher = watcher
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	go s.run(ctx)
	s.log.Debug().Str("path", s.path).Msg("watching session file")
	return nil
}

// Close stops the watcher, if any.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	return s.watcher.Close()
}

func (s *FileStore) run(ctx context.Context) {
	defer close(s.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			s.reload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Err(err).Msg("session watcher error")
		}
	}
}

// reload re-reads the file and reports every key that differs from the last
// known values, unless this store wrote the file itself.
func (s *FileStore) reload() {
	state, err := s.read()
	if err != nil {
		s.log.Err(err).Msg("failed to reload session file")
		return
	}

	s.mu.Lock()
	previous := s.last
	s.last = state.Values
	var listeners []Listener
	if state.Writer != s.id {
		listeners = make([]Listener, 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	if len(listeners) == 0 {
		return
	}
	for _, c := range diff(previous, state.Values) {
		for _, l := range listeners {
			l(c)
		}
	}
}

func (s *FileStore) update(apply func(values map[string]string)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	state, err := s.read()
	if err != nil {
		return err
	}
	apply(state.Values)
	state.Writer = s.id

	if err := s.write(state); err != nil {
		return err
	}
	s.mu.Lock()
	s.last = copyValues(state.Values)
	s.mu.Unlock()
	return nil
}

func (s *FileStore) read() (fileState, error) {
	state := fileState{Values: map[string]string{}}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, errors.Wrap(err, "[FileStore.read]")
	}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return fileState{Values: map[string]string{}}, errors.Wrap(err, "[FileStore.read] decode")
	}
	if state.Values == nil {
		state.Values = map[string]string{}
	}
	return state, nil
}

// write replaces the session file atomically via a temp file and rename.
func (s *FileStore) write(state fileState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStore.write] encode")
	}
	tmp, err := os.CreateTemp(s.dir, "session-*.tmp")
	if err != nil {
		return errors.Wrap(err, "[FileStore.write] temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "[FileStore.write]")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "[FileStore.write] sync")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "[FileStore.write] close")
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "[FileStore.write] chmod")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "[FileStore.write] rename")
	}
	return nil
}

func diff(before, after map[string]string) []Change {
	var changes []Change
	for k, v := range after {
		old, ok := before[k]
		if ok && old == v {
			continue
		}
		changes = append(changes, Change{Key: k, OldValue: old, NewValue: v})
	}
	for k, old := range before {
		if _, ok := after[k]; !ok {
			changes = append(changes, Change{Key: k, OldValue: old, Removed: true})
		}
	}
	return changes
}

func copyValues(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
