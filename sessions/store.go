package sessions

// Keys under which the session triple is persisted.
const (
	KeyAuthToken    = "authToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Entry is a single key/value pair written to a Store.
type Entry struct {
	Key   string
	Value string
}

// Change describes a mutation made through another view of the same store
// (another tab or another process). A store never reports its own writes.
type Change struct {
	Key      string
	OldValue string
	NewValue string
	Removed  bool
}

// Listener receives changes made elsewhere.
type Listener func(Change)

// Store is persistent key-value storage shared between views.
//
// Set and Clear apply all of their entries as one write: a reader never sees
// some of the entries without the others.
type Store interface {
	// Get returns the value stored under key and whether it exists.
	Get(key string) (string, bool, error)

	// Set writes all entries at once.
	Set(entries ...Entry) error

	// Clear removes the given keys at once.
	Clear(keys ...string) error

	// Subscribe registers a listener for changes made by other views.
	Subscribe(listener Listener) (cancel func())
}
