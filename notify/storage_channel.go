package notify

import (
	"github.com/jrsteele09/openlabs-client/sessions"
)

var _ Source = (*StorageChannel)(nil)

// StorageChannel turns writes to the user record made through other views of
// a session store into signals. The store only reports foreign writes, so a
// view never hears its own updates on this channel.
type StorageChannel struct {
	store sessions.Store
	keys  map[string]struct{}
}

// NewStorageChannel watches the user key of store. Extra keys may be given.
func NewStorageChannel(store sessions.Store, keys ...string) *StorageChannel {
	watched := map[string]struct{}{sessions.KeyUser: {}}
	for _, k := range keys {
		watched[k] = struct{}{}
	}
	return &StorageChannel{store: store, keys: watched}
}

func (c *StorageChannel) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}
	return c.store.Subscribe(func(change sessions.Change) {
		if _, ok := c.keys[change.Key]; ok {
			listener()
		}
	})
}
