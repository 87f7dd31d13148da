package artifacts

import "sync"

// Handle is an opaque reference to binary data owned by an arena. The zero
// value is invalid and never resolves. Handles are session-scoped and must
// never be serialized; a restored artifact always gets a fresh handle.
type Handle struct {
	id uint64
}

// Valid reports whether the handle was ever allocated. It does not imply the
// data is still resident; Resolve decides that.
func (h Handle) Valid() bool {
	return h.id != 0
}

// arena owns artifact binaries. Callers borrow read-only views via resolve
// and must not retain them past revocation of the handle.
type arena struct {
	mu     sync.RWMutex
	nextID uint64
	data   map[uint64][]byte
}

func newArena() *arena {
	return &arena{data: make(map[uint64][]byte)}
}

// allocate copies buf into the arena and returns a handle for it. The copy
// keeps callers from aliasing arena memory through the original slice.
func (a *arena) allocate(buf []byte) Handle {
	owned := make([]byte, len(buf))
	copy(owned, buf)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	a.data[a.nextID] = owned
	return Handle{id: a.nextID}
}

// resolve returns the bytes behind a handle, or false if the handle was
// never allocated or has been revoked. The returned slice is a borrowed
// view: callers must not modify it or hold it past revocation.
func (a *arena) resolve(h Handle) ([]byte, bool) {
	if !h.Valid() {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	buf, ok := a.data[h.id]
	return buf, ok
}

// revoke drops the bytes behind a handle. Revoking an unknown or already
// revoked handle is a no-op.
func (a *arena) revoke(h Handle) {
	if !h.Valid() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.data, h.id)
}

// revokeAll drops every live allocation. ID numbering continues so stale
// handles from before the wipe can never resolve against new data.
func (a *arena) revokeAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data = make(map[uint64][]byte)
}
