package artifacts

import (
	"bytes"
	"testing"
)

func TestArenaAllocateCopiesInput(t *testing.T) {
	a := newArena()
	buf := []byte("original")
	h := a.allocate(buf)
	buf[0] = 'X'

	got, ok := a.resolve(h)
	if !ok {
		t.Fatalf("resolve: handle not resident")
	}
	if !bytes.Equal(got, []byte("original")) {
		t.Fatalf("arena data aliased caller slice: %q", got)
	}
}

func TestArenaRevokeDropsData(t *testing.T) {
	a := newArena()
	h := a.allocate([]byte("pdf"))
	a.revoke(h)
	if _, ok := a.resolve(h); ok {
		t.Fatalf("revoked handle still resolves")
	}
	// Revoking twice is a no-op.
	a.revoke(h)
}

func TestArenaZeroHandleNeverResolves(t *testing.T) {
	a := newArena()
	a.allocate([]byte("pdf"))
	if _, ok := a.resolve(Handle{}); ok {
		t.Fatalf("zero handle resolved")
	}
	if (Handle{}).Valid() {
		t.Fatalf("zero handle reports valid")
	}
}

func TestArenaRevokeAllInvalidatesStaleHandles(t *testing.T) {
	a := newArena()
	h1 := a.allocate([]byte("one"))
	h2 := a.allocate([]byte("two"))
	a.revokeAll()

	if _, ok := a.resolve(h1); ok {
		t.Fatalf("stale handle resolved after revokeAll")
	}
	if _, ok := a.resolve(h2); ok {
		t.Fatalf("stale handle resolved after revokeAll")
	}

	// New allocations never collide with pre-wipe handle IDs.
	h3 := a.allocate([]byte("three"))
	if h3.id == h1.id || h3.id == h2.id {
		t.Fatalf("handle ID reused after revokeAll: %d", h3.id)
	}
}
