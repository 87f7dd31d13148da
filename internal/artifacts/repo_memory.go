package artifacts

import (
	"context"
	"sort"
	"sync"
)

// MemoryLibraryRepo stores library entries in memory and is safe for
// concurrent use.
type MemoryLibraryRepo struct {
	mu     sync.RWMutex
	byID   map[string]LibraryEntry
	byUser map[string][]string
}

// NewMemoryLibraryRepo constructs a MemoryLibraryRepo.
func NewMemoryLibraryRepo() *MemoryLibraryRepo {
	return &MemoryLibraryRepo{
		byID:   make(map[string]LibraryEntry),
		byUser: make(map[string][]string),
	}
}

// Create stores the library entry.
func (r *MemoryLibraryRepo) Create(ctx context.Context, entry LibraryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[entry.ID] = entry
	r.byUser[entry.UserID] = append(r.byUser[entry.UserID], entry.ID)
	return nil
}

// GetByID returns a library entry by ID for a user.
func (r *MemoryLibraryRepo) GetByID(ctx context.Context, userID, entryID string) (LibraryEntry, error) {
	if err := ctx.Err(); err != nil {
		return LibraryEntry{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byID[entryID]
	if !ok || entry.UserID != userID {
		return LibraryEntry{}, ErrNotFound
	}
	return entry, nil
}

// ListByUser returns library entries for a user, newest first, with
// limit/offset.
func (r *MemoryLibraryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]LibraryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	entries := r.snapshotUser(userID)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if len(entries) == 0 || offset >= len(entries) {
		return []LibraryEntry{}, nil
	}
	end := len(entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return entries[offset:end], nil
}

// Delete removes a library entry owned by the user.
func (r *MemoryLibraryRepo) Delete(ctx context.Context, userID, entryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byID[entryID]
	if !ok || entry.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, entryID)
	ids := r.byUser[userID]
	for i, id := range ids {
		if id == entryID {
			r.byUser[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// CountByUser returns the number of entries the user owns.
func (r *MemoryLibraryRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]), nil
}

// OldestByUser returns the entry with the earliest CreatedAt for eviction.
func (r *MemoryLibraryRepo) OldestByUser(ctx context.Context, userID string) (LibraryEntry, error) {
	if err := ctx.Err(); err != nil {
		return LibraryEntry{}, err
	}
	entries := r.snapshotUser(userID)
	if len(entries) == 0 {
		return LibraryEntry{}, ErrNotFound
	}
	oldest := entries[0]
	for _, entry := range entries[1:] {
		if entry.CreatedAt.Before(oldest.CreatedAt) {
			oldest = entry
		}
	}
	return oldest, nil
}

func (r *MemoryLibraryRepo) snapshotUser(userID string) []LibraryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byUser[userID]
	entries := make([]LibraryEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := r.byID[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

var _ LibraryRepo = (*MemoryLibraryRepo)(nil)

// MemoryCurrentRepo keeps current-artifact pointers in memory.
type MemoryCurrentRepo struct {
	mu     sync.RWMutex
	byUser map[string]CurrentPointer
}

// NewMemoryCurrentRepo constructs a MemoryCurrentRepo.
func NewMemoryCurrentRepo() *MemoryCurrentRepo {
	return &MemoryCurrentRepo{byUser: make(map[string]CurrentPointer)}
}

// Upsert stores or replaces the pointer for a user.
func (r *MemoryCurrentRepo) Upsert(ctx context.Context, pointer CurrentPointer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[pointer.UserID] = pointer
	return nil
}

// Get returns the pointer for a user.
func (r *MemoryCurrentRepo) Get(ctx context.Context, userID string) (CurrentPointer, error) {
	if err := ctx.Err(); err != nil {
		return CurrentPointer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	pointer, ok := r.byUser[userID]
	if !ok {
		return CurrentPointer{}, ErrNotFound
	}
	return pointer, nil
}

var _ CurrentRepo = (*MemoryCurrentRepo)(nil)
