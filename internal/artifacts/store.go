package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"resume-typeset/internal/shared/storage/object"
	"resume-typeset/internal/shared/util"
)

// Eviction policies for the named library.
const (
	EvictionUnbounded = "unbounded"
	EvictionLRU       = "lru"
)

const currentRecordFile = "current_artifact.json"

// Store owns compiled artifact binaries for all active sessions. Binaries
// live in a handle arena; the current slot per user points at the latest
// compiled artifact. Durable persistence goes through the object store, and
// the named library through LibraryRepo.
type Store struct {
	Objects   object.ObjectStore
	Library   LibraryRepo
	Current   CurrentRepo
	Namespace string

	// EvictionPolicy is EvictionUnbounded or EvictionLRU; MaxLibraryEntries
	// bounds the library when the policy is EvictionLRU.
	EvictionPolicy    string
	MaxLibraryEntries int

	arena *arena

	mu      sync.RWMutex
	current map[string]CompiledArtifact
}

// NewStore constructs a Store with an empty arena.
func NewStore(objects object.ObjectStore, library LibraryRepo, current CurrentRepo) *Store {
	return &Store{
		Objects:        objects,
		Library:        library,
		Current:        current,
		Namespace:      "typeset",
		EvictionPolicy: EvictionUnbounded,
		arena:          newArena(),
		current:        make(map[string]CompiledArtifact),
	}
}

// SetCurrent installs a freshly compiled binary as the user's current
// artifact. The previous artifact's handle is revoked; its bytes are gone.
func (s *Store) SetCurrent(userID string, binary []byte, meta CompiledArtifact) (CompiledArtifact, error) {
	if userID == "" || len(binary) == 0 || meta.Fingerprint == "" {
		return CompiledArtifact{}, ErrInvalidInput
	}
	meta.ID = uuid.NewString()
	meta.SizeBytes = int64(len(binary))
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}
	meta.handle = s.arena.allocate(binary)

	s.mu.Lock()
	previous, had := s.current[userID]
	s.current[userID] = meta
	s.mu.Unlock()

	if had {
		s.arena.revoke(previous.handle)
	}
	return meta, nil
}

// CurrentMeta returns the user's current artifact metadata.
func (s *Store) CurrentMeta(userID string) (CompiledArtifact, error) {
	s.mu.RLock()
	artifact, ok := s.current[userID]
	s.mu.RUnlock()
	if !ok {
		return CompiledArtifact{}, ErrNoArtifact
	}
	return artifact, nil
}

// CurrentBytes returns the current artifact and a borrowed view of its
// binary. Callers must not retain the slice past the next SetCurrent or
// teardown for this user.
func (s *Store) CurrentBytes(userID string) (CompiledArtifact, []byte, error) {
	artifact, err := s.CurrentMeta(userID)
	if err != nil {
		return CompiledArtifact{}, nil, err
	}
	binary, ok := s.arena.resolve(artifact.handle)
	if !ok {
		return CompiledArtifact{}, nil, ErrNoArtifact
	}
	return artifact, binary, nil
}

// Valid reports whether the fingerprint matches the user's current artifact
// and its binary is still resident. A true result means the render can be
// served from cache without recompiling.
func (s *Store) Valid(userID, fingerprint string) bool {
	if fingerprint == "" {
		return false
	}
	s.mu.RLock()
	artifact, ok := s.current[userID]
	s.mu.RUnlock()
	if !ok || artifact.Fingerprint != fingerprint {
		return false
	}
	_, resident := s.arena.resolve(artifact.handle)
	return resident
}

// Persist writes the user's current artifact as a durable record. A full
// backing store maps to ErrStorageQuota; the in-memory artifact is untouched
// either way, so callers can degrade by simply reporting the miss.
func (s *Store) Persist(ctx context.Context, userID string) error {
	artifact, binary, err := s.CurrentBytes(userID)
	if err != nil {
		return err
	}
	payload, err := encodeDurable(artifact, binary)
	if err != nil {
		return err
	}
	key := s.currentRecordKey(userID)
	if _, err := s.Objects.SaveAt(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return classifyStorageErr(err)
	}
	if s.Current != nil {
		pointer := CurrentPointer{
			UserID:      userID,
			StorageKey:  key,
			Fingerprint: artifact.Fingerprint,
			TemplateID:  artifact.TemplateID,
			GeneratedAt: artifact.GeneratedAt,
		}
		if err := s.Current.Upsert(ctx, pointer); err != nil {
			return fmt.Errorf("persist pointer: %w", err)
		}
	}
	return nil
}

// Restore loads the durable record back into the current slot under a fresh
// handle. Handle IDs are never reused, so anything holding a pre-teardown
// handle stays dead. A record that cannot be decoded yields ErrArtifactDecode.
func (s *Store) Restore(ctx context.Context, userID string) (CompiledArtifact, error) {
	if userID == "" {
		return CompiledArtifact{}, ErrInvalidInput
	}
	reader, err := s.Objects.Open(ctx, s.currentRecordKey(userID))
	if err != nil {
		return CompiledArtifact{}, ErrNotFound
	}
	defer reader.Close()

	payload, err := io.ReadAll(reader)
	if err != nil {
		return CompiledArtifact{}, fmt.Errorf("%w: %v", ErrArtifactDecode, err)
	}
	artifact, binary, err := decodeDurable(payload)
	if err != nil {
		return CompiledArtifact{}, err
	}
	return s.SetCurrent(userID, binary, artifact)
}

// SaveToLibrary copies the current artifact into the named library. The copy
// is independent: later renders, teardown, or persist failures do not touch
// it. When the eviction policy is bounded and the library is full, the
// oldest entry is evicted first.
func (s *Store) SaveToLibrary(ctx context.Context, userID, name string) (LibraryEntry, error) {
	if name == "" {
		return LibraryEntry{}, ErrInvalidInput
	}
	artifact, binary, err := s.CurrentBytes(userID)
	if err != nil {
		return LibraryEntry{}, err
	}
	if err := s.evictIfFull(ctx, userID); err != nil {
		return LibraryEntry{}, err
	}

	fileName := "library_" + util.ShortHash(artifact.Fingerprint) + ".pdf"
	storageKey, size, _, err := s.Objects.Save(ctx, userID, fileName, bytes.NewReader(binary))
	if err != nil {
		return LibraryEntry{}, classifyStorageErr(err)
	}

	entry := LibraryEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		StorageKey:  storageKey,
		Fingerprint: artifact.Fingerprint,
		TemplateID:  artifact.TemplateID,
		JobTarget:   artifact.JobTarget,
		SizeBytes:   size,
		PageCount:   artifact.PageCount,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Library.Create(ctx, entry); err != nil {
		// Roll back the orphaned binary; the entry never existed.
		_ = s.Objects.Delete(ctx, storageKey)
		return LibraryEntry{}, err
	}
	return entry, nil
}

// ListLibrary returns the user's library entries, newest first.
func (s *Store) ListLibrary(ctx context.Context, userID string, limit, offset int) ([]LibraryEntry, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Library.ListByUser(ctx, userID, limit, offset)
}

// OpenLibraryEntry returns a library entry and a reader over its binary.
func (s *Store) OpenLibraryEntry(ctx context.Context, userID, entryID string) (LibraryEntry, io.ReadCloser, error) {
	entry, err := s.Library.GetByID(ctx, userID, entryID)
	if err != nil {
		return LibraryEntry{}, nil, err
	}
	reader, err := s.Objects.Open(ctx, entry.StorageKey)
	if err != nil {
		return LibraryEntry{}, nil, err
	}
	return entry, reader, nil
}

// DeleteFromLibrary removes an entry and its stored binary.
func (s *Store) DeleteFromLibrary(ctx context.Context, userID, entryID string) error {
	entry, err := s.Library.GetByID(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if err := s.Library.Delete(ctx, userID, entryID); err != nil {
		return err
	}
	// Binary cleanup is best-effort; the entry is already unreachable.
	_ = s.Objects.Delete(ctx, entry.StorageKey)
	return nil
}

// ClearSession revokes the user's current handle and forgets the slot.
// Library entries and durable records survive.
func (s *Store) ClearSession(userID string) {
	s.mu.Lock()
	artifact, ok := s.current[userID]
	delete(s.current, userID)
	s.mu.Unlock()
	if ok {
		s.arena.revoke(artifact.handle)
	}
}

// ClearAll revokes every handle and clears every current slot. Used at
// shutdown; any handle obtained before the call can never resolve again.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.current = make(map[string]CompiledArtifact)
	s.mu.Unlock()
	s.arena.revokeAll()
}

func (s *Store) currentRecordKey(userID string) string {
	return path.Join(s.Namespace, util.HashUserKey(userID), currentRecordFile)
}

func (s *Store) evictIfFull(ctx context.Context, userID string) error {
	if s.EvictionPolicy != EvictionLRU || s.MaxLibraryEntries <= 0 {
		return nil
	}
	count, err := s.Library.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	for count >= s.MaxLibraryEntries {
		oldest, err := s.Library.OldestByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if err := s.Library.Delete(ctx, userID, oldest.ID); err != nil {
			return err
		}
		_ = s.Objects.Delete(ctx, oldest.StorageKey)
		count--
	}
	return nil
}

// classifyStorageErr maps filesystem capacity failures onto ErrStorageQuota
// so callers can branch on a single sentinel regardless of backend.
func classifyStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageQuota) {
		return err
	}
	if errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT) {
		return fmt.Errorf("%w: %v", ErrStorageQuota, err)
	}
	return err
}
