package artifacts

import (
	"time"

	"resume-typeset/resume/model"
)

// CompiledArtifact describes one compiled document held in memory. The binary
// itself lives in the store's handle arena and is reached through the handle;
// the struct carries metadata only. Artifacts are immutable: a new render
// produces a new value, never a mutation of an old one.
type CompiledArtifact struct {
	ID           string
	Fingerprint  string
	SizeBytes    int64
	PageCount    int
	HasTextLayer bool
	TemplateID   string
	JobTarget    *model.JobTarget
	GeneratedAt  time.Time

	handle Handle
}

// Handle returns the arena handle for the artifact's binary.
func (a CompiledArtifact) Handle() Handle {
	return a.handle
}

// LibraryEntry is a named, durably stored artifact owned by a user. The
// binary lives in the object store under StorageKey; the entry survives
// session teardown and any later change to the current slot.
type LibraryEntry struct {
	ID          string
	UserID      string
	Name        string
	StorageKey  string
	Fingerprint string
	TemplateID  string
	JobTarget   *model.JobTarget
	SizeBytes   int64
	PageCount   int
	CreatedAt   time.Time
}

// CurrentPointer is the persisted locator for a user's durable
// current-artifact record.
type CurrentPointer struct {
	UserID      string
	StorageKey  string
	Fingerprint string
	TemplateID  string
	GeneratedAt time.Time
	UpdatedAt   time.Time
}
