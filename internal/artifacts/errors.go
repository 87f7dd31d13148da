package artifacts

import "errors"

var (
	// ErrNotFound indicates an entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates validation or bad input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoArtifact indicates no current artifact exists for the session.
	ErrNoArtifact = errors.New("no current artifact")

	// ErrArtifactDecode indicates a durable record could not be decoded back
	// into a usable artifact. Callers treat this as a cache miss.
	ErrArtifactDecode = errors.New("artifact decode failed")

	// ErrStorageQuota indicates durable storage refused the write for
	// capacity reasons. The in-memory artifact stays usable.
	ErrStorageQuota = errors.New("storage quota exceeded")
)
