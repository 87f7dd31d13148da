package artifacts

import "context"

// LibraryRepo defines persistence operations for named library entries.
type LibraryRepo interface {
	Create(ctx context.Context, entry LibraryEntry) error
	GetByID(ctx context.Context, userID, entryID string) (LibraryEntry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]LibraryEntry, error)
	Delete(ctx context.Context, userID, entryID string) error
	CountByUser(ctx context.Context, userID string) (int, error)
	OldestByUser(ctx context.Context, userID string) (LibraryEntry, error)
}

// CurrentRepo tracks the durable current-artifact pointer per user.
type CurrentRepo interface {
	Upsert(ctx context.Context, pointer CurrentPointer) error
	Get(ctx context.Context, userID string) (CurrentPointer, error)
}
