package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"resume-typeset/resume/model"
)

// PGLibraryRepo implements LibraryRepo using Postgres.
type PGLibraryRepo struct {
	DB *sql.DB
}

const libraryColumns = `id, user_id, name, storage_key, fingerprint, template_id, job_url, job_title, company_name, optimized_at, size_bytes, page_count, created_at`

// Create inserts a library entry.
func (r *PGLibraryRepo) Create(ctx context.Context, entry LibraryEntry) error {
	const query = `
INSERT INTO library_artifacts (
    id, user_id, name, storage_key, fingerprint, template_id, job_url, job_title, company_name, optimized_at, size_bytes, page_count, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	jobURL, jobTitle, companyName, optimizedAt := jobTargetColumns(entry.JobTarget)
	_, err := r.DB.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Name,
		entry.StorageKey,
		entry.Fingerprint,
		entry.TemplateID,
		jobURL,
		jobTitle,
		companyName,
		optimizedAt,
		entry.SizeBytes,
		entry.PageCount,
		entry.CreatedAt,
	)
	return err
}

// GetByID returns a library entry by ID for a user.
func (r *PGLibraryRepo) GetByID(ctx context.Context, userID, entryID string) (LibraryEntry, error) {
	const query = `
SELECT ` + libraryColumns + `
FROM library_artifacts
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
LIMIT 1`
	entry, err := scanLibraryEntry(r.DB.QueryRowContext(ctx, query, entryID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LibraryEntry{}, ErrNotFound
		}
		return LibraryEntry{}, err
	}
	return entry, nil
}

// ListByUser lists library entries ordered newest-first.
func (r *PGLibraryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]LibraryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + libraryColumns + `
FROM library_artifacts
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LibraryEntry
	for rows.Next() {
		entry, err := scanLibraryEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// Delete soft-deletes a library entry owned by the user.
func (r *PGLibraryRepo) Delete(ctx context.Context, userID, entryID string) error {
	const query = `
UPDATE library_artifacts
SET deleted_at = now()
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, entryID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByUser counts live entries for a user.
func (r *PGLibraryRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `
SELECT COUNT(*) FROM library_artifacts
WHERE user_id = $1 AND deleted_at IS NULL`
	var count int
	if err := r.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// OldestByUser returns the earliest-created live entry for eviction.
func (r *PGLibraryRepo) OldestByUser(ctx context.Context, userID string) (LibraryEntry, error) {
	const query = `
SELECT ` + libraryColumns + `
FROM library_artifacts
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at ASC
LIMIT 1`
	entry, err := scanLibraryEntry(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LibraryEntry{}, ErrNotFound
		}
		return LibraryEntry{}, err
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLibraryEntry(row rowScanner) (LibraryEntry, error) {
	var entry LibraryEntry
	var jobURL, jobTitle, companyName sql.NullString
	var optimizedAt sql.NullTime
	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Name,
		&entry.StorageKey,
		&entry.Fingerprint,
		&entry.TemplateID,
		&jobURL,
		&jobTitle,
		&companyName,
		&optimizedAt,
		&entry.SizeBytes,
		&entry.PageCount,
		&entry.CreatedAt,
	)
	if err != nil {
		return LibraryEntry{}, err
	}
	if jobURL.Valid || jobTitle.Valid || companyName.Valid {
		entry.JobTarget = &model.JobTarget{
			JobURL:      jobURL.String,
			JobTitle:    jobTitle.String,
			CompanyName: companyName.String,
		}
		if optimizedAt.Valid {
			entry.JobTarget.OptimizedAt = optimizedAt.Time
		}
	}
	return entry, nil
}

func jobTargetColumns(target *model.JobTarget) (jobURL, jobTitle, companyName sql.NullString, optimizedAt sql.NullTime) {
	if target == nil {
		return
	}
	jobURL = sql.NullString{String: target.JobURL, Valid: target.JobURL != ""}
	jobTitle = sql.NullString{String: target.JobTitle, Valid: target.JobTitle != ""}
	companyName = sql.NullString{String: target.CompanyName, Valid: target.CompanyName != ""}
	if !target.OptimizedAt.IsZero() {
		optimizedAt = sql.NullTime{Time: target.OptimizedAt, Valid: true}
	}
	return
}

var _ LibraryRepo = (*PGLibraryRepo)(nil)

// PGCurrentRepo implements CurrentRepo using Postgres.
type PGCurrentRepo struct {
	DB *sql.DB
}

// Upsert stores or replaces the current-artifact pointer for a user.
func (r *PGCurrentRepo) Upsert(ctx context.Context, pointer CurrentPointer) error {
	const query = `
INSERT INTO current_artifacts (user_id, storage_key, fingerprint, template_id, generated_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE SET
    storage_key = EXCLUDED.storage_key,
    fingerprint = EXCLUDED.fingerprint,
    template_id = EXCLUDED.template_id,
    generated_at = EXCLUDED.generated_at,
    updated_at = EXCLUDED.updated_at`
	_, err := r.DB.ExecContext(ctx, query,
		pointer.UserID,
		pointer.StorageKey,
		pointer.Fingerprint,
		pointer.TemplateID,
		pointer.GeneratedAt,
		time.Now().UTC(),
	)
	return err
}

// Get returns the pointer for a user.
func (r *PGCurrentRepo) Get(ctx context.Context, userID string) (CurrentPointer, error) {
	const query = `
SELECT user_id, storage_key, fingerprint, template_id, generated_at, updated_at
FROM current_artifacts
WHERE user_id = $1
LIMIT 1`
	var pointer CurrentPointer
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&pointer.UserID,
		&pointer.StorageKey,
		&pointer.Fingerprint,
		&pointer.TemplateID,
		&pointer.GeneratedAt,
		&pointer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CurrentPointer{}, ErrNotFound
		}
		return CurrentPointer{}, err
	}
	return pointer, nil
}

var _ CurrentRepo = (*PGCurrentRepo)(nil)
