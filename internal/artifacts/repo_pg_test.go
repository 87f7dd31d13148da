package artifacts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"resume-typeset/resume/model"
)

func TestPGLibraryRepoCreateWritesJobTargetColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGLibraryRepo{DB: db}
	optimizedAt := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	entry := LibraryEntry{
		ID:          "entry-1",
		UserID:      "user-1",
		Name:        "Acme application",
		StorageKey:  "typeset/abc/library_deadbeef0000.pdf",
		Fingerprint: "fp-1",
		TemplateID:  "modern_ats_v1",
		JobTarget: &model.JobTarget{
			JobURL:      "https://jobs.example.com/1",
			JobTitle:    "Engineer",
			CompanyName: "Acme",
			OptimizedAt: optimizedAt,
		},
		SizeBytes: 1024,
		PageCount: 1,
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO library_artifacts").
		WithArgs(
			entry.ID,
			entry.UserID,
			entry.Name,
			entry.StorageKey,
			entry.Fingerprint,
			entry.TemplateID,
			entry.JobTarget.JobURL,
			entry.JobTarget.JobTitle,
			entry.JobTarget.CompanyName,
			optimizedAt,
			entry.SizeBytes,
			entry.PageCount,
			entry.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGLibraryRepoCreateWithoutJobTargetWritesNulls(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGLibraryRepo{DB: db}
	entry := LibraryEntry{
		ID:          "entry-2",
		UserID:      "user-1",
		Name:        "general",
		StorageKey:  "key",
		Fingerprint: "fp-2",
		TemplateID:  "classic_serif_v1",
		SizeBytes:   2048,
		PageCount:   2,
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO library_artifacts").
		WithArgs(
			entry.ID,
			entry.UserID,
			entry.Name,
			entry.StorageKey,
			entry.Fingerprint,
			entry.TemplateID,
			nil,
			nil,
			nil,
			nil,
			entry.SizeBytes,
			entry.PageCount,
			entry.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGLibraryRepoGetByIDMapsNoRowsToNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGLibraryRepo{DB: db}
	mock.ExpectQuery("SELECT (.+) FROM library_artifacts").
		WithArgs("missing", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "user-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGLibraryRepoListScansJobTarget(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGLibraryRepo{DB: db}
	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "name", "storage_key", "fingerprint", "template_id",
		"job_url", "job_title", "company_name", "optimized_at", "size_bytes", "page_count", "created_at",
	}).
		AddRow("entry-1", "user-1", "targeted", "key-1", "fp-1", "modern_ats_v1",
			"https://jobs.example.com/1", "Engineer", "Acme", created, int64(100), 1, created).
		AddRow("entry-2", "user-1", "general", "key-2", "fp-2", "modern_ats_v1",
			nil, nil, nil, nil, int64(200), 2, created)

	mock.ExpectQuery("SELECT (.+) FROM library_artifacts").
		WithArgs("user-1", 20, 0).
		WillReturnRows(rows)

	entries, err := repo.ListByUser(context.Background(), "user-1", 0, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].JobTarget == nil || entries[0].JobTarget.CompanyName != "Acme" {
		t.Fatalf("entry 0 job target = %+v", entries[0].JobTarget)
	}
	if entries[1].JobTarget != nil {
		t.Fatalf("entry 1 job target should be nil, got %+v", entries[1].JobTarget)
	}
}

func TestPGLibraryRepoDeleteRequiresOwnedRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGLibraryRepo{DB: db}
	mock.ExpectExec("UPDATE library_artifacts").
		WithArgs("entry-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "user-2", "entry-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGCurrentRepoUpsertAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGCurrentRepo{DB: db}
	generated := time.Now().UTC()
	pointer := CurrentPointer{
		UserID:      "user-1",
		StorageKey:  "typeset/abc/current_artifact.json",
		Fingerprint: "fp-1",
		TemplateID:  "modern_ats_v1",
		GeneratedAt: generated,
	}

	mock.ExpectExec("INSERT INTO current_artifacts").
		WithArgs(pointer.UserID, pointer.StorageKey, pointer.Fingerprint, pointer.TemplateID, pointer.GeneratedAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := repo.Upsert(context.Background(), pointer); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	rows := sqlmock.NewRows([]string{"user_id", "storage_key", "fingerprint", "template_id", "generated_at", "updated_at"}).
		AddRow(pointer.UserID, pointer.StorageKey, pointer.Fingerprint, pointer.TemplateID, generated, generated)
	mock.ExpectQuery("SELECT (.+) FROM current_artifacts").
		WithArgs("user-1").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Fingerprint != "fp-1" || got.StorageKey != pointer.StorageKey {
		t.Fatalf("pointer = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCurrentRepoGetMissingMapsToNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGCurrentRepo{DB: db}
	mock.ExpectQuery("SELECT (.+) FROM current_artifacts").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	if _, err := repo.Get(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
