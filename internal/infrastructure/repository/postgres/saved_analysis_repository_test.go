package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

var savedColumns = []string{"id", "user_id", "property_input", "property_title", "analysis_data", "created_at", "updated_at"}

func newSavedRepoWithMock(t *testing.T) (*SavedAnalysisRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	repo := NewSavedAnalysisRepository(db)
	repo.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return repo, mock, func() { _ = db.Close() }
}

func TestSavedAnalysisSaveUpsertsOnKey(t *testing.T) {
	repo, mock, done := newSavedRepoWithMock(t)
	defer done()

	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(savedColumns).
		AddRow("existing-id", "u-1", "12 Elm St", "Elm", []byte(`{"summary":"updated","overall_score":91}`), created, repo.now())

	mock.ExpectQuery("ON CONFLICT \\(user_id, property_input, property_title\\)").
		WithArgs(sqlmock.AnyArg(), "u-1", "12 Elm St", "Elm", sqlmock.AnyArg(), repo.now().UTC()).
		WillReturnRows(rows)

	saved, err := repo.Save(context.Background(), domain.SavedAnalysis{
		UserID:        "u-1",
		PropertyInput: "12 Elm St",
		PropertyTitle: "Elm",
		Analysis:      domain.Analysis{Summary: "updated", OverallScore: 91},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID != "existing-id" || !saved.CreatedAt.Equal(created) || saved.Analysis.OverallScore != 91 {
		t.Fatalf("unexpected saved record: %+v", saved)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavedAnalysisListNewestFirst(t *testing.T) {
	repo, mock, done := newSavedRepoWithMock(t)
	defer done()

	now := time.Now()
	rows := sqlmock.NewRows(savedColumns).
		AddRow("a-2", "u-1", "4 Oak", "Oak", []byte(`{"overall_score":60}`), now, now).
		AddRow("a-1", "u-1", "12 Elm", "Elm", []byte(`{"overall_score":80}`), now.Add(-time.Hour), now)

	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs("u-1").
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != "a-2" || items[1].Analysis.OverallScore != 80 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavedAnalysisDeleteScopedToUser(t *testing.T) {
	repo, mock, done := newSavedRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM saved_analyses WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("a-1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "intruder", "a-1")
	if !domain.IsKind(err, domain.ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavedAnalysisGetReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newSavedRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM saved_analyses").
		WithArgs("missing", "u-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u-1", "missing")
	if !domain.IsKind(err, domain.ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavedAnalysisExists(t *testing.T) {
	repo, mock, done := newSavedRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u-1", "12 Elm St", "Elm").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), domain.SavedAnalysisKey{UserID: "u-1", PropertyInput: "12 Elm St", PropertyTitle: "Elm"})
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavedAnalysisEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newSavedRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS saved_analyses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSavedAnalysisDeleteAllForUser(t *testing.T) {
	repo, mock, done := newSavedRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM saved_analyses WHERE user_id = \\$1").
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteAllForUser(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteAllForUser() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
