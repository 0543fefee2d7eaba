package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

type SavedAnalysisRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSavedAnalysisRepository(db *sql.DB) *SavedAnalysisRepository {
	return &SavedAnalysisRepository{db: db, now: time.Now}
}

func (r *SavedAnalysisRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026031501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS saved_analyses (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	property_input TEXT NOT NULL,
	property_title TEXT NOT NULL,
	analysis_data JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, property_input, property_title)
);

CREATE INDEX IF NOT EXISTS idx_saved_analyses_user_created ON saved_analyses(user_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Save inserts a record or, when the (user, input, title) key exists,
// replaces its analysis and keeps the original id and created_at.
func (r *SavedAnalysisRepository) Save(ctx context.Context, analysis domain.SavedAnalysis) (*domain.SavedAnalysis, error) {
	payload, err := json.Marshal(analysis.Analysis)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis data: %w", err)
	}
	now := r.now().UTC()

	row := r.db.QueryRowContext(ctx, `
INSERT INTO saved_analyses (id, user_id, property_input, property_title, analysis_data, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5::jsonb,$6,$6)
ON CONFLICT (user_id, property_input, property_title)
DO UPDATE SET analysis_data = EXCLUDED.analysis_data, updated_at = EXCLUDED.updated_at
RETURNING id, user_id, property_input, property_title, analysis_data, created_at, updated_at
`, uuid.NewString(), analysis.UserID, analysis.PropertyInput, analysis.PropertyTitle, string(payload), now)

	saved, err := scanSavedAnalysis(row)
	if err != nil {
		return nil, fmt.Errorf("upsert saved analysis: %w", err)
	}
	return &saved, nil
}

func (r *SavedAnalysisRepository) List(ctx context.Context, userID string) ([]domain.SavedAnalysis, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, property_input, property_title, analysis_data, created_at, updated_at
FROM saved_analyses
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved analyses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SavedAnalysis, 0)
	for rows.Next() {
		item, err := scanSavedAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved analysis: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved analyses: %w", err)
	}
	return out, nil
}

func (r *SavedAnalysisRepository) Get(ctx context.Context, userID, id string) (*domain.SavedAnalysis, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, property_input, property_title, analysis_data, created_at, updated_at
FROM saved_analyses
WHERE id = $1 AND user_id = $2
`, id, userID)

	item, err := scanSavedAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get saved analysis", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get saved analysis: %w", err)
	}
	return &item, nil
}

// Delete removes a record only when it belongs to userID.
func (r *SavedAnalysisRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_analyses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete saved analysis: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete saved analysis rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrAnalysisNotFound, "delete saved analysis", fmt.Errorf("id=%s", id))
	}
	return nil
}

func (r *SavedAnalysisRepository) Exists(ctx context.Context, key domain.SavedAnalysisKey) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
	SELECT 1 FROM saved_analyses
	WHERE user_id = $1 AND property_input = $2 AND property_title = $3
)
`, key.UserID, key.PropertyInput, key.PropertyTitle).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check saved analysis: %w", err)
	}
	return exists, nil
}

func (r *SavedAnalysisRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM saved_analyses WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete saved analyses for user: %w", err)
	}
	return nil
}

type savedAnalysisScanner interface {
	Scan(dest ...interface{}) error
}

func scanSavedAnalysis(row savedAnalysisScanner) (domain.SavedAnalysis, error) {
	var item domain.SavedAnalysis
	var payload []byte
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.PropertyInput,
		&item.PropertyTitle,
		&payload,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return domain.SavedAnalysis{}, err
	}
	if err := json.Unmarshal(payload, &item.Analysis); err != nil {
		return domain.SavedAnalysis{}, fmt.Errorf("decode analysis data: %w", err)
	}
	return item, nil
}
