package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
)

// runRepository handles database operations for the replenishment run ledger
type runRepository struct {
	db *DB
}

// NewRunRepository creates a new run ledger repository
func NewRunRepository(db *DB) repository.RunRepository {
	return &runRepository{db: db}
}

type runRow struct {
	ID                  string         `db:"id"`
	Status              string         `db:"status"`
	Stage               string         `db:"stage"`
	ReferenceTime       time.Time      `db:"reference_time"`
	WindowStart         time.Time      `db:"window_start"`
	Considered          int            `db:"considered"`
	InsufficientHistory int            `db:"insufficient_history"`
	PolicySkipped       int            `db:"policy_skipped"`
	Updated             int            `db:"updated"`
	Unchanged           int            `db:"unchanged"`
	NotFound            int            `db:"not_found"`
	Failed              int            `db:"failed"`
	CancelledProducts   int            `db:"cancelled_products"`
	Cancelled           bool           `db:"cancelled"`
	ErrorMessage        sql.NullString `db:"error_message"`
	StartedAt           time.Time      `db:"started_at"`
	CompletedAt         sql.NullTime   `db:"completed_at"`
}

func (row runRow) toDomain() domain.RunSummary {
	status, ok := domain.ParseRunStatus(row.Status)
	if !ok {
		status = domain.RunStatusPending
	}

	s := domain.RunSummary{
		RunID:         row.ID,
		Status:        status,
		Stage:         domain.RunStage(row.Stage),
		ReferenceTime: row.ReferenceTime,
		WindowStart:   row.WindowStart,
		Counts: domain.RunCounts{
			Considered:          row.Considered,
			InsufficientHistory: row.InsufficientHistory,
			PolicySkipped:       row.PolicySkipped,
			Updated:             row.Updated,
			Unchanged:           row.Unchanged,
			NotFound:            row.NotFound,
			Failed:              row.Failed,
			Cancelled:           row.CancelledProducts,
		},
		Cancelled: row.Cancelled,
		Error:     row.ErrorMessage.String,
		StartedAt: row.StartedAt,
	}
	if row.CompletedAt.Valid {
		t := row.CompletedAt.Time
		s.CompletedAt = &t
	}
	return s
}

const runColumns = `
	id, status, stage, reference_time, window_start,
	considered, insufficient_history, policy_skipped, updated,
	unchanged, not_found, failed, cancelled_products, cancelled,
	error_message, started_at, completed_at
`

// CreateRun creates a new run record
func (r *runRepository) CreateRun(ctx context.Context, run *domain.RunSummary) error {
	query := `
		INSERT INTO replenishment_runs (
			id, status, stage, reference_time, window_start, started_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.RunID, run.Status, run.Stage, run.ReferenceTime, run.WindowStart, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating run %s: %w", run.RunID, err)
	}
	return nil
}

// UpdateRun stores status, stage and counters of an existing run
func (r *runRepository) UpdateRun(ctx context.Context, run *domain.RunSummary) error {
	query := `
		UPDATE replenishment_runs
		SET status = $1, stage = $2,
		    considered = $3, insufficient_history = $4, policy_skipped = $5,
		    updated = $6, unchanged = $7, not_found = $8, failed = $9,
		    cancelled_products = $10, cancelled = $11, error_message = $12,
		    completed_at = $13
		WHERE id = $14
	`

	c := run.Counts
	res, err := r.db.ExecContext(ctx, query,
		run.Status, run.Stage,
		c.Considered, c.InsufficientHistory, c.PolicySkipped,
		c.Updated, c.Unchanged, c.NotFound, c.Failed, c.Cancelled,
		run.Cancelled, nullString(run.Error), run.CompletedAt, run.RunID,
	)
	if err != nil {
		return fmt.Errorf("error updating run %s: %w", run.RunID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error updating run %s: %w", run.RunID, err)
	}
	if affected == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID
func (r *runRepository) GetRun(ctx context.Context, id string) (*domain.RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM replenishment_runs WHERE id = $1`

	var row runRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting run %s: %w", id, err)
	}

	s := row.toDomain()
	return &s, nil
}

// ListRuns returns the most recently started runs
func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM replenishment_runs ORDER BY started_at DESC LIMIT $1`

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}

	runs := make([]domain.RunSummary, len(rows))
	for i, row := range rows {
		runs[i] = row.toDomain()
	}
	return runs, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
