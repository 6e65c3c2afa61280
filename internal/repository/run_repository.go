// internal/repository/run_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
)

// RunRepository keeps the ledger of replenishment runs.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.RunSummary) error
	UpdateRun(ctx context.Context, run *domain.RunSummary) error
	GetRun(ctx context.Context, id string) (*domain.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}
