package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/andresuchdata/smart-replenishment/internal/domain"
)

// ReportArchiver persists run summaries outside the database.
type ReportArchiver interface {
	Archive(ctx context.Context, summary *domain.RunSummary) (string, error)
}

type objectArchiver struct {
	store  ObjectStorage
	prefix string
}

type noopArchiver struct{}

// NewReportArchiver writes each summary as JSON under prefix/YYYY/MM/DD/<run id>.json.
func NewReportArchiver(store ObjectStorage, prefix string) ReportArchiver {
	return &objectArchiver{store: store, prefix: strings.Trim(prefix, "/")}
}

func NewNoopReportArchiver() ReportArchiver {
	return noopArchiver{}
}

// ReportKey returns the object key of a run summary.
func ReportKey(prefix string, summary *domain.RunSummary) string {
	day := summary.StartedAt.UTC().Format("2006/01/02")
	return path.Join(strings.Trim(prefix, "/"), day, summary.RunID+".json")
}

func (a *objectArchiver) Archive(ctx context.Context, summary *domain.RunSummary) (string, error) {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode run summary: %w", err)
	}

	key := ReportKey(a.prefix, summary)
	if err := a.store.UploadObject(ctx, key, payload, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

func (noopArchiver) Archive(ctx context.Context, summary *domain.RunSummary) (string, error) {
	return "", nil
}
