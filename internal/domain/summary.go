package domain

import (
	"time"
)

// ProductResult records the outcome of one product within a run.
type ProductResult struct {
	ProductID    int64   `json:"product_id"`
	Outcome      Outcome `json:"outcome"`
	Observations int     `json:"observations"`
	Forecast     float64 `json:"forecast,omitempty"`
	MinQty       float64 `json:"min_qty,omitempty"`
	MaxQty       float64 `json:"max_qty,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// RunCounts holds the per-outcome counters of a run.
type RunCounts struct {
	Considered          int `json:"considered" db:"considered"`
	InsufficientHistory int `json:"insufficient_history" db:"insufficient_history"`
	PolicySkipped       int `json:"policy_skipped" db:"policy_skipped"`
	Updated             int `json:"updated" db:"updated"`
	Unchanged           int `json:"unchanged" db:"unchanged"`
	NotFound            int `json:"not_found" db:"not_found"`
	Failed              int `json:"failed" db:"failed"`
	Cancelled           int `json:"cancelled" db:"cancelled_products"`
}

// Add increments the counter matching the outcome.
func (c *RunCounts) Add(o Outcome) {
	switch o {
	case OutcomeInsufficientHistory:
		c.InsufficientHistory++
	case OutcomePolicySkipped:
		c.PolicySkipped++
	case OutcomeApplied:
		c.Updated++
	case OutcomeUnchanged:
		c.Unchanged++
	case OutcomeNotFound:
		c.NotFound++
	case OutcomeFailed:
		c.Failed++
	case OutcomeCancelled:
		c.Cancelled++
	}
}

// Accounted returns how many products received an outcome. Once a run has
// passed collecting it equals Considered.
func (c RunCounts) Accounted() int {
	return c.InsufficientHistory + c.PolicySkipped + c.Updated + c.Unchanged + c.NotFound + c.Failed + c.Cancelled
}

// RunSummary is the report produced by one replenishment run.
type RunSummary struct {
	RunID         string          `json:"run_id" db:"id"`
	Status        RunStatus       `json:"status" db:"status"`
	Stage         RunStage        `json:"stage" db:"stage"`
	ReferenceTime time.Time       `json:"reference_time" db:"reference_time"`
	WindowStart   time.Time       `json:"window_start" db:"window_start"`
	Counts        RunCounts       `json:"counts"`
	Results       []ProductResult `json:"results,omitempty"`
	Cancelled     bool            `json:"cancelled"`
	Error         string          `json:"error,omitempty" db:"error_message"`
	StartedAt     time.Time       `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// Record appends a product result and updates the counters.
func (s *RunSummary) Record(r ProductResult) {
	s.Results = append(s.Results, r)
	s.Counts.Add(r.Outcome)
}

// Duration returns how long the run took, or zero while it is still active.
func (s *RunSummary) Duration() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}
