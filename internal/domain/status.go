package domain

import "strings"

// RunStatus is the lifecycle state of a replenishment run in the ledger.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
)

// RunStage is the position of a run in the Collecting -> Forecasting -> Applying -> Done machine.
type RunStage string

const (
	StageCollecting  RunStage = "collecting"
	StageForecasting RunStage = "forecasting"
	StageApplying    RunStage = "applying"
	StageDone        RunStage = "done"
)

// Outcome is what happened to a single product during a run.
type Outcome string

const (
	OutcomeInsufficientHistory Outcome = "insufficient_history"
	OutcomePolicySkipped       Outcome = "policy_skipped"
	OutcomeApplied             Outcome = "updated"
	OutcomeUnchanged           Outcome = "unchanged"
	OutcomeNotFound            Outcome = "not_found"
	OutcomeFailed              Outcome = "failed"
	OutcomeCancelled           Outcome = "cancelled"
)

var outcomeLabels = map[Outcome]string{
	OutcomeInsufficientHistory: "Insufficient history",
	OutcomePolicySkipped:       "Skipped by policy",
	OutcomeApplied:             "Updated",
	OutcomeUnchanged:           "Unchanged",
	OutcomeNotFound:            "No orderpoint",
	OutcomeFailed:              "Failed",
	OutcomeCancelled:           "Not processed (run cancelled)",
}

// OutcomeLabel returns a human-readable label for an outcome.
func OutcomeLabel(o Outcome) string {
	if label, ok := outcomeLabels[o]; ok {
		return label
	}

	return "Unknown"
}

// ParseRunStatus returns the status for a given label (case-insensitive).
func ParseRunStatus(label string) (RunStatus, bool) {
	switch s := RunStatus(strings.ToLower(strings.TrimSpace(label))); s {
	case RunStatusPending, RunStatusProcessing, RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return s, true
	}

	return "", false
}
