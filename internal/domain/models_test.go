package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderpointMatchesExactly(t *testing.T) {
	op := Orderpoint{MinQty: 5.00002, MaxQty: 10.00004}

	assert.True(t, op.Matches(Thresholds{MinQty: 5.00002, MaxQty: 10.00004}))
	assert.False(t, op.Matches(Thresholds{MinQty: 5.000005, MaxQty: 10.00001}), "sub-1e-4 difference is a change")
	assert.False(t, op.Matches(Thresholds{MinQty: 5.00002, MaxQty: 10.00005}))
}

func TestThresholdsRound(t *testing.T) {
	th := Thresholds{ProductID: 7, MinQty: 10.0 / 6, MaxQty: 10.0 / 3}

	rounded := th.Round(4)
	assert.Equal(t, int64(7), rounded.ProductID)
	assert.Equal(t, 1.6667, rounded.MinQty)
	assert.Equal(t, 3.3333, rounded.MaxQty)
	assert.True(t, Orderpoint{MinQty: 1.6667, MaxQty: 3.3333}.Matches(rounded))
	assert.Equal(t, 10.0/3, th.MaxQty, "receiver is not modified")
}

func TestRunSummaryRecord(t *testing.T) {
	var s RunSummary
	s.Record(ProductResult{ProductID: 1, Outcome: OutcomeApplied})
	s.Record(ProductResult{ProductID: 2, Outcome: OutcomeFailed})
	s.Record(ProductResult{ProductID: 3, Outcome: OutcomeInsufficientHistory})

	assert.Len(t, s.Results, 3)
	assert.Equal(t, RunCounts{Updated: 1, Failed: 1, InsufficientHistory: 1}, s.Counts)
	assert.Zero(t, s.Duration())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	s.StartedAt, s.CompletedAt = start, &end
	assert.Equal(t, 90*time.Second, s.Duration())
}

func TestRunCountsAccounted(t *testing.T) {
	s := RunSummary{Counts: RunCounts{Considered: 4}}
	s.Record(ProductResult{ProductID: 1, Outcome: OutcomeApplied})
	s.Record(ProductResult{ProductID: 2, Outcome: OutcomePolicySkipped})
	assert.Equal(t, 2, s.Counts.Accounted())

	s.Record(ProductResult{ProductID: 3, Outcome: OutcomeCancelled})
	s.Record(ProductResult{ProductID: 4, Outcome: OutcomeCancelled})
	assert.Equal(t, 2, s.Counts.Cancelled)
	assert.Equal(t, s.Counts.Considered, s.Counts.Accounted())
	assert.Equal(t, "Not processed (run cancelled)", OutcomeLabel(OutcomeCancelled))
}

func TestParseRunStatus(t *testing.T) {
	s, ok := ParseRunStatus(" Completed ")
	assert.True(t, ok)
	assert.Equal(t, RunStatusCompleted, s)

	_, ok = ParseRunStatus("exploded")
	assert.False(t, ok)

	assert.Equal(t, "Updated", OutcomeLabel(OutcomeApplied))
	assert.Equal(t, "Unknown", OutcomeLabel(Outcome("x")))
}
