package taxsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsValid(t *testing.T) {
	valid := []Status{
		StatusDraft, StatusPending, StatusSubmitted, StatusAccepted,
		StatusRejected, StatusCancelled, StatusError,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "status %s", s)
	}
	assert.False(t, Status("unknown").IsValid())
	assert.False(t, Status("").IsValid())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())

	assert.False(t, StatusDraft.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusSubmitted.IsTerminal())
	assert.False(t, StatusError.IsTerminal())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"draft to pending", StatusDraft, StatusPending, true},
		{"draft to error", StatusDraft, StatusError, true},
		{"draft cannot skip to submitted", StatusDraft, StatusSubmitted, false},
		{"pending to submitted", StatusPending, StatusSubmitted, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to accepted", StatusPending, StatusAccepted, true},
		{"pending cannot reject", StatusPending, StatusRejected, false},
		{"submitted to accepted", StatusSubmitted, StatusAccepted, true},
		{"submitted to rejected", StatusSubmitted, StatusRejected, true},
		{"submitted to cancelled", StatusSubmitted, StatusCancelled, true},
		{"accepted is terminal", StatusAccepted, StatusCancelled, false},
		{"accepted cannot resubmit", StatusAccepted, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
		{"rejected allows resubmission", StatusRejected, StatusPending, true},
		{"rejected cannot cancel", StatusRejected, StatusCancelled, false},
		{"error allows retry to pending", StatusError, StatusPending, true},
		{"error allows retry to submitted", StatusError, StatusSubmitted, true},
		{"error allows cancel", StatusError, StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestFailure(t *testing.T) {
	r := Failure("timeout", true)
	assert.False(t, r.Success)
	assert.Equal(t, "timeout", r.Error)
	assert.True(t, r.Simulated)
	assert.False(t, r.CheckedAt.IsZero())
}
