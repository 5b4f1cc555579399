package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func results(statuses ...StepResultStatus) []TestStepResult {
	out := make([]TestStepResult, len(statuses))
	for i, s := range statuses {
		out[i] = TestStepResult{StepID: string(rune('a' + i)), Status: s}
	}
	return out
}

func TestDeriveItemStatus(t *testing.T) {
	cases := []struct {
		name    string
		steps   int
		results []TestStepResult
		want    ItemStatus
	}{
		{"no steps", 0, nil, ItemStatusPending},
		{"not started", 3, nil, ItemStatusPending},
		{"all pending", 2, results(StepResultStatusPending, StepResultStatusPending), ItemStatusPending},
		{"some passed", 3, results(StepResultStatusPassed, StepResultStatusPending), ItemStatusPartial},
		{"all passed", 2, results(StepResultStatusPassed, StepResultStatusPassed), ItemStatusPassed},
		{"passed and acknowledged", 2, results(StepResultStatusPassed, StepResultStatusAcknowledged), ItemStatusPassed},
		{"any failed wins", 3, results(StepResultStatusFailed, StepResultStatusPassed, StepResultStatusPassed), ItemStatusFailed},
		{"failed with pending", 3, results(StepResultStatusFailed), ItemStatusFailed},
		{"rows missing for new steps", 3, results(StepResultStatusPassed, StepResultStatusPassed), ItemStatusPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveItemStatus(tc.steps, tc.results))
		})
	}
}

func TestComputeProgressLabel(t *testing.T) {
	p := ComputeProgress(3, results(StepResultStatusFailed, StepResultStatusPassed, StepResultStatusPassed))
	assert.Equal(t, 2, p.Passed)
	assert.Equal(t, 1, p.Failed)
	assert.Equal(t, 0, p.Pending)
	assert.Equal(t, "2/3 passed", p.Label())
}

func TestItemSummaryFailureNotes(t *testing.T) {
	steps := []ChecklistItemStep{
		{StepID: "s1", Title: "Open page"},
		{StepID: "s2", Title: "Click checkout"},
		{StepID: "s3", Title: "See receipt"},
	}
	res := []TestStepResult{
		{StepID: "s1", Status: StepResultStatusPassed},
		{StepID: "s2", Status: StepResultStatusFailed, Notes: "button missing"},
		{StepID: "s3", Status: StepResultStatusPassed},
	}
	summary := NewItemSummary(ChecklistItem{ItemID: "i1"}, steps, &TestRun{RunID: "r1"}, res)

	assert.Equal(t, ItemStatusFailed, summary.Status)
	assert.Equal(t, "2/3 passed", summary.Label)
	assert.Equal(t, []StepNote{{StepTitle: "Click checkout", Notes: "button missing"}}, summary.FailureNotes())
}

func TestStepTypeAllowsStatus(t *testing.T) {
	assert.True(t, StepTypeTest.AllowsStatus(StepResultStatusPassed))
	assert.True(t, StepTypeTest.AllowsStatus(StepResultStatusFailed))
	assert.False(t, StepTypeTest.AllowsStatus(StepResultStatusAcknowledged))
	assert.True(t, StepTypeDelay.AllowsStatus(StepResultStatusAcknowledged))
	assert.False(t, StepTypeDelay.AllowsStatus(StepResultStatusFailed))
	assert.False(t, StepTypeInfo.AllowsStatus(StepResultStatusFailed))
	assert.True(t, StepTypeInfo.AllowsStatus(StepResultStatusPending))
}

func TestSessionStatusTransitions(t *testing.T) {
	assert.True(t, SessionStatusDraft.CanTransitionTo(SessionStatusActive))
	assert.True(t, SessionStatusActive.CanTransitionTo(SessionStatusClosed))
	assert.True(t, SessionStatusClosed.CanTransitionTo(SessionStatusActive))
	assert.False(t, SessionStatusActive.CanTransitionTo(SessionStatusDraft))
}

func TestActorKindRoundTrip(t *testing.T) {
	for _, k := range []ActorKind{ActorKindInternal, ActorKindPMCollaborator, ActorKindGuest} {
		parsed, err := ParseActorKind(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, parsed)
		assert.NotEmpty(t, k.Label())
	}
	_, err := ParseActorKind("robot")
	assert.Error(t, err)
}
