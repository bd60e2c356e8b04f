package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchID(t *testing.T) {
	assert.Equal(t, "ch1_p1", BatchID(1, 1))
	assert.Equal(t, "ch12_p3", BatchID(12, 3))
}

func TestWorkflowState_MarkCompletedIsOrderedSet(t *testing.T) {
	s := NewWorkflowState()
	s.MarkCompleted("ch1_p1")
	s.MarkCompleted("ch1_p2")
	s.MarkCompleted("ch1_p1")

	assert.Equal(t, []string{"ch1_p1", "ch1_p2"}, s.CompletedBatches)
	assert.True(t, s.IsCompleted("ch1_p2"))
	assert.False(t, s.IsCompleted("ch2_p1"))
}

func TestWorkflowState_Begin(t *testing.T) {
	s := NewWorkflowState()
	ref := NewBatchRef(1, 1, "intro")

	require.NoError(t, s.Begin(ref))
	require.NotNil(t, s.CurrentBatch)
	assert.Equal(t, "ch1_p1", s.CurrentBatch.BatchID)

	// Re-entering the same batch is allowed (resume).
	require.NoError(t, s.Begin(ref))

	err := s.Begin(NewBatchRef(1, 2, "next"))
	assert.ErrorIs(t, err, ErrBatchInProgress)
	assert.Equal(t, "ch1_p1", s.CurrentBatch.BatchID)
}

func TestWorkflowState_CloneIsDeep(t *testing.T) {
	s := NewWorkflowState()
	require.NoError(t, s.Begin(NewBatchRef(2, 1, "methods")))
	s.MarkCompleted("ch1_p1")

	c := s.Clone()
	c.CurrentBatch.Instruction = "changed"
	c.Progress(StepVoting, 2)
	c.MarkCompleted("ch1_p2")

	assert.Equal(t, "methods", s.CurrentBatch.Instruction)
	assert.Empty(t, s.CurrentBatch.Step)
	assert.Equal(t, []string{"ch1_p1"}, s.CompletedBatches)
	assert.Equal(t, StepVoting, c.CurrentBatch.Step)
	assert.Equal(t, 2, c.CurrentBatch.Round)
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyStrict, ParsePolicy("strict"))
	assert.Equal(t, PolicyStrict, ParsePolicy(" STRICT "))
	assert.Equal(t, PolicyMajority, ParsePolicy("majority"))
	assert.Equal(t, PolicyMajority, ParsePolicy("anything-else"))
	assert.Equal(t, PolicyMajority, ParsePolicy(""))
}

func TestVerdictAndVoteNormalization(t *testing.T) {
	assert.True(t, Verdict{Verdict: " Approve"}.Approves())
	assert.False(t, Verdict{Verdict: "reject"}.Approves())
	assert.False(t, Verdict{}.Approves())
	assert.True(t, ValidationVote{Vote: "ACCEPT"}.Accepts())
	assert.False(t, ValidationVote{Vote: "reject"}.Accepts())
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnStepEnter: func(context.Context, *StepEvent) { calls = append(calls, "a") }}
	b := LifecycleHooks{
		OnStepEnter: func(context.Context, *StepEvent) { calls = append(calls, "b") },
		OnAgentCall: func(context.Context, *AgentEvent) { calls = append(calls, "b-agent") },
	}

	merged := a.Merge(b)
	merged.OnStepEnter(context.Background(), &StepEvent{})
	merged.OnAgentCall(context.Background(), &AgentEvent{})

	assert.Equal(t, []string{"a", "b", "b-agent"}, calls)
	assert.Nil(t, merged.OnRoundComplete)
}
