package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Step marks the last pipeline transition recorded for a batch.
type Step string

const (
	StepContextLoaded Step = "context_loaded"
	StepDrafted       Step = "drafted"
	StepSynthesized   Step = "synthesized"
	StepReviewing     Step = "reviewing"
	StepValidating    Step = "validating"
	StepRevising      Step = "revising"
	StepVoting        Step = "voting"
	StepConsensus     Step = "consensus_reached"
	StepExhausted     Step = "max_rounds_exhausted"
)

// BatchRef identifies one paragraph-writing task in flight.
type BatchRef struct {
	BatchID     string    `json:"batch_id"`
	Chapter     int       `json:"chapter"`
	Paragraph   int       `json:"paragraph"`
	Instruction string    `json:"instruction"`
	StartedAt   time.Time `json:"started_at"`

	// Step and Round are progress markers for operators.
	// Resumption never trusts them; it relies on the batch workspace instead.
	Step  Step `json:"step,omitempty"`
	Round int  `json:"round,omitempty"`
}

// BatchID returns the canonical identifier for a chapter/paragraph pair.
func BatchID(chapter, paragraph int) string {
	return fmt.Sprintf("ch%d_p%d", chapter, paragraph)
}

// NewBatchRef creates a reference for a new paragraph task.
func NewBatchRef(chapter, paragraph int, instruction string) BatchRef {
	return BatchRef{
		BatchID:     BatchID(chapter, paragraph),
		Chapter:     chapter,
		Paragraph:   paragraph,
		Instruction: instruction,
		StartedAt:   time.Now().UTC(),
	}
}

// WorkflowState is the process-wide persisted progress record.
type WorkflowState struct {
	InitCompleted    bool      `json:"init_completed"`
	CurrentBatch     *BatchRef `json:"current_batch,omitempty"`
	CompletedBatches []string  `json:"completed_batches"`
	UpdatedAt        time.Time `json:"updated_at,omitzero"`
}

// NewWorkflowState returns the default state used on first run.
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{
		CompletedBatches: []string{},
	}
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (s *WorkflowState) Clone() *WorkflowState {
	if s == nil {
		return nil
	}
	out := *s
	if s.CurrentBatch != nil {
		ref := *s.CurrentBatch
		out.CurrentBatch = &ref
	}
	out.CompletedBatches = slices.Clone(s.CompletedBatches)
	if out.CompletedBatches == nil {
		out.CompletedBatches = []string{}
	}
	return &out
}

// IsCompleted reports whether the batch was already appended to the output document.
func (s *WorkflowState) IsCompleted(batchID string) bool {
	return slices.Contains(s.CompletedBatches, batchID)
}

// MarkCompleted records a batch as done. CompletedBatches behaves as an ordered set.
func (s *WorkflowState) MarkCompleted(batchID string) {
	if !s.IsCompleted(batchID) {
		s.CompletedBatches = append(s.CompletedBatches, batchID)
	}
}

// Begin sets the batch in flight.
// Returns ErrBatchInProgress if a different batch is still active.
func (s *WorkflowState) Begin(ref BatchRef) error {
	if s.CurrentBatch != nil && s.CurrentBatch.BatchID != ref.BatchID {
		return fmt.Errorf("%w: %s", ErrBatchInProgress, s.CurrentBatch.BatchID)
	}
	if s.CurrentBatch == nil {
		s.CurrentBatch = &ref
	}
	return nil
}

// Progress updates the informational step markers of the active batch.
func (s *WorkflowState) Progress(step Step, round int) {
	if s.CurrentBatch == nil {
		return
	}
	s.CurrentBatch.Step = step
	s.CurrentBatch.Round = round
}

// AppendParagraph appends a paragraph to a document, separating paragraphs with a blank line.
func AppendParagraph(doc, paragraph string) string {
	doc = strings.TrimRight(doc, "\n")
	paragraph = strings.TrimSpace(paragraph)
	if doc == "" {
		return paragraph + "\n"
	}
	return doc + "\n\n" + paragraph + "\n"
}
