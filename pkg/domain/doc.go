/*
Package domain contains the core domain models of the Trivium consensus engine.

It defines the persisted progress model (WorkflowState, BatchRef), the structured
shapes recovered from collaborator output (Review, Validation, Verdict) and the
derived audit records (VoteDetail). This package is kept pure and free of I/O,
following Hexagonal Architecture principles.

# Key Entities

  - WorkflowState: process-wide record of what has been completed; the sole source of truth for resumption.
  - BatchRef: one paragraph-writing task in flight (chapter, paragraph, instruction).
  - Issue: a single objection raised by a reviewer, numbered at aggregation time.
  - Verdict: an approve/reject decision cast by a voter at the end of a round.
*/
package domain
