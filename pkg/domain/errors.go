package domain

import "errors"

// ErrStateNotFound is returned when no workflow state has been persisted yet.
var ErrStateNotFound = errors.New("workflow state not found")

// ErrNoPendingBatch is returned by resume when no batch is in progress.
var ErrNoPendingBatch = errors.New("no pending batch to resume")

// ErrBatchInProgress is returned when a new batch is requested while another is still active.
var ErrBatchInProgress = errors.New("another batch is in progress")

// ErrInitRequired is returned when a batch is requested before the foundation exists.
var ErrInitRequired = errors.New("foundation missing: run init first")

// ErrTemplateMissing is returned when a prompt template cannot be resolved.
var ErrTemplateMissing = errors.New("template missing")

// ErrReferenceMissing is returned when a required reference document is absent.
var ErrReferenceMissing = errors.New("reference document missing")

// ErrEmptyDraft is returned when no collaborator produced any usable draft text.
var ErrEmptyDraft = errors.New("no usable draft produced")

// ErrUnknownAgent is returned when a call names a collaborator that is not registered.
var ErrUnknownAgent = errors.New("agent not registered")

// ErrArtifactNotFound is returned when a batch artifact does not exist.
var ErrArtifactNotFound = errors.New("artifact not found")
