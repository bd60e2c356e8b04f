// Package workflow drives one paragraph through the consensus pipeline:
// draft, synthesize, then up to MaxRounds rounds of review, validate, revise and vote.
//
// Every step is checkpointed as an artifact in the batch Workspace, and the
// WorkflowState is saved after every transition, so a run interrupted at any point
// resumes by calling Run again with the same BatchRef. Steps whose artifacts exist
// are not re-executed and cause no collaborator calls.
package workflow
