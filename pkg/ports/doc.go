/*
Package ports defines the driven ports (interfaces) of the Trivium engine.

These interfaces decouple the consensus workflow from external implementations,
allowing it to run against different storage backends, document sources and
collaborator transports.

# Key Interfaces

  - Gateway: invokes an external collaborator and returns a tagged result.
  - StateStore: persists the WorkflowState (load/save only).
  - ArtifactStore: holds the per-batch audit trail; presence of an artifact marks a step as done.
  - OutputDocument: the cumulative document, appended exactly once per batch.
  - DocumentSource: read-only reference documents keyed by name.
  - DistributedLocker: distributed mutual exclusion for multi-instance deployments.
*/
package ports
