/*
Package session serializes access to the shared workflow resources.

The WorkflowState record and the output document have a single writer at a time.
A Guard enforces that within a process with a reference-counted mutex per key, and
across processes with an optional distributed lock.
*/
package session
