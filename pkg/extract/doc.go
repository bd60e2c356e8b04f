/*
Package extract recovers structured values from free-form collaborator output.

Collaborators are asked for JSON but routinely wrap it in prose, code fences or
trailing commentary. Object applies a layered strategy (whole text, fenced block,
brace scan) and never fails loudly: callers get either a value or a sentinel that
keeps a truncated copy of the raw text for diagnostics.

The typed helpers (ReviewFrom, ValidationFrom, VerdictFrom) add the conservative
fallbacks the workflow relies on: an unreadable review reports no issues, and an
unreadable verdict rejects.
*/
package extract
