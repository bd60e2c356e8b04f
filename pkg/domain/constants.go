package domain

// Vote values cast by validators on aggregated issues.
const (
	VoteAccept = "accept"
	VoteReject = "reject"
)

// Verdict values cast by voters at the end of a round.
const (
	VerdictApprove = "approve"
	VerdictReject  = "reject"
)

// Severity levels. Collaborators may send others; these are the ones the engine emits itself.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityMinor    = "minor"
)

// DefaultAcceptThreshold is the number of accept votes an issue needs to be acted upon.
const DefaultAcceptThreshold = 2

// DefaultMaxRounds bounds the debate loop of a batch.
const DefaultMaxRounds = 3
