package domain

import "strings"

// Issue is a specific objection raised by a reviewer against a span of the draft.
// ID is assigned at aggregation time and is only stable within one aggregation pass.
type Issue struct {
	ID         int    `json:"issue_id" mapstructure:"issue_id"`
	Source     string `json:"source,omitempty" mapstructure:"source"`
	Dimension  string `json:"dimension,omitempty" mapstructure:"dimension"`
	Sentence   string `json:"sentence,omitempty" mapstructure:"sentence"`
	Reason     string `json:"reason,omitempty" mapstructure:"reason"`
	Severity   string `json:"severity,omitempty" mapstructure:"severity"`
	Suggestion string `json:"suggestion,omitempty" mapstructure:"suggestion"`
}

// Review is the structured output of one reviewer for one round.
type Review struct {
	Dimension  string  `json:"dimension" mapstructure:"dimension"`
	Issues     []Issue `json:"issues" mapstructure:"issues"`
	ParseError string  `json:"parse_error,omitempty" mapstructure:"-"`
}

// ValidationVote is one validator's opinion on one aggregated issue.
type ValidationVote struct {
	IssueID int    `json:"issue_id" mapstructure:"issue_id"`
	Vote    string `json:"vote" mapstructure:"vote"`
	Reason  string `json:"reason,omitempty" mapstructure:"reason"`
}

// Accepts reports whether the vote is an accept, tolerating case and padding.
func (v ValidationVote) Accepts() bool {
	return strings.EqualFold(strings.TrimSpace(v.Vote), VoteAccept)
}

// Validation is the structured output of one validator for one round.
type Validation struct {
	Validator   string           `json:"validator,omitempty" mapstructure:"-"`
	Validations []ValidationVote `json:"validations" mapstructure:"validations"`
	ParseError  string           `json:"parse_error,omitempty" mapstructure:"-"`
}

// VoterReason keeps an individual validator's rationale for the audit trail.
type VoterReason struct {
	Validator string `json:"validator"`
	Vote      string `json:"vote"`
	Reason    string `json:"reason,omitempty"`
}

// VoteDetail is the derived per-issue audit record produced by the tally.
type VoteDetail struct {
	IssueID      int           `json:"issue_id"`
	AcceptCount  int           `json:"accept_count"`
	Threshold    int           `json:"threshold"`
	Accepted     bool          `json:"accepted"`
	VoterReasons []VoterReason `json:"voter_reasons"`
}

// RemainingIssue is an unresolved concern attached to a verdict.
type RemainingIssue struct {
	Severity    string `json:"severity,omitempty" mapstructure:"severity"`
	Description string `json:"description" mapstructure:"description"`
}

// Verdict is one voter's decision at the end of a round.
type Verdict struct {
	Voter           string           `json:"voter,omitempty" mapstructure:"-"`
	Verdict         string           `json:"verdict" mapstructure:"verdict"`
	RemainingIssues []RemainingIssue `json:"remaining_issues" mapstructure:"remaining_issues"`
	ParseError      string           `json:"parse_error,omitempty" mapstructure:"-"`
}

// Approves reports whether the verdict is an approval.
func (v Verdict) Approves() bool {
	return strings.EqualFold(strings.TrimSpace(v.Verdict), VerdictApprove)
}

// ConsensusPolicy decides how verdicts are combined.
type ConsensusPolicy string

const (
	// PolicyStrict requires every verdict to approve.
	PolicyStrict ConsensusPolicy = "strict"
	// PolicyMajority requires at least one approval.
	PolicyMajority ConsensusPolicy = "majority"
)

// ParsePolicy maps a configured mode to a policy. Anything other than strict is majority.
func ParsePolicy(mode string) ConsensusPolicy {
	if strings.EqualFold(strings.TrimSpace(mode), string(PolicyStrict)) {
		return PolicyStrict
	}
	return PolicyMajority
}

// BatchStatus is the terminal state of a batch run.
type BatchStatus string

const (
	StatusConsensusReached   BatchStatus = "consensus_reached"
	StatusMaxRoundsExhausted BatchStatus = "max_rounds_exhausted"
	StatusAlreadyCompleted   BatchStatus = "already_completed"
)

// BatchOutcome reports how a batch run ended.
type BatchOutcome struct {
	BatchID   string           `json:"batch_id"`
	Status    BatchStatus      `json:"status"`
	Rounds    int              `json:"rounds"`
	FinalText string           `json:"final_text,omitempty"`
	Remaining []RemainingIssue `json:"remaining_issues,omitempty"`
}
