package consensus

import "github.com/aretw0/trivium/pkg/domain"

// Decision is the outcome of evaluating a round's verdicts.
type Decision struct {
	Passed     bool                    `json:"passed"`
	Policy     domain.ConsensusPolicy  `json:"policy"`
	Approvals  int                     `json:"approvals"`
	Rejections int                     `json:"rejections"`
	Remaining  []domain.RemainingIssue `json:"remaining_issues"`
}

// Evaluate combines verdicts under policy.
// Strict needs every verdict to approve; majority needs at least one. No verdicts never pass.
// Remaining is the union, in order, of the issues attached to non-approving verdicts.
func Evaluate(verdicts []domain.Verdict, policy domain.ConsensusPolicy) Decision {
	d := Decision{
		Policy:    policy,
		Remaining: make([]domain.RemainingIssue, 0),
	}

	seen := make(map[domain.RemainingIssue]bool)
	for _, v := range verdicts {
		if v.Approves() {
			d.Approvals++
			continue
		}
		d.Rejections++
		for _, ri := range v.RemainingIssues {
			if seen[ri] {
				continue
			}
			seen[ri] = true
			d.Remaining = append(d.Remaining, ri)
		}
	}

	switch {
	case len(verdicts) == 0:
		d.Passed = false
	case policy == domain.PolicyStrict:
		d.Passed = d.Rejections == 0
	default:
		d.Passed = d.Approvals > 0
	}
	return d
}
