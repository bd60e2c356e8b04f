package consensus

import (
	"strconv"

	"github.com/aretw0/trivium/pkg/domain"
)

// TallyResult holds the retained issues and the audit record of every issue.
type TallyResult struct {
	Accepted []domain.Issue      `json:"accepted"`
	Details  []domain.VoteDetail `json:"details"`
}

// Tally counts accept votes per issue and keeps those reaching threshold.
//
// A validator counts at most once per issue: its first vote for an issue wins and
// later duplicates are ignored. A missing vote is neither accept nor reject. Votes
// for unknown issue IDs are dropped. A threshold below 1 uses DefaultAcceptThreshold.
func Tally(issues []domain.Issue, validations []domain.Validation, threshold int) TallyResult {
	if threshold < 1 {
		threshold = domain.DefaultAcceptThreshold
	}

	details := make(map[int]*domain.VoteDetail, len(issues))
	for _, is := range issues {
		details[is.ID] = &domain.VoteDetail{
			IssueID:      is.ID,
			Threshold:    threshold,
			VoterReasons: []domain.VoterReason{},
		}
	}

	for i, v := range validations {
		validator := v.Validator
		if validator == "" {
			validator = "validator_" + strconv.Itoa(i+1)
		}
		seen := make(map[int]bool)
		for _, vote := range v.Validations {
			d, ok := details[vote.IssueID]
			if !ok || seen[vote.IssueID] {
				continue
			}
			seen[vote.IssueID] = true
			if vote.Accepts() {
				d.AcceptCount++
			}
			d.VoterReasons = append(d.VoterReasons, domain.VoterReason{
				Validator: validator,
				Vote:      vote.Vote,
				Reason:    vote.Reason,
			})
		}
	}

	res := TallyResult{
		Accepted: make([]domain.Issue, 0),
		Details:  make([]domain.VoteDetail, 0, len(issues)),
	}
	for _, is := range issues {
		d := details[is.ID]
		d.Accepted = d.AcceptCount >= threshold
		if d.Accepted {
			res.Accepted = append(res.Accepted, is)
		}
		res.Details = append(res.Details, *d)
	}
	return res
}
