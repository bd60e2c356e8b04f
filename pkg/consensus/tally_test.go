package consensus

import (
	"testing"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issues(n int) []domain.Issue {
	out := make([]domain.Issue, n)
	for i := range out {
		out[i] = domain.Issue{ID: i + 1, Source: "codex"}
	}
	return out
}

func votes(validator string, pairs ...any) domain.Validation {
	v := domain.Validation{Validator: validator}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Validations = append(v.Validations, domain.ValidationVote{
			IssueID: pairs[i].(int),
			Vote:    pairs[i+1].(string),
			Reason:  validator + " says " + pairs[i+1].(string),
		})
	}
	return v
}

func detail(t *testing.T, res TallyResult, id int) domain.VoteDetail {
	t.Helper()
	for _, d := range res.Details {
		if d.IssueID == id {
			return d
		}
	}
	require.Failf(t, "missing detail", "issue %d", id)
	return domain.VoteDetail{}
}

func TestTally_Threshold(t *testing.T) {
	vals := []domain.Validation{
		votes("claude", 1, "accept", 2, "accept", 3, "reject"),
		votes("codex", 1, "accept", 2, "reject"),
		votes("gemini", 1, "accept", 3, "accept"),
	}

	res := Tally(issues(3), vals, 2)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, 1, res.Accepted[0].ID)
	require.Len(t, res.Details, 3)

	d1 := detail(t, res, 1)
	assert.Equal(t, 3, d1.AcceptCount)
	assert.True(t, d1.Accepted)
	assert.Equal(t, 2, d1.Threshold)
	assert.Len(t, d1.VoterReasons, 3)

	d2 := detail(t, res, 2)
	assert.Equal(t, 1, d2.AcceptCount)
	assert.False(t, d2.Accepted)
	assert.Equal(t, "codex says reject", d2.VoterReasons[1].Reason)

	d3 := detail(t, res, 3)
	assert.Equal(t, 1, d3.AcceptCount)
	assert.Len(t, d3.VoterReasons, 2, "missing vote from codex is not recorded")
}

func TestTally_DefaultThreshold(t *testing.T) {
	res := Tally(issues(1), []domain.Validation{votes("a", 1, "accept"), votes("b", 1, "accept")}, 0)
	assert.Equal(t, domain.DefaultAcceptThreshold, res.Details[0].Threshold)
	assert.Len(t, res.Accepted, 1)
}

func TestTally_DuplicateVotesCountOnce(t *testing.T) {
	vals := []domain.Validation{
		votes("codex", 1, "accept", 1, "accept", 1, "accept"),
	}
	res := Tally(issues(1), vals, 2)
	assert.Equal(t, 1, detail(t, res, 1).AcceptCount)
	assert.Empty(t, res.Accepted)
}

func TestTally_UnknownIssueIgnored(t *testing.T) {
	res := Tally(issues(1), []domain.Validation{votes("codex", 42, "accept")}, 1)
	assert.Empty(t, res.Accepted)
	assert.Len(t, res.Details, 1)
}

func TestTally_AnonymousValidatorsAreDistinct(t *testing.T) {
	vals := []domain.Validation{
		{Validations: []domain.ValidationVote{{IssueID: 1, Vote: "accept"}}},
		{Validations: []domain.ValidationVote{{IssueID: 1, Vote: "accept"}}},
	}
	res := Tally(issues(1), vals, 2)
	assert.Len(t, res.Accepted, 1)
	assert.Equal(t, "validator_2", res.Details[0].VoterReasons[1].Validator)
}

func TestTally_Monotonicity(t *testing.T) {
	base := []domain.Validation{
		votes("a", 1, "reject", 2, "accept"),
		votes("b", 2, "accept"),
		votes("c"),
	}

	t.Run("Adding Accept Never Decreases Count", func(t *testing.T) {
		before := detail(t, Tally(issues(2), base, 2), 1).AcceptCount

		more := append([]domain.Validation{}, base...)
		more[2] = votes("c", 1, "accept")
		after := detail(t, Tally(issues(2), more, 2), 1).AcceptCount

		assert.GreaterOrEqual(t, after, before)
		assert.Equal(t, before+1, after)
	})

	t.Run("Raising Threshold Never Grows Accepted Set", func(t *testing.T) {
		prev := len(Tally(issues(2), base, 1).Accepted)
		for th := 2; th <= 4; th++ {
			cur := len(Tally(issues(2), base, th).Accepted)
			assert.LessOrEqual(t, cur, prev, "threshold %d", th)
			prev = cur
		}
	})

	t.Run("Count Bounded By Validators", func(t *testing.T) {
		flood := []domain.Validation{
			votes("a", 1, "accept", 1, "accept"),
			votes("b", 1, "accept", 1, "accept"),
		}
		res := Tally(issues(1), flood, 2)
		assert.LessOrEqual(t, res.Details[0].AcceptCount, len(flood))
	})
}
