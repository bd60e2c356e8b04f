package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoles(t *testing.T) {
	r := DefaultRoles([]string{"claude", "codex", "gemini"})

	assert.Equal(t, "claude", r.Primary)
	assert.Equal(t, []string{"claude", "codex", "gemini"}, r.Drafters)
	assert.Equal(t, "claude", r.Synthesizer)
	assert.Equal(t, []Reviewer{
		{Agent: "codex", Dimension: DimensionCodeConsistency},
		{Agent: "gemini", Dimension: DimensionSkillCompliance},
	}, r.Reviewers)
	assert.Equal(t, []string{"codex", "gemini"}, r.Validators)
	assert.Equal(t, []string{"codex", "gemini"}, r.Voters)
	require.NoError(t, r.Validate())
}

func TestDefaultRoles_SingleAgent(t *testing.T) {
	r := DefaultRoles([]string{"solo"})

	assert.Equal(t, []string{"solo"}, r.Voters)
	require.Len(t, r.Reviewers, 2)
	assert.Equal(t, "solo", r.Reviewers[1].Agent)
	require.NoError(t, r.Validate(), "one agent on two dimensions does not collide")
	assert.Equal(t, []string{"solo"}, r.Agents())
}

func TestRoles_Validate(t *testing.T) {
	assert.Error(t, Roles{}.Validate())

	r := DefaultRoles([]string{"a", "b"})
	r.Voters = []string{"b", "b"}
	assert.ErrorContains(t, r.Validate(), `roles.voters lists "b" twice`)

	r = DefaultRoles([]string{"a", "b"})
	r.Reviewers = append(r.Reviewers, Reviewer{Agent: "b"})
	assert.ErrorContains(t, r.Validate(), "has no dimension")
}

func TestReviewer_TemplateName(t *testing.T) {
	assert.Equal(t, "review_code_consistency", Reviewer{Dimension: DimensionCodeConsistency}.TemplateName())
	assert.Equal(t, "review_security", Reviewer{Dimension: "security", Template: "review_security"}.TemplateName())
}
