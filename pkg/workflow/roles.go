package workflow

import (
	"errors"
	"fmt"
	"slices"
)

// Review dimensions shipped with built-in templates.
const (
	DimensionCodeConsistency = "code_consistency"
	DimensionSkillCompliance = "skill_compliance"
)

// Reviewer assigns an agent to one review dimension.
type Reviewer struct {
	Agent     string `json:"agent" yaml:"agent" koanf:"agent"`
	Dimension string `json:"dimension" yaml:"dimension" koanf:"dimension"`
	// Template overrides the prompt template; defaults to "review_<dimension>".
	Template string `json:"template,omitempty" yaml:"template,omitempty" koanf:"template"`
}

// TemplateName returns the prompt template used by the reviewer.
func (r Reviewer) TemplateName() string {
	if r.Template != "" {
		return r.Template
	}
	return "review_" + r.Dimension
}

// Key identifies the reviewer within a round. It names the review artifact.
func (r Reviewer) Key() string {
	return r.Agent + "_" + r.Dimension
}

// Roles maps pipeline steps to collaborators.
type Roles struct {
	Primary     string     `json:"primary,omitempty" yaml:"primary,omitempty" koanf:"primary"`
	Drafters    []string   `json:"drafters,omitempty" yaml:"drafters,omitempty" koanf:"drafters"`
	Synthesizer string     `json:"synthesizer,omitempty" yaml:"synthesizer,omitempty" koanf:"synthesizer"`
	Reviewers   []Reviewer `json:"reviewers,omitempty" yaml:"reviewers,omitempty" koanf:"reviewers"`
	Validators  []string   `json:"validators,omitempty" yaml:"validators,omitempty" koanf:"validators"`
	Reviser     string     `json:"reviser,omitempty" yaml:"reviser,omitempty" koanf:"reviser"`
	Polisher    string     `json:"polisher,omitempty" yaml:"polisher,omitempty" koanf:"polisher"`
	Voters      []string   `json:"voters,omitempty" yaml:"voters,omitempty" koanf:"voters"`
}

// DefaultRoles derives roles from the registered agents.
// The first agent is primary: it synthesizes, revises and polishes. Every other agent
// reviews, validates and votes. With a single agent, it plays every role.
func DefaultRoles(agents []string) Roles {
	if len(agents) == 0 {
		return Roles{}
	}
	primary := agents[0]
	secondaries := slices.Clone(agents[1:])
	if len(secondaries) == 0 {
		secondaries = []string{primary}
	}

	reviewers := []Reviewer{{Agent: secondaries[0], Dimension: DimensionCodeConsistency}}
	reviewers = append(reviewers, Reviewer{
		Agent:     secondaries[1%len(secondaries)],
		Dimension: DimensionSkillCompliance,
	})

	return Roles{
		Primary:     primary,
		Drafters:    slices.Clone(agents),
		Synthesizer: primary,
		Reviewers:   reviewers,
		Validators:  slices.Clone(secondaries),
		Reviser:     primary,
		Polisher:    primary,
		Voters:      slices.Clone(secondaries),
	}
}

// Agents returns every agent referenced by the roles, without duplicates.
func (r Roles) Agents() []string {
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if n != "" && !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
	}
	add(r.Primary)
	add(r.Drafters...)
	add(r.Synthesizer)
	for _, rv := range r.Reviewers {
		add(rv.Agent)
	}
	add(r.Validators...)
	add(r.Reviser, r.Polisher)
	add(r.Voters...)
	return out
}

// Validate checks that every step has a collaborator and that artifact names cannot collide.
func (r Roles) Validate() error {
	var errs []error
	need := func(field string, ok bool) {
		if !ok {
			errs = append(errs, fmt.Errorf("roles.%s is required", field))
		}
	}
	need("drafters", len(r.Drafters) > 0)
	need("synthesizer", r.Synthesizer != "")
	need("reviewers", len(r.Reviewers) > 0)
	need("validators", len(r.Validators) > 0)
	need("reviser", r.Reviser != "")
	need("polisher", r.Polisher != "")
	need("voters", len(r.Voters) > 0)

	unique := func(field string, names []string) {
		seen := make(map[string]bool)
		for _, n := range names {
			if n == "" {
				errs = append(errs, fmt.Errorf("roles.%s contains an empty agent name", field))
				continue
			}
			if seen[n] {
				errs = append(errs, fmt.Errorf("roles.%s lists %q twice", field, n))
			}
			seen[n] = true
		}
	}
	unique("drafters", r.Drafters)
	unique("validators", r.Validators)
	unique("voters", r.Voters)

	keys := make([]string, 0, len(r.Reviewers))
	for _, rv := range r.Reviewers {
		if rv.Dimension == "" {
			errs = append(errs, fmt.Errorf("roles.reviewers: agent %q has no dimension", rv.Agent))
		}
		keys = append(keys, rv.Key())
	}
	unique("reviewers", keys)

	return errors.Join(errs...)
}
