package extract

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/trivium/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Snippet bounds the raw excerpt embedded in a fail-closed verdict.
const Snippet = 200

var errNoObject = errors.New("no JSON object found")

// Decode converts a recovered object into a typed struct.
// Input is weakly typed, so "3" decodes into an int field and a bare string
// decodes into a RemainingIssue description.
func Decode(value map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       remainingIssueHook,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	return dec.Decode(value)
}

// Into runs Parse then Decode.
// On failure it returns the truncated raw text alongside the error.
func Into(text string, out any) (string, error) {
	ex := Parse(text)
	if !ex.OK {
		return ex.Raw, errNoObject
	}
	if err := Decode(ex.Value, out); err != nil {
		return Truncate(text, RawLimit), fmt.Errorf("unexpected shape: %w", err)
	}
	return "", nil
}

var remainingIssueType = reflect.TypeOf(domain.RemainingIssue{})

func remainingIssueHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == remainingIssueType {
		return map[string]any{"description": data}, nil
	}
	return data, nil
}

// ReviewFrom parses a reviewer response.
// Unparseable output yields an empty review tagged with a parse error.
func ReviewFrom(text, dimension string) domain.Review {
	var r domain.Review
	if raw, err := Into(text, &r); err != nil {
		return domain.Review{Dimension: dimension, Issues: []domain.Issue{}, ParseError: parseError(err, raw)}
	}
	if r.Dimension == "" {
		r.Dimension = dimension
	}
	issues := make([]domain.Issue, 0, len(r.Issues))
	for _, is := range r.Issues {
		// IDs are assigned by the aggregator; anything sent by the reviewer is discarded.
		is.ID = 0
		if is.Dimension == "" {
			is.Dimension = r.Dimension
		}
		issues = append(issues, is)
	}
	r.Issues = issues
	return r
}

// ValidationFrom parses a validator response.
// Unparseable output yields no votes, which the tally treats as abstentions.
func ValidationFrom(text, validator string) domain.Validation {
	var v domain.Validation
	if raw, err := Into(text, &v); err != nil {
		return domain.Validation{Validator: validator, Validations: []domain.ValidationVote{}, ParseError: parseError(err, raw)}
	}
	v.Validator = validator
	if v.Validations == nil {
		v.Validations = []domain.ValidationVote{}
	}
	return v
}

// VerdictFrom parses a voter response. It fails closed: anything that is not a
// readable verdict becomes a reject carrying one critical remaining issue.
func VerdictFrom(text, voter string) domain.Verdict {
	var v domain.Verdict
	raw, err := Into(text, &v)
	if err == nil {
		switch strings.ToLower(strings.TrimSpace(v.Verdict)) {
		case domain.VerdictApprove, domain.VerdictReject:
			v.Verdict = strings.ToLower(strings.TrimSpace(v.Verdict))
			v.Voter = voter
			if v.RemainingIssues == nil {
				v.RemainingIssues = []domain.RemainingIssue{}
			}
			return v
		}
		err = fmt.Errorf("missing or unknown verdict %q", v.Verdict)
		raw = Truncate(text, RawLimit)
	}
	return domain.Verdict{
		Voter:   voter,
		Verdict: domain.VerdictReject,
		RemainingIssues: []domain.RemainingIssue{{
			Severity:    domain.SeverityCritical,
			Description: "Agent returned unparseable response: " + Truncate(text, Snippet),
		}},
		ParseError: parseError(err, raw),
	}
}

func parseError(err error, raw string) string {
	if raw == "" {
		return err.Error()
	}
	return err.Error() + ": " + raw
}
