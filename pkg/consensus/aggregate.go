package consensus

import (
	"fmt"
	"strings"

	"github.com/aretw0/trivium/pkg/domain"
)

// LabeledReview pairs a review with the label of the reviewer that produced it.
type LabeledReview struct {
	Label  string
	Review domain.Review
}

// Aggregation is the merged, numbered issue list of one round.
type Aggregation struct {
	Issues   []domain.Issue `json:"issues"`
	Rendered string         `json:"-"`
}

// Empty reports whether no reviewer raised any issue.
func (a Aggregation) Empty() bool {
	return len(a.Issues) == 0
}

// Aggregate assigns IDs 1..N to every issue in encounter order and tags each with its source.
func Aggregate(reviews []LabeledReview) Aggregation {
	issues := make([]domain.Issue, 0)
	for _, lr := range reviews {
		for _, is := range lr.Review.Issues {
			is.ID = len(issues) + 1
			is.Source = lr.Label
			if is.Dimension == "" {
				is.Dimension = lr.Review.Dimension
			}
			issues = append(issues, is)
		}
	}
	return Aggregation{Issues: issues, Rendered: Render(issues)}
}

// Render produces the human-readable numbered listing handed to validators and revisers.
func Render(issues []domain.Issue) string {
	if len(issues) == 0 {
		return "No issues.\n"
	}
	var b strings.Builder
	for i, is := range issues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### Issue %d\n", is.ID)
		fmt.Fprintf(&b, "- Source: %s\n", orDash(is.Source))
		fmt.Fprintf(&b, "- Dimension: %s\n", orDash(is.Dimension))
		fmt.Fprintf(&b, "- Severity: %s\n", orDash(is.Severity))
		fmt.Fprintf(&b, "- Sentence: %q\n", is.Sentence)
		fmt.Fprintf(&b, "- Reason: %s\n", orDash(is.Reason))
		fmt.Fprintf(&b, "- Suggestion: %s\n", orDash(is.Suggestion))
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
