package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/trivium/pkg/domain"
)

// FormatOutcome renders a batch outcome as markdown.
func FormatOutcome(out domain.BatchOutcome) string {
	var b strings.Builder

	switch out.Status {
	case domain.StatusConsensusReached:
		fmt.Fprintf(&b, "## %s: consensus reached after %s\n\n", out.BatchID, rounds(out.Rounds))
	case domain.StatusMaxRoundsExhausted:
		fmt.Fprintf(&b, "## %s: no consensus after %s\n\n", out.BatchID, rounds(out.Rounds))
		b.WriteString("The batch stays pending. Review the round artifacts, then `trivium resume` or `trivium state reset`.\n\n")
	case domain.StatusAlreadyCompleted:
		fmt.Fprintf(&b, "## %s: already in the document\n\n", out.BatchID)
		return b.String()
	default:
		fmt.Fprintf(&b, "## %s: %s\n\n", out.BatchID, out.Status)
	}

	if out.FinalText != "" {
		for _, line := range strings.Split(strings.TrimSpace(out.FinalText), "\n") {
			b.WriteString("> " + line + "\n")
		}
		b.WriteString("\n")
	}

	if len(out.Remaining) > 0 {
		b.WriteString("### Remaining issues\n\n")
		for _, issue := range out.Remaining {
			if issue.Severity != "" {
				fmt.Fprintf(&b, "- **%s**: %s\n", issue.Severity, issue.Description)
			} else {
				fmt.Fprintf(&b, "- %s\n", issue.Description)
			}
		}
	}
	return b.String()
}

func rounds(n int) string {
	if n == 1 {
		return "1 round"
	}
	return fmt.Sprintf("%d rounds", n)
}
