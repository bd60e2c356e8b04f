package workflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/trivium/internal/prompts"
	"github.com/aretw0/trivium/pkg/domain"
)

// SynthesisSeparator splits a synthesizer response into final text and notes.
const SynthesisSeparator = "===SYNTHESIS NOTES==="

// Bundle is the context shared by every prompt of a batch.
type Bundle struct {
	FlowDocument       string
	StyleGuide         string
	PreviousParagraphs string
	Instruction        string
	Chapter            int
	Paragraph          int
}

func (b Bundle) vars() map[string]string {
	return map[string]string{
		"flow_document":       b.FlowDocument,
		"write_paper_skill":   b.StyleGuide,
		"previous_paragraphs": b.PreviousParagraphs,
		"current_instruction": b.Instruction,
		"chapter":             strconv.Itoa(b.Chapter),
		"paragraph":           strconv.Itoa(b.Paragraph),
	}
}

// with returns the bundle variables extended by extra.
func (b Bundle) with(extra map[string]string) map[string]string {
	v := b.vars()
	for k, val := range extra {
		v[k] = val
	}
	return v
}

// loadContext assembles the bundle. The flow document is required.
func (o *Orchestrator) loadContext(ctx context.Context, ref domain.BatchRef) (Bundle, error) {
	o.enter(ctx, ref.BatchID, domain.StepContextLoaded, 0)

	flow, err := o.docs.Read(ctx, FlowDocument)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to read %s: %w", FlowDocument, err)
	}
	if strings.TrimSpace(flow) == "" {
		return Bundle{}, fmt.Errorf("%w: %s (run init first)", domain.ErrReferenceMissing, FlowDocument)
	}

	style, err := o.docs.Read(ctx, StyleGuide)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to read %s: %w", StyleGuide, err)
	}
	if strings.TrimSpace(style) == "" {
		if style, err = o.templates.Template(prompts.StructureGuide); err != nil {
			return Bundle{}, err
		}
	}

	previous, err := o.output.Read(ctx)
	if err != nil {
		return Bundle{}, fmt.Errorf("failed to read output document: %w", err)
	}

	o.leave(ctx, ref.BatchID, domain.StepContextLoaded, 0, false)
	return Bundle{
		FlowDocument:       flow,
		StyleGuide:         style,
		PreviousParagraphs: previous,
		Instruction:        ref.Instruction,
		Chapter:            ref.Chapter,
		Paragraph:          ref.Paragraph,
	}, nil
}

// draft collects one draft per drafter.
func (o *Orchestrator) draft(ctx context.Context, ws *Workspace, ref domain.BatchRef, b Bundle) ([]string, error) {
	o.enter(ctx, ref.BatchID, domain.StepDrafted, 0)

	// Drafts only feed synthesis; once it is checkpointed, failed drafters are not retried.
	synthesized, err := ws.SynthesisDone(ctx)
	if err != nil {
		return nil, err
	}
	if synthesized {
		o.leave(ctx, ref.BatchID, domain.StepDrafted, 0, true)
		return nil, nil
	}

	done, err := ws.DraftsDone(ctx, o.roles.Drafters)
	if err != nil {
		return nil, err
	}

	prompt, err := o.render(prompts.Draft, b.vars())
	if err != nil {
		return nil, err
	}

	tasks := make([]task, len(o.roles.Drafters))
	for i, agent := range o.roles.Drafters {
		tasks[i] = task{path: ws.DraftPath(agent), call: o.call(ref, agent, "draft", prompt)}
	}
	drafts, err := gather(ctx, o, ws, tasks, false, textCodec())
	if err != nil {
		return nil, err
	}

	o.leave(ctx, ref.BatchID, domain.StepDrafted, 0, done)
	return drafts, nil
}

// synthesize merges the drafts into the batch's merged draft.
func (o *Orchestrator) synthesize(ctx context.Context, ws *Workspace, ref domain.BatchRef, b Bundle, drafts []string) (string, error) {
	o.enter(ctx, ref.BatchID, domain.StepSynthesized, 0)

	done, err := ws.SynthesisDone(ctx)
	if err != nil {
		return "", err
	}
	if done {
		merged, err := ws.ReadText(ctx, ws.MergedPath())
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(merged) != "" {
			o.leave(ctx, ref.BatchID, domain.StepSynthesized, 0, true)
			return merged, nil
		}
	}

	var sections []string
	longest, longestAgent := "", ""
	for i, d := range drafts {
		if d == "" {
			continue
		}
		agent := o.roles.Drafters[i]
		sections = append(sections, fmt.Sprintf("### Draft from %s\n\n%s", agent, d))
		if len(d) > len(longest) {
			longest, longestAgent = d, agent
		}
	}
	if len(sections) == 0 {
		return "", fmt.Errorf("%w: every drafter returned an empty draft for %s", domain.ErrEmptyDraft, ref.BatchID)
	}

	prompt, err := o.render(prompts.Synthesis, b.with(map[string]string{
		"drafts": strings.Join(sections, "\n\n"),
	}))
	if err != nil {
		return "", err
	}
	text, err := o.invoke(ctx, o.call(ref, o.roles.Synthesizer, "synthesis", prompt))
	if err != nil {
		return "", err
	}

	merged, notes := splitOn(text, SynthesisSeparator)
	if merged == "" {
		o.logger.Warn("Synthesis produced no text, falling back to the longest draft",
			"batch_id", ref.BatchID, "agent", longestAgent)
		merged = longest
		notes = "Synthesis unavailable; using the draft from " + longestAgent + "."
	}

	if err := ws.WriteText(ctx, ws.NotesPath(), notes); err != nil {
		return "", err
	}
	// The merged draft is the checkpoint, so it is written last.
	if err := ws.WriteText(ctx, ws.MergedPath(), merged); err != nil {
		return "", err
	}

	o.leave(ctx, ref.BatchID, domain.StepSynthesized, 0, false)
	return merged, nil
}

// splitOn returns the trimmed text before and after the first sep.
// Without sep, the whole text is the head.
func splitOn(text, sep string) (head, tail string) {
	head, tail, _ = strings.Cut(text, sep)
	return strings.TrimSpace(head), strings.TrimSpace(tail)
}
