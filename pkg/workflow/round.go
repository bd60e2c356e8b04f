package workflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aretw0/trivium/internal/prompts"
	"github.com/aretw0/trivium/pkg/consensus"
	"github.com/aretw0/trivium/pkg/domain"
	"github.com/aretw0/trivium/pkg/extract"
)

// RevisionSeparator splits a reviser response into revised text and change log.
const RevisionSeparator = "===REVISION LOG==="

const noRevisionLog = "No revisions were made in this round."

// roundResult summarizes one executed or replayed round.
type roundResult struct {
	Draft    string
	Issues   int
	Accepted int
	Decision consensus.Decision
}

// replayRound evaluates a round whose verdicts are all persisted, under the current policy.
// An unreadable verdict counts as a rejection.
func (o *Orchestrator) replayRound(ctx context.Context, ws *Workspace, ref domain.BatchRef, round int, input string) (roundResult, error) {
	verdicts := make([]domain.Verdict, 0, len(o.roles.Voters))
	for _, voter := range o.roles.Voters {
		content, err := ws.ReadText(ctx, ws.VerdictPath(round, voter))
		if err != nil {
			return roundResult{}, err
		}
		var v domain.Verdict
		if err := json.Unmarshal([]byte(content), &v); err != nil {
			o.logger.Warn("Persisted verdict is unreadable, treating it as a rejection",
				"batch_id", ref.BatchID, "round", round, "agent", voter, "err", err)
			v = domain.Verdict{Voter: voter, Verdict: domain.VerdictReject}
		}
		verdicts = append(verdicts, v)
	}

	draft, err := ws.ReadText(ctx, ws.VotedDraftPath(round))
	if err != nil {
		return roundResult{}, err
	}
	if draft == "" {
		draft = input
	}

	res := roundResult{Draft: draft, Decision: consensus.Evaluate(verdicts, o.policy)}
	o.roundComplete(ctx, ref, round, res, true)
	return res, nil
}

// runRound executes review, validation, revision and voting for one round.
// Unless fresh is set, sub-step artifacts already persisted for the round are reused.
func (o *Orchestrator) runRound(ctx context.Context, st *domain.WorkflowState, ws *Workspace, ref domain.BatchRef, b Bundle, round int, input string, fresh bool) (roundResult, error) {
	logger := o.logger.With("batch_id", ref.BatchID, "round", round)
	res := roundResult{Draft: input}

	// Review.
	if err := o.advance(ctx, st, domain.StepReviewing, round); err != nil {
		return res, err
	}
	o.enter(ctx, ref.BatchID, domain.StepReviewing, round)
	reviewed, err := ws.ReviewDone(ctx, round, o.roles.Reviewers)
	if err != nil {
		return res, err
	}
	reviews, err := o.review(ctx, ws, ref, b, round, input, fresh)
	if err != nil {
		return res, err
	}
	o.leave(ctx, ref.BatchID, domain.StepReviewing, round, reviewed && !fresh)

	agg := consensus.Aggregate(reviews)
	res.Issues = len(agg.Issues)
	if err := ws.WriteJSON(ctx, ws.IssuesPath(round), agg.Issues); err != nil {
		return res, err
	}
	if err := ws.WriteText(ctx, ws.IssuesReportPath(round), agg.Rendered); err != nil {
		return res, err
	}

	revisionLog := noRevisionLog
	if agg.Empty() {
		logger.Info("No issues raised, skipping validation and revision")
	} else {
		if err := o.advance(ctx, st, domain.StepValidating, round); err != nil {
			return res, err
		}
		accepted, err := o.validate(ctx, ws, ref, b, round, input, agg, fresh)
		if err != nil {
			return res, err
		}
		res.Accepted = len(accepted)

		if len(accepted) == 0 {
			logger.Info("No issue reached the accept threshold, skipping revision", "issues", len(agg.Issues))
		} else {
			if err := o.advance(ctx, st, domain.StepRevising, round); err != nil {
				return res, err
			}
			res.Draft, revisionLog, err = o.revise(ctx, ws, ref, b, round, input, accepted, fresh)
			if err != nil {
				return res, err
			}
		}
	}

	// Vote.
	if err := ws.WriteText(ctx, ws.VotedDraftPath(round), res.Draft); err != nil {
		return res, err
	}
	if err := o.advance(ctx, st, domain.StepVoting, round); err != nil {
		return res, err
	}
	o.enter(ctx, ref.BatchID, domain.StepVoting, round)
	verdicts, err := o.vote(ctx, ws, ref, b, round, res.Draft, revisionLog, fresh)
	if err != nil {
		return res, err
	}
	o.leave(ctx, ref.BatchID, domain.StepVoting, round, false)

	res.Decision = consensus.Evaluate(verdicts, o.policy)
	o.roundComplete(ctx, ref, round, res, false)
	return res, nil
}

func (o *Orchestrator) review(ctx context.Context, ws *Workspace, ref domain.BatchRef, b Bundle, round int, draft string, fresh bool) ([]consensus.LabeledReview, error) {
	tasks := make([]task, len(o.roles.Reviewers))
	for i, r := range o.roles.Reviewers {
		prompt, err := o.render(r.TemplateName(), b.with(map[string]string{
			"merged_draft": draft,
			"dimension":    r.Dimension,
		}))
		if err != nil {
			return nil, err
		}
		tasks[i] = task{path: ws.ReviewPath(round, r.Key()), call: o.call(ref, r.Agent, "review", prompt)}
	}

	reviews, err := gather(ctx, o, ws, tasks, fresh, jsonCodec(func(i int, res domain.Result) domain.Review {
		return extract.ReviewFrom(res.Text, o.roles.Reviewers[i].Dimension)
	}))
	if err != nil {
		return nil, err
	}

	labeled := make([]consensus.LabeledReview, len(reviews))
	for i, r := range reviews {
		if r.ParseError != "" {
			o.logger.Warn("Review could not be parsed, counting it as no issues",
				"batch_id", ref.BatchID, "round", round, "agent", o.roles.Reviewers[i].Agent)
		}
		labeled[i] = consensus.LabeledReview{Label: o.roles.Reviewers[i].Agent, Review: r}
	}
	return labeled, nil
}

// validate collects validator votes on the aggregated issues and returns the retained subset.
func (o *Orchestrator) validate(ctx context.Context, ws *Workspace, ref domain.BatchRef, b Bundle, round int, draft string, agg consensus.Aggregation, fresh bool) ([]domain.Issue, error) {
	o.enter(ctx, ref.BatchID, domain.StepValidating, round)
	validated, err := ws.ValidationDone(ctx, round, o.roles.Validators)
	if err != nil {
		return nil, err
	}

	prompt, err := o.render(prompts.Validation, b.with(map[string]string{
		"merged_draft": draft,
		"issues":       agg.Rendered,
	}))
	if err != nil {
		return nil, err
	}

	tasks := make([]task, len(o.roles.Validators))
	for i, agent := range o.roles.Validators {
		tasks[i] = task{path: ws.ValidationPath(round, agent), call: o.call(ref, agent, "validation", prompt)}
	}
	validations, err := gather(ctx, o, ws, tasks, fresh, jsonCodec(func(i int, res domain.Result) domain.Validation {
		return extract.ValidationFrom(res.Text, o.roles.Validators[i])
	}))
	if err != nil {
		return nil, err
	}

	tally := consensus.Tally(agg.Issues, validations, o.threshold)
	if err := ws.WriteJSON(ctx, ws.TallyPath(round), tally); err != nil {
		return nil, err
	}

	o.leave(ctx, ref.BatchID, domain.StepValidating, round, validated && !fresh)
	return tally.Accepted, nil
}

// revise runs the content-fix pass on the accepted issues, then the polish pass.
// It returns the round's revised draft and its change log.
func (o *Orchestrator) revise(ctx context.Context, ws *Workspace, ref domain.BatchRef, b Bundle, round int, draft string, accepted []domain.Issue, fresh bool) (string, string, error) {
	o.enter(ctx, ref.BatchID, domain.StepRevising, round)

	if !fresh {
		done, err := ws.RevisionDone(ctx, round)
		if err != nil {
			return "", "", err
		}
		if done {
			revised, err := ws.ReadText(ctx, ws.RevisedDraftPath(round))
			if err != nil {
				return "", "", err
			}
			log, err := ws.ReadText(ctx, ws.RevisionLogPath(round))
			if err != nil {
				return "", "", err
			}
			if revised != "" {
				o.leave(ctx, ref.BatchID, domain.StepRevising, round, true)
				return revised, orDefault(log, noRevisionLog), nil
			}
		}
	}

	rendered := consensus.Render(accepted)

	content, log, err := o.contentPass(ctx, ws, ref, b, round, draft, rendered, fresh)
	if err != nil {
		return "", "", err
	}

	prompt, err := o.render(prompts.Polish, b.with(map[string]string{"revised_content": content}))
	if err != nil {
		return "", "", err
	}
	polished, err := o.invoke(ctx, o.call(ref, o.roles.Polisher, "polish", prompt))
	if err != nil {
		return "", "", err
	}
	if polished == "" {
		o.logger.Warn("Polish pass produced no text, keeping the content revision",
			"batch_id", ref.BatchID, "round", round)
		polished = content
	}
	if err := ws.WriteText(ctx, ws.RevisedDraftPath(round), polished); err != nil {
		return "", "", err
	}

	o.leave(ctx, ref.BatchID, domain.StepRevising, round, false)
	return polished, log, nil
}

func (o *Orchestrator) contentPass(ctx context.Context, ws *Workspace, ref domain.BatchRef, b Bundle, round int, draft, rendered string, fresh bool) (string, string, error) {
	if !fresh {
		content, err := ws.ReadText(ctx, ws.RevisedContentPath(round))
		if err != nil {
			return "", "", err
		}
		if content != "" {
			log, err := ws.ReadText(ctx, ws.RevisionLogPath(round))
			if err != nil {
				return "", "", err
			}
			return content, orDefault(log, noRevisionLog), nil
		}
	}

	prompt, err := o.render(prompts.Revision, b.with(map[string]string{
		"merged_draft":    draft,
		"accepted_issues": rendered,
	}))
	if err != nil {
		return "", "", err
	}
	text, err := o.invoke(ctx, o.call(ref, o.roles.Reviser, "revision", prompt))
	if err != nil {
		return "", "", err
	}

	content, log := splitOn(text, RevisionSeparator)
	if content == "" {
		o.logger.Warn("Content revision produced no text, keeping the round's draft",
			"batch_id", ref.BatchID, "round", round)
		content = draft
		log = noRevisionLog
	}
	if log == "" {
		log = "Revised to address the accepted issues:\n\n" + rendered
	}

	if err := ws.WriteText(ctx, ws.RevisionLogPath(round), log); err != nil {
		return "", "", err
	}
	if err := ws.WriteText(ctx, ws.RevisedContentPath(round), content); err != nil {
		return "", "", err
	}
	return content, log, nil
}

func (o *Orchestrator) vote(ctx context.Context, ws *Workspace, ref domain.BatchRef, b Bundle, round int, draft, revisionLog string, fresh bool) ([]domain.Verdict, error) {
	prompt, err := o.render(prompts.Vote, b.with(map[string]string{
		"final_draft":  draft,
		"revision_log": revisionLog,
	}))
	if err != nil {
		return nil, err
	}

	tasks := make([]task, len(o.roles.Voters))
	for i, voter := range o.roles.Voters {
		tasks[i] = task{path: ws.VerdictPath(round, voter), call: o.call(ref, voter, "vote", prompt)}
	}
	return gather(ctx, o, ws, tasks, fresh, o.verdictCodec())
}

func (o *Orchestrator) verdictCodec() codec[domain.Verdict] {
	return jsonCodec(func(i int, res domain.Result) domain.Verdict {
		return extract.VerdictFrom(res.Text, o.roles.Voters[i])
	})
}

func (o *Orchestrator) roundComplete(ctx context.Context, ref domain.BatchRef, round int, res roundResult, memoized bool) {
	if o.hooks.OnRoundComplete == nil {
		return
	}
	o.hooks.OnRoundComplete(ctx, &domain.RoundEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRoundComplete, BatchID: ref.BatchID},
		Round:     round,
		Issues:    res.Issues,
		Accepted:  res.Accepted,
		Passed:    res.Decision.Passed,
		Memoized:  memoized,
		Approvals: res.Decision.Approvals,
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
