package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/trivium/pkg/domain"
)

// task is one collaborator call whose result is checkpointed at path.
type task struct {
	path string
	call domain.Call
}

// codec converts between a collaborator result, its typed value and its artifact.
type codec[T any] struct {
	parse  func(i int, res domain.Result) T
	encode func(T) (string, error)
	decode func(string) (T, error)
	// retryFailed leaves failed calls without an artifact so the next run calls them again.
	retryFailed bool
}

// textCodec stores the trimmed collaborator text verbatim.
// Failed calls are not checkpointed: an empty draft or analysis is never finished work.
func textCodec() codec[string] {
	return codec[string]{
		parse:       func(_ int, res domain.Result) string { return strings.TrimSpace(res.Text) },
		encode:      func(s string) (string, error) { return s, nil },
		decode:      func(s string) (string, error) { return s, nil },
		retryFailed: true,
	}
}

// jsonCodec stores parsed values as indented JSON.
func jsonCodec[T any](parse func(i int, res domain.Result) T) codec[T] {
	return codec[T]{
		parse: parse,
		encode: func(v T) (string, error) {
			data, err := json.MarshalIndent(v, "", "  ")
			return string(data) + "\n", err
		},
		decode: func(s string) (T, error) {
			var v T
			err := json.Unmarshal([]byte(s), &v)
			return v, err
		},
	}
}

// gather returns one value per task, in task order. Tasks whose artifact already exists are
// loaded instead of called unless fresh is set; the remaining calls are dispatched concurrently
// and their results are persisted before gather returns. With retryFailed, failed results are
// returned but not persisted.
//
// Results are discarded without being persisted when ctx is cancelled, so an interrupted run
// never checkpoints the failures the cancellation produced.
func gather[T any](ctx context.Context, o *Orchestrator, ws *Workspace, tasks []task, fresh bool, c codec[T]) ([]T, error) {
	out := make([]T, len(tasks))
	var pending []int

	for i, t := range tasks {
		if !fresh {
			content, err := ws.store.Read(ctx, t.path)
			switch {
			case err == nil:
				v, derr := c.decode(content)
				if derr == nil {
					out[i] = v
					continue
				}
				o.logger.Warn("Discarding unreadable artifact", "path", t.path, "err", derr)
			case !errors.Is(err, domain.ErrArtifactNotFound):
				return nil, fmt.Errorf("failed to read artifact %s: %w", t.path, err)
			}
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return out, nil
	}

	calls := make([]domain.Call, len(pending))
	for j, i := range pending {
		calls[j] = tasks[i].call
	}
	results := o.dispatcher.Dispatch(ctx, calls)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for j, res := range results {
		i := pending[j]
		v := c.parse(i, res)
		if !res.Success && c.retryFailed {
			out[i] = v
			continue
		}
		content, err := c.encode(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode artifact %s: %w", tasks[i].path, err)
		}
		if err := ws.WriteText(ctx, tasks[i].path, content); err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// invoke performs a single call, returning the trimmed text of a successful result.
// Failures degrade to "" unless ctx was cancelled.
func (o *Orchestrator) invoke(ctx context.Context, call domain.Call) (string, error) {
	res := o.dispatcher.Invoke(ctx, call)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}
