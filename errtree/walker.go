// Package errtree locates the actionable failure inside an execution tree
// and renders it for humans. Child executions are referenced by ID and
// fetched lazily, so a walk recurses into the live platform store.
package errtree

import (
	"context"
	"strings"

	"heimdall/model"
)

// Lookup is the single platform call the walker needs.
type Lookup interface {
	Execution(ctx context.Context, id string) (*model.Execution, error)
}

// Result is the outcome of a walk: either a single "parent" failing
// execution (no failing leaves below it), or the failing leaf executions
// found deeper in the tree. Custom carries an error message published by the
// workflow itself, which overrides message extraction for the parent.
type Result struct {
	Parent *model.Execution
	Custom string
	Leaves []*model.Execution
}

// Failed reports whether the walk found any actionable failure.
func (r *Result) Failed() bool {
	return r.Parent != nil || len(r.Leaves) > 0
}

// Walker performs depth-first failure searches over execution trees. Tasks on
// the ignore list are never surfaced, even when they are the only failure.
type Walker struct {
	client  Lookup
	ignored map[string]struct{}
}

func NewWalker(client Lookup, ignoredTasks []string) *Walker {
	ignored := make(map[string]struct{}, len(ignoredTasks))
	for _, t := range ignoredTasks {
		ignored[t] = struct{}{}
	}
	return &Walker{client: client, ignored: ignored}
}

// Walk searches the tree rooted at exec for failures. All branches are
// visited; an execution may have several independently failing subtrees.
func (w *Walker) Walk(ctx context.Context, exec *model.Execution) (*Result, error) {
	res := &Result{}
	if err := w.visit(ctx, exec, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (w *Walker) visit(ctx context.Context, exec *model.Execution, res *Result) error {
	failed := walkFailure(exec.Status) && !w.isIgnored(exec.TaskName())

	if len(exec.Children) == 0 {
		if !failed {
			return nil
		}
		if msg, ok := customError(exec.Result); ok {
			res.Parent = exec
			res.Custom = msg
			return nil
		}
		res.Parent = exec
		res.Leaves = append(res.Leaves, exec)
		return nil
	}

	if failed {
		// A failing workflow node: its own message may explain the whole
		// branch, otherwise the failing leaves below it will.
		if msg, ok := customError(exec.Result); ok {
			res.Parent = exec
			res.Custom = msg
			return nil
		}
		res.Parent = exec
	}

	for _, id := range exec.Children {
		child, err := w.client.Execution(ctx, id)
		if err != nil {
			return err
		}
		if err := w.visit(ctx, child, res); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) isIgnored(taskName string) bool {
	if taskName == "" {
		return false
	}
	_, ok := w.ignored[taskName]
	return ok
}

// walkFailure is the failure test for tree walks: only failed and timed-out
// executions carry extractable error payloads.
func walkFailure(s model.ExecStatus) bool {
	return s == model.StatusFailed || s == model.StatusTimeout
}

// customError returns the error text a workflow published under
// output.error, if any. The value is either a plain string or a list of
// {"error": ...} entries.
func customError(result map[string]any) (string, bool) {
	output, ok := result["output"].(map[string]any)
	if !ok || len(output) == 0 {
		return "", false
	}
	switch v := output["error"].(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case []any:
		var parts []string
		for _, item := range v {
			switch e := item.(type) {
			case string:
				parts = append(parts, e)
			case map[string]any:
				if s, ok := e["error"].(string); ok {
					parts = append(parts, s)
				}
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, "\n"), true
	}
	return "", false
}
