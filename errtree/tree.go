package errtree

import (
	"context"

	"heimdall/model"
)

// TreeTask is one row of a rendered execution tree.
type TreeTask struct {
	Name   string           `json:"name"`
	Status model.ExecStatus `json:"status"`
}

// BuildTree renders the execution tree rooted at exec as indented rows in
// depth-first order. Nodes with children are marked "+>".
func BuildTree(ctx context.Context, client Lookup, exec *model.Execution) ([]TreeTask, error) {
	rows := []TreeTask{{Name: "+> " + exec.Action.Ref, Status: exec.Status}}
	rows, err := appendChildren(ctx, client, exec.Children, "   ", rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func appendChildren(ctx context.Context, client Lookup, ids []string, indent string, rows []TreeTask) ([]TreeTask, error) {
	for _, id := range ids {
		child, err := client.Execution(ctx, id)
		if err != nil {
			return nil, err
		}

		symbol := "   "
		if len(child.Children) > 0 {
			symbol = "+> "
		}
		name := child.TaskName()
		if name == "" {
			name = child.Action.Ref
		}
		rows = append(rows, TreeTask{Name: indent + symbol + name, Status: child.Status})

		if len(child.Children) > 0 {
			rows, err = appendChildren(ctx, client, child.Children, indent+"   ", rows)
			if err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}

// Summary collapses an execution into the coarse status consumed by
// ticketing systems, with formatted error text when the run failed.
type Summary struct {
	ExecutionID string `json:"executionId"`
	Status      string `json:"status"`
	Comments    string `json:"comments"`
}

// Summarize builds a Summary for exec. Failed runs get the formatted result
// of a failure walk over the tree.
func (w *Walker) Summarize(ctx context.Context, exec *model.Execution, opts Options) (Summary, error) {
	s := Summary{ExecutionID: exec.ID, Status: exec.Status.Bucket()}
	if s.Status != "failed" {
		return s, nil
	}
	res, err := w.Walk(ctx, exec)
	if err != nil {
		return Summary{}, err
	}
	s.Comments = Format(res, opts)
	return s, nil
}
