package model

// ExecStatus is the lifecycle status of a dispatched execution as reported by
// the workflow platform.
type ExecStatus string

const (
	StatusRequested ExecStatus = "requested"
	StatusScheduled ExecStatus = "scheduled"
	StatusDelayed   ExecStatus = "delayed"
	StatusRunning   ExecStatus = "running"
	StatusPausing   ExecStatus = "pausing"
	StatusPaused    ExecStatus = "paused"
	StatusResuming  ExecStatus = "resuming"
	StatusSucceeded ExecStatus = "succeeded"
	StatusFailed    ExecStatus = "failed"
	StatusTimeout   ExecStatus = "timeout"
	StatusAbandoned ExecStatus = "abandoned"
	StatusCanceled  ExecStatus = "canceled"
)

// Queued reports whether the execution has been accepted but not started.
func (s ExecStatus) Queued() bool {
	switch s {
	case StatusRequested, StatusScheduled, StatusDelayed:
		return true
	}
	return false
}

// Active reports whether the execution is running or transitioning.
func (s ExecStatus) Active() bool {
	switch s {
	case StatusRunning, StatusPausing, StatusPaused, StatusResuming:
		return true
	}
	return false
}

// InProgress reports whether the execution has not yet reached a terminal
// state.
func (s ExecStatus) InProgress() bool {
	return s.Queued() || s.Active()
}

func (s ExecStatus) Succeeded() bool { return s == StatusSucceeded }

// Errored reports whether the execution terminated without succeeding.
func (s ExecStatus) Errored() bool {
	switch s {
	case StatusFailed, StatusTimeout, StatusAbandoned, StatusCanceled:
		return true
	}
	return false
}

// Bucket collapses a status into the coarse category consumed by downstream
// ticketing systems: queued, running, succeeded, failed or unknown.
func (s ExecStatus) Bucket() string {
	switch {
	case s.Queued():
		return "queued"
	case s.Active():
		return "running"
	case s.Succeeded():
		return "succeeded"
	case s.Errored():
		return "failed"
	}
	return "unknown"
}

// Execution is one run of a dispatched job. Result shape varies by job type,
// so it is kept as a generic map and interpreted by the errtree package.
// Children holds execution IDs; the full records are fetched on demand.
type Execution struct {
	ID       string         `json:"id"`
	Status   ExecStatus     `json:"status"`
	Result   map[string]any `json:"result,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
	Children []string       `json:"children,omitempty"`
	Action   ActionRef      `json:"action"`
}

type ActionRef struct {
	Ref  string `json:"ref"`
	Name string `json:"name"`
}

// TaskName returns the workflow task name this execution ran as, or "" when
// the execution was not part of a workflow.
func (e *Execution) TaskName() string {
	if e.Context == nil {
		return ""
	}
	name, _ := e.Context["task_name"].(string)
	return name
}
