package model

import (
	"testing"
	"time"
)

func TestStatusBuckets(t *testing.T) {
	tests := []struct {
		status ExecStatus
		bucket string
	}{
		{StatusRequested, "queued"},
		{StatusScheduled, "queued"},
		{StatusDelayed, "queued"},
		{StatusRunning, "running"},
		{StatusPausing, "running"},
		{StatusPaused, "running"},
		{StatusResuming, "running"},
		{StatusSucceeded, "succeeded"},
		{StatusFailed, "failed"},
		{StatusTimeout, "failed"},
		{StatusAbandoned, "failed"},
		{StatusCanceled, "failed"},
		{ExecStatus("garbage"), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.Bucket(); got != tt.bucket {
			t.Errorf("%s.Bucket() = %q, want %q", tt.status, got, tt.bucket)
		}
	}
}

func TestInProgress(t *testing.T) {
	for _, s := range []ExecStatus{StatusRequested, StatusScheduled, StatusDelayed, StatusRunning, StatusPausing, StatusPaused, StatusResuming} {
		if !s.InProgress() {
			t.Errorf("%s.InProgress() = false", s)
		}
	}
	for _, s := range []ExecStatus{StatusSucceeded, StatusFailed, StatusTimeout, StatusAbandoned, StatusCanceled} {
		if s.InProgress() {
			t.Errorf("%s.InProgress() = true", s)
		}
	}
}

func TestEnforcedTimeTruncation(t *testing.T) {
	e := Enforcement{EnforcedAt: "2026-01-01T12:00:00.987654Z"}
	got, err := e.EnforcedTime()
	if err != nil {
		t.Fatalf("EnforcedTime: %v", err)
	}
	want := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("EnforcedTime = %v, want %v", got, want)
	}
}

func TestEnforcedTimeInvalid(t *testing.T) {
	e := Enforcement{EnforcedAt: "not a timestamp"}
	if _, err := e.EnforcedTime(); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestTaskName(t *testing.T) {
	e := &Execution{Context: map[string]any{"task_name": "check_disk"}}
	if got := e.TaskName(); got != "check_disk" {
		t.Errorf("TaskName = %q", got)
	}
	if got := (&Execution{}).TaskName(); got != "" {
		t.Errorf("TaskName = %q, want empty", got)
	}
	// Non-workflow executions have other context keys but no task name.
	e = &Execution{Context: map[string]any{"user": "svc"}}
	if got := e.TaskName(); got != "" {
		t.Errorf("TaskName = %q, want empty", got)
	}
}

func TestIsCronTimer(t *testing.T) {
	r := Rule{Trigger: Trigger{Type: TriggerTypeCronTimer}}
	if !r.IsCronTimer() {
		t.Error("IsCronTimer = false")
	}
	r.Trigger.Type = "core.st2.webhook"
	if r.IsCronTimer() {
		t.Error("IsCronTimer = true for webhook trigger")
	}
}
