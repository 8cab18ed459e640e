package model

import (
	"time"
)

// TriggerTypeCronTimer is the trigger type of rules that fire on a time
// schedule. Only rules of this type are eligible for cron enforcement checks.
const TriggerTypeCronTimer = "cron-timer"

// Rule is a platform rule, read-only to heimdall.
type Rule struct {
	Ref     string  `json:"ref"`
	Enabled bool    `json:"enabled"`
	Trigger Trigger `json:"trigger"`
}

type Trigger struct {
	Type       string       `json:"type"`
	Parameters ScheduleSpec `json:"parameters"`
}

// IsCronTimer reports whether the rule fires on a cron schedule.
func (r *Rule) IsCronTimer() bool {
	return r.Trigger.Type == TriggerTypeCronTimer
}

// ScheduleSpec is the structured cron specification carried by cron-timer
// trigger parameters. Each field is either absent (nil), an integer, or a
// string constraint. DayOfWeek uses the platform numbering where 0 is Monday
// and 6 is Sunday.
type ScheduleSpec struct {
	Second    any `json:"second,omitempty"`
	Minute    any `json:"minute,omitempty"`
	Hour      any `json:"hour,omitempty"`
	Day       any `json:"day,omitempty"`
	Month     any `json:"month,omitempty"`
	DayOfWeek any `json:"day_of_week,omitempty"`
	Year      any `json:"year,omitempty"`
}

// Enforcement records one firing attempt of a rule. ExecutionID is empty when
// rule evaluation itself failed before producing an execution; in that case
// FailureReason carries the evaluation error (populated on the full record
// fetched by ID, not on query results).
type Enforcement struct {
	ID            string  `json:"id"`
	Rule          RuleRef `json:"rule"`
	EnforcedAt    string  `json:"enforced_at"`
	ExecutionID   string  `json:"execution_id,omitempty"`
	FailureReason string  `json:"failure_reason,omitempty"`
}

type RuleRef struct {
	Ref string `json:"ref"`
}

// EnforcedTime parses the enforcement timestamp, truncated to whole seconds
// so window comparisons are not skewed by sub-second jitter.
func (e *Enforcement) EnforcedTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, e.EnforcedAt)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(time.Second), nil
}
