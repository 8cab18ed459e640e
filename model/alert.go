package model

import "time"

// Alert states understood by the downstream ticketing consumer.
const (
	StateOpen    = "open"
	StateError   = "error"
	StateSuccess = "success"
)

// TriggerPayload is the body dispatched to the platform trigger endpoint when
// a cron enforcement check needs attention. Dispatch is fire and forget.
type TriggerPayload struct {
	RuleName    string `json:"ruleName"`
	Server      string `json:"server"`
	ExecutionID string `json:"executionId"`
	Comments    string `json:"comments"`
	State       string `json:"state"`
}

// AlertRecord is one dispatched alert as kept in the local history store.
type AlertRecord struct {
	ID            string    `json:"id"`
	RuleRef       string    `json:"ruleRef"`
	Server        string    `json:"server"`
	ExecutionID   string    `json:"executionId,omitempty"`
	EnforcementID string    `json:"enforcementId,omitempty"`
	Comments      string    `json:"comments"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"createdAt"`
}
