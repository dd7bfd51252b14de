package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/pkg/constants"
)

// RequestLogEntry is an immutable, append-only audit row for a single request.
// It doubles as the durable ledger behind the cross-instance counter fallback.
type RequestLogEntry struct {
	EntryID string `json:"entry_id" gorm:"primaryKey;column:entry_id"`

	IP        string `json:"ip" gorm:"column:ip;index:idx_request_log_ip_ts"`
	Method    string `json:"method" gorm:"column:method"`
	Path      string `json:"path" gorm:"column:path"`
	Status    int    `json:"status" gorm:"column:status"`
	UserAgent string `json:"user_agent" gorm:"column:user_agent;type:text"`

	// Suspicious marks requests that approached a threshold or failed login.
	Suspicious bool `json:"suspicious" gorm:"column:suspicious"`

	// Blocked marks requests rejected by the engine.
	Blocked bool `json:"blocked" gorm:"column:blocked"`

	// RuleLabel names the rule that triggered, if any.
	RuleLabel string `json:"rule_label,omitempty" gorm:"column:rule_label"`

	// Action is the trigger path label (memory, cross-isolate, automated-tool,
	// fast-reject) or empty for allowed traffic.
	Action string `json:"action,omitempty" gorm:"column:action"`

	Timestamp time.Time `json:"timestamp" gorm:"column:timestamp;index:idx_request_log_ip_ts"`
}

// TableName overrides the gorm table name.
func (RequestLogEntry) TableName() string {
	return "request_log"
}

// NewRequestLogEntry creates a log row for the given request outcome.
func NewRequestLogEntry(ip, method, path, userAgent string, status int, ts time.Time) *RequestLogEntry {
	return &RequestLogEntry{
		EntryID:   uuid.NewString(),
		IP:        ip,
		Method:    method,
		Path:      path,
		Status:    status,
		UserAgent: userAgent,
		Timestamp: ts,
	}
}

// WithOutcome annotates the entry with the engine's verdict.
func (e *RequestLogEntry) WithOutcome(suspicious, blocked bool, ruleLabel string, action constants.TriggerPath) *RequestLogEntry {
	e.Suspicious = suspicious
	e.Blocked = blocked
	e.RuleLabel = ruleLabel
	e.Action = string(action)
	return e
}
