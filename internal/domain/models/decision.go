package models

import (
	"github.com/gatewarden/gatewarden/pkg/constants"
)

// Identity is the client identity a request is rate-limited under.
type Identity struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// RequestContext carries the request metadata the decision pipeline evaluates.
// The excluded CRUD layer fills it in at both the public and authenticated
// call sites.
type RequestContext struct {
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`

	// Sensitive marks security/auth/admin/data-mutation routes.
	Sensitive bool `json:"sensitive"`

	// FailedLogin marks a failed authentication attempt. Only brute_force
	// rules consider these.
	FailedLogin bool `json:"failed_login"`

	StatusCode int   `json:"status_code"`
	LatencyMs  int64 `json:"latency_ms"`
}

// Decision is the engine's per-request verdict.
type Decision struct {
	Status constants.DecisionStatus `json:"status"`

	// RuleLabel is the stable machine-readable identifier of the triggering
	// rule, present only when Status is blocked.
	RuleLabel string `json:"rule_label,omitempty"`

	// BlockMinutes is the effective block duration after escalation.
	BlockMinutes uint `json:"block_minutes,omitempty"`

	// TriggerPath labels how the rule triggered, for logs and metrics.
	TriggerPath constants.TriggerPath `json:"trigger_path,omitempty"`
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Status != constants.DecisionBlocked
}
