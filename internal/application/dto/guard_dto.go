package dto

import (
	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/pkg/errors"
)

// EvaluateRequest is the ingestion API payload. The public call site omits
// the authenticated-only fields; their zero values mean "not sensitive, not a
// failed login".
type EvaluateRequest struct {
	IP          string `json:"ip" binding:"required"`
	UserAgent   string `json:"user_agent"`
	Endpoint    string `json:"endpoint"`
	Method      string `json:"method"`
	Sensitive   bool   `json:"sensitive"`
	FailedLogin bool   `json:"failed_login"`
	StatusCode  int    `json:"status_code"`
	LatencyMs   int64  `json:"latency_ms"`
}

// Validate rejects unusable evaluate payloads.
func (r *EvaluateRequest) Validate() error {
	if r.IP == "" {
		return errors.ErrInvalidRequest.WithMessage("ip is required")
	}
	return nil
}

// Identity converts the request to the domain identity.
func (r *EvaluateRequest) Identity() models.Identity {
	return models.Identity{IP: r.IP, UserAgent: r.UserAgent}
}

// Context converts the request to the domain request context.
func (r *EvaluateRequest) Context() models.RequestContext {
	return models.RequestContext{
		Endpoint:    r.Endpoint,
		Method:      r.Method,
		Sensitive:   r.Sensitive,
		FailedLogin: r.FailedLogin,
		StatusCode:  r.StatusCode,
		LatencyMs:   r.LatencyMs,
	}
}

// DecisionResponse is the ingestion API result.
type DecisionResponse struct {
	Status       string `json:"status"`
	RuleLabel    string `json:"rule_label,omitempty"`
	BlockMinutes uint   `json:"block_minutes,omitempty"`
}

// NewDecisionResponse converts a domain decision.
func NewDecisionResponse(d models.Decision) *DecisionResponse {
	return &DecisionResponse{
		Status:       string(d.Status),
		RuleLabel:    d.RuleLabel,
		BlockMinutes: d.BlockMinutes,
	}
}
