package dto

import (
	"strings"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/pkg/constants"
)

// RuleRequest is the create/update payload for a limit rule.
type RuleRequest struct {
	Name            string   `json:"name" binding:"required"`
	Kind            string   `json:"kind" binding:"required"`
	MaxRequests     uint     `json:"max_requests"`
	WindowSeconds   uint     `json:"window_seconds"`
	BlockMinutes    uint     `json:"block_minutes"`
	TargetEndpoints []string `json:"target_endpoints"`
	Scope           string   `json:"scope"`
	Enabled         *bool    `json:"enabled"`
}

// ToModel builds a LimitRule from the payload. Validation happens on the
// model so malformed rules never reach storage.
func (r *RuleRequest) ToModel() *models.LimitRule {
	rule := models.NewLimitRule(r.Name, constants.RuleKind(r.Kind), r.MaxRequests, r.WindowSeconds, r.BlockMinutes)
	rule.TargetEndpoints = strings.Join(r.TargetEndpoints, ",")
	if r.Scope != "" {
		rule.Scope = constants.RuleScope(r.Scope)
	}
	if r.Enabled != nil {
		rule.Enabled = *r.Enabled
	}
	return rule
}

// ManualBlockRequest is the admin block payload.
type ManualBlockRequest struct {
	IP string `json:"ip" binding:"required"`

	// Reason defaults to "manual block" when empty.
	Reason string `json:"reason"`

	// DurationMinutes 0 means the block does not expire on its own.
	DurationMinutes uint `json:"duration_minutes"`

	Scope string `json:"scope"`
}

// WebhookConfigRequest sets the alert webhook destination.
type WebhookConfigRequest struct {
	URL string `json:"url" binding:"required"`
}

// RequestLogQuery filters the audit log listing.
type RequestLogQuery struct {
	IP       string `form:"ip"`
	Endpoint string `form:"endpoint"`
	Blocked  *bool  `form:"blocked"`
	Limit    int    `form:"limit"`
	Offset   int    `form:"offset"`
}

// CleanupResponse reports rows removed by a retention cleanup run.
type CleanupResponse struct {
	RequestLogsDeleted  int64 `json:"request_logs_deleted"`
	AuditEntriesDeleted int64 `json:"audit_entries_deleted"`
	BlockRecordsDeleted int64 `json:"block_records_deleted"`
}
