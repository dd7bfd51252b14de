package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/pkg/constants"
)

// SecurityAuditEntry is a human-readable, alert-worthy event, kept separate
// from the high-volume request log.
type SecurityAuditEntry struct {
	EventID   string                   `json:"event_id" gorm:"primaryKey;column:event_id"`
	EventType constants.AuditEventType `json:"event_type" gorm:"column:event_type;index"`
	IP        string                   `json:"ip,omitempty" gorm:"column:ip;index"`
	ActorID   string                   `json:"actor_id,omitempty" gorm:"column:actor_id"`
	Message   string                   `json:"message" gorm:"column:message;type:text"`
	Timestamp time.Time                `json:"timestamp" gorm:"column:timestamp;index"`
}

// TableName overrides the gorm table name.
func (SecurityAuditEntry) TableName() string {
	return "security_audit_log"
}

// NewSecurityAuditEntry creates an audit entry stamped at the given time.
func NewSecurityAuditEntry(eventType constants.AuditEventType, ip, actorID, message string, ts time.Time) *SecurityAuditEntry {
	return &SecurityAuditEntry{
		EventID:   uuid.NewString(),
		EventType: eventType,
		IP:        ip,
		ActorID:   actorID,
		Message:   message,
		Timestamp: ts,
	}
}

// AlertEvent is the transient payload describing a block, handed to the alert
// dispatcher. It is not persisted by the engine.
type AlertEvent struct {
	IP              string `json:"ip"`
	RuleLabel       string `json:"rule_label"`
	DurationMinutes uint   `json:"duration_minutes"`
	Endpoint        string `json:"endpoint"`

	// Escalated is set when the effective duration exceeds the rule's base
	// duration, i.e. the offender had prior blocks.
	Escalated bool `json:"escalated"`

	// UserAgent is truncated before dispatch.
	UserAgent string `json:"user_agent,omitempty"`
}
