package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gatewarden/gatewarden/pkg/constants"
)

// BlockRecord is a durable block decision for an IP. Multiple engine instances
// may race to insert a record for the same IP; readers always resolve the most
// recent active record rather than assuming uniqueness.
//
// State machine: active -> expired (expiry sweep), active -> manual_unblock
// (admin action). Both end states are terminal.
type BlockRecord struct {
	BlockID string `json:"block_id" gorm:"primaryKey;column:block_id"`

	// IP is the blocked client address.
	IP string `json:"ip" gorm:"column:ip;index"`

	// Reason is a short human-readable cause, e.g. the triggering rule label.
	Reason string `json:"reason" gorm:"column:reason;type:text"`

	// RuleID references the triggering rule. Empty for manual blocks.
	RuleID string `json:"rule_id,omitempty" gorm:"column:rule_id"`

	// Scope carries the triggering rule's scope, or "all" for manual blocks.
	Scope constants.RuleScope `json:"scope" gorm:"column:scope"`

	// CreatedBy records whether the pipeline or an admin issued the block.
	CreatedBy constants.BlockOrigin `json:"created_by" gorm:"column:created_by"`

	BlockedAt time.Time `json:"blocked_at" gorm:"column:blocked_at;index"`

	// ExpiresAt nil means the block does not expire on its own.
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`

	Status constants.BlockStatus `json:"status" gorm:"column:status;index"`
}

// TableName overrides the gorm table name.
func (BlockRecord) TableName() string {
	return "block_records"
}

// NewBlockRecord creates an active block for the given IP.
func NewBlockRecord(ip, reason, ruleID string, scope constants.RuleScope, origin constants.BlockOrigin, blockedAt time.Time, expiresAt *time.Time) *BlockRecord {
	return &BlockRecord{
		BlockID:   uuid.NewString(),
		IP:        ip,
		Reason:    reason,
		RuleID:    ruleID,
		Scope:     scope,
		CreatedBy: origin,
		BlockedAt: blockedAt,
		ExpiresAt: expiresAt,
		Status:    constants.BlockStatusActive,
	}
}

// IsExpired reports whether an active block has passed its expiry.
func (b *BlockRecord) IsExpired(now time.Time) bool {
	return b.Status == constants.BlockStatusActive &&
		b.ExpiresAt != nil && !b.ExpiresAt.After(now)
}

// IsEnforced reports whether the block should reject traffic at the given time.
func (b *BlockRecord) IsEnforced(now time.Time) bool {
	return b.Status == constants.BlockStatusActive && !b.IsExpired(now)
}
