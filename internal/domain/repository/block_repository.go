package repository

import (
	"context"
	"time"

	"github.com/gatewarden/gatewarden/internal/domain/models"
)

// BlockRepository defines the interface for durable block-record storage.
// The store is shared across engine instances and is the source of truth when
// the per-process block cache disagrees.
type BlockRepository interface {
	// Save persists a new block record. Concurrent instances may insert
	// records for the same IP; readers resolve the most recent active one.
	Save(ctx context.Context, block *models.BlockRecord) error

	// FindActive retrieves all currently active block records.
	FindActive(ctx context.Context) ([]*models.BlockRecord, error)

	// FindByID retrieves a block record by its identifier.
	FindByID(ctx context.Context, blockID string) (*models.BlockRecord, error)

	// CountPriorBlocks counts records for the IP with blocked_at after since,
	// regardless of status. The escalation policy uses this to punish repeat
	// offenders.
	CountPriorBlocks(ctx context.Context, ip string, since time.Time) (int64, error)

	// ExpireOverdue transitions active records whose expires_at has passed to
	// expired, returning the number of rows swept.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// UpdateStatus moves a record to a terminal status.
	UpdateStatus(ctx context.Context, blockID string, status string) error

	// DeleteResolvedBefore removes expired/unblocked records older than the
	// cutoff, for retention cleanup.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
