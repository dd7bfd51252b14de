package repository

import (
	"context"
	"time"

	"github.com/gatewarden/gatewarden/internal/domain/models"
)

// RequestLogFilter narrows request-log queries for the management API.
type RequestLogFilter struct {
	IP       string
	Endpoint string
	Blocked  *bool
	Limit    int
	Offset   int
}

// RequestLogRepository defines the interface for the append-only request
// ledger. Besides audit queries it backs the durable counter fallback.
type RequestLogRepository interface {
	// Save appends a log entry. Entries are never mutated.
	Save(ctx context.Context, entry *models.RequestLogEntry) error

	// CountSince counts entries for the IP newer than since. This is the
	// cross-instance-accurate count consulted when an in-memory count is near
	// a rule threshold.
	CountSince(ctx context.Context, ip string, since time.Time) (int64, error)

	// Find retrieves entries matching the filter, newest first.
	Find(ctx context.Context, filter RequestLogFilter) ([]*models.RequestLogEntry, error)

	// DeleteBefore removes entries older than the cutoff, for retention
	// cleanup.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
