package repository

import (
	"context"
	"time"

	"github.com/gatewarden/gatewarden/internal/domain/models"
)

// AuditRepository defines the interface for the security audit log.
type AuditRepository interface {
	// Save appends a security audit entry.
	Save(ctx context.Context, entry *models.SecurityAuditEntry) error

	// FindRecent retrieves the newest entries, up to limit.
	FindRecent(ctx context.Context, limit int) ([]*models.SecurityAuditEntry, error)

	// DeleteBefore removes entries older than the cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
