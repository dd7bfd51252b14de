package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// AuditRepoImpl implements AuditRepository using gorm.
type AuditRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewAuditRepository creates a gorm-backed security audit log.
func NewAuditRepository(db *gorm.DB, log logger.Logger) repository.AuditRepository {
	return &AuditRepoImpl{db: db, logger: log}
}

func (r *AuditRepoImpl) Save(ctx context.Context, entry *models.SecurityAuditEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return nil
}

func (r *AuditRepoImpl) FindRecent(ctx context.Context, limit int) ([]*models.SecurityAuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []*models.SecurityAuditEntry
	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return entries, nil
}

func (r *AuditRepoImpl) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.SecurityAuditEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	r.logger.Debug(ctx, "security audit retention delete", logger.Int64("rows", result.RowsAffected))
	return result.RowsAffected, nil
}
