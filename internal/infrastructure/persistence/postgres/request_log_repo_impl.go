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

// RequestLogRepoImpl implements RequestLogRepository using gorm.
type RequestLogRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewRequestLogRepository creates a gorm-backed request ledger.
func NewRequestLogRepository(db *gorm.DB, log logger.Logger) repository.RequestLogRepository {
	return &RequestLogRepoImpl{db: db, logger: log}
}

func (r *RequestLogRepoImpl) Save(ctx context.Context, entry *models.RequestLogEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return nil
}

// CountSince backs the durable counter fallback. The (ip, timestamp) index
// keeps this cheap enough for the near-threshold confirmation path.
func (r *RequestLogRepoImpl) CountSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RequestLogEntry{}).
		Where("ip = ? AND timestamp > ?", ip, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return count, nil
}

func (r *RequestLogRepoImpl) Find(ctx context.Context, filter repository.RequestLogFilter) ([]*models.RequestLogEntry, error) {
	query := r.db.WithContext(ctx).Model(&models.RequestLogEntry{})

	if filter.IP != "" {
		query = query.Where("ip = ?", filter.IP)
	}
	if filter.Endpoint != "" {
		query = query.Where("path = ?", filter.Endpoint)
	}
	if filter.Blocked != nil {
		query = query.Where("blocked = ?", *filter.Blocked)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []*models.RequestLogEntry
	err := query.
		Order("timestamp DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return entries, nil
}

func (r *RequestLogRepoImpl) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.RequestLogEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	r.logger.Debug(ctx, "request log retention delete",
		logger.Int64("rows", result.RowsAffected),
		logger.Time("cutoff", cutoff),
	)
	return result.RowsAffected, nil
}
