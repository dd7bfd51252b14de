package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// BlockRepoImpl implements BlockRepository using gorm.
type BlockRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewBlockRepository creates a gorm-backed block repository.
func NewBlockRepository(db *gorm.DB, log logger.Logger) repository.BlockRepository {
	return &BlockRepoImpl{db: db, logger: log}
}

func (r *BlockRepoImpl) Save(ctx context.Context, block *models.BlockRecord) error {
	if err := r.db.WithContext(ctx).Create(block).Error; err != nil {
		r.logger.Error(ctx, "failed to create block record", err, logger.String("ip", block.IP))
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return nil
}

// FindActive retrieves active records newest-first so readers resolving a
// single IP can take the first hit.
func (r *BlockRepoImpl) FindActive(ctx context.Context) ([]*models.BlockRecord, error) {
	var blocks []*models.BlockRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", constants.BlockStatusActive).
		Order("blocked_at DESC").
		Find(&blocks).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return blocks, nil
}

func (r *BlockRepoImpl) FindByID(ctx context.Context, blockID string) (*models.BlockRecord, error) {
	var block models.BlockRecord
	err := r.db.WithContext(ctx).
		Where("block_id = ?", blockID).
		First(&block).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrBlockNotFound(blockID)
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return &block, nil
}

// CountPriorBlocks counts records for the IP blocked after since, regardless
// of status.
func (r *BlockRepoImpl) CountPriorBlocks(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BlockRecord{}).
		Where("ip = ? AND blocked_at > ?", ip, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return count, nil
}

// ExpireOverdue lazily transitions active records past their expiry.
func (r *BlockRepoImpl) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.BlockRecord{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", constants.BlockStatusActive, now).
		Update("status", constants.BlockStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected, nil
}

func (r *BlockRepoImpl) UpdateStatus(ctx context.Context, blockID string, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.BlockRecord{}).
		Where("block_id = ?", blockID).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.ErrBlockNotFound(blockID)
	}
	return nil
}

// DeleteResolvedBefore removes terminal records older than the cutoff.
func (r *BlockRepoImpl) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND blocked_at < ?",
			[]constants.BlockStatus{constants.BlockStatusExpired, constants.BlockStatusManualUnblock},
			cutoff).
		Delete(&models.BlockRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, result.Error)
	}
	return result.RowsAffected, nil
}
