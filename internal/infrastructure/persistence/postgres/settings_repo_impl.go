package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// SettingsRepoImpl implements SettingsRepository using gorm.
type SettingsRepoImpl struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewSettingsRepository creates a gorm-backed key-value settings store.
func NewSettingsRepository(db *gorm.DB, log logger.Logger) repository.SettingsRepository {
	return &SettingsRepoImpl{db: db, logger: log}
}

func (r *SettingsRepoImpl) Get(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&setting).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", errors.ErrNotFound.WithMessage(fmt.Sprintf("setting %s not found", key))
		}
		return "", fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}
	return setting.Value, nil
}

func (r *SettingsRepoImpl) Set(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value, UpdatedAt: time.Now()}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDatabaseOperation, err)
	}

	r.logger.Info(ctx, "setting updated", logger.String("key", key))
	return nil
}
