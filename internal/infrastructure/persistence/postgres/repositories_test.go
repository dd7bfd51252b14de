package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.LimitRule{},
		&models.BlockRecord{},
		&models.RequestLogEntry{},
		&models.SecurityAuditEntry{},
		&models.Setting{},
	))
	return db
}

func TestRuleRepository(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoopLogger()

	t.Run("should round-trip a rule", func(t *testing.T) {
		repo := NewRuleRepository(newTestDB(t), log)

		rule := models.NewLimitRule("api-limit", constants.RuleKindRateLimit, 60, 10, 15)
		require.NoError(t, repo.Save(ctx, rule))

		found, err := repo.FindByID(ctx, rule.RuleID)
		require.NoError(t, err)
		assert.Equal(t, "api-limit", found.Name)
		assert.Equal(t, uint(60), found.MaxRequests)
		assert.True(t, found.Enabled)
	})

	t.Run("should list enabled rules in a stable order", func(t *testing.T) {
		repo := NewRuleRepository(newTestDB(t), log)

		first := models.NewLimitRule("first", constants.RuleKindRateLimit, 10, 10, 15)
		require.NoError(t, repo.Save(ctx, first))

		// Distinct creation timestamps keep the order assertion meaningful.
		time.Sleep(2 * time.Millisecond)

		second := models.NewLimitRule("second", constants.RuleKindRateLimit, 20, 10, 15)
		require.NoError(t, repo.Save(ctx, second))

		disabled := models.NewLimitRule("disabled", constants.RuleKindRateLimit, 30, 10, 15)
		disabled.Enabled = false
		require.NoError(t, repo.Save(ctx, disabled))

		enabled, err := repo.FindEnabled(ctx)
		require.NoError(t, err)
		require.Len(t, enabled, 2)
		assert.Equal(t, "first", enabled[0].Name)
		assert.Equal(t, "second", enabled[1].Name)

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("should update only the mutable columns", func(t *testing.T) {
		repo := NewRuleRepository(newTestDB(t), log)

		rule := models.NewLimitRule("api-limit", constants.RuleKindRateLimit, 60, 10, 15)
		require.NoError(t, repo.Save(ctx, rule))

		rule.MaxRequests = 100
		rule.Enabled = false
		require.NoError(t, repo.Update(ctx, rule))

		found, err := repo.FindByID(ctx, rule.RuleID)
		require.NoError(t, err)
		assert.Equal(t, uint(100), found.MaxRequests)
		assert.False(t, found.Enabled)
	})

	t.Run("should report not found for unknown ids", func(t *testing.T) {
		repo := NewRuleRepository(newTestDB(t), log)

		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, errors.ErrNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, "missing"), errors.ErrNotFound)

		ghost := models.NewLimitRule("ghost", constants.RuleKindRateLimit, 1, 1, 1)
		assert.ErrorIs(t, repo.Update(ctx, ghost), errors.ErrNotFound)
	})

	t.Run("should delete a rule", func(t *testing.T) {
		repo := NewRuleRepository(newTestDB(t), log)

		rule := models.NewLimitRule("api-limit", constants.RuleKindRateLimit, 60, 10, 15)
		require.NoError(t, repo.Save(ctx, rule))
		require.NoError(t, repo.Delete(ctx, rule.RuleID))

		_, err := repo.FindByID(ctx, rule.RuleID)
		assert.Error(t, err)
	})
}

func TestBlockRepository(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoopLogger()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("should list only active records", func(t *testing.T) {
		repo := NewBlockRepository(newTestDB(t), log)

		active := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, now, nil)
		require.NoError(t, repo.Save(ctx, active))

		resolved := models.NewBlockRecord("10.0.0.2", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, now, nil)
		resolved.Status = constants.BlockStatusExpired
		require.NoError(t, repo.Save(ctx, resolved))

		found, err := repo.FindActive(ctx)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "10.0.0.1", found[0].IP)
	})

	t.Run("should count prior blocks regardless of status", func(t *testing.T) {
		repo := NewBlockRepository(newTestDB(t), log)

		recent := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, now.Add(-time.Hour), nil)
		recent.Status = constants.BlockStatusExpired
		require.NoError(t, repo.Save(ctx, recent))

		unblocked := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginAdmin, now.Add(-2*time.Hour), nil)
		unblocked.Status = constants.BlockStatusManualUnblock
		require.NoError(t, repo.Save(ctx, unblocked))

		old := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, now.Add(-30*time.Hour), nil)
		require.NoError(t, repo.Save(ctx, old))

		count, err := repo.CountPriorBlocks(ctx, "10.0.0.1", now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("should expire overdue records and leave the rest", func(t *testing.T) {
		repo := NewBlockRepository(newTestDB(t), log)

		past := now.Add(-time.Minute)
		overdue := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, now.Add(-time.Hour), &past)
		require.NoError(t, repo.Save(ctx, overdue))

		future := now.Add(time.Hour)
		live := models.NewBlockRecord("10.0.0.2", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, now, &future)
		require.NoError(t, repo.Save(ctx, live))

		forever := models.NewBlockRecord("10.0.0.3", "test", "", constants.RuleScopeAll, constants.BlockOriginAdmin, now, nil)
		require.NoError(t, repo.Save(ctx, forever))

		swept, err := repo.ExpireOverdue(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), swept)

		active, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("should transition status by id", func(t *testing.T) {
		repo := NewBlockRepository(newTestDB(t), log)

		record := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, now, nil)
		require.NoError(t, repo.Save(ctx, record))
		require.NoError(t, repo.UpdateStatus(ctx, record.BlockID, string(constants.BlockStatusManualUnblock)))

		found, err := repo.FindByID(ctx, record.BlockID)
		require.NoError(t, err)
		assert.Equal(t, constants.BlockStatusManualUnblock, found.Status)

		assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", string(constants.BlockStatusExpired)), errors.ErrNotFound)
	})

	t.Run("should delete only resolved records past the cutoff", func(t *testing.T) {
		repo := NewBlockRepository(newTestDB(t), log)

		oldResolved := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, now.Add(-40*24*time.Hour), nil)
		oldResolved.Status = constants.BlockStatusExpired
		require.NoError(t, repo.Save(ctx, oldResolved))

		oldActive := models.NewBlockRecord("10.0.0.2", "test", "", constants.RuleScopeAll, constants.BlockOriginAdmin, now.Add(-40*24*time.Hour), nil)
		require.NoError(t, repo.Save(ctx, oldActive))

		deleted, err := repo.DeleteResolvedBefore(ctx, now.Add(-30*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = repo.FindByID(ctx, oldActive.BlockID)
		assert.NoError(t, err, "active records survive retention")
	})
}

func TestRequestLogRepository(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoopLogger()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	entry := func(ip string, ts time.Time, blocked bool) *models.RequestLogEntry {
		e := models.NewRequestLogEntry(ip, "GET", "/api/data", "curl/8.0", 200, ts)
		if blocked {
			e.WithOutcome(true, true, "api-limit", constants.TriggerPathMemory)
		}
		return e
	}

	t.Run("should count entries newer than the cutoff per ip", func(t *testing.T) {
		repo := NewRequestLogRepository(newTestDB(t), log)

		require.NoError(t, repo.Save(ctx, entry("10.0.0.1", now.Add(-5*time.Second), false)))
		require.NoError(t, repo.Save(ctx, entry("10.0.0.1", now.Add(-30*time.Second), false)))
		require.NoError(t, repo.Save(ctx, entry("10.0.0.2", now.Add(-5*time.Second), false)))

		count, err := repo.CountSince(ctx, "10.0.0.1", now.Add(-10*time.Second))
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("should filter and order queries newest first", func(t *testing.T) {
		repo := NewRequestLogRepository(newTestDB(t), log)

		require.NoError(t, repo.Save(ctx, entry("10.0.0.1", now.Add(-2*time.Minute), false)))
		require.NoError(t, repo.Save(ctx, entry("10.0.0.1", now.Add(-time.Minute), true)))
		require.NoError(t, repo.Save(ctx, entry("10.0.0.2", now, false)))

		blocked := true
		found, err := repo.Find(ctx, repository.RequestLogFilter{IP: "10.0.0.1", Blocked: &blocked})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "api-limit", found[0].RuleLabel)

		all, err := repo.Find(ctx, repository.RequestLogFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "10.0.0.2", all[0].IP, "newest entry first")
	})

	t.Run("should delete entries older than the cutoff", func(t *testing.T) {
		repo := NewRequestLogRepository(newTestDB(t), log)

		require.NoError(t, repo.Save(ctx, entry("10.0.0.1", now.Add(-8*24*time.Hour), false)))
		require.NoError(t, repo.Save(ctx, entry("10.0.0.1", now, false)))

		deleted, err := repo.DeleteBefore(ctx, now.Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		count, err := repo.CountSince(ctx, "10.0.0.1", now.Add(-30*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoopLogger()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("should return the newest entries first", func(t *testing.T) {
		repo := NewAuditRepository(newTestDB(t), log)

		older := models.NewSecurityAuditEntry(constants.AuditEventIPBlocked, "10.0.0.1", "system", "first", now.Add(-time.Hour))
		require.NoError(t, repo.Save(ctx, older))

		newer := models.NewSecurityAuditEntry(constants.AuditEventIPUnblocked, "10.0.0.1", "admin", "second", now)
		require.NoError(t, repo.Save(ctx, newer))

		found, err := repo.FindRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, constants.AuditEventIPUnblocked, found[0].EventType)
	})

	t.Run("should delete entries past retention", func(t *testing.T) {
		repo := NewAuditRepository(newTestDB(t), log)

		old := models.NewSecurityAuditEntry(constants.AuditEventIPBlocked, "10.0.0.1", "system", "old", now.Add(-40*24*time.Hour))
		require.NoError(t, repo.Save(ctx, old))

		deleted, err := repo.DeleteBefore(ctx, now.Add(-30*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoopLogger()

	t.Run("should upsert and read back a value", func(t *testing.T) {
		repo := NewSettingsRepository(newTestDB(t), log)

		require.NoError(t, repo.Set(ctx, constants.SettingAlertWebhookURL, "https://hooks.example.com/a"))

		value, err := repo.Get(ctx, constants.SettingAlertWebhookURL)
		require.NoError(t, err)
		assert.Equal(t, "https://hooks.example.com/a", value)

		require.NoError(t, repo.Set(ctx, constants.SettingAlertWebhookURL, "https://hooks.example.com/b"))

		value, err = repo.Get(ctx, constants.SettingAlertWebhookURL)
		require.NoError(t, err)
		assert.Equal(t, "https://hooks.example.com/b", value)
	})

	t.Run("should report not found for unset keys", func(t *testing.T) {
		repo := NewSettingsRepository(newTestDB(t), log)

		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}
