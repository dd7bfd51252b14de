package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appservice "github.com/gatewarden/gatewarden/internal/application/service"
	"github.com/gatewarden/gatewarden/internal/domain/models"
	domainservice "github.com/gatewarden/gatewarden/internal/domain/service"
	"github.com/gatewarden/gatewarden/internal/infrastructure/persistence/postgres"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// testEngine bundles a fully wired engine over an in-memory database.
type testEngine struct {
	db     *gorm.DB
	guard  *domainservice.GuardService
	blocks *domainservice.BlockService
	admin  appservice.AdminAppService
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
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

	log := logger.NewNoopLogger()
	ruleRepo := postgres.NewRuleRepository(db, log)
	blockRepo := postgres.NewBlockRepository(db, log)
	requestLogRepo := postgres.NewRequestLogRepository(db, log)
	auditRepo := postgres.NewAuditRepository(db, log)
	settingsRepo := postgres.NewSettingsRepository(db, log)

	ruleCache := domainservice.NewRuleCache(ruleRepo, constants.RuleCacheTTL, nil, nil, log)
	blocks := domainservice.NewBlockService(blockRepo, nil, constants.BlockCacheTTL, nil, nil, log)
	escalation := domainservice.NewEscalationPolicy(blockRepo, nil, log)
	guard := domainservice.NewGuardService(ruleCache, blocks, escalation, requestLogRepo,
		nil, nil, nil, nil, nil, log, domainservice.DefaultGuardConfig())

	admin := appservice.NewAdminAppService(
		ruleRepo, blockRepo, requestLogRepo, auditRepo, settingsRepo,
		ruleCache, blocks, nil, nil, nil, log,
	)

	return &testEngine{db: db, guard: guard, blocks: blocks, admin: admin}
}
