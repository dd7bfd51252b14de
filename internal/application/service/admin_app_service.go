// Package service contains the application services orchestrating the domain
// layer for the HTTP surfaces.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gatewarden/gatewarden/internal/application/dto"
	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	domainservice "github.com/gatewarden/gatewarden/internal/domain/service"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// WebhookCacheInvalidator lets the admin service drop the alert dispatcher's
// cached destination after a config change.
type WebhookCacheInvalidator interface {
	InvalidateDestination()
}

// AdminAppService implements the management API use cases: rule CRUD, manual
// blocks, audit queries, webhook configuration and retention cleanup. Every
// mutation invalidates the affected engine cache so changes are visible on
// the very next evaluation.
type AdminAppService interface {
	ListRules(ctx context.Context) ([]*models.LimitRule, error)
	CreateRule(ctx context.Context, req *dto.RuleRequest) (*models.LimitRule, error)
	UpdateRule(ctx context.Context, ruleID string, req *dto.RuleRequest) (*models.LimitRule, error)
	DeleteRule(ctx context.Context, ruleID string) error

	BlockIP(ctx context.Context, req *dto.ManualBlockRequest) (*models.BlockRecord, error)
	UnblockIP(ctx context.Context, blockID string) error
	ListActiveBlocks(ctx context.Context) ([]*models.BlockRecord, error)

	QueryRequestLog(ctx context.Context, query *dto.RequestLogQuery) ([]*models.RequestLogEntry, error)
	ListAuditLog(ctx context.Context, limit int) ([]*models.SecurityAuditEntry, error)

	GetWebhookURL(ctx context.Context) (string, error)
	SetWebhookURL(ctx context.Context, url string) error

	RunRetentionCleanup(ctx context.Context) (*dto.CleanupResponse, error)
}

type adminAppServiceImpl struct {
	ruleRepo    repository.RuleRepository
	blockRepo   repository.BlockRepository
	requestLogs repository.RequestLogRepository
	auditRepo   repository.AuditRepository
	settings    repository.SettingsRepository

	ruleCache *domainservice.RuleCache
	blocks    *domainservice.BlockService
	audit     domainservice.AuditSink
	webhook   WebhookCacheInvalidator
	clock     domainservice.Clock
	logger    logger.Logger
}

// NewAdminAppService creates the management application service. audit and
// webhook may be nil.
func NewAdminAppService(
	ruleRepo repository.RuleRepository,
	blockRepo repository.BlockRepository,
	requestLogs repository.RequestLogRepository,
	auditRepo repository.AuditRepository,
	settings repository.SettingsRepository,
	ruleCache *domainservice.RuleCache,
	blocks *domainservice.BlockService,
	audit domainservice.AuditSink,
	webhook WebhookCacheInvalidator,
	clock domainservice.Clock,
	log logger.Logger,
) AdminAppService {
	if clock == nil {
		clock = domainservice.NewSystemClock()
	}
	return &adminAppServiceImpl{
		ruleRepo:    ruleRepo,
		blockRepo:   blockRepo,
		requestLogs: requestLogs,
		auditRepo:   auditRepo,
		settings:    settings,
		ruleCache:   ruleCache,
		blocks:      blocks,
		audit:       audit,
		webhook:     webhook,
		clock:       clock,
		logger:      log.WithComponent("admin"),
	}
}

func (s *adminAppServiceImpl) ListRules(ctx context.Context) ([]*models.LimitRule, error) {
	return s.ruleRepo.FindAll(ctx)
}

func (s *adminAppServiceImpl) CreateRule(ctx context.Context, req *dto.RuleRequest) (*models.LimitRule, error) {
	rule := req.ToModel()
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.ruleCache.Invalidate()
	s.recordAudit(ctx, constants.AuditEventRuleCreated, "", fmt.Sprintf("rule %q created", rule.Name))
	return rule, nil
}

func (s *adminAppServiceImpl) UpdateRule(ctx context.Context, ruleID string, req *dto.RuleRequest) (*models.LimitRule, error) {
	existing, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	rule := req.ToModel()
	rule.RuleID = existing.RuleID
	rule.CreatedAt = existing.CreatedAt
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	s.ruleCache.Invalidate()
	s.recordAudit(ctx, constants.AuditEventRuleUpdated, "", fmt.Sprintf("rule %q updated", rule.Name))
	return rule, nil
}

func (s *adminAppServiceImpl) DeleteRule(ctx context.Context, ruleID string) error {
	if err := s.ruleRepo.Delete(ctx, ruleID); err != nil {
		return err
	}

	s.ruleCache.Invalidate()
	s.recordAudit(ctx, constants.AuditEventRuleDeleted, "", fmt.Sprintf("rule %s deleted", ruleID))
	return nil
}

func (s *adminAppServiceImpl) BlockIP(ctx context.Context, req *dto.ManualBlockRequest) (*models.BlockRecord, error) {
	now := s.clock.Now()

	reason := req.Reason
	if reason == "" {
		reason = "manual block"
	}
	scope := constants.RuleScopeAll
	if req.Scope != "" {
		scope = constants.RuleScope(req.Scope)
	}

	var expiresAt *time.Time
	if req.DurationMinutes > 0 {
		t := now.Add(time.Duration(req.DurationMinutes) * time.Minute)
		expiresAt = &t
	}

	record := models.NewBlockRecord(req.IP, reason, "", scope, constants.BlockOriginAdmin, now, expiresAt)
	if err := s.blocks.Block(ctx, record); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, constants.AuditEventIPBlocked, req.IP, fmt.Sprintf("manually blocked: %s", reason))
	return record, nil
}

func (s *adminAppServiceImpl) UnblockIP(ctx context.Context, blockID string) error {
	if err := s.blocks.Unblock(ctx, blockID); err != nil {
		return err
	}
	s.recordAudit(ctx, constants.AuditEventIPUnblocked, "", fmt.Sprintf("block %s lifted", blockID))
	return nil
}

func (s *adminAppServiceImpl) ListActiveBlocks(ctx context.Context) ([]*models.BlockRecord, error) {
	return s.blocks.ListActive(ctx)
}

func (s *adminAppServiceImpl) QueryRequestLog(ctx context.Context, query *dto.RequestLogQuery) ([]*models.RequestLogEntry, error) {
	return s.requestLogs.Find(ctx, repository.RequestLogFilter{
		IP:       query.IP,
		Endpoint: query.Endpoint,
		Blocked:  query.Blocked,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
}

func (s *adminAppServiceImpl) ListAuditLog(ctx context.Context, limit int) ([]*models.SecurityAuditEntry, error) {
	return s.auditRepo.FindRecent(ctx, limit)
}

func (s *adminAppServiceImpl) GetWebhookURL(ctx context.Context) (string, error) {
	return s.settings.Get(ctx, constants.SettingAlertWebhookURL)
}

func (s *adminAppServiceImpl) SetWebhookURL(ctx context.Context, url string) error {
	if err := s.settings.Set(ctx, constants.SettingAlertWebhookURL, url); err != nil {
		return err
	}
	if s.webhook != nil {
		s.webhook.InvalidateDestination()
	}
	s.recordAudit(ctx, constants.AuditEventWebhookChanged, "", "alert webhook destination changed")
	return nil
}

// RunRetentionCleanup deletes request logs older than 7 days, audit entries
// older than 30 days and resolved block records older than 30 days. Each
// deletion proceeds independently; the first failure aborts with partial
// counts logged.
func (s *adminAppServiceImpl) RunRetentionCleanup(ctx context.Context) (*dto.CleanupResponse, error) {
	now := s.clock.Now()
	result := &dto.CleanupResponse{}

	logs, err := s.requestLogs.DeleteBefore(ctx, now.Add(-constants.RequestLogRetention))
	if err != nil {
		return result, err
	}
	result.RequestLogsDeleted = logs

	auditRows, err := s.auditRepo.DeleteBefore(ctx, now.Add(-constants.SecurityAuditRetention))
	if err != nil {
		return result, err
	}
	result.AuditEntriesDeleted = auditRows

	blocks, err := s.blockRepo.DeleteResolvedBefore(ctx, now.Add(-constants.ResolvedBlockRetention))
	if err != nil {
		return result, err
	}
	result.BlockRecordsDeleted = blocks

	s.recordAudit(ctx, constants.AuditEventRetentionCleanup, "",
		fmt.Sprintf("retention cleanup removed %d request logs, %d audit entries, %d block records",
			result.RequestLogsDeleted, result.AuditEntriesDeleted, result.BlockRecordsDeleted))

	s.logger.Info(ctx, "retention cleanup complete",
		logger.Int64("request_logs", result.RequestLogsDeleted),
		logger.Int64("audit_entries", result.AuditEntriesDeleted),
		logger.Int64("block_records", result.BlockRecordsDeleted),
	)
	return result, nil
}

func (s *adminAppServiceImpl) recordAudit(ctx context.Context, eventType constants.AuditEventType, ip, message string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, models.NewSecurityAuditEntry(eventType, ip, string(constants.BlockOriginAdmin), message, s.clock.Now()))
}
