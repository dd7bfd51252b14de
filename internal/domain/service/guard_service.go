package service

import (
	"context"
	"time"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// AuditSink records alert-worthy security events. Implementations are
// best-effort; failures never affect the decision.
type AuditSink interface {
	Record(ctx context.Context, entry *models.SecurityAuditEntry)
}

// GuardConfig tunes the decision pipeline.
type GuardConfig struct {
	// FloodLimit is the fingerprint hit count within the flood window above
	// which the automated-tool heuristic fires.
	FloodLimit uint

	// SampleNormal is the 1-in-N log sampling rate for unremarkable traffic.
	SampleNormal int

	// SampleFastReject is the 1-in-N log sampling rate for traffic rejected
	// by the block cache.
	SampleFastReject int

	// FallbackTimeout caps a durable ledger count query.
	FallbackTimeout time.Duration
}

// DefaultGuardConfig returns the production defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FloodLimit:       constants.FingerprintFloodLimit,
		SampleNormal:     constants.LogSampleNormal,
		SampleFastReject: constants.LogSampleFastReject,
		FallbackTimeout:  constants.DurableFallbackTimeout,
	}
}

// GuardService is the decision pipeline: it classifies every inbound request,
// counts recent activity per client identity and escalates from allow to
// temporarily-block based on the configured rules. One instance exists per
// process and owns the in-memory counters.
type GuardService struct {
	rules      *RuleCache
	blocks     *BlockService
	escalation *EscalationPolicy
	ledger     repository.RequestLogRepository
	alerts     AlertService
	audit      AuditSink // nil disables audit rows for system blocks
	sampler    Sampler
	clock      Clock
	metrics    EngineMetrics
	log        logger.Logger

	ipHits *SlidingWindow
	fpHits *SlidingWindow

	cfg GuardConfig
}

// NewGuardService wires the decision pipeline. alerts may be the no-op
// implementation; audit may be nil.
func NewGuardService(
	rules *RuleCache,
	blocks *BlockService,
	escalation *EscalationPolicy,
	ledger repository.RequestLogRepository,
	alerts AlertService,
	audit AuditSink,
	sampler Sampler,
	clock Clock,
	metrics EngineMetrics,
	log logger.Logger,
	cfg GuardConfig,
) *GuardService {
	if clock == nil {
		clock = NewSystemClock()
	}
	if sampler == nil {
		sampler = NewCounterSampler()
	}
	if alerts == nil {
		alerts = NoopAlertService{}
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if cfg.FloodLimit == 0 {
		cfg = DefaultGuardConfig()
	}
	return &GuardService{
		rules:      rules,
		blocks:     blocks,
		escalation: escalation,
		ledger:     ledger,
		alerts:     alerts,
		audit:      audit,
		sampler:    sampler,
		clock:      clock,
		metrics:    metrics,
		log:        log.WithComponent("guard"),
		ipHits:     NewSlidingWindow(constants.HitRetention, 0, clock),
		fpHits:     NewSlidingWindow(constants.HitRetention, constants.FingerprintKeyCap, clock),
		cfg:        cfg,
	}
}

// Evaluate runs the full decision pipeline for one request and returns the
// verdict. It never returns an error: infrastructure failures degrade to
// allowing the request through (fail open), with the error logged.
func (g *GuardService) Evaluate(ctx context.Context, identity models.Identity, reqCtx models.RequestContext) models.Decision {
	start := g.clock.Now()

	// Fast reject before any other work, including logging, to keep the cost
	// of known-bad traffic minimal.
	if g.blocks.IsBlocked(ctx, identity.IP) {
		decision := models.Decision{
			Status:      constants.DecisionBlocked,
			RuleLabel:   "ip_blocked",
			TriggerPath: constants.TriggerPathFastReject,
		}
		g.logRequest(ctx, identity, reqCtx, decision)
		g.metrics.RecordDecision(decision.Status, decision.TriggerPath, g.clock.Now().Sub(start))
		return decision
	}

	g.ipHits.Record(identity.IP)
	fpKey := FingerprintKey(identity.UserAgent)
	g.fpHits.Record(fpKey)

	rules := g.rules.GetRules(ctx)

	triggered, path, suspicious := g.evaluateRules(ctx, rules, identity, reqCtx)

	// Secondary check: a fingerprint flooding faster than any single IP can
	// trip a per-IP rule indicates IP rotation behind a stable user agent.
	if triggered == nil && g.fpHits.CountSince(fpKey, constants.FingerprintFloodWindow) > g.cfg.FloodLimit {
		for _, rule := range rules {
			if rule.Kind == constants.RuleKindRateLimit && rule.Scope == constants.RuleScopeAll {
				triggered = rule
				path = constants.TriggerPathAutomatedTool
				break
			}
		}
	}

	if triggered == nil {
		status := constants.DecisionNormal
		if suspicious || reqCtx.FailedLogin {
			status = constants.DecisionSuspicious
		}
		decision := models.Decision{Status: status}
		g.logRequest(ctx, identity, reqCtx, decision)
		g.metrics.RecordDecision(status, "", g.clock.Now().Sub(start))
		return decision
	}

	decision := g.applyBlock(ctx, triggered, path, identity, reqCtx)
	g.logRequest(ctx, identity, reqCtx, decision)
	g.metrics.RecordDecision(decision.Status, path, g.clock.Now().Sub(start))
	return decision
}

// evaluateRules walks the rule snapshot in its stable order and returns the
// first triggered rule. Rules whose in-memory count passed half the threshold
// are confirmed against the durable ledger, which sees traffic every instance
// received.
func (g *GuardService) evaluateRules(ctx context.Context, rules []*models.LimitRule, identity models.Identity, reqCtx models.RequestContext) (*models.LimitRule, constants.TriggerPath, bool) {
	suspicious := false

	for _, rule := range rules {
		if !g.ruleApplies(rule, reqCtx) {
			continue
		}

		count := g.ipHits.CountSince(identity.IP, rule.Window())
		if count > rule.MaxRequests {
			return rule, constants.TriggerPathMemory, true
		}

		if float64(count) <= float64(rule.MaxRequests)*constants.DurableFallbackRatio {
			continue
		}
		suspicious = true

		durable, err := g.durableCount(ctx, identity.IP, rule.Window())
		if err != nil {
			// Fail open for this check: over-blocking production traffic
			// during a storage outage is the worse failure mode.
			g.log.Error(ctx, "durable count fallback failed", err,
				logger.String("ip", identity.IP),
				logger.String("rule_id", rule.RuleID),
			)
			continue
		}
		if durable > int64(rule.MaxRequests) {
			return rule, constants.TriggerPathCrossIsolate, true
		}
	}

	return nil, "", suspicious
}

func (g *GuardService) ruleApplies(rule *models.LimitRule, reqCtx models.RequestContext) bool {
	if !rule.Enabled {
		return false
	}
	if rule.Scope == constants.RuleScopeSensitiveOnly && !reqCtx.Sensitive {
		return false
	}
	if rule.Kind == constants.RuleKindBruteForce && !reqCtx.FailedLogin {
		return false
	}
	return rule.AppliesToEndpoint(reqCtx.Endpoint)
}

func (g *GuardService) durableCount(ctx context.Context, ip string, window time.Duration) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, g.cfg.FallbackTimeout)
	defer cancel()

	count, err := g.ledger.CountSince(queryCtx, ip, g.clock.Now().Add(-window))
	g.metrics.RecordFallbackQuery(err == nil)
	return count, err
}

// applyBlock computes the escalated duration, persists the block, and fires
// the alert. The verdict stands even when the durable write fails: this
// instance keeps rejecting through its own cache either way.
func (g *GuardService) applyBlock(ctx context.Context, rule *models.LimitRule, path constants.TriggerPath, identity models.Identity, reqCtx models.RequestContext) models.Decision {
	now := g.clock.Now()
	base := rule.BaseBlockDuration()
	duration := g.escalation.EffectiveDuration(ctx, identity.IP, base)
	expiresAt := now.Add(duration)

	record := models.NewBlockRecord(
		identity.IP, rule.Name, rule.RuleID, rule.Scope,
		constants.BlockOriginSystem, now, &expiresAt,
	)
	if err := g.blocks.Block(ctx, record); err != nil {
		g.log.Error(ctx, "block write dropped", err, logger.String("ip", identity.IP))
	}

	g.metrics.RecordRuleTrigger(rule.Name, path)

	g.alerts.Notify(ctx, models.AlertEvent{
		IP:              identity.IP,
		RuleLabel:       rule.Name,
		DurationMinutes: uint(duration / time.Minute),
		Endpoint:        reqCtx.Endpoint,
		Escalated:       duration > base,
		UserAgent:       truncate(identity.UserAgent, constants.AlertAgentLength),
	})

	if g.audit != nil {
		g.audit.Record(ctx, models.NewSecurityAuditEntry(
			constants.AuditEventIPBlocked, identity.IP, string(constants.BlockOriginSystem),
			"blocked by rule "+rule.Name+" ("+string(path)+")", now,
		))
	}

	return models.Decision{
		Status:       constants.DecisionBlocked,
		RuleLabel:    rule.Name,
		BlockMinutes: uint(duration / time.Minute),
		TriggerPath:  path,
	}
}

// logRequest persists a request log entry per the sampling policy: always on
// a violation or failed login, 1-in-N otherwise, with a lower rate still for
// fast-rejected traffic. Write failures are dropped with a logged error.
func (g *GuardService) logRequest(ctx context.Context, identity models.Identity, reqCtx models.RequestContext, decision models.Decision) {
	switch {
	case decision.TriggerPath == constants.TriggerPathFastReject:
		if !g.sampler.Sample(g.cfg.SampleFastReject) {
			return
		}
	case decision.Status == constants.DecisionBlocked || reqCtx.FailedLogin:
		// always logged
	default:
		if !g.sampler.Sample(g.cfg.SampleNormal) {
			return
		}
	}

	entry := models.NewRequestLogEntry(
		identity.IP, reqCtx.Method, reqCtx.Endpoint, identity.UserAgent,
		reqCtx.StatusCode, g.clock.Now(),
	).WithOutcome(
		decision.Status != constants.DecisionNormal,
		decision.Status == constants.DecisionBlocked,
		decision.RuleLabel,
		decision.TriggerPath,
	)

	if err := g.ledger.Save(ctx, entry); err != nil {
		g.log.Error(ctx, "request log write dropped", err, logger.String("ip", identity.IP))
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
