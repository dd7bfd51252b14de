// Package constants defines system-wide constants for the Gatewarden decision engine.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Rule Constants
// ================================================================================

// RuleKind represents the class of traffic a limit rule applies to.
type RuleKind string

const (
	// RuleKindRateLimit applies to raw request volume.
	RuleKindRateLimit RuleKind = "rate_limit"

	// RuleKindBruteForce applies only to failed authentication attempts.
	RuleKindBruteForce RuleKind = "brute_force"
)

// RuleScope narrows which requests a rule is evaluated against.
type RuleScope string

const (
	// RuleScopeAll evaluates the rule against every request.
	RuleScopeAll RuleScope = "all"

	// RuleScopeSensitiveOnly evaluates the rule only against sensitive endpoints
	// (auth, admin, data-mutation routes).
	RuleScopeSensitiveOnly RuleScope = "sensitive_only"
)

// ================================================================================
// Block Constants
// ================================================================================

// BlockStatus represents the lifecycle status of a block record.
type BlockStatus string

const (
	// BlockStatusActive indicates the block is currently enforced.
	BlockStatusActive BlockStatus = "active"

	// BlockStatusExpired indicates the block passed its expiry and was swept.
	BlockStatusExpired BlockStatus = "expired"

	// BlockStatusManualUnblock indicates an admin lifted the block explicitly.
	BlockStatusManualUnblock BlockStatus = "manual_unblock"
)

// BlockOrigin identifies who created a block record.
type BlockOrigin string

const (
	// BlockOriginSystem marks blocks issued by the decision pipeline.
	BlockOriginSystem BlockOrigin = "system"

	// BlockOriginAdmin marks blocks issued through the management API.
	BlockOriginAdmin BlockOrigin = "admin"
)

// ================================================================================
// Decision Constants
// ================================================================================

// DecisionStatus is the per-request verdict returned by the engine.
type DecisionStatus string

const (
	// DecisionNormal means the request is allowed with no findings.
	DecisionNormal DecisionStatus = "normal"

	// DecisionSuspicious means the request is allowed but is approaching a
	// threshold or is a failed authentication attempt.
	DecisionSuspicious DecisionStatus = "suspicious"

	// DecisionBlocked means the request must be rejected.
	DecisionBlocked DecisionStatus = "blocked"
)

// TriggerPath labels how a rule came to trigger, for logs and metrics.
type TriggerPath string

const (
	// TriggerPathMemory means the in-process window count exceeded the threshold.
	TriggerPathMemory TriggerPath = "memory"

	// TriggerPathCrossIsolate means the durable ledger count exceeded the
	// threshold while the local count did not, indicating multi-instance evasion.
	TriggerPathCrossIsolate TriggerPath = "cross-isolate"

	// TriggerPathAutomatedTool means the fingerprint-flood heuristic fired.
	TriggerPathAutomatedTool TriggerPath = "automated-tool"

	// TriggerPathFastReject means the request was rejected by the block cache
	// before any evaluation.
	TriggerPathFastReject TriggerPath = "fast-reject"
)

// ================================================================================
// Engine Defaults
// ================================================================================

const (
	// RuleCacheTTL bounds how stale the enabled-rule snapshot may become.
	RuleCacheTTL = 60 * time.Second

	// BlockCacheTTL bounds how stale the active-block snapshot may become.
	BlockCacheTTL = 10 * time.Second

	// HitRetention is the ceiling beyond which in-memory hit timestamps are pruned.
	HitRetention = 2 * time.Minute

	// FingerprintKeyCap is the maximum distinct fingerprint keys retained before
	// a global prune of dead keys.
	FingerprintKeyCap = 500

	// FingerprintFloodWindow is the lookback for the automated-tool heuristic.
	FingerprintFloodWindow = 5 * time.Second

	// FingerprintFloodLimit is the hit count above which the automated-tool
	// heuristic fires.
	FingerprintFloodLimit = 15

	// FingerprintAgentLength is the truncation applied to user agents when
	// building fingerprint keys, to bound key cardinality.
	FingerprintAgentLength = 64

	// DurableFallbackRatio is the fraction of a rule threshold at which the
	// durable ledger is consulted for a cross-instance count.
	DurableFallbackRatio = 0.5

	// DurableFallbackTimeout caps a single ledger count query.
	DurableFallbackTimeout = 800 * time.Millisecond

	// BlockWriteTimeout caps the apply-block write path.
	BlockWriteTimeout = 2 * time.Second

	// EscalationLookback is the rolling window over which prior blocks escalate
	// the next block's duration.
	EscalationLookback = 24 * time.Hour

	// EscalationRepeatCap is the prior-block count at and above which the flat
	// maximum duration applies.
	EscalationRepeatCap = 3

	// MaxBlockDuration caps any escalated block.
	MaxBlockDuration = 24 * time.Hour
)

// ================================================================================
// Request Logging Defaults
// ================================================================================

const (
	// LogSampleNormal is the 1-in-N sampling rate for unremarkable traffic.
	LogSampleNormal = 5

	// LogSampleFastReject is the 1-in-N sampling rate for traffic already
	// rejected by the block cache.
	LogSampleFastReject = 3

	// AlertAgentLength is the truncation applied to user agents carried in
	// alert payloads.
	AlertAgentLength = 128

	// AlertQueueSize bounds the alert dispatcher's pending queue.
	AlertQueueSize = 256
)

// ================================================================================
// Retention Defaults
// ================================================================================

const (
	// RequestLogRetention is how long raw request log rows are kept.
	RequestLogRetention = 7 * 24 * time.Hour

	// SecurityAuditRetention is how long security audit rows are kept.
	SecurityAuditRetention = 30 * 24 * time.Hour

	// ResolvedBlockRetention is how long expired/unblocked block records are kept.
	ResolvedBlockRetention = 30 * 24 * time.Hour
)

// ================================================================================
// Audit Event Types
// ================================================================================

// AuditEventType classifies security audit entries.
type AuditEventType string

const (
	AuditEventIPBlocked        AuditEventType = "ip_blocked"
	AuditEventIPUnblocked      AuditEventType = "ip_unblocked"
	AuditEventRuleCreated      AuditEventType = "rule_created"
	AuditEventRuleUpdated      AuditEventType = "rule_updated"
	AuditEventRuleDeleted      AuditEventType = "rule_deleted"
	AuditEventWebhookChanged   AuditEventType = "webhook_changed"
	AuditEventRetentionCleanup AuditEventType = "retention_cleanup"
)

// ================================================================================
// Settings Keys
// ================================================================================

const (
	// SettingAlertWebhookURL is the config-table key holding the alert webhook
	// destination.
	SettingAlertWebhookURL = "alert_webhook_url"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is a typed key for request-scoped context values.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request correlation ID.
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID carries the distributed trace ID.
	ContextKeyTraceID ContextKey = "trace_id"
)

// ================================================================================
// Log Levels
// ================================================================================

// LogLevel controls logger verbosity.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// ================================================================================
// Error Codes
// ================================================================================

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

const (
	ErrorCodeInvalidRequest     ErrorCode = "invalid_request"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeForbidden          ErrorCode = "forbidden"
	ErrorCodeRateLimited        ErrorCode = "rate_limit_exceeded"
	ErrorCodeInternal           ErrorCode = "internal_error"
	ErrorCodeServiceUnavailable ErrorCode = "service_unavailable"
)
