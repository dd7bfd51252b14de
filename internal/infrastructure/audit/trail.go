// Package audit persists security audit events and optionally streams them to
// Kafka for downstream consumers.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// Trail writes security audit entries to the durable audit log and, when
// brokers are configured, publishes them to a Kafka topic. Both paths are
// best-effort: audit failures never propagate to the caller.
type Trail struct {
	repo   repository.AuditRepository
	writer *kafka.Writer // nil when Kafka is not configured
	log    logger.Logger
}

// NewTrail creates an audit trail. A nil or empty Kafka config disables the
// stream.
func NewTrail(repo repository.AuditRepository, cfg *config.KafkaConfig, log logger.Logger) *Trail {
	t := &Trail{
		repo: repo,
		log:  log.WithComponent("audit_trail"),
	}

	if cfg != nil && len(cfg.Brokers) > 0 {
		t.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.AuditTopic,
			Balancer:     &kafka.LeastBytes{},
			WriteTimeout: cfg.WriteTimeout,
			BatchSize:    cfg.BatchSize,
			BatchTimeout: cfg.BatchTimeout,
		}
	}

	return t
}

// Record persists the entry and publishes it to the stream.
func (t *Trail) Record(ctx context.Context, entry *models.SecurityAuditEntry) {
	if err := t.repo.Save(ctx, entry); err != nil {
		t.log.Error(ctx, "audit entry write dropped", err,
			logger.String("event_type", string(entry.EventType)),
		)
	}

	if t.writer == nil {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		t.log.Error(ctx, "audit entry marshal failed", err)
		return
	}
	if err := t.writer.WriteMessages(ctx, kafka.Message{Key: []byte(entry.IP), Value: payload}); err != nil {
		t.log.Warn(ctx, "audit stream publish failed",
			logger.String("event_type", string(entry.EventType)),
		)
	}
}

// Close closes the Kafka writer if one was configured.
func (t *Trail) Close() error {
	if t.writer == nil {
		return nil
	}
	return t.writer.Close()
}
