package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// BlockService owns the per-process cache of active blocks and the write path
// to the durable block store. The cache refreshes at most every TTL unless a
// write invalidates it; before each refresh, overdue records are lazily
// transitioned to expired in storage.
type BlockService struct {
	repo    repository.BlockRepository
	mirror  BlockMirror // nil when the redis mirror is not configured
	clock   Clock
	ttl     time.Duration
	log     logger.Logger
	metrics EngineMetrics

	mu         sync.RWMutex
	activeByIP map[string]*models.BlockRecord
	fetchedAt  time.Time
	loaded     bool

	group singleflight.Group
}

// NewBlockService creates the block cache/store facade. mirror may be nil.
func NewBlockService(repo repository.BlockRepository, mirror BlockMirror, ttl time.Duration, clock Clock, metrics EngineMetrics, log logger.Logger) *BlockService {
	if clock == nil {
		clock = NewSystemClock()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &BlockService{
		repo:       repo,
		mirror:     mirror,
		clock:      clock,
		ttl:        ttl,
		log:        log.WithComponent("block_service"),
		metrics:    metrics,
		activeByIP: make(map[string]*models.BlockRecord),
	}
}

// IsBlocked reports whether the IP is currently blocked. It consults the
// in-process cache first and, on a miss, the cross-instance mirror as a cheap
// hint. Storage failures fail open: a request is never rejected because the
// block store was unreachable.
func (s *BlockService) IsBlocked(ctx context.Context, ip string) bool {
	s.refreshIfStale(ctx)

	now := s.clock.Now()

	s.mu.RLock()
	record, ok := s.activeByIP[ip]
	s.mu.RUnlock()

	if ok && record.IsEnforced(now) {
		return true
	}

	if s.mirror != nil {
		hit, err := s.mirror.IsBlocked(ctx, ip)
		if err != nil {
			s.log.Debug(ctx, "block mirror lookup failed", logger.String("ip", ip))
			return false
		}
		return hit
	}

	return false
}

// Block persists a new block record, mirrors it for sibling instances and
// invalidates the cache so the next read sees it immediately.
func (s *BlockService) Block(ctx context.Context, record *models.BlockRecord) error {
	writeCtx, cancel := context.WithTimeout(ctx, constants.BlockWriteTimeout)
	defer cancel()

	if err := s.repo.Save(writeCtx, record); err != nil {
		s.log.Error(ctx, "failed to persist block record", err, logger.String("ip", record.IP))
		return err
	}

	if s.mirror != nil {
		ttl := constants.MaxBlockDuration
		if record.ExpiresAt != nil {
			ttl = record.ExpiresAt.Sub(s.clock.Now())
		}
		if ttl > 0 {
			if err := s.mirror.MirrorBlock(ctx, record.IP, ttl); err != nil {
				s.log.Warn(ctx, "block mirror write failed", logger.String("ip", record.IP))
			}
		}
	}

	s.Invalidate()

	s.log.Info(ctx, "ip blocked",
		logger.String("ip", record.IP),
		logger.String("reason", record.Reason),
		logger.String("rule_id", record.RuleID),
		logger.String("created_by", string(record.CreatedBy)),
	)
	return nil
}

// Unblock transitions an active block to manual_unblock. The record is kept,
// not deleted, so it still counts toward escalation history.
func (s *BlockService) Unblock(ctx context.Context, blockID string) error {
	record, err := s.repo.FindByID(ctx, blockID)
	if err != nil {
		return err
	}
	if record.Status != constants.BlockStatusActive {
		return errors.ErrInvalidRequest.WithMessage("block is not active")
	}

	if err := s.repo.UpdateStatus(ctx, blockID, string(constants.BlockStatusManualUnblock)); err != nil {
		return err
	}

	if s.mirror != nil {
		if err := s.mirror.DropMirror(ctx, record.IP); err != nil {
			s.log.Warn(ctx, "block mirror drop failed", logger.String("ip", record.IP))
		}
	}

	s.Invalidate()

	s.log.Info(ctx, "ip unblocked", logger.String("ip", record.IP), logger.String("block_id", blockID))
	return nil
}

// ListActive returns the currently active block records from storage.
func (s *BlockService) ListActive(ctx context.Context) ([]*models.BlockRecord, error) {
	return s.repo.FindActive(ctx)
}

// Invalidate forces the next IsBlocked call to reload from storage.
func (s *BlockService) Invalidate() {
	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// refreshIfStale reloads the active-block map when the cache window has
// passed. Overdue records are swept to expired first so the reload only sees
// genuinely enforceable blocks. Failures keep the previous map.
func (s *BlockService) refreshIfStale(ctx context.Context) {
	s.mu.RLock()
	fresh := s.loaded && s.clock.Now().Sub(s.fetchedAt) < s.ttl
	s.mu.RUnlock()
	if fresh {
		return
	}

	s.group.Do("refresh", func() (interface{}, error) {
		now := s.clock.Now()

		if swept, err := s.repo.ExpireOverdue(ctx, now); err != nil {
			s.log.Error(ctx, "expiry sweep failed", err)
		} else if swept > 0 {
			s.log.Debug(ctx, "swept overdue blocks", logger.Int64("count", swept))
		}

		records, err := s.repo.FindActive(ctx)
		if err != nil {
			s.log.Error(ctx, "block cache refresh failed, serving stale snapshot", err)
			return nil, nil
		}

		// Most recent active record per IP wins; concurrent instances may
		// have inserted more than one.
		byIP := make(map[string]*models.BlockRecord, len(records))
		for _, record := range records {
			current, ok := byIP[record.IP]
			if !ok || record.BlockedAt.After(current.BlockedAt) {
				byIP[record.IP] = record
			}
		}

		s.mu.Lock()
		s.activeByIP = byIP
		s.fetchedAt = now
		s.loaded = true
		s.mu.Unlock()

		s.metrics.RecordCacheRefresh("blocks")
		return nil, nil
	})
}
