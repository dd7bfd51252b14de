package service

import (
	"context"
	"time"

	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// EscalationPolicy computes the effective block duration for an offending IP
// from its block history in the trailing 24 hours. Repeat offenses double the
// duration, capped at one day; three or more priors earn the flat maximum.
// The lookback is computed fresh at block time, never cached.
type EscalationPolicy struct {
	blocks repository.BlockRepository
	clock  Clock
	log    logger.Logger
}

// NewEscalationPolicy creates an escalation policy over the block store.
func NewEscalationPolicy(blocks repository.BlockRepository, clock Clock, log logger.Logger) *EscalationPolicy {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &EscalationPolicy{
		blocks: blocks,
		clock:  clock,
		log:    log.WithComponent("escalation"),
	}
}

// EffectiveDuration returns the block duration to apply for the IP given a
// rule's base duration. Prior blocks of any status count; the intent is to
// punish repeat offenders, not only currently-active ones. On storage failure
// the base duration applies unchanged.
func (p *EscalationPolicy) EffectiveDuration(ctx context.Context, ip string, base time.Duration) time.Duration {
	since := p.clock.Now().Add(-constants.EscalationLookback)

	priors, err := p.blocks.CountPriorBlocks(ctx, ip, since)
	if err != nil {
		p.log.Error(ctx, "prior-block lookup failed, using base duration", err,
			logger.String("ip", ip),
		)
		return base
	}

	if priors >= constants.EscalationRepeatCap {
		return constants.MaxBlockDuration
	}

	effective := base
	for i := int64(0); i < priors; i++ {
		effective *= 2
		if effective >= constants.MaxBlockDuration {
			return constants.MaxBlockDuration
		}
	}
	return effective
}
