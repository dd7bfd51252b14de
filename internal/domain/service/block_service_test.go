package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

func newTestBlockService(repo *fakeBlockRepo, clock Clock) *BlockService {
	return NewBlockService(repo, nil, constants.BlockCacheTTL, clock, nil, logger.NewNoopLogger())
}

func TestBlockService(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject a blocked ip and allow others", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{}
		expires := clock.Now().Add(time.Hour)
		repo.add(models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), &expires))
		svc := newTestBlockService(repo, clock)

		assert.True(t, svc.IsBlocked(ctx, "10.0.0.1"))
		assert.False(t, svc.IsBlocked(ctx, "10.0.0.2"))
	})

	t.Run("should stop enforcing once a block passes its expiry", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{}
		expires := clock.Now().Add(time.Minute)
		repo.add(models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), &expires))
		svc := newTestBlockService(repo, clock)

		assert.True(t, svc.IsBlocked(ctx, "10.0.0.1"))

		clock.Advance(2 * time.Minute)
		assert.False(t, svc.IsBlocked(ctx, "10.0.0.1"))
	})

	t.Run("should sweep overdue records to expired on refresh", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{}
		expires := clock.Now().Add(time.Minute)
		record := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), &expires)
		repo.add(record)
		svc := newTestBlockService(repo, clock)

		clock.Advance(2 * time.Minute)
		svc.IsBlocked(ctx, "10.0.0.1")

		assert.Equal(t, constants.BlockStatusExpired, record.Status)
	})

	t.Run("should enforce the most recent active record per ip", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{}

		// Already lapsed but not yet swept; a sibling instance inserted a
		// fresh one afterwards.
		early := clock.Now().Add(time.Minute)
		repo.add(models.NewBlockRecord("10.0.0.1", "first", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now().Add(-time.Hour), &early))
		late := clock.Now().Add(time.Hour)
		repo.add(models.NewBlockRecord("10.0.0.1", "second", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), &late))

		svc := newTestBlockService(repo, clock)
		clock.Advance(30 * time.Minute)

		assert.True(t, svc.IsBlocked(ctx, "10.0.0.1"))
	})

	t.Run("should see a fresh block immediately after the write", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{}
		svc := newTestBlockService(repo, clock)

		assert.False(t, svc.IsBlocked(ctx, "10.0.0.1"))

		expires := clock.Now().Add(time.Hour)
		record := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), &expires)
		require.NoError(t, svc.Block(ctx, record))

		assert.True(t, svc.IsBlocked(ctx, "10.0.0.1"), "write invalidates the cache")
	})

	t.Run("should lift a block on unblock", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{}
		svc := newTestBlockService(repo, clock)

		expires := clock.Now().Add(time.Hour)
		record := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), &expires)
		require.NoError(t, svc.Block(ctx, record))
		require.True(t, svc.IsBlocked(ctx, "10.0.0.1"))

		require.NoError(t, svc.Unblock(ctx, record.BlockID))

		assert.False(t, svc.IsBlocked(ctx, "10.0.0.1"))
		assert.Equal(t, constants.BlockStatusManualUnblock, record.Status)
	})

	t.Run("should refuse to unblock a non-active record", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{}
		record := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), nil)
		record.Status = constants.BlockStatusExpired
		repo.add(record)
		svc := newTestBlockService(repo, clock)

		err := svc.Unblock(ctx, record.BlockID)
		assert.ErrorIs(t, err, errors.ErrInvalidRequest)
	})

	t.Run("should fail open when the store is unreachable", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{findErr: errors.ErrDatabaseOperation}
		svc := newTestBlockService(repo, clock)

		assert.False(t, svc.IsBlocked(ctx, "10.0.0.1"))
	})

	t.Run("should keep the stale snapshot through a failed refresh", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{}
		expires := clock.Now().Add(time.Hour)
		repo.add(models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), &expires))
		svc := newTestBlockService(repo, clock)

		require.True(t, svc.IsBlocked(ctx, "10.0.0.1"))

		repo.mu.Lock()
		repo.findErr = errors.ErrDatabaseOperation
		repo.mu.Unlock()
		clock.Advance(constants.BlockCacheTTL + time.Second)

		assert.True(t, svc.IsBlocked(ctx, "10.0.0.1"), "stale map keeps enforcing")
	})

	t.Run("should surface a persistence failure from block", func(t *testing.T) {
		clock := newFakeClock()
		repo := &fakeBlockRepo{saveErr: errors.ErrDatabaseOperation}
		svc := newTestBlockService(repo, clock)

		record := models.NewBlockRecord("10.0.0.1", "test", "", constants.RuleScopeAll, constants.BlockOriginSystem, clock.Now(), nil)
		assert.Error(t, svc.Block(ctx, record))
	})
}
