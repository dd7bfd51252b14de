package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatewarden/gatewarden/internal/domain/service"
)

// blockMirror propagates block decisions across engine instances through a
// shared Redis keyspace. It narrows the block cache's 10-second staleness
// window; Postgres stays the source of truth, so every operation here is
// best-effort and every error is tolerable.
type blockMirror struct {
	rdb redis.UniversalClient
}

// NewBlockMirror creates a Redis-backed block mirror.
func NewBlockMirror(rdb redis.UniversalClient) service.BlockMirror {
	return &blockMirror{rdb: rdb}
}

func mirrorKey(ip string) string {
	return fmt.Sprintf("gatewarden:block:%s", ip)
}

func (m *blockMirror) MirrorBlock(ctx context.Context, ip string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return m.rdb.Set(ctx, mirrorKey(ip), "1", ttl).Err()
}

func (m *blockMirror) DropMirror(ctx context.Context, ip string) error {
	return m.rdb.Del(ctx, mirrorKey(ip)).Err()
}

func (m *blockMirror) IsBlocked(ctx context.Context, ip string) (bool, error) {
	n, err := m.rdb.Exists(ctx, mirrorKey(ip)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
