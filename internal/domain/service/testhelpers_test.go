package service

import (
	"context"
	"sync"
	"time"

	"github.com/gatewarden/gatewarden/internal/domain/models"
	"github.com/gatewarden/gatewarden/internal/domain/repository"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/errors"
)

// fakeClock is a manually advanced clock for deterministic window tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeRuleRepo serves a fixed rule list and counts loads.
type fakeRuleRepo struct {
	mu    sync.Mutex
	rules []*models.LimitRule
	err   error
	loads int
}

func (r *fakeRuleRepo) FindEnabled(ctx context.Context) ([]*models.LimitRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.err != nil {
		return nil, r.err
	}
	return r.rules, nil
}

func (r *fakeRuleRepo) FindAll(ctx context.Context) ([]*models.LimitRule, error) {
	return r.FindEnabled(ctx)
}

func (r *fakeRuleRepo) FindByID(ctx context.Context, ruleID string) (*models.LimitRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rule := range r.rules {
		if rule.RuleID == ruleID {
			return rule, nil
		}
	}
	return nil, errors.ErrRuleNotFound(ruleID)
}

func (r *fakeRuleRepo) Save(ctx context.Context, rule *models.LimitRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
	return nil
}

func (r *fakeRuleRepo) Update(ctx context.Context, rule *models.LimitRule) error { return nil }
func (r *fakeRuleRepo) Delete(ctx context.Context, ruleID string) error          { return nil }

func (r *fakeRuleRepo) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *fakeRuleRepo) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// fakeBlockRepo keeps block records in memory.
type fakeBlockRepo struct {
	mu      sync.Mutex
	records []*models.BlockRecord
	saveErr error
	findErr error
}

func (r *fakeBlockRepo) Save(ctx context.Context, block *models.BlockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.records = append(r.records, block)
	return nil
}

func (r *fakeBlockRepo) FindActive(ctx context.Context) ([]*models.BlockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	var active []*models.BlockRecord
	for _, record := range r.records {
		if record.Status == constants.BlockStatusActive {
			active = append(active, record)
		}
	}
	return active, nil
}

func (r *fakeBlockRepo) FindByID(ctx context.Context, blockID string) (*models.BlockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.BlockID == blockID {
			return record, nil
		}
	}
	return nil, errors.ErrBlockNotFound(blockID)
}

func (r *fakeBlockRepo) CountPriorBlocks(ctx context.Context, ip string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return 0, r.findErr
	}
	var count int64
	for _, record := range r.records {
		if record.IP == ip && record.BlockedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeBlockRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var swept int64
	for _, record := range r.records {
		if record.IsExpired(now) {
			record.Status = constants.BlockStatusExpired
			swept++
		}
	}
	return swept, nil
}

func (r *fakeBlockRepo) UpdateStatus(ctx context.Context, blockID string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.BlockID == blockID {
			record.Status = constants.BlockStatus(status)
			return nil
		}
	}
	return errors.ErrBlockNotFound(blockID)
}

func (r *fakeBlockRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeBlockRepo) add(record *models.BlockRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

// fakeLedger is an in-memory request log with a settable durable count.
type fakeLedger struct {
	mu           sync.Mutex
	entries      []*models.RequestLogEntry
	durableCount int64
	countErr     error
}

func (l *fakeLedger) Save(ctx context.Context, entry *models.RequestLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *fakeLedger) CountSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.countErr != nil {
		return 0, l.countErr
	}
	return l.durableCount, nil
}

func (l *fakeLedger) Find(ctx context.Context, filter repository.RequestLogFilter) ([]*models.RequestLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries, nil
}

func (l *fakeLedger) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (l *fakeLedger) saved() []*models.RequestLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*models.RequestLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// recordingAlerts captures dispatched alert events.
type recordingAlerts struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (a *recordingAlerts) Notify(ctx context.Context, event models.AlertEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAlerts) all() []models.AlertEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.AlertEvent, len(a.events))
	copy(out, a.events)
	return out
}

// alwaysSampler makes every sampling decision the same way, so log-volume
// assertions are exact.
type alwaysSampler struct{ sample bool }

func (s alwaysSampler) Sample(rate int) bool { return s.sample }
