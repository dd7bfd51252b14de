package service

import (
	"sync"
	"time"

	"github.com/gatewarden/gatewarden/pkg/constants"
)

// SlidingWindow counts recent events per identity key using in-memory
// timestamp lists. Each engine instance owns its own windows; cross-instance
// accuracy comes from the durable counter fallback, not from here.
//
// Two instances exist in a running engine: one keyed by bare IP and one keyed
// by user-agent fingerprint for detecting automated tooling that rotates IPs
// faster than any single address can trip a per-IP rule.
type SlidingWindow struct {
	mu        sync.Mutex
	hits      map[string][]time.Time
	retention time.Duration
	keyCap    int
	clock     Clock
}

// NewSlidingWindow creates a counter that retains hits for at most retention.
// A keyCap above zero triggers a global prune of dead keys whenever the number
// of distinct keys exceeds it.
func NewSlidingWindow(retention time.Duration, keyCap int, clock Clock) *SlidingWindow {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &SlidingWindow{
		hits:      make(map[string][]time.Time),
		retention: retention,
		keyCap:    keyCap,
		clock:     clock,
	}
}

// Record registers a hit for the key at the current time. Entries older than
// the retention ceiling are pruned first to bound memory.
func (w *SlidingWindow) Record(key string) {
	now := w.clock.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.hits[key] = append(pruneBefore(w.hits[key], now.Add(-w.retention)), now)

	if w.keyCap > 0 && len(w.hits) > w.keyCap {
		w.pruneDeadKeys(now)
	}
}

// CountSince reports how many hits the key received within the trailing
// window. Windows longer than the retention ceiling are clamped to it.
func (w *SlidingWindow) CountSince(key string, window time.Duration) uint {
	if window > w.retention {
		window = w.retention
	}
	cutoff := w.clock.Now().Add(-window)

	w.mu.Lock()
	defer w.mu.Unlock()

	var count uint
	for _, ts := range w.hits[key] {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// Len reports the number of distinct keys currently retained.
func (w *SlidingWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.hits)
}

// pruneDeadKeys drops keys whose every hit is older than the retention
// ceiling. Caller holds the lock.
func (w *SlidingWindow) pruneDeadKeys(now time.Time) {
	cutoff := now.Add(-w.retention)
	for key, stamps := range w.hits {
		live := pruneBefore(stamps, cutoff)
		if len(live) == 0 {
			delete(w.hits, key)
			continue
		}
		w.hits[key] = live
	}
}

// pruneBefore returns the suffix of stamps newer than cutoff. Stamps are
// appended in order, so a linear scan from the front suffices.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[idx:]...)
}

// FingerprintKey builds the agent-fingerprint identity key, truncating the
// agent string to bound key cardinality. The key deliberately excludes the IP
// so that a client rotating addresses behind a stable user agent still
// accumulates into one counter.
func FingerprintKey(userAgent string) string {
	if userAgent == "" {
		return "unknown-agent"
	}
	if len(userAgent) > constants.FingerprintAgentLength {
		userAgent = userAgent[:constants.FingerprintAgentLength]
	}
	return userAgent
}
