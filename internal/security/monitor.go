package security

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// AutoBlockThreshold is the cumulative failed-attempt count at which a user
// is blocked automatically.
const AutoBlockThreshold = 5

// Blocker is the subset of the Guard the monitor needs for auto-blocking.
type Blocker interface {
	Block(userID int64)
}

type counter struct {
	count    int
	lastSeen time.Time
}

// Monitor tracks per-user failed-attempt and suspicious-activity counters
// and auto-blocks users crossing the failed-attempt threshold. Counters
// idle longer than the TTL are evicted so the maps do not grow without
// bound; the block itself is not a counter and survives eviction.
type Monitor struct {
	mu             sync.Mutex
	failedAttempts map[int64]*counter
	suspicious     map[int64]*counter

	idleTTL      time.Duration
	cleanupEvery time.Duration

	blocker Blocker
	audit   *AuditLog
}

// NewMonitor constructs a Monitor reporting blocks to blocker and events to
// audit. Idle counters expire after 24 hours.
func NewMonitor(blocker Blocker, audit *AuditLog) *Monitor {
	return &Monitor{
		failedAttempts: make(map[int64]*counter),
		suspicious:     make(map[int64]*counter),
		idleTTL:        24 * time.Hour,
		cleanupEvery:   time.Hour,
		blocker:        blocker,
		audit:          audit,
	}
}

// FailedAttempt records one failed attempt of the given type. Reaching the
// threshold blocks the user and writes an AUTO_BLOCK audit entry.
func (m *Monitor) FailedAttempt(userID int64, attemptType string) {
	m.mu.Lock()
	c, ok := m.failedAttempts[userID]
	if !ok {
		c = &counter{}
		m.failedAttempts[userID] = c
	}
	c.count++
	c.lastSeen = time.Now()
	count := c.count
	m.mu.Unlock()

	m.audit.Append(EventFailedAttempt, userID, fmt.Sprintf("Type: %s, Count: %d", attemptType, count))

	if count >= AutoBlockThreshold {
		m.blocker.Block(userID)
		m.audit.Append(EventAutoBlock, userID, "Too many failed attempts")
	}
}

// Suspicious records suspicious activity. It is logged and counted but
// never blocks by itself.
func (m *Monitor) Suspicious(userID int64, activity string) {
	m.audit.Append(EventSuspicious, userID, activity)

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.suspicious[userID]
	if !ok {
		c = &counter{}
		m.suspicious[userID] = c
	}
	c.count++
	c.lastSeen = time.Now()
}

// FailedCount returns the user's current failed-attempt count.
func (m *Monitor) FailedCount(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.failedAttempts[userID]; ok {
		return c.count
	}
	return 0
}

// SuspiciousCount returns the user's current suspicious-activity count.
func (m *Monitor) SuspiciousCount(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.suspicious[userID]; ok {
		return c.count
	}
	return 0
}

// TrackedUsers returns how many users currently have failed-attempt and
// suspicious-activity counters.
func (m *Monitor) TrackedUsers() (failed, suspicious int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.failedAttempts), len(m.suspicious)
}

// Cleanup evicts counters idle longer than the TTL.
func (m *Monitor) Cleanup() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, c := range m.failedAttempts {
		if c.lastSeen.Before(cutoff) {
			delete(m.failedAttempts, id)
		}
	}
	for id, c := range m.suspicious {
		if c.lastSeen.Before(cutoff) {
			delete(m.suspicious, id)
		}
	}
}

// StartJanitor launches a goroutine that evicts idle counters periodically.
// Stop it by cancelling the context.
func (m *Monitor) StartJanitor(ctx context.Context) {
	if m.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(m.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Cleanup()
			}
		}
	}()
}
