// Package security implements the guard layer in front of the deal
// lifecycle: per-user rate limiting, the blocked-user list, admin matching,
// deal access checks, and the security monitor with its audit log. All
// state lives on injectable instances; the package holds no globals.
package security

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/smile200420ff/Main-bot/internal/common"
	"github.com/smile200420ff/Main-bot/internal/logging"
	"github.com/smile200420ff/Main-bot/internal/models"
)

// Action describes one inbound user action about to be executed.
type Action struct {
	UserID   int64
	Username string
	Kind     string
}

// Decision is the outcome of an authorization check. RetryAfter is set for
// rate-limit denials and is the remaining wait before the next action is
// accepted.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
	Err        error
}

// RateLimitStore is the durable rate-limit check behind the in-memory fast
// path. Implemented by the ratelimits repository.
type RateLimitStore interface {
	CheckAndUpdate(ctx context.Context, userID int64, window time.Duration) (bool, error)
}

// DealGetter is the deal lookup needed by access checks. Implemented by the
// deals repository.
type DealGetter interface {
	Get(ctx context.Context, dealID string) (*models.Deal, error)
}

type guardEntry struct {
	lim         *rate.Limiter
	lastAllowed time.Time
	lastSeen    time.Time
}

// Guard gates every inbound user action. The in-memory token buckets are a
// fast path over the durable rate-limit table and may be reset on restart;
// the blocked set survives until a manual unblock and is never evicted.
type Guard struct {
	mu      sync.Mutex
	entries map[int64]*guardEntry
	blocked map[int64]struct{}

	window       time.Duration
	idleTTL      time.Duration
	cleanupEvery time.Duration

	adminHandle string
	store       RateLimitStore
	deals       DealGetter
	log         logging.Logger
}

type GuardOption func(*Guard)

// WithIdleTTL overrides how long an idle limiter entry survives before the
// janitor evicts it.
func WithIdleTTL(d time.Duration) GuardOption {
	return func(g *Guard) { g.idleTTL = d }
}

// WithCleanupEvery overrides the janitor interval.
func WithCleanupEvery(d time.Duration) GuardOption {
	return func(g *Guard) { g.cleanupEvery = d }
}

// NewGuard constructs a Guard enforcing one action per window per user.
// adminHandle is the configured administrator handle, "@" included.
func NewGuard(window time.Duration, adminHandle string, store RateLimitStore, deals DealGetter, log logging.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		entries:      make(map[int64]*guardEntry),
		blocked:      make(map[int64]struct{}),
		window:       window,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		adminHandle:  adminHandle,
		store:        store,
		deals:        deals,
		log:          log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Window returns the configured rate-limit window.
func (g *Guard) Window() time.Duration { return g.window }

// Authorize is the single gate every inbound action passes through before
// any business logic runs. Order: blocked set, in-memory limiter, durable
// limiter. A store failure during the durable check allows the action.
func (g *Guard) Authorize(ctx context.Context, action Action) Decision {
	if g.IsBlocked(action.UserID) {
		return Decision{Err: common.ErrorUserBlocked}
	}

	if allowed, wait := g.allow(action.UserID); !allowed {
		return Decision{RetryAfter: wait, Err: common.ErrorRateLimited}
	}

	allowed, err := g.store.CheckAndUpdate(ctx, action.UserID, g.window)
	if err != nil {
		g.log.Warn(ctx, "rate limit store check failed, allowing action",
			"user_id", action.UserID, "action", action.Kind, "error", err)
		return Decision{Allowed: true}
	}
	if !allowed {
		return Decision{RetryAfter: g.window, Err: common.ErrorRateLimited}
	}

	return Decision{Allowed: true}
}

// allow consults the per-user token bucket. The token is consumed only when
// the action passes, so a rejected attempt does not slide the window.
func (g *Guard) allow(userID int64) (bool, time.Duration) {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	ent, ok := g.entries[userID]
	if !ok {
		ent = &guardEntry{lim: rate.NewLimiter(rate.Every(g.window), 1)}
		g.entries[userID] = ent
	}
	ent.lastSeen = now

	if !ent.lim.Allow() {
		wait := g.window - now.Sub(ent.lastAllowed)
		if wait < 0 {
			wait = 0
		}
		return false, wait
	}

	ent.lastAllowed = now
	return true, 0
}

// Block adds the user to the blocked set. Every subsequent action is denied
// until Unblock.
func (g *Guard) Block(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked[userID] = struct{}{}
}

// Unblock removes the user from the blocked set.
func (g *Guard) Unblock(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.blocked, userID)
}

// IsBlocked reports whether the user is currently blocked.
func (g *Guard) IsBlocked(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.blocked[userID]
	return ok
}

// IsAdmin reports whether the user is the configured administrator. The
// match is by handle only; the user ID plays no part.
func (g *Guard) IsAdmin(userID int64, username string) bool {
	if username == "" || g.adminHandle == "" {
		return false
	}
	return strings.EqualFold("@"+username, g.adminHandle)
}

// VerifyDealAccess reports whether the deal exists and userID is its
// creator. Admin rights play no part here; admin-only operations are gated
// by IsAdmin separately.
func (g *Guard) VerifyDealAccess(ctx context.Context, dealID string, userID int64) bool {
	deal, err := g.deals.Get(ctx, dealID)
	if err != nil {
		return false
	}
	return deal.CreatorID == userID
}

// Cleanup drops limiter entries idle longer than the TTL. The blocked set
// is left alone.
func (g *Guard) Cleanup() {
	cutoff := time.Now().Add(-g.idleTTL)

	g.mu.Lock()
	defer g.mu.Unlock()

	for id, ent := range g.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(g.entries, id)
		}
	}
}

// StartJanitor launches a goroutine that evicts idle limiter entries
// periodically. Stop it by cancelling the context.
func (g *Guard) StartJanitor(ctx context.Context) {
	if g.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(g.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.Cleanup()
			}
		}
	}()
}
