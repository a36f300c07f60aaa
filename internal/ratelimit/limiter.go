// Package ratelimit provides per-user sliding-window request limiting and a
// TTL response cache keyed on request content.
package ratelimit

import (
	"sync"
	"time"
)

// Tier names a subscription level. Unknown tiers are treated as Free.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Scope separates independently-limited operation classes.
type Scope string

const (
	ScopeAI     Scope = "ai"
	ScopeDeploy Scope = "deploy"
)

// Quota is a request ceiling over a rolling window.
type Quota struct {
	Requests int
	Window   time.Duration
}

var tierQuotas = map[Tier]map[Scope]Quota{
	TierFree: {
		ScopeAI:     {Requests: 10, Window: time.Hour},
		ScopeDeploy: {Requests: 5, Window: time.Hour},
	},
	TierPro: {
		ScopeAI:     {Requests: 100, Window: time.Hour},
		ScopeDeploy: {Requests: 50, Window: time.Hour},
	},
	TierEnterprise: {
		ScopeAI:     {Requests: 1000, Window: time.Hour},
		ScopeDeploy: {Requests: 500, Window: time.Hour},
	},
}

// QuotaFor resolves a tier string and scope to a quota, defaulting to the
// Free tier for unknown input.
func QuotaFor(tier string, scope Scope) (Tier, Quota) {
	t := Tier(tier)
	scopes, ok := tierQuotas[t]
	if !ok {
		t = TierFree
		scopes = tierQuotas[TierFree]
	}
	q, ok := scopes[scope]
	if !ok {
		q = scopes[ScopeAI]
	}
	return t, q
}

// Limiter tracks request timestamps per user and scope, enforcing the
// caller's tier quota over a sliding window. A denied request is not
// recorded, so being over quota never extends the lockout.
type Limiter struct {
	mu      sync.Mutex
	history map[string][]time.Time
	now     func() time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Decision reports the outcome of an Allow call. ResetAt is the instant the
// oldest counted request leaves the window, which is when one slot frees up.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allow checks userID against the tier quota for scope, recording the
// request when it is admitted.
func (l *Limiter) Allow(userID, tier string, scope Scope) Decision {
	_, quota := QuotaFor(tier, scope)
	key := userID + "|" + string(scope)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-quota.Window)

	kept := l.history[key][:0]
	for _, ts := range l.history[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= quota.Requests {
		l.history[key] = kept
		return Decision{
			Allowed:   false,
			Limit:     quota.Requests,
			Remaining: 0,
			ResetAt:   kept[0].Add(quota.Window),
		}
	}

	kept = append(kept, now)
	l.history[key] = kept

	return Decision{
		Allowed:   true,
		Limit:     quota.Requests,
		Remaining: quota.Requests - len(kept),
		ResetAt:   kept[0].Add(quota.Window),
	}
}

// Usage reports how many requests userID has made inside the current window
// for scope without recording anything.
func (l *Limiter) Usage(userID, tier string, scope Scope) (used int, quota Quota) {
	_, quota = QuotaFor(tier, scope)

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-quota.Window)
	for _, ts := range l.history[userID+"|"+string(scope)] {
		if ts.After(cutoff) {
			used++
		}
	}
	return used, quota
}
