package ratelimit

import (
	"context"
	"sync"
	"time"

	"bazaar.dev/internal/obs"
)

// Scope names the collection that rejected a request.
type Scope string

const (
	ScopeIP   Scope = "ip"
	ScopeUser Scope = "user"
)

// Request is what the gate needs to know about an inbound call.
// UserID is empty for anonymous callers.
type Request struct {
	IP     string
	UserID string
	Admin  bool
	Method string
	Path   string
}

// Decision is the outcome of Gate.Check.
type Decision struct {
	Limited  bool
	Allowed  bool
	Scope    Scope
	Class    Class
	Limit    int
	Endpoint string
}

// Message is the client-facing rejection text.
func (d Decision) Message() string {
	if d.Scope == ScopeUser {
		return "Too many requests from this user"
	}
	return "Too many requests from this IP"
}

// Gate checks the IP collection and then, for authenticated callers, the user collection.
type Gate struct {
	rules Rules
	ip    *Window
	user  *Window
}

// NewGate builds a gate with independent IP and user windows of the given length.
func NewGate(rules Rules, window time.Duration, opts ...Option) *Gate {
	return &Gate{
		rules: rules,
		ip:    NewWindow(window, opts...),
		user:  NewWindow(window, opts...),
	}
}

// Check classifies the request and consumes quota. Either collection
// rejecting short-circuits; IP is always evaluated first.
func (g *Gate) Check(r Request) Decision {
	class, ok := g.rules.Classify(r.Method, r.Path)
	if !ok {
		return Decision{Allowed: true}
	}
	endpoint := NormalizePath(r.Path)
	d := Decision{
		Limited:  true,
		Allowed:  true,
		Class:    class,
		Limit:    g.rules.Limit(class, r.Admin),
		Endpoint: endpoint,
	}
	if !g.ip.Allow(r.IP+"|"+endpoint, d.Limit) {
		return g.reject(d, ScopeIP)
	}
	if r.UserID != "" && !g.user.Allow(r.UserID+"|"+endpoint, d.Limit) {
		return g.reject(d, ScopeUser)
	}
	return d
}

func (g *Gate) reject(d Decision, scope Scope) Decision {
	d.Allowed = false
	d.Scope = scope
	obs.RateLimited(string(d.Class), string(scope))
	return d
}

// Sweep drops empty buckets from both collections and publishes bucket gauges.
func (g *Gate) Sweep() int {
	removed := g.ip.Sweep() + g.user.Sweep()
	obs.RateLimitBuckets(string(ScopeIP), g.ip.Len())
	obs.RateLimitBuckets(string(ScopeUser), g.user.Len())
	return removed
}

// Run sweeps both collections every interval until ctx is done.
func (g *Gate) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	var wg sync.WaitGroup
	for scope, w := range map[Scope]*Window{ScopeIP: g.ip, ScopeUser: g.user} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx, interval, sweepReporter(scope))
		}()
	}
	wg.Wait()
}

func sweepReporter(scope Scope) func(removed, live int) {
	return func(removed, live int) {
		obs.RateLimitBuckets(string(scope), live)
		if removed > 0 {
			obs.Info("ratelimit sweep", map[string]any{"scope": string(scope), "removed": removed, "live": live})
		}
	}
}
