package ghclient

import (
	"context"
	"sync"
	"time"

	"github.com/google/go-github/v73/github"
	"golang.org/x/time/rate"
)

// EndpointClass selects which GitHub rate-limit bucket a call draws from
// (spec §4.3): the search API has its own, much smaller budget than every
// other "core" REST call.
type EndpointClass int

const (
	ClassCore EndpointClass = iota
	ClassSearch
)

const minDelayPerRequest = time.Second

// limiter paces requests against one endpoint class's quota, mirroring the
// original's GithubLimit: track the reset/remaining counters reported with
// each response, and space calls evenly across the window until the next
// reset. It issues no rate-limit request of its own. Pacing
// itself is delegated to rate.Limiter; this wrapper only knows how to
// translate a *github.Rate snapshot into that limiter's events-per-second.
type limiter struct {
	mu sync.Mutex

	rl        *rate.Limiter
	remaining int
	reset     time.Time
}

func newLimiter() *limiter {
	return &limiter{rl: rate.NewLimiter(rate.Inf, 1)}
}

// update absorbs a *github.Rate snapshot, as returned alongside every API
// response, and reshapes the limiter's pacing to match the remaining
// window and quota.
func (l *limiter) update(ghRate *github.Rate) {
	if ghRate == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining = ghRate.Remaining
	l.reset = ghRate.Reset.Time
	if ghRate.Limit > 0 {
		window := time.Until(l.reset)
		d := window / time.Duration(ghRate.Limit)
		if d < minDelayPerRequest {
			d = minDelayPerRequest
		}
		l.rl.SetLimit(rate.Every(d))
	}
}

// stale reports whether this limiter has never seen a rate snapshot, or
// its reset instant has already passed.
func (l *limiter) stale() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reset.IsZero() || !l.reset.After(time.Now())
}

// wait blocks until this class's pacing allows another request, forcing a
// wait for the reset instant instead once the observed quota is exhausted.
func (l *limiter) wait(ctx context.Context) error {
	l.mu.Lock()
	remaining, reset := l.remaining, l.reset
	l.mu.Unlock()

	now := time.Now()
	if remaining <= 1 && !reset.IsZero() && reset.After(now) {
		t := time.NewTimer(reset.Sub(now) + time.Second)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	return l.rl.Wait(ctx)
}

// use records that one request has just been spent, for pacing the next.
func (l *limiter) use() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining > 0 {
		l.remaining--
	}
}

// RateGovernor tracks GitHub's core and search rate-limit buckets
// independently (spec §4.3), pacing requests so the limit is never hit
// rather than reacting after the fact.
type RateGovernor struct {
	core   *limiter
	search *limiter
}

// NewRateGovernor returns a governor with no observed quota yet; the first
// call to each class's Wait will pass through immediately and must be
// followed by Observe once a response is seen.
func NewRateGovernor() *RateGovernor {
	return &RateGovernor{core: newLimiter(), search: newLimiter()}
}

func (g *RateGovernor) limiterFor(class EndpointClass) *limiter {
	if class == ClassSearch {
		return g.search
	}
	return g.core
}

// Wait paces the caller ahead of an outgoing request of the given class.
func (g *RateGovernor) Wait(ctx context.Context, class EndpointClass) error {
	return g.limiterFor(class).wait(ctx)
}

// Observe records the rate snapshot and spend from a completed request.
func (g *RateGovernor) Observe(class EndpointClass, rate *github.Rate) {
	l := g.limiterFor(class)
	l.update(rate)
	l.use()
}

// Stale reports whether class's quota has never been observed or has
// rolled over, meaning the next request should force a fresh rate check.
func (g *RateGovernor) Stale(class EndpointClass) bool {
	return g.limiterFor(class).stale()
}
