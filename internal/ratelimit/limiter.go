// Package ratelimit bounds the rate and concurrency of model calls.
package ratelimit

import (
	"container/heap"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"

	"qabench/internal/metrics"
)

// Limit bounds calls to models whose id starts with Prefix. An empty prefix
// matches every model. Zero means unlimited.
type Limit struct {
	Prefix            string `yaml:"prefix"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	MaxConcurrent     int    `yaml:"max_concurrent"`
}

// Validate rejects negative bounds.
func (l Limit) Validate() error {
	if l.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be >= 0, got %d", l.RequestsPerMinute)
	}
	if l.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must be >= 0, got %d", l.MaxConcurrent)
	}
	return nil
}

// Limiter admits model calls under per-route limits. Each model id is
// governed by the limit with the longest matching prefix.
type Limiter struct {
	// Window is the rolling window RequestsPerMinute applies to.
	Window time.Duration
	Now    func() time.Time

	mu     sync.Mutex
	routes []*route
}

type route struct {
	limit    Limit
	calls    callWindow
	inFlight int
	// freed is closed and replaced whenever a call finishes.
	freed chan struct{}
}

// New builds a limiter over limits.
func New(limits []Limit) *Limiter {
	limiter := &Limiter{Window: time.Minute, Now: time.Now}
	for _, limit := range limits {
		limiter.routes = append(limiter.routes, &route{limit: limit, freed: make(chan struct{})})
	}
	return limiter
}

// Acquire blocks until a call to modelID is admitted or ctx is done. The
// returned release must be called once the call has finished.
func (l *Limiter) Acquire(ctx context.Context, modelID string) (func(), error) {
	r := l.match(modelID)
	if r == nil {
		return func() {}, nil
	}
	started := l.now()
	logged := false
	for {
		l.mu.Lock()
		now := l.now()
		retryAt, ok := r.tryAdmitLocked(now, l.Window)
		freed := r.freed
		l.mu.Unlock()
		if ok {
			if waited := now.Sub(started); waited > 0 {
				metrics.RateLimitWait(routeLabel(r.limit), waited.Seconds())
			}
			return l.releaser(r), nil
		}
		if !logged {
			clog.FromContext(ctx).Debug("waiting for rate limit", "model", modelID, "route", routeLabel(r.limit))
			logged = true
		}

		var timer *time.Timer
		var expired <-chan time.Time
		if !retryAt.IsZero() {
			timer = time.NewTimer(retryAt.Sub(now))
			expired = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil, fmt.Errorf("rate limit wait for %s: %w", modelID, context.Cause(ctx))
		case <-freed:
		case <-expired:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// tryAdmitLocked admits a call when both bounds allow it. Otherwise it
// returns when the rolling window next frees a slot, or zero when only a
// finishing call can help.
func (r *route) tryAdmitLocked(now time.Time, window time.Duration) (time.Time, bool) {
	r.calls.expire(now)
	if r.limit.MaxConcurrent > 0 && r.inFlight >= r.limit.MaxConcurrent {
		return time.Time{}, false
	}
	if r.limit.RequestsPerMinute > 0 && r.calls.Len() >= r.limit.RequestsPerMinute {
		return r.calls[0], false
	}
	r.inFlight++
	heap.Push(&r.calls, now.Add(window))
	return time.Time{}, true
}

func (l *Limiter) releaser(r *route) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			r.inFlight--
			close(r.freed)
			r.freed = make(chan struct{})
		})
	}
}

// match returns the route with the longest prefix of modelID.
func (l *Limiter) match(modelID string) *route {
	var best *route
	for _, r := range l.routes {
		if !strings.HasPrefix(modelID, r.limit.Prefix) {
			continue
		}
		if best == nil || len(r.limit.Prefix) > len(best.limit.Prefix) {
			best = r
		}
	}
	if best == nil || (best.limit.RequestsPerMinute == 0 && best.limit.MaxConcurrent == 0) {
		return nil
	}
	return best
}

func (l *Limiter) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

func routeLabel(limit Limit) string {
	if limit.Prefix == "" {
		return "*"
	}
	return limit.Prefix
}

// callWindow is a min-heap of the expiry times of admitted calls.
type callWindow []time.Time

func (w callWindow) Len() int           { return len(w) }
func (w callWindow) Less(i, j int) bool { return w[i].Before(w[j]) }
func (w callWindow) Swap(i, j int)      { w[i], w[j] = w[j], w[i] }

func (w *callWindow) Push(x any) { *w = append(*w, x.(time.Time)) }

func (w *callWindow) Pop() any {
	old := *w
	last := old[len(old)-1]
	*w = old[:len(old)-1]
	return last
}

// expire drops calls whose window has passed.
func (w *callWindow) expire(now time.Time) {
	for w.Len() > 0 && !(*w)[0].After(now) {
		heap.Pop(w)
	}
}
