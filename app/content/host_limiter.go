package content

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces page fetches to one host by a fixed interval. A zero
// interval, or a nil HostLimiter, never waits.
type HostLimiter struct {
	interval time.Duration

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

func NewHostLimiter(interval time.Duration) *HostLimiter {
	return &HostLimiter{
		interval: interval,
		hosts:    make(map[string]*rate.Limiter),
	}
}

// Wait blocks until host may be fetched again or ctx is done. Hosts compare
// case-insensitively and include the port.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || l.interval <= 0 {
		return ctx.Err()
	}
	return l.limiter(strings.ToLower(host)).Wait(ctx)
}

func (l *HostLimiter) limiter(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.hosts[host] = lim
	}
	return lim
}
