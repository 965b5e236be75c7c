package proxy

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// packetRateLimiter enforces the inbound packet-rate invariant: a connection
// sending >= cfg.MaxPackets packets within cfg.PerMillis milliseconds gets
// disconnected, matching original_source/src/server/proxy_handler.rs's
// read_task rate check. golang.org/x/time/rate's token bucket is a natural
// fit: burst = MaxPackets, refill rate = MaxPackets per PerMillis.
type packetRateLimiter struct {
	limiter *rate.Limiter
}

func newPacketRateLimiter(maxPackets int, per time.Duration) *packetRateLimiter {
	if maxPackets <= 0 {
		maxPackets = 2000
	}
	if per <= 0 {
		per = time.Second
	}
	r := rate.Limit(float64(maxPackets) / per.Seconds())
	return &packetRateLimiter{limiter: rate.NewLimiter(r, maxPackets)}
}

// Allow reports whether one more packet may be accepted right now. The
// caller disconnects both connection halves the first time this returns
// false.
func (p *packetRateLimiter) Allow() bool {
	return p.limiter.Allow()
}

// connThrottle enforces connection_throttle_limit new connections per
// connection_throttle_time per source IP at the accept loop, matching
// original_source/src/server/mod.rs's per-address connection throttle -
// distinct from packetRateLimiter, which governs in-session packet volume
// rather than connection churn. Reuses golang.org/x/time/rate the same way
// packetRateLimiter does, one bucket per IP instead of one per connection.
type connThrottle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// newConnThrottle returns nil (meaning "disabled") when either input is
// non-positive, so callers can unconditionally call allow on the result.
func newConnThrottle(limit int, window time.Duration) *connThrottle {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &connThrottle{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(limit) / window.Seconds()),
		burst:    limit,
	}
}

// allow reports whether ip may open one more connection right now, lazily
// creating its bucket on first sight.
func (t *connThrottle) allow(ip string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[ip]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[ip] = l
	}
	return l.Allow()
}
