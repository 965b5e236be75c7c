package proxy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPacketRateLimiterAllowsUpToBurst(t *testing.T) {
	l := newPacketRateLimiter(5, time.Second)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(), "packet %d within burst should be allowed", i)
	}
	assert.False(t, l.Allow(), "packet beyond burst should be rejected")
}

func TestPacketRateLimiterRefillsOverTime(t *testing.T) {
	l := newPacketRateLimiter(2, 50*time.Millisecond)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, l.Allow(), "limiter should refill after the window elapses")
}

func TestPacketRateLimiterDefaultsOnInvalidInput(t *testing.T) {
	l := newPacketRateLimiter(0, 0)
	assert.True(t, l.Allow())
}

func TestConnThrottleAllowsUpToLimitPerIP(t *testing.T) {
	th := newConnThrottle(2, time.Second)
	assert.True(t, th.allow("1.2.3.4"))
	assert.True(t, th.allow("1.2.3.4"))
	assert.False(t, th.allow("1.2.3.4"), "third connection within the window should be throttled")
}

func TestConnThrottleTracksEachIPIndependently(t *testing.T) {
	th := newConnThrottle(1, time.Second)
	assert.True(t, th.allow("1.2.3.4"))
	assert.True(t, th.allow("5.6.7.8"), "a different source IP must not share the first IP's budget")
	assert.False(t, th.allow("1.2.3.4"))
}

func TestConnThrottleNilOnInvalidInputAllowsEverything(t *testing.T) {
	th := newConnThrottle(0, 0)
	assert.Nil(t, th)
	assert.True(t, th.allow("1.2.3.4"))
}
