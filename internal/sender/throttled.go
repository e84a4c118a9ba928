package sender

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ThrottledConfig tunes the channel-level pacing and breaker
type ThrottledConfig struct {
	RatePerSecond float64
	Burst         int
	// BreakerFailures trips the breaker after this many consecutive
	// transport failures (default 5)
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open (default 30s)
	BreakerCooldown time.Duration
}

// throttledChannel decorates a Channel with a token-bucket limiter and a
// circuit breaker. Both failure modes surface as ordinary send errors, so
// the engine's retry classification stays purely attempt-count based.
type throttledChannel struct {
	inner   Channel
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewThrottledChannel wraps a channel with outbound pacing and provider
// protection
func NewThrottledChannel(inner Channel, cfg ThrottledConfig) Channel {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "send-channel",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
	})

	return &throttledChannel{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		breaker: breaker,
	}
}

// Send waits for a rate token, then transmits through the breaker
func (c *throttledChannel) Send(ctx context.Context, accountID int64, destination, body string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("send channel rate limit: %w", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.inner.Send(ctx, accountID, destination, body)
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}
