package sender

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// mockChannel simulates a messaging network with configurable reliability
type mockChannel struct {
	successRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
}

// NewMockChannel creates a simulated send channel.
// successRate: probability of success (0.0 to 1.0), default 0.92 (92%)
func NewMockChannel(successRate float64) Channel {
	if successRate <= 0 || successRate > 1.0 {
		successRate = 0.92
	}

	return &mockChannel{
		successRate: successRate,
		minDelay:    50 * time.Millisecond,
		maxDelay:    200 * time.Millisecond,
	}
}

// Send simulates transmitting a message
func (c *mockChannel) Send(ctx context.Context, accountID int64, destination, body string) (string, error) {
	// Simulate network latency
	delay := c.minDelay + time.Duration(rand.Int63n(int64(c.maxDelay-c.minDelay)))

	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if rand.Float64() > c.successRate {
		return "", fmt.Errorf("mock channel failed: simulated network error")
	}

	return uuid.NewString(), nil
}
