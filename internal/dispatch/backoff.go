package dispatch

import "time"

// DefaultBackoffBase is the delay unit for retry scheduling. The first
// retry (attempt 1) waits 2x this, the second 4x, doubling each attempt.
const DefaultBackoffBase = 5 * time.Second

// shouldRetry reports whether a failed send with the given attempt count
// gets another try. A ceiling of 0 means the message is sent at most once.
func shouldRetry(attempt, maxAttempts int) bool {
	return attempt < maxAttempts
}

// nextDueTime computes when a failed item becomes ready again:
// now + 2^attempt * base. For base 5s and attempts 1..4 that is
// 10s, 20s, 40s, 80s.
func nextDueTime(now time.Time, attempt int, base time.Duration) time.Time {
	return now.Add(base << uint(attempt))
}
