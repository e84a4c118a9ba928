package dispatch

import "time"

// usageWindow tracks one account's rolling per-minute send count.
type usageWindow struct {
	AccountID int64
	Count     int
	Start     time.Time
	// Throttle is the per-minute ceiling the account was last enqueued
	// with; the window count never passes it.
	Throttle int
}

// usageTracker maps account IDs to their usage windows. It is owned by a
// single Engine instance and guarded by the engine mutex; there is no
// package-level state so independent engines do not share counters.
type usageTracker struct {
	windows map[int64]*usageWindow
	length  time.Duration
}

func newUsageTracker(windowLength time.Duration) *usageTracker {
	if windowLength <= 0 {
		windowLength = time.Minute
	}
	return &usageTracker{
		windows: make(map[int64]*usageWindow),
		length:  windowLength,
	}
}

// acquire returns the window for an account, lazily creating a zeroed one.
// Windows are never removed; they are bounded by the number of distinct
// accounts ever used.
func (t *usageTracker) acquire(accountID int64, now time.Time) *usageWindow {
	w, ok := t.windows[accountID]
	if !ok {
		w = &usageWindow{AccountID: accountID, Start: now}
		t.windows[accountID] = w
	}
	return w
}

// refresh resets an expired window. A fixed sliding-window approximation:
// after the window length elapses the count starts over, regardless of how
// the sends were distributed inside it.
func (t *usageTracker) refresh(w *usageWindow, now time.Time) {
	if now.Sub(w.Start) > t.length {
		w.Count = 0
		w.Start = now
	}
}

// setThrottle records the most recent per-minute ceiling seen for an account
func (t *usageTracker) setThrottle(accountID int64, throttle int, now time.Time) {
	w := t.acquire(accountID, now)
	w.Throttle = throttle
}

// capacity returns how many more sends the account may attempt this tick
func (t *usageTracker) capacity(w *usageWindow, perTickCap int) int {
	capacity := perTickCap - w.Count
	if w.Throttle > 0 {
		if remaining := w.Throttle - w.Count; remaining < capacity {
			capacity = remaining
		}
	}
	if capacity < 0 {
		return 0
	}
	return capacity
}
