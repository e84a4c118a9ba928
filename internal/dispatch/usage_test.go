package dispatch

import (
	"testing"
	"time"
)

func TestUsageTracker_LazyCreate(t *testing.T) {
	tracker := newUsageTracker(time.Minute)
	now := time.Now()

	w := tracker.acquire(7, now)
	if w.Count != 0 {
		t.Errorf("new window count = %d, want 0", w.Count)
	}
	if w.AccountID != 7 {
		t.Errorf("new window account = %d, want 7", w.AccountID)
	}

	w.Count = 3
	if again := tracker.acquire(7, now.Add(time.Second)); again.Count != 3 {
		t.Errorf("acquire replaced an existing window")
	}
}

func TestUsageTracker_RefreshResetsExpiredWindow(t *testing.T) {
	tracker := newUsageTracker(time.Minute)
	start := time.Now()

	w := tracker.acquire(1, start)
	w.Count = 42

	// Still inside the window: no reset.
	tracker.refresh(w, start.Add(59*time.Second))
	if w.Count != 42 {
		t.Errorf("count reset inside window, got %d", w.Count)
	}

	// Past the window: count starts over.
	later := start.Add(61 * time.Second)
	tracker.refresh(w, later)
	if w.Count != 0 {
		t.Errorf("count after expiry = %d, want 0", w.Count)
	}
	if !w.Start.Equal(later) {
		t.Errorf("window start not advanced on reset")
	}
}

func TestUsageTracker_Capacity(t *testing.T) {
	tracker := newUsageTracker(time.Minute)
	now := time.Now()

	tests := []struct {
		name     string
		count    int
		throttle int
		cap      int
		want     int
	}{
		{"fresh window", 0, 60, 20, 20},
		{"partially used window", 15, 60, 20, 5},
		{"cap exhausted", 20, 60, 20, 0},
		{"throttle tighter than cap", 15, 18, 20, 3},
		{"over cap never negative", 25, 60, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &usageWindow{Start: now, Count: tt.count, Throttle: tt.throttle}
			if got := tracker.capacity(w, tt.cap); got != tt.want {
				t.Errorf("capacity = %d, want %d", got, tt.want)
			}
		})
	}
}
