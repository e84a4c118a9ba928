package dispatch

import "time"

// QueueItem is a transient unit of dispatch work shadowing one persisted
// message. It never outlives the process; the durable record is the
// message row it points at.
type QueueItem struct {
	MessageID   int64
	CampaignID  int64
	AccountID   int64
	Destination string
	Body        string
	Attempts    int
	MaxAttempts int
	DueAt       time.Time
}

// dispatchQueue is an ordered collection of pending send tasks. Items are
// appended in due-time order at enqueue and removed only on terminal
// outcomes, so its depth is an accurate proxy for outstanding work. The
// owning Engine serializes all access.
type dispatchQueue struct {
	items []*QueueItem
}

func newDispatchQueue() *dispatchQueue {
	return &dispatchQueue{}
}

func (q *dispatchQueue) push(item *QueueItem) {
	q.items = append(q.items, item)
}

// ready returns the items whose due time has elapsed, in queue order
func (q *dispatchQueue) ready(now time.Time) []*QueueItem {
	var ready []*QueueItem
	for _, item := range q.items {
		if !item.DueAt.After(now) {
			ready = append(ready, item)
		}
	}
	return ready
}

// remove drops an item from the queue; order of the rest is preserved
func (q *dispatchQueue) remove(item *QueueItem) {
	for i, it := range q.items {
		if it == item {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

func (q *dispatchQueue) depth() int {
	return len(q.items)
}

// campaignDepth counts queued items for one campaign
func (q *dispatchQueue) campaignDepth(campaignID int64) int {
	count := 0
	for _, item := range q.items {
		if item.CampaignID == campaignID {
			count++
		}
	}
	return count
}

// accountsInUse counts distinct accounts with work in the queue
func (q *dispatchQueue) accountsInUse() int {
	accounts := make(map[int64]struct{})
	for _, item := range q.items {
		accounts[item.AccountID] = struct{}{}
	}
	return len(accounts)
}
