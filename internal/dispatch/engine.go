package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/events"
	"github.com/bulkwave/bulkwave-backend/internal/models"
	"github.com/bulkwave/bulkwave-backend/internal/observability"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
	"github.com/bulkwave/bulkwave-backend/internal/sender"
)

// TemplateRenderer renders a campaign template for one contact
type TemplateRenderer interface {
	Render(template string, contact *models.Contact) string
}

// Config holds dispatch engine tuning
type Config struct {
	TickInterval time.Duration
	PerTickCap   int
	BatchLimit   int
	BackoffBase  time.Duration
	WindowLength time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 500 * time.Millisecond
	}
	if c.PerTickCap <= 0 {
		c.PerTickCap = 20
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = 1000
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.WindowLength <= 0 {
		c.WindowLength = time.Minute
	}
	return c
}

// EnqueueParams carries one campaign's dispatch request
type EnqueueParams struct {
	CampaignID int64
	AccountIDs []int64
	Delivery   models.DeliveryParams
}

// EnqueueResult reports what an enqueue did
type EnqueueResult struct {
	Queued     int `json:"queued"`
	QueueDepth int `json:"queue_depth"`
}

// Status is the live queue status exposed to callers
type Status struct {
	Queued        int  `json:"queued"`
	Processing    bool `json:"processing"`
	AccountsInUse int  `json:"accounts_in_use"`
}

// Engine is the broadcast dispatch engine. It owns the in-memory dispatch
// queue, the per-account usage windows and the round-robin cursor, and runs
// the periodic processing tick. All shared state is guarded by mu; the tick
// loop runs on a single goroutine so ticks never overlap.
type Engine struct {
	cfg          Config
	messageRepo  repository.MessageRepository
	campaignRepo repository.CampaignRepository
	contactRepo  repository.ContactRepository
	renderer     TemplateRenderer
	channel      sender.Channel
	publisher    events.Publisher
	logger       *slog.Logger

	mu      sync.Mutex
	queue   *dispatchQueue
	usage   *usageTracker
	cursor  int
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	// injected for tests
	now    func() time.Time
	jitter *rand.Rand
}

// NewEngine creates a dispatch engine. It does not start ticking until the
// first successful enqueue.
func NewEngine(
	cfg Config,
	messageRepo repository.MessageRepository,
	campaignRepo repository.CampaignRepository,
	contactRepo repository.ContactRepository,
	renderer TemplateRenderer,
	channel sender.Channel,
	publisher events.Publisher,
	logger *slog.Logger,
) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:          cfg,
		messageRepo:  messageRepo,
		campaignRepo: campaignRepo,
		contactRepo:  contactRepo,
		renderer:     renderer,
		channel:      channel,
		publisher:    publisher,
		logger:       logger,
		queue:        newDispatchQueue(),
		usage:        newUsageTracker(cfg.WindowLength),
		now:          time.Now,
		jitter:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enqueue places a campaign's pending messages on the dispatch queue.
// Messages are rendered, assigned an account round-robin over the eligible
// list, given staggered due times, and persisted as queued. With zero
// pending messages it returns zero counts and has no side effects.
func (e *Engine) Enqueue(ctx context.Context, params EnqueueParams) (*EnqueueResult, error) {
	if len(params.AccountIDs) == 0 {
		return nil, models.ErrInvalidInput("at least one eligible account is required")
	}
	if err := params.Delivery.Validate(); err != nil {
		return nil, err
	}

	campaign, err := e.campaignRepo.GetByID(ctx, params.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign.BaseTemplate == "" {
		return nil, models.ErrTemplateNotFound(fmt.Sprintf("campaign %d has no template", params.CampaignID))
	}

	pending, err := e.messageRepo.GetPendingByCampaign(ctx, params.CampaignID, e.cfg.BatchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending messages: %w", err)
	}
	if len(pending) == 0 {
		return &EnqueueResult{Queued: 0, QueueDepth: e.Status().Queued}, nil
	}

	contactIDs := make([]int64, 0, len(pending))
	for _, message := range pending {
		contactIDs = append(contactIDs, message.ContactID)
	}
	contacts, err := e.contactRepo.GetByIDs(ctx, contactIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	due := now
	queued := 0

	for _, message := range pending {
		contact, ok := contacts[message.ContactID]
		if !ok {
			e.logger.Warn("skipping message with missing contact",
				slog.Int64("message_id", message.ID),
				slog.Int64("contact_id", message.ContactID),
			)
			continue
		}

		body := e.renderer.Render(campaign.BaseTemplate, contact)
		accountID := params.AccountIDs[e.cursor%len(params.AccountIDs)]
		e.cursor++

		// The due cursor only moves forward, so due times are
		// non-decreasing across the batch and bursty campaigns are
		// spread out before the rate limiter ever engages.
		due = due.Add(e.randomDelay(params.Delivery.DelayMinMS, params.Delivery.DelayMaxMS))

		if err := e.messageRepo.MarkQueued(ctx, message.ID, accountID, body); err != nil {
			e.logger.Error("failed to mark message queued",
				slog.Int64("message_id", message.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		e.usage.setThrottle(accountID, params.Delivery.Throttle, now)
		e.queue.push(&QueueItem{
			MessageID:   message.ID,
			CampaignID:  params.CampaignID,
			AccountID:   accountID,
			Destination: contact.Phone,
			Body:        body,
			MaxAttempts: params.Delivery.MaxRetries,
			DueAt:       due,
		})
		queued++
	}

	observability.MessagesEnqueued.Add(float64(queued))
	observability.QueueDepth.Set(float64(e.queue.depth()))

	if queued > 0 {
		e.startLocked()
	}

	e.logger.Info("campaign enqueued",
		slog.Int64("campaign_id", params.CampaignID),
		slog.Int("queued", queued),
		slog.Int("queue_depth", e.queue.depth()),
		slog.Int("accounts", len(params.AccountIDs)),
	)

	return &EnqueueResult{Queued: queued, QueueDepth: e.queue.depth()}, nil
}

// DirectSend transmits a single non-campaign message synchronously and
// persists a standalone sent message row. Channel errors propagate to the
// caller unchanged; there is no retry.
func (e *Engine) DirectSend(ctx context.Context, accountID, contactID int64, body string) (int64, error) {
	contact, err := e.contactRepo.GetByID(ctx, contactID)
	if err != nil {
		return 0, err
	}

	externalID, err := e.channel.Send(ctx, accountID, contact.Phone, body)
	if err != nil {
		return 0, err
	}

	now := e.now()
	message := &models.Message{
		ContactID:       contactID,
		AccountID:       &accountID,
		Status:          models.MessageStatusSent,
		RenderedContent: body,
		ExternalID:      &externalID,
		SentAt:          &now,
	}
	if err := e.messageRepo.Create(ctx, message); err != nil {
		return 0, fmt.Errorf("failed to persist direct message: %w", err)
	}

	e.logger.Info("direct message sent",
		slog.Int64("message_id", message.ID),
		slog.Int64("account_id", accountID),
		slog.Int64("contact_id", contactID),
	)

	return message.ID, nil
}

// Status reports live queue depth, whether the tick loop is running, and
// how many distinct accounts have work queued
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Queued:        e.queue.depth(),
		Processing:    e.started,
		AccountsInUse: e.queue.accountsInUse(),
	}
}

// CampaignDepth returns the number of in-memory queue items for a campaign.
// After a restart this may be lower than the persisted queued count; the
// discrepancy flags work believed queued but no longer scheduled.
func (e *Engine) CampaignDepth(campaignID int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.campaignDepth(campaignID)
}

// Stop halts the tick loop and waits for an in-flight tick to finish
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	cancel()
	<-done
	e.logger.Info("dispatch engine stopped")
}

// startLocked launches the tick loop; callers hold mu
func (e *Engine) startLocked() {
	if e.started {
		return
	}
	e.started = true

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})

	go e.run(ctx)
	e.logger.Info("dispatch engine started", slog.Duration("tick", e.cfg.TickInterval))
}

// run drives the processing tick. A single goroutine consumes the ticker,
// so a tick that overruns delays the next one instead of piling up.
func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick selects ready items, partitions them by account, and attempts up to
// each account's remaining capacity in queue order
func (e *Engine) tick(ctx context.Context) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	ready := e.queue.ready(now)
	if len(ready) == 0 {
		return
	}

	// Partition by account, preserving queue order within each group.
	order := []int64{}
	byAccount := map[int64][]*QueueItem{}
	for _, item := range ready {
		if _, ok := byAccount[item.AccountID]; !ok {
			order = append(order, item.AccountID)
		}
		byAccount[item.AccountID] = append(byAccount[item.AccountID], item)
	}

	for _, accountID := range order {
		items := byAccount[accountID]
		window := e.usage.acquire(accountID, now)
		e.usage.refresh(window, now)

		sendable := e.usage.capacity(window, e.cfg.PerTickCap)
		if sendable > len(items) {
			sendable = len(items)
		}

		// Items beyond the cap stay ready and are picked up next tick.
		for _, item := range items[:sendable] {
			e.attempt(ctx, item, window)
		}
	}

	observability.QueueDepth.Set(float64(e.queue.depth()))
	observability.TickDuration.Observe(time.Since(start).Seconds())
}

// attempt sends one item and applies the success/retry/terminal transition
func (e *Engine) attempt(ctx context.Context, item *QueueItem, window *usageWindow) {
	externalID, sendErr := e.channel.Send(ctx, item.AccountID, item.Destination, item.Body)
	now := e.now()

	if sendErr == nil {
		if err := e.messageRepo.MarkSent(ctx, item.MessageID, externalID, item.Attempts, now); err != nil {
			e.logger.Error("failed to mark message sent",
				slog.Int64("message_id", item.MessageID),
				slog.String("error", err.Error()),
			)
		}
		if err := e.campaignRepo.IncrementSentCount(ctx, item.CampaignID); err != nil {
			e.logger.Error("failed to increment campaign sent counter",
				slog.Int64("campaign_id", item.CampaignID),
				slog.String("error", err.Error()),
			)
		}
		window.Count++
		e.queue.remove(item)
		e.publish(ctx, item, models.MessageStatusSent, externalID, "")
		observability.Sends.WithLabelValues("sent").Inc()
		return
	}

	if shouldRetry(item.Attempts, item.MaxAttempts) {
		item.Attempts++
		item.DueAt = nextDueTime(now, item.Attempts, e.cfg.BackoffBase)
		observability.Sends.WithLabelValues("retry").Inc()

		e.logger.Warn("send failed, will retry",
			slog.Int64("message_id", item.MessageID),
			slog.Int("attempt", item.Attempts),
			slog.Int("max_attempts", item.MaxAttempts),
			slog.Time("due_at", item.DueAt),
			slog.String("error", sendErr.Error()),
		)
		return
	}

	// Retry ceiling exhausted: terminal failure.
	if err := e.messageRepo.MarkFailed(ctx, item.MessageID, item.Attempts, sendErr.Error()); err != nil {
		e.logger.Error("failed to mark message failed",
			slog.Int64("message_id", item.MessageID),
			slog.String("error", err.Error()),
		)
	}
	if err := e.campaignRepo.IncrementFailedCount(ctx, item.CampaignID); err != nil {
		e.logger.Error("failed to increment campaign failed counter",
			slog.Int64("campaign_id", item.CampaignID),
			slog.String("error", err.Error()),
		)
	}
	e.queue.remove(item)
	e.publish(ctx, item, models.MessageStatusFailed, "", sendErr.Error())
	observability.Sends.WithLabelValues("failed").Inc()

	e.logger.Error("message permanently failed",
		slog.Int64("message_id", item.MessageID),
		slog.Int("attempts", item.Attempts),
		slog.String("error", sendErr.Error()),
	)
}

func (e *Engine) publish(ctx context.Context, item *QueueItem, status, externalID, errText string) {
	campaignID := item.CampaignID
	event := &events.DeliveryEvent{
		MessageID:  item.MessageID,
		CampaignID: &campaignID,
		AccountID:  item.AccountID,
		Status:     status,
		ExternalID: externalID,
		Error:      errText,
		OccurredAt: e.now(),
	}
	if err := e.publisher.PublishDelivery(ctx, event); err != nil {
		e.logger.Error("failed to publish delivery event",
			slog.Int64("message_id", item.MessageID),
			slog.String("error", err.Error()),
		)
	}
}

// randomDelay picks a uniform delay in [minMS, maxMS]
func (e *Engine) randomDelay(minMS, maxMS int64) time.Duration {
	if maxMS <= minMS {
		return time.Duration(minMS) * time.Millisecond
	}
	ms := minMS + e.jitter.Int63n(maxMS-minMS+1)
	return time.Duration(ms) * time.Millisecond
}
