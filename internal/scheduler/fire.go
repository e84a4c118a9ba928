package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/dispatch"
	"github.com/bulkwave/bulkwave-backend/internal/observability"
)

// fire runs one scheduled trigger: re-read the campaign's current tuning,
// resolve the owner's active account pool, and hand the campaign to the
// dispatch engine. A failed fire increments the failure counter and leaves
// the schedule active; the next cron tick tries again.
func (s *Service) fire(scheduleID int64) {
	s.mu.Lock()
	if s.firing[scheduleID] {
		// Previous fire still running; skip rather than stack.
		s.mu.Unlock()
		s.logger.Warn("schedule fire skipped, previous still running",
			slog.Int64("schedule_id", scheduleID),
		)
		return
	}
	s.firing[scheduleID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.firing, scheduleID)
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FireTimeout)
	defer cancel()

	firedAt := time.Now()

	schedule, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		s.recordFailure(ctx, scheduleID, "load schedule", err)
		return
	}

	campaign, err := s.campaignRepo.GetByID(ctx, schedule.CampaignID)
	if err != nil {
		s.recordFailure(ctx, scheduleID, "load campaign", err)
		return
	}

	accounts, err := s.accountRepo.ListActiveByOwner(ctx, schedule.OwnerID, s.cfg.AccountFanOut)
	if err != nil {
		s.recordFailure(ctx, scheduleID, "resolve accounts", err)
		return
	}

	accountIDs := make([]int64, 0, len(accounts))
	for _, account := range accounts {
		accountIDs = append(accountIDs, account.ID)
	}

	result, err := s.dispatcher.Enqueue(ctx, dispatch.EnqueueParams{
		CampaignID: schedule.CampaignID,
		AccountIDs: accountIDs,
		Delivery:   campaign.Params(),
	})
	if err != nil {
		// Expectedly transient (no active accounts yet, store hiccup);
		// the schedule stays active.
		s.recordFailure(ctx, scheduleID, "enqueue", err)
		return
	}

	var nextFireAt *time.Time
	if spec, err := s.parse(schedule); err == nil {
		next := spec.Next(firedAt)
		nextFireAt = &next
	}

	if err := s.scheduleRepo.RecordFire(ctx, scheduleID, firedAt, nextFireAt); err != nil {
		s.logger.Error("failed to record schedule fire",
			slog.Int64("schedule_id", scheduleID),
			slog.String("error", err.Error()),
		)
	}

	observability.ScheduleFires.WithLabelValues("success").Inc()
	s.logger.Info("schedule fired",
		slog.Int64("schedule_id", scheduleID),
		slog.Int64("campaign_id", schedule.CampaignID),
		slog.Int("queued", result.Queued),
		slog.Int("queue_depth", result.QueueDepth),
		slog.Int("accounts", len(accountIDs)),
	)
}

func (s *Service) recordFailure(ctx context.Context, scheduleID int64, stage string, cause error) {
	observability.ScheduleFires.WithLabelValues("failure").Inc()
	s.logger.Warn("schedule fire failed",
		slog.Int64("schedule_id", scheduleID),
		slog.String("stage", stage),
		slog.String("error", cause.Error()),
	)

	if err := s.scheduleRepo.RecordFailure(ctx, scheduleID); err != nil {
		s.logger.Error("failed to record schedule failure",
			slog.Int64("schedule_id", scheduleID),
			slog.String("error", err.Error()),
		)
	}
}
