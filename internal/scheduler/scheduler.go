package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bulkwave/bulkwave-backend/internal/dispatch"
	"github.com/bulkwave/bulkwave-backend/internal/models"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
)

// Dispatcher is the slice of the dispatch engine a schedule fire needs
type Dispatcher interface {
	Enqueue(ctx context.Context, params dispatch.EnqueueParams) (*dispatch.EnqueueResult, error)
}

// Config holds recurring trigger scheduler configuration
type Config struct {
	// AccountFanOut caps how many active accounts one fire distributes
	// over (default 5)
	AccountFanOut int
	// FireTimeout bounds one fire's enqueue work (default 30s)
	FireTimeout time.Duration
	// DefaultTimezone applies to new schedules created without one; empty
	// leaves expressions in server time
	DefaultTimezone string
}

func (c Config) withDefaults() Config {
	if c.AccountFanOut <= 0 {
		c.AccountFanOut = 5
	}
	if c.FireTimeout <= 0 {
		c.FireTimeout = 30 * time.Second
	}
	return c
}

// Service owns the live cron timers for persisted schedules. Invariant: at
// most one live entry per active schedule, none for inactive ones.
type Service struct {
	cfg          Config
	scheduleRepo repository.ScheduleRepository
	campaignRepo repository.CampaignRepository
	accountRepo  repository.AccountRepository
	dispatcher   Dispatcher
	logger       *slog.Logger

	parser cron.Parser

	mu      sync.Mutex
	runner  *cron.Cron
	entries map[int64]cron.EntryID
	firing  map[int64]bool
}

// New creates a scheduler service. Timers start ticking once Start is called.
func New(
	cfg Config,
	scheduleRepo repository.ScheduleRepository,
	campaignRepo repository.CampaignRepository,
	accountRepo repository.AccountRepository,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *Service {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Service{
		cfg:          cfg.withDefaults(),
		scheduleRepo: scheduleRepo,
		campaignRepo: campaignRepo,
		accountRepo:  accountRepo,
		dispatcher:   dispatcher,
		logger:       logger,
		parser:       parser,
		runner:       cron.New(cron.WithParser(parser)),
		entries:      make(map[int64]cron.EntryID),
		firing:       make(map[int64]bool),
	}
}

// Start registers timers for all persisted active schedules and starts the
// cron runner. Called once at process startup.
func (s *Service) Start(ctx context.Context) error {
	schedules, err := s.scheduleRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active schedules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, schedule := range schedules {
		if err := s.registerLocked(schedule); err != nil {
			// A row with an expression this parser rejects should not
			// keep the rest of the schedules from starting.
			s.logger.Error("skipping schedule with invalid expression",
				slog.Int64("schedule_id", schedule.ID),
				slog.String("cron_expr", schedule.CronExpr),
				slog.String("error", err.Error()),
			)
		}
	}

	s.runner.Start()
	s.logger.Info("scheduler started", slog.Int("live_timers", len(s.entries)))
	return nil
}

// Stop cancels all timers and waits for a fire in progress to finish
func (s *Service) Stop() {
	s.mu.Lock()
	runner := s.runner
	s.entries = make(map[int64]cron.EntryID)
	s.mu.Unlock()

	<-runner.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// CreateScheduleRequest carries a schedule creation request
type CreateScheduleRequest struct {
	CampaignID int64  `json:"campaign_id"`
	OwnerID    int64  `json:"owner_id"`
	CronExpr   string `json:"cron_expr"`
	Timezone   string `json:"timezone"`
	Active     *bool  `json:"active"`
}

// Create validates the cron expression, persists the schedule, and starts a
// live timer when it is active. Validation happens before any persistence:
// a bad expression commits nothing.
func (s *Service) Create(ctx context.Context, req *CreateScheduleRequest) (*models.Schedule, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	if req.Timezone == "" {
		req.Timezone = s.cfg.DefaultTimezone
	}

	schedule := &models.Schedule{
		CampaignID: req.CampaignID,
		OwnerID:    req.OwnerID,
		CronExpr:   req.CronExpr,
		Timezone:   req.Timezone,
		Active:     active,
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	spec, err := s.parse(schedule)
	if err != nil {
		return nil, err
	}

	if schedule.Active {
		next := spec.Next(time.Now())
		schedule.NextFireAt = &next
	}

	if err := s.scheduleRepo.Create(ctx, schedule); err != nil {
		return nil, err
	}

	if schedule.Active {
		s.mu.Lock()
		err := s.registerLocked(schedule)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("schedule created",
		slog.Int64("schedule_id", schedule.ID),
		slog.Int64("campaign_id", schedule.CampaignID),
		slog.String("cron_expr", schedule.CronExpr),
		slog.Bool("active", schedule.Active),
	)

	return schedule, nil
}

// GetByID retrieves a schedule
func (s *Service) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	return s.scheduleRepo.GetByID(ctx, id)
}

// List retrieves all schedules
func (s *Service) List(ctx context.Context) ([]*models.Schedule, error) {
	return s.scheduleRepo.List(ctx)
}

// UpdateScheduleRequest carries a partial schedule update
type UpdateScheduleRequest struct {
	CronExpr *string `json:"cron_expr"`
	Timezone *string `json:"timezone"`
	Active   *bool   `json:"active"`
}

// Update applies changes to a schedule. Any live timer is always stopped
// first and restarted only when the resulting schedule is active.
func (s *Service) Update(ctx context.Context, id int64, req *UpdateScheduleRequest) (*models.Schedule, error) {
	schedule, err := s.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CronExpr != nil {
		schedule.CronExpr = *req.CronExpr
	}
	if req.Timezone != nil {
		schedule.Timezone = *req.Timezone
	}
	if req.Active != nil {
		schedule.Active = *req.Active
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	spec, err := s.parse(schedule)
	if err != nil {
		return nil, err
	}

	if schedule.Active {
		next := spec.Next(time.Now())
		schedule.NextFireAt = &next
	} else {
		schedule.NextFireAt = nil
	}

	s.mu.Lock()
	s.deregisterLocked(id)
	s.mu.Unlock()

	if err := s.scheduleRepo.Update(ctx, schedule); err != nil {
		return nil, err
	}

	if schedule.Active {
		s.mu.Lock()
		err := s.registerLocked(schedule)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("schedule updated",
		slog.Int64("schedule_id", schedule.ID),
		slog.String("cron_expr", schedule.CronExpr),
		slog.Bool("active", schedule.Active),
	)

	return schedule, nil
}

// Delete removes the persisted schedule and any live timer
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.deregisterLocked(id)
	s.mu.Unlock()

	if err := s.scheduleRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("schedule deleted", slog.Int64("schedule_id", id))
	return nil
}

// Stats reports aggregate scheduler statistics including live timer count
func (s *Service) Stats(ctx context.Context) (*models.ScheduleStats, error) {
	stats, err := s.scheduleRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	stats.LiveTimers = len(s.entries)
	s.mu.Unlock()

	return stats, nil
}

// LiveTimers reports how many cron entries are currently registered
func (s *Service) LiveTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// parse validates a schedule's expression, honoring its timezone
func (s *Service) parse(schedule *models.Schedule) (cron.Schedule, error) {
	spec, err := s.parser.Parse(specFor(schedule))
	if err != nil {
		return nil, models.ErrInvalidCronExpression(
			fmt.Sprintf("invalid cron expression %q", schedule.CronExpr), err)
	}
	return spec, nil
}

// specFor prefixes the expression with the schedule's timezone so the cron
// library evaluates it in the right location
func specFor(schedule *models.Schedule) string {
	if schedule.Timezone != "" {
		return "CRON_TZ=" + schedule.Timezone + " " + schedule.CronExpr
	}
	return schedule.CronExpr
}

// registerLocked adds a cron entry for a schedule; callers hold mu
func (s *Service) registerLocked(schedule *models.Schedule) error {
	if _, ok := s.entries[schedule.ID]; ok {
		return nil
	}

	id := schedule.ID
	entryID, err := s.runner.AddFunc(specFor(schedule), func() {
		s.fire(id)
	})
	if err != nil {
		return models.ErrInvalidCronExpression(
			fmt.Sprintf("invalid cron expression %q", schedule.CronExpr), err)
	}

	s.entries[schedule.ID] = entryID
	return nil
}

// deregisterLocked removes a schedule's cron entry if one is live; callers
// hold mu. Removal does not interrupt a fire already in progress.
func (s *Service) deregisterLocked(id int64) {
	if entryID, ok := s.entries[id]; ok {
		s.runner.Remove(entryID)
		delete(s.entries, id)
	}
}
