package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/dispatch"
	"github.com/bulkwave/bulkwave-backend/internal/models"
)

type fakeScheduleRepo struct {
	mu        sync.Mutex
	schedules map[int64]*models.Schedule
	nextID    int64
	fires     map[int64]int
	failures  map[int64]int
	deleted   []int64
}

func newFakeScheduleRepo(schedules ...*models.Schedule) *fakeScheduleRepo {
	repo := &fakeScheduleRepo{
		schedules: map[int64]*models.Schedule{},
		fires:     map[int64]int{},
		failures:  map[int64]int{},
	}
	for _, schedule := range schedules {
		repo.schedules[schedule.ID] = schedule
		if schedule.ID > repo.nextID {
			repo.nextID = schedule.ID
		}
	}
	return repo
}

func (m *fakeScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	schedule.ID = m.nextID
	m.schedules[schedule.ID] = schedule
	return nil
}

func (m *fakeScheduleRepo) GetByID(ctx context.Context, id int64) (*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	schedule, ok := m.schedules[id]
	if !ok {
		return nil, models.ErrNotFoundWithMsg("schedule not found")
	}
	copied := *schedule
	return &copied, nil
}

func (m *fakeScheduleRepo) List(ctx context.Context) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Schedule
	for _, schedule := range m.schedules {
		out = append(out, schedule)
	}
	return out, nil
}

func (m *fakeScheduleRepo) ListActive(ctx context.Context) ([]*models.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Schedule
	for _, schedule := range m.schedules {
		if schedule.Active {
			out = append(out, schedule)
		}
	}
	return out, nil
}

func (m *fakeScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[schedule.ID]; !ok {
		return models.ErrNotFoundWithMsg("schedule not found")
	}
	m.schedules[schedule.ID] = schedule
	return nil
}

func (m *fakeScheduleRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return models.ErrNotFoundWithMsg("schedule not found")
	}
	delete(m.schedules, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *fakeScheduleRepo) RecordFire(ctx context.Context, id int64, firedAt time.Time, nextFireAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fires[id]++
	if schedule, ok := m.schedules[id]; ok {
		schedule.LastFiredAt = &firedAt
		schedule.NextFireAt = nextFireAt
		schedule.FireCount++
	}
	return nil
}

func (m *fakeScheduleRepo) RecordFailure(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[id]++
	if schedule, ok := m.schedules[id]; ok {
		schedule.FailureCount++
	}
	return nil
}

func (m *fakeScheduleRepo) Stats(ctx context.Context) (*models.ScheduleStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.ScheduleStats{}
	for _, schedule := range m.schedules {
		stats.Total++
		if schedule.Active {
			stats.Active++
		}
		stats.TotalFires += schedule.FireCount
		stats.TotalFailures += schedule.FailureCount
	}
	return stats, nil
}

func (m *fakeScheduleRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.schedules)
}

type schedCampaignRepo struct {
	campaigns map[int64]*models.Campaign
}

func (m *schedCampaignRepo) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	campaign, ok := m.campaigns[id]
	if !ok {
		return nil, models.ErrNotFoundWithMsg("campaign not found")
	}
	return campaign, nil
}

func (m *schedCampaignRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return nil
}

func (m *schedCampaignRepo) IncrementSentCount(ctx context.Context, id int64) error { return nil }

func (m *schedCampaignRepo) IncrementFailedCount(ctx context.Context, id int64) error { return nil }

type fakeAccountRepo struct {
	accounts []*models.Account
}

func (m *fakeAccountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return nil, models.ErrNotFoundWithMsg("account not found")
}

func (m *fakeAccountRepo) ListActiveByOwner(ctx context.Context, ownerID int64, limit int) ([]*models.Account, error) {
	if len(m.accounts) > limit {
		return m.accounts[:limit], nil
	}
	return m.accounts, nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	err    error
	params []dispatch.EnqueueParams
}

func (d *fakeDispatcher) Enqueue(ctx context.Context, params dispatch.EnqueueParams) (*dispatch.EnqueueResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.params = append(d.params, params)
	if d.err != nil {
		return nil, d.err
	}
	return &dispatch.EnqueueResult{Queued: 10, QueueDepth: 10}, nil
}

func (d *fakeDispatcher) calls() []dispatch.EnqueueParams {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params
}

func testCampaign() *models.Campaign {
	return &models.Campaign{
		ID:           42,
		OwnerID:      1,
		Name:         "weekly digest",
		Channel:      models.ChannelSMS,
		BaseTemplate: "Hi {{first_name}}",
		DelayMinMS:   100,
		DelayMaxMS:   500,
		Throttle:     60,
		MaxRetries:   3,
	}
}

func newTestService(t *testing.T, repo *fakeScheduleRepo, dispatcher *fakeDispatcher) *Service {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	campRepo := &schedCampaignRepo{campaigns: map[int64]*models.Campaign{42: testCampaign()}}
	accountRepo := &fakeAccountRepo{accounts: []*models.Account{
		{ID: 201, OwnerID: 1, Status: models.AccountStatusActive},
		{ID: 202, OwnerID: 1, Status: models.AccountStatusActive},
	}}

	svc := New(Config{}, repo, campRepo, accountRepo, dispatcher, logger)
	t.Cleanup(svc.Stop)
	return svc
}

func TestService_CreateActiveSchedule(t *testing.T) {
	repo := newFakeScheduleRepo()
	svc := newTestService(t, repo, &fakeDispatcher{})

	schedule, err := svc.Create(context.Background(), &CreateScheduleRequest{
		CampaignID: 42,
		OwnerID:    1,
		CronExpr:   "0 9 * * 1",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !schedule.Active {
		t.Errorf("schedule active = false, want true by default")
	}
	if schedule.NextFireAt == nil {
		t.Errorf("next fire time not computed")
	} else if !schedule.NextFireAt.After(time.Now()) {
		t.Errorf("next fire time %v not in the future", schedule.NextFireAt)
	}
	if svc.LiveTimers() != 1 {
		t.Errorf("live timers = %d, want 1", svc.LiveTimers())
	}
}

func TestService_CreateInvalidCronExpression(t *testing.T) {
	repo := newFakeScheduleRepo()
	svc := newTestService(t, repo, &fakeDispatcher{})

	tests := []string{
		"not a cron",
		"61 * * * *",
		"* * * *",
	}

	for _, expr := range tests {
		_, err := svc.Create(context.Background(), &CreateScheduleRequest{
			CampaignID: 42,
			OwnerID:    1,
			CronExpr:   expr,
		})

		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != "INVALID_CRON_EXPRESSION" {
			t.Errorf("Create(%q) error = %v, want INVALID_CRON_EXPRESSION", expr, err)
		}
	}

	if repo.count() != 0 {
		t.Errorf("invalid expressions persisted %d schedules, want 0", repo.count())
	}
	if svc.LiveTimers() != 0 {
		t.Errorf("live timers = %d, want 0", svc.LiveTimers())
	}
}

func TestService_CreateInactiveSchedule(t *testing.T) {
	repo := newFakeScheduleRepo()
	svc := newTestService(t, repo, &fakeDispatcher{})

	inactive := false
	schedule, err := svc.Create(context.Background(), &CreateScheduleRequest{
		CampaignID: 42,
		OwnerID:    1,
		CronExpr:   "*/5 * * * *",
		Active:     &inactive,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if schedule.NextFireAt != nil {
		t.Errorf("inactive schedule has a next fire time")
	}
	if svc.LiveTimers() != 0 {
		t.Errorf("live timers = %d, want 0 for inactive schedule", svc.LiveTimers())
	}
}

func TestService_StartRegistersActiveOnly(t *testing.T) {
	repo := newFakeScheduleRepo(
		&models.Schedule{ID: 1, CampaignID: 42, OwnerID: 1, CronExpr: "0 9 * * *", Active: true},
		&models.Schedule{ID: 2, CampaignID: 42, OwnerID: 1, CronExpr: "0 18 * * *", Active: false},
		&models.Schedule{ID: 3, CampaignID: 42, OwnerID: 1, CronExpr: "garbage", Active: true},
	)
	svc := newTestService(t, repo, &fakeDispatcher{})

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The inactive row and the unparseable row get no timer.
	if svc.LiveTimers() != 1 {
		t.Errorf("live timers = %d, want 1", svc.LiveTimers())
	}
}

func TestService_UpdateDeactivateStopsTimer(t *testing.T) {
	repo := newFakeScheduleRepo(
		&models.Schedule{ID: 1, CampaignID: 42, OwnerID: 1, CronExpr: "0 9 * * *", Active: true},
	)
	svc := newTestService(t, repo, &fakeDispatcher{})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	inactive := false
	schedule, err := svc.Update(context.Background(), 1, &UpdateScheduleRequest{Active: &inactive})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if schedule.Active {
		t.Errorf("schedule still active after deactivation")
	}
	if schedule.NextFireAt != nil {
		t.Errorf("deactivated schedule kept a next fire time")
	}
	if svc.LiveTimers() != 0 {
		t.Errorf("live timers = %d, want 0 after deactivation", svc.LiveTimers())
	}

	active := true
	schedule, err = svc.Update(context.Background(), 1, &UpdateScheduleRequest{Active: &active})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if schedule.NextFireAt == nil {
		t.Errorf("reactivated schedule has no next fire time")
	}
	if svc.LiveTimers() != 1 {
		t.Errorf("live timers = %d, want 1 after reactivation", svc.LiveTimers())
	}
}

func TestService_UpdateRejectsInvalidExpression(t *testing.T) {
	repo := newFakeScheduleRepo(
		&models.Schedule{ID: 1, CampaignID: 42, OwnerID: 1, CronExpr: "0 9 * * *", Active: true},
	)
	svc := newTestService(t, repo, &fakeDispatcher{})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	bad := "99 99 * * *"
	_, err := svc.Update(context.Background(), 1, &UpdateScheduleRequest{CronExpr: &bad})

	var appErr *models.AppError
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_CRON_EXPRESSION" {
		t.Errorf("Update() error = %v, want INVALID_CRON_EXPRESSION", err)
	}

	stored, err := svc.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.CronExpr != "0 9 * * *" {
		t.Errorf("stored expression = %q, want original", stored.CronExpr)
	}
}

func TestService_DeleteRemovesTimer(t *testing.T) {
	repo := newFakeScheduleRepo(
		&models.Schedule{ID: 1, CampaignID: 42, OwnerID: 1, CronExpr: "0 9 * * *", Active: true},
	)
	svc := newTestService(t, repo, &fakeDispatcher{})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := svc.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if svc.LiveTimers() != 0 {
		t.Errorf("live timers = %d, want 0 after delete", svc.LiveTimers())
	}
	if repo.count() != 0 {
		t.Errorf("schedule row survived delete")
	}
}

func TestService_FireEnqueuesCampaign(t *testing.T) {
	repo := newFakeScheduleRepo(
		&models.Schedule{ID: 1, CampaignID: 42, OwnerID: 1, CronExpr: "0 9 * * *", Active: true},
	)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, repo, dispatcher)

	svc.fire(1)

	calls := dispatcher.calls()
	if len(calls) != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", len(calls))
	}
	params := calls[0]
	if params.CampaignID != 42 {
		t.Errorf("campaign ID = %d, want 42", params.CampaignID)
	}
	if len(params.AccountIDs) != 2 {
		t.Errorf("account fan-out = %d, want 2", len(params.AccountIDs))
	}
	// Delivery tuning is re-read from the campaign at fire time.
	if params.Delivery.Throttle != 60 || params.Delivery.MaxRetries != 3 {
		t.Errorf("delivery params = %+v, want campaign tuning", params.Delivery)
	}

	if repo.fires[1] != 1 {
		t.Errorf("recorded fires = %d, want 1", repo.fires[1])
	}
	if repo.failures[1] != 0 {
		t.Errorf("recorded failures = %d, want 0", repo.failures[1])
	}

	stored, err := svc.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.NextFireAt == nil {
		t.Errorf("fire did not advance next fire time")
	}
}

func TestService_FireFailureKeepsScheduleActive(t *testing.T) {
	repo := newFakeScheduleRepo(
		&models.Schedule{ID: 1, CampaignID: 42, OwnerID: 1, CronExpr: "0 9 * * *", Active: true},
	)
	dispatcher := &fakeDispatcher{err: errors.New("no eligible accounts")}
	svc := newTestService(t, repo, dispatcher)

	svc.fire(1)

	if repo.failures[1] != 1 {
		t.Errorf("recorded failures = %d, want 1", repo.failures[1])
	}
	if repo.fires[1] != 0 {
		t.Errorf("recorded fires = %d, want 0", repo.fires[1])
	}

	stored, err := svc.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !stored.Active {
		t.Errorf("schedule deactivated after transient failure")
	}
}

func TestService_FireUnknownSchedule(t *testing.T) {
	repo := newFakeScheduleRepo()
	dispatcher := &fakeDispatcher{}
	svc := newTestService(t, repo, dispatcher)

	svc.fire(99)

	if len(dispatcher.calls()) != 0 {
		t.Errorf("fire of unknown schedule reached the dispatcher")
	}
	if repo.failures[99] != 1 {
		t.Errorf("recorded failures = %d, want 1", repo.failures[99])
	}
}

func TestService_StatsIncludesLiveTimers(t *testing.T) {
	repo := newFakeScheduleRepo(
		&models.Schedule{ID: 1, CampaignID: 42, OwnerID: 1, CronExpr: "0 9 * * *", Active: true, FireCount: 4, FailureCount: 1},
		&models.Schedule{ID: 2, CampaignID: 42, OwnerID: 1, CronExpr: "0 18 * * *", Active: false, FireCount: 2},
	)
	svc := newTestService(t, repo, &fakeDispatcher{})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}

	if stats.Total != 2 || stats.Active != 1 {
		t.Errorf("totals = %+v", stats)
	}
	if stats.TotalFires != 6 || stats.TotalFailures != 1 {
		t.Errorf("fire counters = %+v", stats)
	}
	if stats.LiveTimers != 1 {
		t.Errorf("live timers = %d, want 1", stats.LiveTimers)
	}
}
