package models

import "time"

// Schedule represents a persisted recurring trigger bound to one campaign.
// While Active is true the scheduler holds at most one live cron entry for
// it; an inactive schedule has none.
type Schedule struct {
	ID           int64      `json:"id"`
	CampaignID   int64      `json:"campaign_id"`
	OwnerID      int64      `json:"owner_id"`
	CronExpr     string     `json:"cron_expr"`
	Timezone     string     `json:"timezone,omitempty"`
	Active       bool       `json:"active"`
	LastFiredAt  *time.Time `json:"last_fired_at,omitempty"`
	NextFireAt   *time.Time `json:"next_fire_at,omitempty"`
	FireCount    int64      `json:"fire_count"`
	FailureCount int64      `json:"failure_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ScheduleStats holds aggregate scheduler statistics
type ScheduleStats struct {
	Total         int64 `json:"total"`
	Active        int64 `json:"active"`
	TotalFires    int64 `json:"total_fires"`
	TotalFailures int64 `json:"total_failures"`
	LiveTimers    int   `json:"live_timers"`
}

// Validate performs validation on schedule data. Cron expression syntax is
// validated by the scheduler service, which owns the parser.
func (s *Schedule) Validate() error {
	if s.CampaignID <= 0 {
		return ErrInvalidInput("campaign_id is required")
	}
	if s.OwnerID <= 0 {
		return ErrInvalidInput("owner_id is required")
	}
	if s.CronExpr == "" {
		return ErrInvalidInput("cron_expr is required")
	}
	return nil
}
