package service

import (
	"context"
	"log/slog"

	"github.com/bulkwave/bulkwave-backend/internal/models"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
)

// QueueInspector exposes the dispatch engine's live per-campaign depth
type QueueInspector interface {
	CampaignDepth(campaignID int64) int
}

// CampaignProgress holds campaign-level delivery counts and rates
type CampaignProgress struct {
	CampaignID     int64   `json:"campaign_id"`
	Total          int64   `json:"total"`
	Pending        int64   `json:"pending"`
	Queued         int64   `json:"queued"`
	Sent           int64   `json:"sent"`
	Delivered      int64   `json:"delivered"`
	Read           int64   `json:"read"`
	Failed         int64   `json:"failed"`
	SuccessRate    float64 `json:"success_rate"`
	QueuedInMemory int     `json:"queued_in_memory"`
}

// ProgressService derives campaign delivery progress from persisted message
// state plus the live dispatch queue
type ProgressService interface {
	Progress(ctx context.Context, campaignID int64) (*CampaignProgress, error)
}

type progressService struct {
	messageRepo  repository.MessageRepository
	campaignRepo repository.CampaignRepository
	queue        QueueInspector
	logger       *slog.Logger
}

// NewProgressService creates a new progress service
func NewProgressService(
	messageRepo repository.MessageRepository,
	campaignRepo repository.CampaignRepository,
	queue QueueInspector,
	logger *slog.Logger,
) ProgressService {
	return &progressService{
		messageRepo:  messageRepo,
		campaignRepo: campaignRepo,
		queue:        queue,
		logger:       logger,
	}
}

// Progress aggregates persisted message counts by status and reports the
// in-memory queue depth separately. The persisted queued count and
// queued_in_memory can legitimately disagree right after a restart: the
// queue is volatile, the rows are not.
func (s *progressService) Progress(ctx context.Context, campaignID int64) (*CampaignProgress, error) {
	// Verify the campaign exists so an unknown ID is a 404, not a zero row
	if _, err := s.campaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}

	counts, err := s.messageRepo.CountByStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	progress := &CampaignProgress{
		CampaignID: campaignID,
		Pending:    counts[models.MessageStatusPending],
		Queued:     counts[models.MessageStatusQueued],
		Sent:       counts[models.MessageStatusSent],
		Delivered:  counts[models.MessageStatusDelivered],
		Read:       counts[models.MessageStatusRead],
		Failed:     counts[models.MessageStatusFailed],
	}
	for _, count := range counts {
		progress.Total += count
	}

	if progress.Total > 0 {
		succeeded := progress.Sent + progress.Delivered + progress.Read
		progress.SuccessRate = float64(succeeded) / float64(progress.Total) * 100
	}

	progress.QueuedInMemory = s.queue.CampaignDepth(campaignID)

	return progress, nil
}
