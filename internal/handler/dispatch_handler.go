package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bulkwave/bulkwave-backend/internal/dispatch"
	"github.com/bulkwave/bulkwave-backend/internal/models"
	"github.com/bulkwave/bulkwave-backend/internal/repository"
	"github.com/bulkwave/bulkwave-backend/internal/service"
)

// DispatchHandler handles dispatch engine HTTP requests
type DispatchHandler struct {
	engine        *dispatch.Engine
	campaignRepo  repository.CampaignRepository
	accountRepo   repository.AccountRepository
	messageRepo   repository.MessageRepository
	progressSvc   service.ProgressService
	accountFanOut int
	logger        *slog.Logger
}

// NewDispatchHandler creates a new dispatch handler
func NewDispatchHandler(
	engine *dispatch.Engine,
	campaignRepo repository.CampaignRepository,
	accountRepo repository.AccountRepository,
	messageRepo repository.MessageRepository,
	progressSvc service.ProgressService,
	accountFanOut int,
	logger *slog.Logger,
) *DispatchHandler {
	return &DispatchHandler{
		engine:        engine,
		campaignRepo:  campaignRepo,
		accountRepo:   accountRepo,
		messageRepo:   messageRepo,
		progressSvc:   progressSvc,
		accountFanOut: accountFanOut,
		logger:        logger,
	}
}

// DispatchCampaignRequest carries an enqueue request. Account IDs are
// optional; when absent the owner's active pool is used.
type DispatchCampaignRequest struct {
	AccountIDs []int64 `json:"account_ids"`
}

// DispatchCampaign handles POST /campaigns/{id}/dispatch
func (h *DispatchHandler) DispatchCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Invalid campaign ID")
		return
	}

	var req DispatchCampaignRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
			return
		}
	}

	campaign, err := h.campaignRepo.GetByID(r.Context(), campaignID)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	accountIDs := req.AccountIDs
	if len(accountIDs) == 0 {
		accounts, err := h.accountRepo.ListActiveByOwner(r.Context(), campaign.OwnerID, h.accountFanOut)
		if err != nil {
			handleError(w, err, h.logger)
			return
		}
		for _, account := range accounts {
			accountIDs = append(accountIDs, account.ID)
		}
	}

	result, err := h.engine.Enqueue(r.Context(), dispatch.EnqueueParams{
		CampaignID: campaignID,
		AccountIDs: accountIDs,
		Delivery:   campaign.Params(),
	})
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, result)
}

// DirectSendRequest carries a single non-campaign send
type DirectSendRequest struct {
	AccountID int64  `json:"account_id"`
	ContactID int64  `json:"contact_id"`
	Body      string `json:"body"`
}

// DirectSendResponse reports the persisted message ID
type DirectSendResponse struct {
	MessageID int64 `json:"message_id"`
}

// DirectSend handles POST /messages/direct
func (h *DispatchHandler) DirectSend(w http.ResponseWriter, r *http.Request) {
	var req DirectSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	if req.AccountID <= 0 || req.ContactID <= 0 || req.Body == "" {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "account_id, contact_id and body are required")
		return
	}

	messageID, err := h.engine.DirectSend(r.Context(), req.AccountID, req.ContactID, req.Body)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, DirectSendResponse{MessageID: messageID})
}

// ListMessagesResponse pairs one page of messages with pagination metadata
type ListMessagesResponse struct {
	Messages   []*models.Message       `json:"messages"`
	Pagination models.PaginationResult `json:"pagination"`
}

// ListMessages handles GET /messages
func (h *DispatchHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	filter := models.MessageFilter{
		Status: r.URL.Query().Get("status"),
	}
	filter.CampaignID, _ = strconv.ParseInt(r.URL.Query().Get("campaign_id"), 10, 64)
	filter.ContactID, _ = strconv.ParseInt(r.URL.Query().Get("contact_id"), 10, 64)
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))

	if filter.Status != "" && !models.IsValidMessageStatus(filter.Status) {
		respondError(w, http.StatusBadRequest, "INVALID_INPUT", "Invalid message status")
		return
	}

	models.ValidateAndSetDefaults(&filter.Page, &filter.PageSize)

	messages, totalCount, err := h.messageRepo.List(r.Context(), filter)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, ListMessagesResponse{
		Messages:   messages,
		Pagination: models.NewPaginationResult(filter.Page, filter.PageSize, totalCount),
	})
}

// QueueStatus handles GET /dispatch/status
func (h *DispatchHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.engine.Status())
}

// CampaignProgress handles GET /campaigns/{id}/progress
func (h *DispatchHandler) CampaignProgress(w http.ResponseWriter, r *http.Request) {
	campaignID, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Invalid campaign ID")
		return
	}

	progress, err := h.progressSvc.Progress(r.Context(), campaignID)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, progress)
}

// parseIDParam extracts a numeric chi URL parameter
func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
