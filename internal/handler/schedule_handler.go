package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bulkwave/bulkwave-backend/internal/scheduler"
)

// ScheduleHandler handles recurring trigger HTTP requests
type ScheduleHandler struct {
	scheduler *scheduler.Service
	logger    *slog.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(scheduler *scheduler.Service, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// CreateSchedule handles POST /schedules
func (h *ScheduleHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduler.CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	schedule, err := h.scheduler.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondCreated(w, schedule)
}

// ListSchedules handles GET /schedules
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.scheduler.List(r.Context())
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, schedules)
}

// GetSchedule handles GET /schedules/{id}
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Invalid schedule ID")
		return
	}

	schedule, err := h.scheduler.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, schedule)
}

// UpdateSchedule handles PATCH /schedules/{id}
func (h *ScheduleHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Invalid schedule ID")
		return
	}

	var req scheduler.UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON format")
		return
	}

	schedule, err := h.scheduler.Update(r.Context(), id, &req)
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, schedule)
}

// DeleteSchedule handles DELETE /schedules/{id}
func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Invalid schedule ID")
		return
	}

	if err := h.scheduler.Delete(r.Context(), id); err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// SchedulerStats handles GET /schedules/stats
func (h *ScheduleHandler) SchedulerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.scheduler.Stats(r.Context())
	if err != nil {
		handleError(w, err, h.logger)
		return
	}

	respondSuccess(w, stats)
}
