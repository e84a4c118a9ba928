package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bulkwave/bulkwave-backend/internal/db"
	"github.com/bulkwave/bulkwave-backend/internal/events"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db        *db.DB
	publisher events.Publisher
	logger    *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(database *db.DB, publisher events.Publisher, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:        database,
		publisher: publisher,
		logger:    logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "healthy",
		Services: make(map[string]string),
	}

	if err := h.db.Health(ctx); err != nil {
		h.logger.Error("database health check failed", slog.String("error", err.Error()))
		response.Status = "unhealthy"
		response.Services["database"] = "unhealthy"
	} else {
		response.Services["database"] = "healthy"
	}

	if err := h.publisher.Health(ctx); err != nil {
		h.logger.Error("events health check failed", slog.String("error", err.Error()))
		response.Status = "unhealthy"
		response.Services["events"] = "unhealthy"
	} else {
		response.Services["events"] = "healthy"
	}

	if response.Status == "healthy" {
		respondSuccess(w, response)
	} else {
		respondJSON(w, http.StatusServiceUnavailable, response)
	}
}
