package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bulkwave/bulkwave-backend/internal/models"
)

// statusByCode maps application error codes to HTTP statuses. Codes not
// listed here surface as 500s.
var statusByCode = map[string]int{
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_CRON_EXPRESSION": http.StatusBadRequest,
	"NOT_FOUND":               http.StatusNotFound,
	"TEMPLATE_NOT_FOUND":      http.StatusNotFound,
	"CONTACT_NOT_FOUND":       http.StatusNotFound,
	"CONFLICT":                http.StatusConflict,
}

// handleError translates an application error into an HTTP response. AppError
// codes carry their own status; anything unrecognized is logged and hidden
// behind a generic 500 so internals never leak to clients.
func handleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		status, ok := statusByCode[appErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		respondError(w, status, appErr.Code, appErr.Message)
		return
	}

	if errors.Is(err, models.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if errors.Is(err, models.ErrConflict) {
		respondError(w, http.StatusConflict, "CONFLICT", err.Error())
		return
	}

	logger.Error("internal server error", slog.String("error", err.Error()))
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}
