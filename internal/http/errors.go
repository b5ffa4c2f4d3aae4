package http

import (
	"errors"
	"log/slog"
	"net/http"

	"librarymanager/internal/httpx"
	"librarymanager/internal/lending"
)

// writeServiceError maps a lending failure to a response. Lookups answer a
// missing entity with notFoundStatus; transitions report every lending
// failure as 400.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundStatus int) {
	var lendingErr *lending.Error
	switch {
	case errors.As(err, &lendingErr):
		status := http.StatusBadRequest
		if lendingErr.Kind == lending.KindNotFound {
			status = notFoundStatus
		}
		httpx.JSONError(w, r, status, string(lendingErr.Kind), lendingErr.Error(), nil)
	case errors.Is(err, lending.ErrEmptyName):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		httpx.LoggerFrom(r.Context()).Error("request failed", slog.String("error", err.Error()))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", nil)
	}
}
