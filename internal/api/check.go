package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

// checkHandler handles POST /v1/check/{source}
func (h *Handler) checkHandler(w http.ResponseWriter, r *http.Request) {
	h.runCheck(w, r, chi.URLParam(r, "source"))
}

func (h *Handler) legacyCheck(src models.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.runCheck(w, r, string(src))
	}
}

// runCheck runs one cycle and answers with its result. The cycle is detached
// from the request so a disconnecting client cannot abort a fan-out halfway.
func (h *Handler) runCheck(w http.ResponseWriter, r *http.Request, sourceKey string) {
	ctx := r.Context()

	result, err := h.cycler.RunCycle(context.WithoutCancel(ctx), sourceKey)
	if err != nil {
		logger.WithContext(ctx).Warn("Manual check did not complete",
			"source", sourceKey,
			"message", result.Message,
			"error", err,
		)
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeJSONResponse(w, checkStatus(err), result)
}

func checkStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, apperrors.ErrUnknownSource):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrCycleInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
