package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/rajasatyajit/QuakeAlert/internal/errors"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
	"github.com/rajasatyajit/QuakeAlert/internal/models"
)

const maxNotificationLimit = 500

// notificationsHandler handles GET /v1/notifications
func (h *Handler) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := h.parseNotificationQuery(r)
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.store.ListNotifications(ctx, q)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to list notifications", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if records == nil {
		records = []models.NotificationRecord{}
	}

	response := map[string]interface{}{
		"data":      records,
		"count":     len(records),
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "private, no-cache")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// parseNotificationQuery parses query parameters into NotificationQuery
func (h *Handler) parseNotificationQuery(r *http.Request) (models.NotificationQuery, error) {
	q := models.NotificationQuery{
		Token: strings.TrimSpace(r.URL.Query().Get("token")),
	}
	if q.Token == "" {
		return q, fmt.Errorf("%w: token is required", apperrors.ErrInvalidInput)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return q, fmt.Errorf("%w: limit %q is not a number", apperrors.ErrInvalidInput, limitStr)
		}
		if limit < 0 || limit > maxNotificationLimit {
			return q, fmt.Errorf("%w: limit must be between 0 and %d", apperrors.ErrInvalidInput, maxNotificationLimit)
		}
		q.Limit = limit
	}

	return q, nil
}
