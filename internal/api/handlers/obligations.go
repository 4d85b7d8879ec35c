package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerplan/internal/api/middleware"
	"github.com/dvloznov/ledgerplan/internal/clock"
	"github.com/dvloznov/ledgerplan/internal/domain"
	"github.com/dvloznov/ledgerplan/internal/recurrence"
	"github.com/dvloznov/ledgerplan/internal/store"
)

const maxCalendarMonths = 24

// ObligationsHandler serves recurring obligations and the calendar built
// from them.
type ObligationsHandler struct {
	repo  store.ObligationRepository
	clock clock.Clock
	log   zerolog.Logger
}

// NewObligationsHandler creates a new obligations handler.
func NewObligationsHandler(repo store.ObligationRepository, clk clock.Clock, log zerolog.Logger) *ObligationsHandler {
	return &ObligationsHandler{repo: repo, clock: clk, log: log}
}

// ListObligations handles GET /api/obligations?user_id=
func (h *ObligationsHandler) ListObligations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	list, err := h.repo.ListObligations(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list obligations")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list obligations")
		return
	}
	list = recurrence.RefreshAll(list, clock.Today(h.clock))

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"obligations": list,
		"count":       len(list),
	})
}

// UpdateStatus handles PUT /api/obligations/{id}/status. An empty status
// toggles between active and paused. Reactivating recomputes the next
// occurrence from today.
func (h *ObligationsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var req struct {
		UserID string `json:"user_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	o, err := h.repo.GetObligation(ctx, req.UserID, id)
	if err != nil {
		h.writeStoreError(w, err, id, "Failed to get obligation")
		return
	}

	next := o.Status.Toggle()
	if req.Status != "" {
		parsed, ok := domain.ParseStatus(req.Status)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		next = parsed
	}

	if next == domain.StatusActive && o.Status != domain.StatusActive {
		*o = recurrence.Refresh(*o, clock.Today(h.clock))
	}
	o.Status = next
	o.UpdatedAt = h.clock.Now()

	if err := h.repo.SaveObligation(ctx, o); err != nil {
		h.log.Error().Err(err).Str("obligation_id", id).Msg("Failed to save obligation")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save obligation")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, o)
}

// DeleteObligation handles DELETE /api/obligations/{id}?user_id=
func (h *ObligationsHandler) DeleteObligation(w http.ResponseWriter, r *http.Request, id string) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.repo.DeleteObligation(r.Context(), userID, id); err != nil {
		h.writeStoreError(w, err, id, "Failed to delete obligation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Calendar handles GET /api/calendar?user_id=&months=
func (h *ObligationsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	userID := query.Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	months := 3
	if s := query.Get("months"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxCalendarMonths {
			middleware.WriteError(w, http.StatusBadRequest, "months must be between 1 and 24")
			return
		}
		months = n
	}

	list, err := h.repo.ListObligations(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list obligations")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list obligations")
		return
	}

	today := clock.Today(h.clock)
	occurrences := recurrence.Upcoming(list, today, months)
	if occurrences == nil {
		occurrences = []recurrence.Occurrence{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"start":       today,
		"months":      months,
		"occurrences": occurrences,
	})
}

func (h *ObligationsHandler) writeStoreError(w http.ResponseWriter, err error, id, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Obligation not found")
		return
	}
	h.log.Error().Err(err).Str("obligation_id", id).Msg(msg)
	middleware.WriteError(w, http.StatusInternalServerError, msg)
}
