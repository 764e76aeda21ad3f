package parked

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/numbering"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/settings"
	"github.com/noah-isme/backend-pos/internal/snapshot"
)

type settingsSource interface {
	Get(ctx context.Context) (settings.Settings, error)
}

// Handler exposes the park/recall endpoints. The whole surface is gated
// by the enable_parked_tickets setting, read per request.
type Handler struct {
	Store    *Store
	Settings settingsSource
}

func (h *Handler) enabled(w http.ResponseWriter, r *http.Request) bool {
	cfg, err := h.Settings.Get(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return false
	}
	if !cfg.EnableParkedTickets {
		common.JSONError(w, http.StatusForbidden, "PARKED_TICKETS_DISABLED", "parked tickets are disabled", nil)
		return false
	}
	return true
}

type parkRequest struct {
	Snapshot snapshot.Cart `json:"snapshot"`
	Operator string        `json:"operator"`
	Notes    string        `json:"notes"`
}

// Park stores the submitted cart under a fresh ticket number.
func (h *Handler) Park(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	var req parkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if req.Snapshot.Version == 0 {
		req.Snapshot.Version = snapshot.SchemaVersion
	}
	ticket, err := h.Store.Park(r.Context(), req.Snapshot, strings.TrimSpace(req.Operator), req.Notes)
	if err != nil {
		countOp("park", "error")
		writeParkedError(w, err)
		return
	}
	countOp("park", "ok")
	common.JSON(w, http.StatusCreated, map[string]any{"data": ticket})
}

// List returns recoverable tickets newest-first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	entries, err := h.Store.List(r.Context())
	if err != nil {
		countOp("list", "error")
		common.WriteError(w, err)
		return
	}
	countOp("list", "ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

// Recover removes the ticket and hands its snapshot back to the register.
func (h *Handler) Recover(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(w, r) {
		return
	}
	number := strings.TrimSpace(chi.URLParam(r, "number"))
	if number == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "ticket number is required", nil)
		return
	}
	ticket, err := h.Store.Recover(r.Context(), number)
	if err != nil {
		countOp("recover", "error")
		writeParkedError(w, err)
		return
	}
	countOp("recover", "ok")
	common.JSON(w, http.StatusOK, map[string]any{"data": ticket})
}

func writeParkedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cannot park an empty cart", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "ticket not found", nil)
	case errors.Is(err, ErrExpired):
		common.JSONError(w, http.StatusGone, "EXPIRED", "ticket has expired", nil)
	case errors.Is(err, numbering.ErrExhausted):
		common.JSONError(w, http.StatusConflict, "NUMBERING_EXHAUSTED", "daily ticket numbers exhausted", nil)
	default:
		common.WriteError(w, err)
	}
}

func countOp(action, result string) {
	if obs.ParkedTicketOpsTotal != nil {
		obs.ParkedTicketOpsTotal.WithLabelValues(action, result).Inc()
	}
}
