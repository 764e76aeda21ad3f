package activecart

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/snapshot"
)

// Provider is the storage surface the handler needs.
type Provider interface {
	Save(ctx context.Context, operator string, snap snapshot.Cart) (State, error)
	Load(ctx context.Context, operator string) (State, error)
	Clear(ctx context.Context, operator string) error
}

// Handler exposes the single-slot active cart endpoints.
type Handler struct {
	Store Provider
}

type saveRequest struct {
	Operator string        `json:"operator"`
	Snapshot snapshot.Cart `json:"snapshot"`
}

// Save overwrites the operator's cart slot.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "operator is required", nil)
		return
	}
	if req.Snapshot.Version == 0 {
		req.Snapshot.Version = snapshot.SchemaVersion
	}
	state, err := h.Store.Save(r.Context(), operator, req.Snapshot)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": state})
}

// Load returns the operator's cart, empty when nothing is saved.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	operator := strings.TrimSpace(r.URL.Query().Get("operator"))
	if operator == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "operator is required", nil)
		return
	}
	state, err := h.Store.Load(r.Context(), operator)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": state})
}

// Clear drops the operator's cart slot.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	operator := strings.TrimSpace(r.URL.Query().Get("operator"))
	if operator == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "operator is required", nil)
		return
	}
	if err := h.Store.Clear(r.Context(), operator); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"cleared": true}})
}
