package settings

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/noah-isme/backend-pos/internal/common"
)

type Provider interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, in Settings) (Settings, error)
}

type Handler struct {
	Store Provider
}

func NewHandler(store Provider) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Store.Get(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

type updateRequest struct {
	TaxIncluded         bool `json:"taxIncluded"`
	RequireCustomer     bool `json:"requireCustomer"`
	AllowDiscounts      bool `json:"allowDiscounts"`
	EnableParkedTickets bool `json:"enableParkedTickets"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	out, err := h.Store.Update(r.Context(), Settings{
		TaxIncluded:         req.TaxIncluded,
		RequireCustomer:     req.RequireCustomer,
		AllowDiscounts:      req.AllowDiscounts,
		EnableParkedTickets: req.EnableParkedTickets,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
