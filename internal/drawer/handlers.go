package drawer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/common"
)

// Handler exposes the cash drawer endpoints.
type Handler struct {
	Svc *Service
}

type openRequest struct {
	Operator     string          `json:"operator"`
	OpeningFloat decimal.Decimal `json:"openingFloat"`
	Notes        string          `json:"notes"`
}

// Open starts a new drawer session.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	operator := strings.TrimSpace(req.Operator)
	if operator == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "operator is required", nil)
		return
	}
	session, err := h.Svc.Open(r.Context(), operator, req.OpeningFloat, req.Notes)
	if err != nil {
		writeDrawerError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": session})
}

// Get returns the session, its movements and the running expected amount.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	detail, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeDrawerError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

type movementRequest struct {
	Direction string          `json:"direction"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Operator  string          `json:"operator"`
}

// AddMovement records a manual cash in/out.
func (h *Handler) AddMovement(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "reason is required", nil)
		return
	}
	movement, err := h.Svc.AddMovement(r.Context(), id, req.Direction, req.Amount, req.Reason, strings.TrimSpace(req.Operator))
	if err != nil {
		writeDrawerError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": movement})
}

type closeRequest struct {
	CountedAmount decimal.Decimal `json:"countedAmount"`
	Notes         string          `json:"notes"`
}

// Close reconciles and closes the session.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	session, err := h.Svc.Close(r.Context(), id, req.CountedAmount, req.Notes)
	if err != nil {
		writeDrawerError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": session})
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid session id", nil)
		return uuid.UUID{}, false
	}
	return id, true
}

func writeDrawerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
	case errors.Is(err, ErrAlreadyClosed):
		common.JSONError(w, http.StatusConflict, "ALREADY_CLOSED", "session is already closed", nil)
	case errors.Is(err, ErrSessionClosed):
		common.JSONError(w, http.StatusConflict, "SESSION_CLOSED", "session is closed", nil)
	case errors.Is(err, ErrInvalidMovement):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_MOVEMENT", err.Error(), nil)
	default:
		common.WriteError(w, err)
	}
}
