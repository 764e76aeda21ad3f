package sale

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/numbering"
	"github.com/noah-isme/backend-pos/internal/tax"
)

// Handler exposes the sales ledger endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	PageSize int
}

type finalizeItemRequest struct {
	ProductID       int64           `json:"productId" validate:"required,gt=0"`
	Quantity        decimal.Decimal `json:"quantity" validate:"required"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

type finalizeRequest struct {
	Items          []finalizeItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal       `json:"discountAmount"`
	PaymentMethod  string                `json:"paymentMethod" validate:"required,oneof=cash card transfer other"`
	AmountPaid     decimal.Decimal       `json:"amountPaid"`
	CustomerName   string                `json:"customerName"`
	Notes          string                `json:"notes"`
	Operator       string                `json:"operator" validate:"required"`
}

// Finalize prices and persists a sale.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_LINE_ITEM", err.Error(), nil)
			return
		}
	}

	items := make([]InputItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, InputItem{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			DiscountPercent: it.DiscountPercent,
		})
	}
	result, err := h.Svc.Finalize(r.Context(), FinalizeInput{
		Items:          items,
		DiscountAmount: req.DiscountAmount,
		PaymentMethod:  req.PaymentMethod,
		AmountPaid:     req.AmountPaid,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		Notes:          req.Notes,
		Operator:       strings.TrimSpace(req.Operator),
	})
	if err != nil {
		writeSaleError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

// List returns recent sales newest-first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := h.PageSize
	if limit <= 0 {
		limit = 25
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "page must be a positive integer", nil)
			return
		}
		page = parsed
	}
	status := strings.TrimSpace(q.Get("status"))
	switch status {
	case "", StatusPending, StatusCompleted, StatusCancelled:
	default:
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status", nil)
		return
	}

	rows, err := h.Svc.List(r.Context(), ListParams{
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		writeSaleError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": rows,
		"meta": map[string]any{"page": page, "limit": limit},
	})
}

// Get returns one sale with its lines.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(chi.URLParam(r, "number"))
	if number == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sale number is required", nil)
		return
	}
	s, err := h.Svc.Get(r.Context(), number)
	if err != nil {
		writeSaleError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": s})
}

func writeSaleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case errors.Is(err, tax.ErrInvalidLineItem):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_LINE_ITEM", err.Error(), nil)
	case errors.Is(err, ErrInvalidDiscount):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_DISCOUNT", err.Error(), nil)
	case errors.Is(err, ErrCustomerRequired):
		common.JSONError(w, http.StatusUnprocessableEntity, "CUSTOMER_REQUIRED", "customer name is required", nil)
	case errors.Is(err, ErrDiscountsDisabled):
		common.JSONError(w, http.StatusUnprocessableEntity, "DISCOUNTS_DISABLED", "discounts are disabled", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
	case errors.Is(err, ErrNumberingConflict):
		common.JSONError(w, http.StatusConflict, "NUMBERING_CONFLICT", "could not issue a unique sale number", nil)
	case errors.Is(err, numbering.ErrExhausted):
		common.JSONError(w, http.StatusConflict, "NUMBERING_EXHAUSTED", "daily sale numbers exhausted", nil)
	case errors.Is(err, catalog.ErrUnavailable):
		common.JSONError(w, http.StatusBadGateway, "DOWNSTREAM_UNAVAILABLE", "catalog unavailable", nil)
	default:
		common.WriteError(w, err)
	}
}
