package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-resto/internal/common"
)

// Reader is the read side of the order store.
type Reader interface {
	GetForUser(ctx context.Context, id uuid.UUID, userID string) (Order, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
}

type Handler struct {
	Orders Reader
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	total, err := h.Orders.CountForUser(r.Context(), userID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to count orders", nil)
		return
	}
	orders, err := h.Orders.ListForUser(r.Context(), userID, perPage, common.Offset(page, perPage))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list orders", nil)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": orders,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Orders == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Orders.GetForUser(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load order", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}
