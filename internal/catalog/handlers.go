package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-resto/internal/common"
)

// Handler exposes public catalog pricing endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Price handles GET /api/v1/menu/{productRef}/price with an optional variant query parameter.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	product, err := h.service.Product(r.Context(), chi.URLParam(r, "productRef"), r.URL.Query().Get("variant"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
}
