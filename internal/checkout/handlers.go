package checkout

import (
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-resto/internal/catalog"
	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/lock"
	"github.com/noah-isme/backend-resto/internal/pricing"
	"github.com/noah-isme/backend-resto/internal/voucher"
)

// Handler exposes the quote and order placement endpoints over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Quote handles POST /api/v1/pricing/quote. Authentication is optional; identity-dependent voucher
// rules see an anonymous caller otherwise.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	caller, _ := common.IdentityFrom(r.Context())
	quote, err := h.Svc.Quote(r.Context(), caller, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// PlaceOrder handles POST /api/v1/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := common.IdentityFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	placement, err := h.Svc.PlaceOrder(r.Context(), caller, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": placement})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return Input{}, false
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Input{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid order", fieldErrors(err))
			return Input{}, false
		}
	}
	return in, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var mismatch *MismatchError
	switch {
	case errors.As(err, &mismatch):
		common.JSONError(w, http.StatusConflict, "QUOTE_MISMATCH", "order total changed, please review the new total", map[string]any{
			"expectedTotal": mismatch.Expected,
			"quote":         mismatch.Quote,
		})
	case errors.Is(err, ErrUnauthenticated):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
	case errors.Is(err, ErrEmptyOrder), errors.Is(err, pricing.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "UNKNOWN_PRODUCT", err.Error(), nil)
	case errors.Is(err, voucher.ErrUsageExhausted):
		common.JSONError(w, http.StatusConflict, "VOUCHER_EXHAUSTED", pricing.ReasonUsageExhausted.Message(), nil)
	case errors.Is(err, lock.ErrNotAcquired):
		common.JSONError(w, http.StatusConflict, "CHECKOUT_IN_PROGRESS", "another order is being placed, try again", nil)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("checkout failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to price order", nil)
	}
}

func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Namespace()] = fe.Tag()
		}
	}
	return out
}
