package voucher

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-resto/internal/common"
	"github.com/noah-isme/backend-resto/internal/pricing"
)

// Handler exposes administrative voucher management endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type voucherPayload struct {
	Code                   string          `json:"code" validate:"omitempty,max=64"`
	Kind                   string          `json:"kind" validate:"required,oneof=fixed_value percent_order same_price_product"`
	Value                  decimal.Decimal `json:"value"`
	MinOrderValue          int64           `json:"minOrderValue" validate:"gte=0"`
	Applicability          string          `json:"applicability" validate:"omitempty,oneof=at_least_one_required all_required"`
	EligibleProductRefs    []string        `json:"eligibleProductRefs" validate:"required,min=1,dive,required"`
	IsActive               *bool           `json:"isActive"`
	StartDate              *time.Time      `json:"startDate"`
	EndDate                *time.Time      `json:"endDate"`
	MaxUsage               int             `json:"maxUsage" validate:"gte=0"`
	NumberOfUsagePerUser   int             `json:"numberOfUsagePerUser" validate:"gte=0"`
	IsPrivate              bool            `json:"isPrivate"`
	IsVerificationIdentity bool            `json:"isVerificationIdentity"`
	IsUserGroupRestricted  bool            `json:"isUserGroupRestricted"`
	UserGroups             []string        `json:"userGroups" validate:"dive,required"`
	AllowedPaymentMethods  []string        `json:"allowedPaymentMethods" validate:"dive,required"`
}

// View is the API representation of a stored voucher.
type View struct {
	ID                     string     `json:"id"`
	Code                   string     `json:"code"`
	Kind                   string     `json:"kind"`
	Value                  string     `json:"value"`
	MinOrderValue          int64      `json:"minOrderValue"`
	Applicability          string     `json:"applicability"`
	EligibleProductRefs    []string   `json:"eligibleProductRefs"`
	IsActive               bool       `json:"isActive"`
	StartDate              *time.Time `json:"startDate,omitempty"`
	EndDate                *time.Time `json:"endDate,omitempty"`
	MaxUsage               int        `json:"maxUsage"`
	RemainingUsage         int        `json:"remainingUsage"`
	NumberOfUsagePerUser   int        `json:"numberOfUsagePerUser"`
	IsPrivate              bool       `json:"isPrivate"`
	IsVerificationIdentity bool       `json:"isVerificationIdentity"`
	IsUserGroupRestricted  bool       `json:"isUserGroupRestricted"`
	UserGroups             []string   `json:"userGroups"`
	AllowedPaymentMethods  []string   `json:"allowedPaymentMethods"`
}

// Create inserts a new voucher.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	def, ok := h.decode(w, r, "")
	if !ok {
		return
	}
	rec, err := h.Svc.Create(r.Context(), def)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": NewView(rec)})
}

// Update replaces the definition of the voucher identified by code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code is required", nil)
		return
	}
	def, ok := h.decode(w, r, code)
	if !ok {
		return
	}
	rec, err := h.Svc.Update(r.Context(), def)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": NewView(rec)})
}

// Get returns a voucher by code.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Q == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher service not configured", nil)
		return
	}
	rec, err := h.Svc.Q.GetVoucherByCode(r.Context(), strings.TrimSpace(chi.URLParam(r, "code")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": NewView(rec)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, code string) (Definition, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "voucher service not configured", nil)
		return Definition{}, false
	}
	var payload voucherPayload
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return Definition{}, false
	}
	if code != "" {
		payload.Code = code
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid voucher", fieldErrors(err))
			return Definition{}, false
		}
	}
	return payload.definition(), true
}

func (p voucherPayload) definition() Definition {
	d := Definition{
		Code:                   p.Code,
		Kind:                   p.Kind,
		Value:                  p.Value,
		MinOrderValue:          p.MinOrderValue,
		Applicability:          pricing.ApplicabilityRule(p.Applicability),
		EligibleProductRefs:    p.EligibleProductRefs,
		IsActive:               true,
		MaxUsage:               p.MaxUsage,
		NumberOfUsagePerUser:   p.NumberOfUsagePerUser,
		IsPrivate:              p.IsPrivate,
		IsVerificationIdentity: p.IsVerificationIdentity,
		IsUserGroupRestricted:  p.IsUserGroupRestricted,
		UserGroups:             p.UserGroups,
		AllowedPaymentMethods:  p.AllowedPaymentMethods,
	}
	if p.IsActive != nil {
		d.IsActive = *p.IsActive
	}
	if p.StartDate != nil {
		d.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		d.EndDate = *p.EndDate
	}
	return d
}

// NewView converts a stored voucher into its API representation.
func NewView(rec Record) View {
	v := rec.Voucher
	view := View{
		ID:                     rec.ID.String(),
		Code:                   v.Code,
		MinOrderValue:          v.MinOrderValue,
		Applicability:          string(v.Applicability),
		EligibleProductRefs:    v.EligibleProductRefs,
		IsActive:               v.IsActive,
		MaxUsage:               v.MaxUsage,
		RemainingUsage:         v.RemainingUsage,
		NumberOfUsagePerUser:   v.NumberOfUsagePerUser,
		IsPrivate:              v.IsPrivate,
		IsVerificationIdentity: v.IsVerificationIdentity,
		IsUserGroupRestricted:  v.IsUserGroupRestricted,
		UserGroups:             v.UserGroups,
		AllowedPaymentMethods:  v.AllowedPaymentMethods,
	}
	switch k := v.Kind.(type) {
	case pricing.FixedValue:
		view.Kind, view.Value = k.Name(), decimal.NewFromInt(k.Amount).String()
	case pricing.PercentOrder:
		view.Kind, view.Value = k.Name(), k.Percent.String()
	case pricing.SamePriceProduct:
		view.Kind, view.Value = k.Name(), decimal.NewFromInt(k.Price).String()
	}
	if !v.StartDate.IsZero() {
		start := v.StartDate
		view.StartDate = &start
	}
	if !v.EndDate.IsZero() {
		end := v.EndDate
		view.EndDate = &end
	}
	return view
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "voucher not found", nil)
	case errors.Is(err, ErrInvalidDefinition):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		common.JSONError(w, http.StatusConflict, "CONFLICT", "voucher code already exists", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save voucher", nil)
	}
}

func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out[fe.Field()] = fe.Tag()
		}
	}
	return out
}
