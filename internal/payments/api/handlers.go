package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/api"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/middleware"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
	"github.com/dev-analyshd/main-albash-sub001/internal/payments"
)

// Handler handles payments HTTP requests
type Handler struct {
	service *payments.Service
}

// NewHandler creates a new payments handler
func NewHandler(service *payments.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the payments routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/fees/quote", h.QuoteFee)
	r.Post("/validate", h.ValidateInstruments)

	r.Post("/methods", h.AddMethod)
	r.Get("/methods", h.ListMethods)
	r.Delete("/methods/{id}", h.RemoveMethod)
	r.Post("/methods/{id}/default", h.SetDefaultMethod)

	return r
}

// QuoteFeeRequest is the API request for a fee quote.
type QuoteFeeRequest struct {
	AmountMinor int64  `json:"amount_minor" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Method      string `json:"method" validate:"required"`
}

// QuoteFeeResponse is the fee quote with display strings.
type QuoteFeeResponse struct {
	Quote          payments.Quote `json:"quote"`
	FormattedFee   string         `json:"formatted_fee"`
	FormattedTotal string         `json:"formatted_total"`
}

// QuoteFee handles POST /fees/quote
func (h *Handler) QuoteFee(w http.ResponseWriter, r *http.Request) {
	var req QuoteFeeRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	method, err := payments.ParseMethod(req.Method)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrCodeUnknownMethod, err.Error())
		return
	}

	amount := money.New(req.AmountMinor, money.Currency(req.Currency))
	quote, err := h.service.QuoteFee(r.Context(), amount, method)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidAmount) {
			api.BadRequest(w, err.Error())
			return
		}
		api.InternalError(w, "failed to compute fee quote")
		return
	}

	api.WriteData(w, http.StatusOK, QuoteFeeResponse{
		Quote:          quote,
		FormattedFee:   quote.Fee.Format(),
		FormattedTotal: quote.Total.Format(),
	})
}

// ValidateRequest is a batch of instruments to validate for form
// feedback. Every check degrades to false; this endpoint never fails
// on malformed input.
type ValidateRequest struct {
	CardNumber        string `json:"card_number,omitempty"`
	BankAccountNumber string `json:"bank_account_number,omitempty"`
	IBAN              string `json:"iban,omitempty"`
	CryptoAddress     string `json:"crypto_address,omitempty"`
	CryptoChain       string `json:"crypto_chain,omitempty"`
}

// ValidateResponse reports per-field validity; only requested fields
// are present.
type ValidateResponse struct {
	CardNumber        *bool  `json:"card_number,omitempty"`
	CardType          string `json:"card_type,omitempty"`
	BankAccountNumber *bool  `json:"bank_account_number,omitempty"`
	IBAN              *bool  `json:"iban,omitempty"`
	CryptoAddress     *bool  `json:"crypto_address,omitempty"`
}

// ValidateInstruments handles POST /validate
func (h *Handler) ValidateInstruments(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	var resp ValidateResponse
	if req.CardNumber != "" {
		ok := payments.ValidateCardNumber(req.CardNumber)
		resp.CardNumber = &ok
		if ok {
			resp.CardType = string(payments.DetectCardType(req.CardNumber))
		}
	}
	if req.BankAccountNumber != "" {
		ok := payments.ValidateBankAccountNumber(req.BankAccountNumber)
		resp.BankAccountNumber = &ok
	}
	if req.IBAN != "" {
		ok := payments.ValidateIBAN(req.IBAN)
		resp.IBAN = &ok
	}
	if req.CryptoAddress != "" {
		chain := payments.Chain(req.CryptoChain)
		if chain == "" {
			chain = payments.ChainEthereum
		}
		ok := payments.ValidateCryptoAddress(req.CryptoAddress, chain)
		resp.CryptoAddress = &ok
	}

	api.WriteData(w, http.StatusOK, resp)
}

// AddMethodRequest is the API request to store a payment method.
type AddMethodRequest struct {
	Kind        string            `json:"kind" validate:"required,oneof=card bank crypto_wallet"`
	Label       string            `json:"label" validate:"max=100"`
	Instrument  string            `json:"instrument" validate:"required"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	MakeDefault bool              `json:"make_default"`
}

// AddMethod handles POST /methods
func (h *Handler) AddMethod(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tenantID == "" || userID == "" {
		api.BadRequest(w, "tenant and user ID required")
		return
	}

	var req AddMethodRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	method, err := h.service.AddMethod(r.Context(), payments.AddMethodRequest{
		TenantID:    tenantID,
		UserID:      userID,
		Kind:        payments.Kind(req.Kind),
		Label:       req.Label,
		Instrument:  req.Instrument,
		Metadata:    req.Metadata,
		MakeDefault: req.MakeDefault,
	})
	if err != nil {
		if errors.Is(err, payments.ErrInvalidInstrument) {
			api.WriteError(w, http.StatusUnprocessableEntity, api.ErrCodeValidation, err.Error())
			return
		}
		api.InternalError(w, "failed to add payment method")
		return
	}

	api.WriteData(w, http.StatusCreated, method)
}

// ListMethods handles GET /methods
func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tenantID == "" || userID == "" {
		api.BadRequest(w, "tenant and user ID required")
		return
	}

	methods, err := h.service.ListMethods(r.Context(), tenantID, userID)
	if err != nil {
		api.InternalError(w, "failed to list payment methods")
		return
	}

	api.WriteData(w, http.StatusOK, methods)
}

// SetDefaultMethod handles POST /methods/{id}/default
func (h *Handler) SetDefaultMethod(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tenantID == "" || userID == "" {
		api.BadRequest(w, "tenant and user ID required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.SetDefaultMethod(r.Context(), tenantID, userID, id); err != nil {
		if database.IsNotFound(err) {
			api.NotFound(w, "payment method not found")
			return
		}
		api.InternalError(w, "failed to set default payment method")
		return
	}

	api.WriteData(w, http.StatusOK, map[string]string{"status": "default_updated"})
}

// RemoveMethod handles DELETE /methods/{id}
func (h *Handler) RemoveMethod(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.RemoveMethod(r.Context(), tenantID, id); err != nil {
		if database.IsNotFound(err) {
			api.NotFound(w, "payment method not found")
			return
		}
		api.InternalError(w, "failed to remove payment method")
		return
	}

	api.WriteData(w, http.StatusOK, map[string]string{"status": "removed"})
}
