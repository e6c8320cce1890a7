package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/api"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/middleware"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/money"
	"github.com/dev-analyshd/main-albash-sub001/internal/lifecycle"
	"github.com/dev-analyshd/main-albash-sub001/internal/swaps"
)

// Handler handles swap HTTP requests
type Handler struct {
	service *swaps.Service
}

// NewHandler creates a new swaps handler
func NewHandler(service *swaps.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the swap routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Propose)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/confirm", h.Confirm)
	r.Post("/{id}/dispute", h.Dispute)

	r.With(middleware.RequireAdmin).Post("/{id}/resolve", h.Resolve)

	return r
}

// ProposeRequest is the API request to open a swap proposal.
type ProposeRequest struct {
	ResponderID        string `json:"responder_id" validate:"required"`
	OfferedListingID   string `json:"offered_listing_id" validate:"required"`
	RequestedListingID string `json:"requested_listing_id" validate:"required"`
	CashTopUpMinor     int64  `json:"cash_top_up_minor" validate:"gte=0"`
	Currency           string `json:"currency" validate:"omitempty,len=3"`
	IdempotencyKey     string `json:"idempotency_key" validate:"required,max=64"`
}

// Propose handles POST /
func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tenantID == "" || userID == "" {
		api.BadRequest(w, "tenant and user ID required")
		return
	}

	var req ProposeRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	currency := money.Currency(req.Currency)
	if currency == "" {
		currency = money.NGN
	}

	swap, err := h.service.Propose(r.Context(), swaps.ProposeRequest{
		TenantID:           tenantID,
		ProposerID:         userID,
		ResponderID:        req.ResponderID,
		OfferedListingID:   req.OfferedListingID,
		RequestedListingID: req.RequestedListingID,
		CashTopUp:          money.New(req.CashTopUpMinor, currency),
		IdempotencyKey:     req.IdempotencyKey,
	})
	if err != nil {
		api.BadRequest(w, err.Error())
		return
	}

	api.WriteData(w, http.StatusCreated, swap)
}

// List handles GET /
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	params := api.GetPaginationParams(r, 20, 100)
	filter := swaps.ListFilter{
		Status: r.URL.Query().Get("status"),
		UserID: r.URL.Query().Get("user_id"),
		Limit:  params.Limit,
		Offset: params.Offset,
	}

	// Non-admins only see their own swaps.
	if !middleware.IsAdmin(r.Context()) {
		filter.UserID = middleware.GetUserID(r.Context())
	}

	list, total, err := h.service.List(r.Context(), tenantID, filter)
	if err != nil {
		api.InternalError(w, "failed to list swaps")
		return
	}

	api.WritePaginated(w, list, &api.Pagination{
		Limit:   params.Limit,
		Offset:  params.Offset,
		Total:   int64(total),
		HasMore: params.Offset+len(list) < total,
	})
}

// Get handles GET /{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	swap, err := h.service.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		if database.IsNotFound(err) {
			api.NotFound(w, "swap not found")
			return
		}
		api.InternalError(w, "failed to load swap")
		return
	}

	api.WriteData(w, http.StatusOK, swap)
}

// Accept handles POST /{id}/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Accept)
}

// Reject handles POST /{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Reject)
}

// Cancel handles POST /{id}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Cancel)
}

// Confirm handles POST /{id}/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.service.Confirm)
}

// DisputeRequest is the API request to open a dispute.
type DisputeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Dispute handles POST /{id}/dispute
func (h *Handler) Dispute(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tenantID == "" || userID == "" {
		api.BadRequest(w, "tenant and user ID required")
		return
	}

	var req DisputeRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	swap, err := h.service.Dispute(r.Context(), tenantID, chi.URLParam(r, "id"), userID, req.Reason)
	if err != nil {
		writeSwapError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, swap)
}

// ResolveRequest is the admin decision on a disputed swap.
type ResolveRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=complete refund"`
	Note    string `json:"note" validate:"max=500"`
}

// Resolve handles POST /{id}/resolve
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	adminID := middleware.GetUserID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	var req ResolveRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	swap, err := h.service.Resolve(r.Context(), tenantID, chi.URLParam(r, "id"), adminID, req.Note, req.Outcome == "refund")
	if err != nil {
		writeSwapError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, swap)
}

// act runs a bodyless participant action against a swap.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, tenantID, swapID, userID string) (*swaps.Swap, error)) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tenantID == "" || userID == "" {
		api.BadRequest(w, "tenant and user ID required")
		return
	}

	swap, err := fn(r.Context(), tenantID, chi.URLParam(r, "id"), userID)
	if err != nil {
		writeSwapError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, swap)
}

func writeSwapError(w http.ResponseWriter, err error) {
	var transitionErr *lifecycle.TransitionError
	switch {
	case database.IsNotFound(err):
		api.NotFound(w, "swap not found")
	case errors.As(err, &transitionErr):
		api.WriteError(w, http.StatusConflict, api.ErrCodeInvalidTransition, transitionErr.Error())
	case errors.Is(err, swaps.ErrNotParticipant):
		api.Forbidden(w, err.Error())
	default:
		api.InternalError(w, "swap action failed")
	}
}
