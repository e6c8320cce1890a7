package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dev-analyshd/main-albash-sub001/internal/common/api"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/database"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/middleware"
	"github.com/dev-analyshd/main-albash-sub001/internal/lifecycle"
	"github.com/dev-analyshd/main-albash-sub001/internal/verification"
)

// Handler handles verification HTTP requests
type Handler struct {
	service *verification.Service
}

// NewHandler creates a new verification handler
func NewHandler(service *verification.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the verification routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/applications", h.Submit)
	r.Get("/applications/{id}", h.Get)
	r.Post("/applications/{id}/resubmit", h.Resubmit)
	r.Get("/status", h.ProfileStatus)
	r.Get("/status/{userID}", h.ProfileStatus)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/applications", h.List)
		r.Post("/applications/{id}/review", h.StartReview)
		r.Post("/applications/{id}/approve", h.Approve)
		r.Post("/applications/{id}/reject", h.Reject)
		r.Post("/applications/{id}/request-changes", h.RequestChanges)
		r.Post("/status/{userID}/suspend", h.Suspend)
		r.Post("/status/{userID}/reinstate", h.Reinstate)
	})

	return r
}

// SubmitRequest is the API request to open an application.
type SubmitRequest struct {
	Kind    string            `json:"kind" validate:"required,oneof=seller mentor creator"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Submit handles POST /applications
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tenantID == "" || userID == "" {
		api.BadRequest(w, "tenant and user ID required")
		return
	}

	var req SubmitRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	app, err := h.service.Submit(r.Context(), tenantID, userID, req.Kind, req.Payload)
	if err != nil {
		var cooldown *verification.ErrCooldownActive
		if errors.As(err, &cooldown) {
			api.Conflict(w, cooldown.Error())
			return
		}
		api.BadRequest(w, err.Error())
		return
	}

	api.WriteData(w, http.StatusCreated, app)
}

// Get handles GET /applications/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	app, err := h.service.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		if database.IsNotFound(err) {
			api.NotFound(w, "application not found")
			return
		}
		api.InternalError(w, "failed to load application")
		return
	}

	// Applicants may only read their own applications.
	if !middleware.IsAdmin(r.Context()) && app.UserID != middleware.GetUserID(r.Context()) {
		api.NotFound(w, "application not found")
		return
	}

	api.WriteData(w, http.StatusOK, app)
}

// List handles GET /applications (admin)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	params := api.GetPaginationParams(r, 20, 100)
	filter := verification.ListFilter{
		Status: r.URL.Query().Get("status"),
		Kind:   r.URL.Query().Get("kind"),
		UserID: r.URL.Query().Get("user_id"),
		Limit:  params.Limit,
		Offset: params.Offset,
	}

	apps, total, err := h.service.List(r.Context(), tenantID, filter)
	if err != nil {
		api.InternalError(w, "failed to list applications")
		return
	}

	api.WritePaginated(w, apps, &api.Pagination{
		Limit:   params.Limit,
		Offset:  params.Offset,
		Total:   int64(total),
		HasMore: params.Offset+len(apps) < total,
	})
}

// ResubmitRequest carries the refreshed payload.
type ResubmitRequest struct {
	Payload map[string]string `json:"payload,omitempty"`
}

// Resubmit handles POST /applications/{id}/resubmit
func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	userID := middleware.GetUserID(r.Context())
	if tenantID == "" || userID == "" {
		api.BadRequest(w, "tenant and user ID required")
		return
	}

	var req ResubmitRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	app, err := h.service.Resubmit(r.Context(), tenantID, chi.URLParam(r, "id"), userID, req.Payload)
	if err != nil {
		writeVerificationError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, app)
}

// ReviewRequest is the reviewer note attached to a decision.
type ReviewRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// StartReview handles POST /applications/{id}/review
func (h *Handler) StartReview(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(ctx context.Context, tenantID, appID, reviewerID, _ string) (*verification.Application, error) {
		return h.service.StartReview(ctx, tenantID, appID, reviewerID)
	})
}

// Approve handles POST /applications/{id}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// Reject handles POST /applications/{id}/reject
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

// RequestChanges handles POST /applications/{id}/request-changes
func (h *Handler) RequestChanges(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.RequestChanges)
}

// ProfileStatus handles GET /status and GET /status/{userID}
func (h *Handler) ProfileStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		userID = middleware.GetUserID(r.Context())
	}
	if userID == "" {
		api.BadRequest(w, "user ID required")
		return
	}

	ps, err := h.service.ProfileStatus(r.Context(), tenantID, userID)
	if err != nil {
		api.InternalError(w, "failed to load verification status")
		return
	}

	api.WriteData(w, http.StatusOK, ps)
}

// Suspend handles POST /status/{userID}/suspend
func (h *Handler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.moveProfile(w, r, h.service.Suspend)
}

// Reinstate handles POST /status/{userID}/reinstate
func (h *Handler) Reinstate(w http.ResponseWriter, r *http.Request) {
	h.moveProfile(w, r, h.service.Reinstate)
}

type decideFunc func(ctx context.Context, tenantID, appID, reviewerID, note string) (*verification.Application, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn decideFunc) {
	tenantID := middleware.GetTenantID(r.Context())
	reviewerID := middleware.GetUserID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	var req ReviewRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	app, err := fn(r.Context(), tenantID, chi.URLParam(r, "id"), reviewerID, req.Note)
	if err != nil {
		writeVerificationError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, app)
}

func (h *Handler) moveProfile(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, tenantID, userID, adminID, note string) (*verification.ProfileStatus, error)) {
	tenantID := middleware.GetTenantID(r.Context())
	adminID := middleware.GetUserID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	var req ReviewRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	ps, err := fn(r.Context(), tenantID, chi.URLParam(r, "userID"), adminID, req.Note)
	if err != nil {
		writeVerificationError(w, err)
		return
	}

	api.WriteData(w, http.StatusOK, ps)
}

func writeVerificationError(w http.ResponseWriter, err error) {
	var transitionErr *lifecycle.TransitionError
	switch {
	case database.IsNotFound(err):
		api.NotFound(w, "not found")
	case errors.As(err, &transitionErr):
		api.WriteError(w, http.StatusConflict, api.ErrCodeInvalidTransition, transitionErr.Error())
	default:
		api.BadRequest(w, err.Error())
	}
}
