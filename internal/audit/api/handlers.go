package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dev-analyshd/main-albash-sub001/internal/audit"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/api"
	"github.com/dev-analyshd/main-albash-sub001/internal/common/middleware"
)

// Handler exposes read access to the audit log. All routes are
// admin only.
type Handler struct {
	store audit.Store
}

// NewHandler creates a new audit handler
func NewHandler(store audit.Store) *Handler {
	return &Handler{store: store}
}

// Routes returns the audit routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireAdmin)

	r.Get("/entities/{entityType}/{entityID}", h.ListByEntity)
	r.Get("/actors/{actorID}", h.ListByActor)

	return r
}

// ListByEntity handles GET /entities/{entityType}/{entityID}
func (h *Handler) ListByEntity(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	params := api.GetPaginationParams(r, 50, 200)
	entries, total, err := h.store.ListByEntity(r.Context(), tenantID,
		chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"),
		params.Limit, params.Offset,
	)
	if err != nil {
		api.InternalError(w, "failed to list audit entries")
		return
	}

	api.WritePaginated(w, entries, &api.Pagination{
		Limit:   params.Limit,
		Offset:  params.Offset,
		Total:   total,
		HasMore: int64(params.Offset+len(entries)) < total,
	})
}

// ListByActor handles GET /actors/{actorID}
func (h *Handler) ListByActor(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())
	if tenantID == "" {
		api.BadRequest(w, "tenant ID required")
		return
	}

	params := api.GetPaginationParams(r, 50, 200)
	entries, total, err := h.store.ListByActor(r.Context(), tenantID,
		chi.URLParam(r, "actorID"), params.Limit, params.Offset,
	)
	if err != nil {
		api.InternalError(w, "failed to list audit entries")
		return
	}

	api.WritePaginated(w, entries, &api.Pagination{
		Limit:   params.Limit,
		Offset:  params.Offset,
		Total:   total,
		HasMore: int64(params.Offset+len(entries)) < total,
	})
}
