package grants

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accessgate/accessgate/internal/access"
	"github.com/accessgate/accessgate/internal/platform/httpx"
	"github.com/accessgate/accessgate/internal/roles"
)

// adminElementSlug names the catalog entry guarding grant management.
const adminElementSlug = "permissions-admin"

// Handler manages permission grant endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	access    access.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, access access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, access: access, validator: validator.New()}
}

// MountRoutes registers grant routes. All of them are admin-gated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.access.RequireAdmin(adminElementSlug))
		r.Get("/", h.listGrants)
		r.Post("/", h.createGrant)
		r.Get("/{id}", h.showGrant)
		r.Patch("/{id}", h.updateGrant)
		r.Delete("/{id}", h.deleteGrant)
	})
}

type grantRequest struct {
	BusinessElement string       `json:"business_element" validate:"required"`
	Role            string       `json:"role" validate:"required"`
	Capabilities    Capabilities `json:"capabilities"`
}

type grantPatchRequest struct {
	Capabilities Capabilities `json:"capabilities"`
}

type grantResponse struct {
	ID              int64        `json:"id"`
	BusinessElement string       `json:"business_element"`
	Role            string       `json:"role"`
	Capabilities    Capabilities `json:"capabilities"`
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		ID:              g.ID,
		BusinessElement: g.ElementSlug,
		Role:            string(g.Role),
		Capabilities:    g.Capabilities,
	}
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	filters := GrantListFilters{ElementSlug: r.URL.Query().Get("business_element")}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := roles.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		filters.Role = role
	}
	list, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list grants", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]grantResponse, 0, len(list))
	for _, g := range list {
		out = append(out, toGrantResponse(g))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := roles.Parse(req.Role)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	grant, err := h.service.Create(r.Context(), req.BusinessElement, role, req.Capabilities)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toGrantResponse(grant))
}

func (h *Handler) showGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.grantID(w, r)
	if !ok {
		return
	}
	grant, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toGrantResponse(grant))
}

func (h *Handler) updateGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.grantID(w, r)
	if !ok {
		return
	}
	var req grantPatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	grant, err := h.service.Update(r.Context(), id, req.Capabilities)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toGrantResponse(grant))
}

func (h *Handler) deleteGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.grantID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) grantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid grant id")
		return 0, false
	}
	return id, true
}
