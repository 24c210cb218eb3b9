package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/accessgate/accessgate/internal/access"
	"github.com/accessgate/accessgate/internal/platform/httpx"
)

// adminElementSlug names the catalog entry guarding catalog management itself.
const adminElementSlug = "permissions-admin"

// Handler manages catalog management endpoints.
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

// MountRoutes registers catalog routes. All of them are admin-gated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.access.RequireAdmin(adminElementSlug))
		r.Get("/", h.listElements)
		r.Post("/", h.createElement)
		r.Get("/{slug}", h.showElement)
		r.Patch("/{slug}", h.updateElement)
		r.Delete("/{slug}", h.deleteElement)
	})
}

type elementRequest struct {
	Name string `json:"name" validate:"required,max=150"`
	Slug string `json:"slug" validate:"required,max=150"`
}

type elementPatchRequest struct {
	Name string `json:"name" validate:"max=150"`
	Slug string `json:"slug" validate:"max=150"`
}

type elementResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func toElementResponse(e Element) elementResponse {
	return elementResponse{Name: e.Name, Slug: e.Slug}
}

func (h *Handler) listElements(w http.ResponseWriter, r *http.Request) {
	elems, err := h.service.List(r.Context(), ElementListFilters{Search: r.URL.Query().Get("search")})
	if err != nil {
		h.logger.Error("list elements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]elementResponse, 0, len(elems))
	for _, e := range elems {
		out = append(out, toElementResponse(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createElement(w http.ResponseWriter, r *http.Request) {
	var req elementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	elem, err := h.service.Create(r.Context(), req.Name, req.Slug)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toElementResponse(elem))
}

func (h *Handler) showElement(w http.ResponseWriter, r *http.Request) {
	elem, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toElementResponse(elem))
}

func (h *Handler) updateElement(w http.ResponseWriter, r *http.Request) {
	var req elementPatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	elem, err := h.service.Update(r.Context(), chi.URLParam(r, "slug"), req.Name, req.Slug)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toElementResponse(elem))
}

func (h *Handler) deleteElement(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
