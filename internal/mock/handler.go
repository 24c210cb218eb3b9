// Package mock exposes a demo resource for exercising the permission matrix
// end to end without a real business module.
package mock

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accessgate/accessgate/internal/access"
	"github.com/accessgate/accessgate/internal/platform/httpx"
)

// ElementSlug names the catalog entry guarding the demo endpoint.
const ElementSlug = "mock"

// Handler serves the demo resource.
type Handler struct {
	access access.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(access access.Middleware) *Handler {
	return &Handler{access: access}
}

// MountRoutes registers the demo route for every verb the matrix covers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.access.RequireForMethod(ElementSlug))
		r.Get("/", h.serve)
		r.Post("/", h.serve)
		r.Put("/", h.serve)
		r.Patch("/", h.serve)
		r.Delete("/", h.serve)
	})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"objects": []string{"obj1", "obj2", "obj3"},
	})
}
