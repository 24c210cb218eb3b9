package assignments

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

// usersElementSlug names the catalog entry guarding role administration.
const usersElementSlug = "users"

// Handler manages role assignment endpoints.
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

// MountRoutes registers assignment routes. All of them are admin-gated.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.access.RequireAdmin(usersElementSlug))
		r.Get("/", h.listAssignments)
		r.Post("/", h.createAssignment)
		r.Get("/{id}", h.showAssignment)
		r.Delete("/{id}", h.deleteAssignment)
	})
}

type assignmentRequest struct {
	User string `json:"user" validate:"required,email"`
	Role string `json:"role" validate:"required"`
}

type assignmentResponse struct {
	RoleID int64  `json:"role_id"`
	UserID int64  `json:"user_id"`
	User   string `json:"user"`
	Role   string `json:"role"`
}

func toAssignmentResponse(a Assignment) assignmentResponse {
	return assignmentResponse{RoleID: a.ID, UserID: a.UserID, User: a.UserEmail, Role: string(a.Role)}
}

type paginationResponse struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("per_page"))
	list, pagination, err := h.service.List(r.Context(), AssignmentListFilters{
		Search:  query.Get("search"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]assignmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAssignmentResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"results": out,
		"pagination": paginationResponse{
			Page:       pagination.Page,
			PerPage:    pagination.PerPage,
			Total:      pagination.Total,
			TotalPages: pagination.TotalPages,
		},
	})
}

func (h *Handler) createAssignment(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
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
	assignment, err := h.service.Assign(r.Context(), req.User, role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAssignmentResponse(assignment))
}

func (h *Handler) showAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}
	assignment, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAssignmentResponse(assignment))
}

func (h *Handler) deleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.assignmentID(w, r)
	if !ok {
		return
	}
	if err := h.service.Revoke(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) assignmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid assignment id")
		return 0, false
	}
	return id, true
}
