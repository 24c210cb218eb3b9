package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/accessgate/accessgate/internal/platform/httpx"
	"github.com/accessgate/accessgate/internal/shared"
)

// PrincipalSource loads the principal behind a session user ID.
type PrincipalSource interface {
	PrincipalByID(ctx context.Context, id int64) (Principal, error)
}

// DecisionObserver counts evaluated decisions, e.g. for Prometheus.
type DecisionObserver interface {
	ObserveDecision(element string, allowed bool)
}

// Middleware wires the decision engine in front of HTTP handlers.
type Middleware struct {
	Engine     *Engine
	Principals PrincipalSource
	Logger     *slog.Logger
	Observer   DecisionObserver
}

// Require gates a route on one fixed (element, operation) pair.
func (m Middleware) Require(slug string, op Operation) func(http.Handler) http.Handler {
	return m.gate(slug, func(r *http.Request) (Operation, error) {
		return op, nil
	}, m.Engine.Decide)
}

// RequireForMethod gates a route, deriving the operation from the HTTP verb.
// GET resolves to retrieve when the route carries an id or slug parameter,
// list otherwise.
func (m Middleware) RequireForMethod(slug string) func(http.Handler) http.Handler {
	return m.gate(slug, operationFromRequest, m.Engine.Decide)
}

// RequireAdmin gates a route on the admin role's grants for the element, with
// the system-administrator override. Used for the management surfaces of the
// catalog and the grant matrix.
func (m Middleware) RequireAdmin(slug string) func(http.Handler) http.Handler {
	return m.gate(slug, operationFromRequest, m.Engine.DecideAdmin)
}

type decideFunc func(ctx context.Context, p Principal, slug string, op Operation) (Decision, error)

func (m Middleware) gate(slug string, opFor func(*http.Request) (Operation, error), decide decideFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, err := opFor(r)
			if err != nil {
				httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", err.Error())
				return
			}

			principal, ok := m.currentPrincipal(r)
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}

			decision, err := decide(r.Context(), principal, slug, op)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					httpx.RespondError(w, err)
					return
				}
				if m.Logger != nil {
					m.Logger.Error("access decision", slog.String("element", slug), slog.String("operation", string(op)), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if m.Observer != nil {
				m.Observer.ObserveDecision(slug, decision.Allow)
			}
			if !decision.Allow {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentPrincipal(r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		return nil, false
	}
	principal, err := m.Principals.PrincipalByID(r.Context(), sess.User())
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && m.Logger != nil {
			m.Logger.Error("load principal", slog.Int64("user_id", sess.User()), slog.Any("error", err))
		}
		return nil, false
	}
	return principal, true
}

func operationFromRequest(r *http.Request) (Operation, error) {
	item := chi.URLParam(r, "id") != "" || chi.URLParam(r, "slug") != ""
	return OperationForMethod(r.Method, item)
}
