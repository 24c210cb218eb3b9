package identity_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/accessgate/accessgate/internal/access"
	"github.com/accessgate/accessgate/internal/identity"
	"github.com/accessgate/accessgate/internal/roles"
	"github.com/accessgate/accessgate/internal/shared"
	_ "github.com/accessgate/accessgate/testing"
)

// ============================================================================
// FIXTURE
// ============================================================================

type memRepo struct {
	users       map[int64]*identity.User
	usersByMail map[string]*identity.User
	rolesByUser map[int64][]roles.Role
	nextID      int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:       make(map[int64]*identity.User),
		usersByMail: make(map[string]*identity.User),
		rolesByUser: make(map[int64][]roles.Role),
		nextID:      1,
	}
}

func (m *memRepo) CreateWithRole(ctx context.Context, user identity.User, role roles.Role) (identity.User, error) {
	if _, ok := m.usersByMail[user.Email]; ok {
		return identity.User{}, fmt.Errorf("email %s: %w", user.Email, shared.ErrConflict)
	}
	user.ID = m.nextID
	user.IsActive = true
	m.nextID++
	stored := user
	m.users[user.ID] = &stored
	m.usersByMail[user.Email] = &stored
	m.rolesByUser[user.ID] = []roles.Role{role}
	return user, nil
}

func (m *memRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	user, ok := m.usersByMail[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, shared.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (m *memRepo) FindByID(ctx context.Context, id int64) (*identity.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (m *memRepo) UpdateProfile(ctx context.Context, id int64, update identity.ProfileUpdate) (*identity.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	if update.MiddleName != nil {
		user.MiddleName = *update.MiddleName
	}
	copied := *user
	return &copied, nil
}

func (m *memRepo) Deactivate(ctx context.Context, id int64) error {
	user, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, shared.ErrNotFound)
	}
	user.IsActive = false
	return nil
}

// memPolicy backs every engine port with fixed in-memory data.
type memPolicy struct {
	repo *memRepo
	caps access.Capabilities
}

func (p memPolicy) ElementBySlug(ctx context.Context, slug string) (access.ElementRef, error) {
	if slug != identity.ElementSlug {
		return access.ElementRef{}, fmt.Errorf("element %s: %w", slug, shared.ErrNotFound)
	}
	return access.ElementRef{ID: 1, Slug: slug}, nil
}

func (p memPolicy) Grant(ctx context.Context, elementID int64, role roles.Role) (access.Capabilities, error) {
	if role != roles.User {
		return access.Capabilities{}, shared.ErrNotFound
	}
	return p.caps, nil
}

func (p memPolicy) RolesOf(ctx context.Context, userID int64) ([]roles.Role, error) {
	return p.repo.rolesByUser[userID], nil
}

type servicePrincipals struct {
	service *identity.Service
}

func (s servicePrincipals) PrincipalByID(ctx context.Context, id int64) (access.Principal, error) {
	user, err := s.service.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

type fixture struct {
	repo     *memRepo
	service  *identity.Service
	sessions *shared.SessionManager
	router   chi.Router
}

func newFixture(t *testing.T, caps access.Capabilities) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	repo := newMemRepo()
	service := identity.NewService(repo, sessionManager)
	policy := memPolicy{repo: repo, caps: caps}
	mw := access.Middleware{
		Engine:     access.NewEngine(policy, policy, policy),
		Principals: servicePrincipals{service: service},
	}
	handler := identity.NewHandler(nil, service, sessionManager, csrfManager, mw)

	router := chi.NewRouter()
	router.Route("/auth", handler.MountAuthRoutes)
	router.Route("/users", handler.MountUserRoutes)

	return &fixture{repo: repo, service: service, sessions: sessionManager, router: router}
}

// commitRecorder commits the session just before the first write, the way the
// app middleware does, so session cookies land in the recorder's header
// snapshot.
type commitRecorder struct {
	*httptest.ResponseRecorder
	sessions  *shared.SessionManager
	sess      *shared.Session
	ctx       context.Context
	req       *http.Request
	committed bool
	commitErr error
}

func (w *commitRecorder) WriteHeader(statusCode int) {
	if !w.committed {
		w.committed = true
		w.commitErr = w.sessions.Commit(w.ctx, w.ResponseRecorder, w.req, w.sess)
	}
	w.ResponseRecorder.WriteHeader(statusCode)
}

func (w *commitRecorder) Write(data []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseRecorder.Write(data)
}

// do runs a request through the router with a loaded session, committing the
// session the way the app middleware does.
func (f *fixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	w := &commitRecorder{ResponseRecorder: res, sessions: f.sessions, sess: sess, ctx: ctx, req: req}
	f.router.ServeHTTP(w, req)
	if !w.committed {
		w.commitErr = f.sessions.Commit(ctx, res, req, sess)
	}
	if w.commitErr != nil {
		t.Fatalf("commit session: %v", w.commitErr)
	}
	return res
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (f *fixture) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	res := f.do(t, jsonRequest(http.MethodPost, "/auth/login", body))
	if res.Code != http.StatusOK {
		t.Fatalf("login: expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	for _, cookie := range res.Result().Cookies() {
		if cookie.Name == f.sessions.CookieName() && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatalf("login: no session cookie issued")
	return nil
}

const signupBody = `{
	"email": "Alice@Test.Local",
	"password": "secret123",
	"password_confirm": "secret123",
	"first_name": "Alice",
	"last_name": "Smith"
}`

// ============================================================================
// AUTH ROUTES
// ============================================================================

func TestSignup(t *testing.T) {
	f := newFixture(t, access.Capabilities{})

	res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", signupBody))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", res.Code, res.Body.String())
	}

	var got map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["email"] != "alice@test.local" {
		t.Fatalf("expected normalized email, got %q", got["email"])
	}
	if got, want := f.repo.rolesByUser[1], []roles.Role{identity.DefaultRole}; len(got) != 1 || got[0] != want[0] {
		t.Fatalf("expected default role %s, got %v", want[0], got)
	}
}

func TestSignupPasswordMismatch(t *testing.T) {
	f := newFixture(t, access.Capabilities{})

	body := `{"email":"alice@test.local","password":"secret123","password_confirm":"different"}`
	res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", body))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t, access.Capabilities{})

	if res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", signupBody)); res.Code != http.StatusCreated {
		t.Fatalf("first signup: expected 201, got %d", res.Code)
	}
	res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", signupBody))
	if res.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", res.Code)
	}
}

func TestLoginIssuesSessionAndToken(t *testing.T) {
	f := newFixture(t, access.Capabilities{})
	if res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", signupBody)); res.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", res.Code)
	}

	body := `{"email":"alice@test.local","password":"secret123"}`
	res := f.do(t, jsonRequest(http.MethodPost, "/auth/login", body))
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}

	var got struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.CSRFToken == "" {
		t.Fatalf("expected a csrf token in login response")
	}
}

func TestLoginRotatesSessionCookie(t *testing.T) {
	f := newFixture(t, access.Capabilities{Retrieve: true})
	res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", signupBody))
	if res.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", res.Code)
	}
	var anon *http.Cookie
	for _, cookie := range res.Result().Cookies() {
		if cookie.Name == f.sessions.CookieName() && cookie.Value != "" {
			anon = cookie
		}
	}
	if anon == nil {
		t.Fatalf("expected an anonymous session cookie before login")
	}
	f.repo.rolesByUser[1] = []roles.Role{roles.User}

	// Logging in over the anonymous session must issue a fresh session id.
	body := `{"email":"alice@test.local","password":"secret123"}`
	loginReq := jsonRequest(http.MethodPost, "/auth/login", body)
	loginReq.AddCookie(anon)
	res = f.do(t, loginReq)
	if res.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var authed *http.Cookie
	for _, cookie := range res.Result().Cookies() {
		if cookie.Name == f.sessions.CookieName() && cookie.Value != "" {
			authed = cookie
		}
	}
	if authed == nil {
		t.Fatalf("login: no session cookie issued")
	}
	if authed.Value == anon.Value {
		t.Fatalf("expected login to rotate the session id")
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(authed)
	if res := f.do(t, req); res.Code != http.StatusOK {
		t.Fatalf("rotated session: expected 200, got %d", res.Code)
	}

	// The pre-login id must no longer reach the account.
	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(anon)
	if res := f.do(t, req); res.Code != http.StatusUnauthorized {
		t.Fatalf("stale session: expected 401, got %d", res.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t, access.Capabilities{})
	if res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", signupBody)); res.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", res.Code)
	}

	body := `{"email":"alice@test.local","password":"wrongpass"}`
	res := f.do(t, jsonRequest(http.MethodPost, "/auth/login", body))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	f := newFixture(t, access.Capabilities{})

	res := f.do(t, jsonRequest(http.MethodPost, "/auth/logout", ""))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

// ============================================================================
// PROFILE ROUTES
// ============================================================================

func TestProfileRequiresRetrieveGrant(t *testing.T) {
	// The user role has no retrieve capability here: /users/me must 403.
	f := newFixture(t, access.Capabilities{List: true})
	if res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", signupBody)); res.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", res.Code)
	}
	f.repo.rolesByUser[1] = []roles.Role{roles.User}
	cookie := f.login(t, "alice@test.local", "secret123")

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(cookie)
	res := f.do(t, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", res.Code)
	}
}

func TestProfileFlow(t *testing.T) {
	f := newFixture(t, access.Capabilities{Retrieve: true, PartialUpdate: true, Delete: true})
	if res := f.do(t, jsonRequest(http.MethodPost, "/auth/signup", signupBody)); res.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", res.Code)
	}
	f.repo.rolesByUser[1] = []roles.Role{roles.User}
	cookie := f.login(t, "alice@test.local", "secret123")

	// Retrieve.
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(cookie)
	res := f.do(t, req)
	if res.Code != http.StatusOK {
		t.Fatalf("get profile: expected 200, got %d: %s", res.Code, res.Body.String())
	}

	// Partial update.
	req = jsonRequest(http.MethodPatch, "/users/me", `{"last_name":"Jones"}`)
	req.AddCookie(cookie)
	res = f.do(t, req)
	if res.Code != http.StatusOK {
		t.Fatalf("patch profile: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var got map[string]string
	if err := json.Unmarshal(res.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["last_name"] != "Jones" || got["first_name"] != "Alice" {
		t.Fatalf("expected partial update to keep untouched fields, got %v", got)
	}

	// Soft delete.
	req = jsonRequest(http.MethodPost, "/users/me/delete", "")
	req.AddCookie(cookie)
	res = f.do(t, req)
	if res.Code != http.StatusOK {
		t.Fatalf("delete profile: expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if f.repo.users[1].IsActive {
		t.Fatalf("expected account to be deactivated")
	}

	// The old session no longer authenticates anything.
	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.AddCookie(cookie)
	res = f.do(t, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked session to 401, got %d", res.Code)
	}
}

func TestProfileWithoutLogin(t *testing.T) {
	f := newFixture(t, access.Capabilities{Retrieve: true})

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}
