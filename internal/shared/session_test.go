package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func commitAndCookie(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := sm.Commit(context.Background(), res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	cookies := res.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected a session cookie")
	}
	return cookies[0]
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.Set("csrf", "token123")
	sess.SetUser(42)
	cookie := commitAndCookie(t, sm, sess)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	reloaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.User() != 42 {
		t.Fatalf("expected user 42, got %d", reloaded.User())
	}
	if reloaded.Get("csrf") != "token123" {
		t.Fatalf("expected stored value to survive the round trip")
	}
}

func TestSessionRotateIssuesFreshID(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.Set("csrf", "token123")
	before := commitAndCookie(t, sm, sess)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(before)
	reloaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	reloaded.Rotate()
	reloaded.SetUser(42)
	after := commitAndCookie(t, sm, reloaded)
	if after.Value == before.Value {
		t.Fatalf("expected a new session id after rotation")
	}

	// The pre-rotation id must be dead: presenting it yields an anonymous
	// session.
	old := httptest.NewRequest(http.MethodGet, "/", nil)
	old.AddCookie(before)
	stale, err := sm.Load(context.Background(), old)
	if err != nil {
		t.Fatalf("load stale session: %v", err)
	}
	if stale.User() != 0 {
		t.Fatalf("expected the old session id to be revoked, got user %d", stale.User())
	}

	fresh := httptest.NewRequest(http.MethodGet, "/", nil)
	fresh.AddCookie(after)
	current, err := sm.Load(context.Background(), fresh)
	if err != nil {
		t.Fatalf("load rotated session: %v", err)
	}
	if current.User() != 42 {
		t.Fatalf("expected user 42 on the rotated session, got %d", current.User())
	}
	if current.Get("csrf") != "token123" {
		t.Fatalf("expected values to survive rotation")
	}
}

func TestSessionDestroy(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser(42)
	cookie := commitAndCookie(t, sm, sess)

	sm.Destroy(sess)
	expired := commitAndCookie(t, sm, sess)
	if expired.MaxAge != -1 {
		t.Fatalf("expected expiring cookie, got MaxAge=%d", expired.MaxAge)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	reloaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.User() != 0 {
		t.Fatalf("expected anonymous session after destroy, got user %d", reloaded.User())
	}
}

func TestRevokeAllDropsEverySession(t *testing.T) {
	sm := newTestManager(t)

	var cookies []*http.Cookie
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		sess, err := sm.Load(context.Background(), req)
		if err != nil {
			t.Fatalf("load session: %v", err)
		}
		sess.SetUser(42)
		cookies = append(cookies, commitAndCookie(t, sm, sess))
	}

	if err := sm.RevokeAll(context.Background(), 42); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	for i, cookie := range cookies {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		sess, err := sm.Load(context.Background(), req)
		if err != nil {
			t.Fatalf("reload session %d: %v", i, err)
		}
		if sess.User() != 0 {
			t.Fatalf("expected session %d to be revoked, got user %d", i, sess.User())
		}
	}
}

func TestRevokeAllLeavesOtherUsers(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser(7)
	cookie := commitAndCookie(t, sm, sess)

	if err := sm.RevokeAll(context.Background(), 42); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	reloaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if reloaded.User() != 7 {
		t.Fatalf("expected user 7 to keep their session, got %d", reloaded.User())
	}
}
