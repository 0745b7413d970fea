package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/house-marketplace/internal/session"
	"github.com/oksasatya/house-marketplace/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRequestIDEchoesValidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	const id = "3f1c8f5e-8a0b-4a53-9c61-2b0b9a2d6a11"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != id || w.Body.String() != id {
		t.Fatalf("expected %s echoed, got header=%q body=%q", id, w.Header().Get(RequestIDHeader), w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got == "<script>" || got == "" {
		t.Fatalf("expected a generated id, got %q", got)
	}
}

func TestRealIPPrefersProxyHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, ipFromCtx(c)) })

	cases := []struct {
		header, value, want string
	}{
		{"CF-Connecting-IP", "203.0.113.7", "203.0.113.7"},
		{"X-Forwarded-For", "198.51.100.2, 10.0.0.1", "198.51.100.2"},
		{"X-Forwarded-For", "garbage", "192.0.2.1"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set(tc.header, tc.value)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Body.String() != tc.want {
			t.Fatalf("%s=%q: got %q want %q", tc.header, tc.value, w.Body.String(), tc.want)
		}
	}
}

func TestOptionalAuthSetsUserOnlyForLiveSession(t *testing.T) {
	jwt := helpers.NewJWTManager("a", "r", time.Minute, time.Hour)
	dir := session.NewDirectory(nil, "auth:state", nil)
	_ = dir.Publish(context.Background(), session.Event{Kind: session.SignedIn, User: session.User{ID: "u1", Name: "Jane", SessionID: "s1"}})

	r := gin.New()
	r.GET("/", OptionalAuth(dir, jwt), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		ctxUser, _ := session.FromContext(c.Request.Context())
		if ok && ctxUser.ID != u.ID {
			t.Errorf("request context user %q differs from %q", ctxUser.ID, u.ID)
		}
		c.String(http.StatusOK, u.Name)
	})

	get := func(sid string) string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if sid != "" {
			tok, _, _ := jwt.GenerateAccessToken("u1", sid)
			req.AddCookie(&http.Cookie{Name: helpers.AccessCookie, Value: tok})
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("optional auth blocked request: %d", w.Code)
		}
		return w.Body.String()
	}
	if got := get(""); got != "" {
		t.Fatalf("anonymous request got user %q", got)
	}
	if got := get("s1"); got != "Jane" {
		t.Fatalf("expected Jane, got %q", got)
	}

	_ = dir.Publish(context.Background(), session.Event{Kind: session.SignedOut, UserID: "u1"})
	if got := get("s1"); got != "" {
		t.Fatalf("signed-out session still resolved to %q", got)
	}
}

func TestRateLimitWithoutRedisPassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(nil, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusNoContent {
			t.Fatalf("request %d limited without redis: %d", i, w.Code)
		}
	}
}

func TestRemaining(t *testing.T) {
	if remaining(10, 3) != 7 || remaining(10, 10) != 0 || remaining(10, 12) != 0 {
		t.Fatal("unexpected remaining counts")
	}
}
