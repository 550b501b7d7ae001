package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/web/session"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Access
	}{
		{"/", Public},
		{"/teachings", Public},
		{"/teachings/awakening", Public},
		{"/dashboard", Authenticated},
		{"/dashboard/user", Authenticated},
		{"/dashboard/user/calendar", Authenticated},
		{"/dashboard/admin", AdminOnly},
		{"/dashboard/admin/audit", AdminOnly},
		{"/dashboards", Public},
		{"/account", Authenticated},
		{"/account/profile", Authenticated},
		{"/accounts", Public},
		{"/login", GuestOnly},
		{"/login/", GuestOnly},
		{"/signup", GuestOnly},
		{"/forgot-password", GuestOnly},
		{"/loginx", Public},
	}
	for _, tc := range tests {
		if got := Classify(DefaultRules, tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestClassifyLongestPrefixWins(t *testing.T) {
	rules := []Rule{
		{Prefix: "/a", Access: Authenticated},
		{Prefix: "/a/b/c", Access: AdminOnly},
		{Prefix: "/a/b", Access: GuestOnly},
	}
	tests := []struct {
		path string
		want Access
	}{
		{"/a", Authenticated},
		{"/a/x", Authenticated},
		{"/a/b", GuestOnly},
		{"/a/b/x", GuestOnly},
		{"/a/b/c", AdminOnly},
		{"/a/b/c/d", AdminOnly},
	}
	for _, tc := range tests {
		if got := Classify(rules, tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

// Post-login redirects must stay on this site and away from guest-only
// pages.
func TestSafeCallback(t *testing.T) {
	tests := []struct {
		cb   string
		want bool
	}{
		{"/dashboard/user", true},
		{"/teachings/stillness", true},
		{"/", true},
		{"", false},
		{"/login", false},
		{"/signup", false},
		{"https://evil.example/", false},
		{"http://evil.example/dashboard", false},
		{"//evil.example/", false},
		{"/\\evil.example/", false},
		{"javascript:alert(1)", false},
		{"dashboard/user", false},
	}
	for _, tc := range tests {
		if got := SafeCallback(DefaultRules, tc.cb); got != tc.want {
			t.Errorf("SafeCallback(%q) = %v, want %v", tc.cb, got, tc.want)
		}
	}
}

func newGateEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	engine.Use(sessions.Sessions("sy-portal", store))
	engine.Use(AuthGate(DefaultRules))

	engine.POST("/test/loginAs", func(c *gin.Context) {
		p := &model.Principal{
			Id:    1,
			Email: "t@example.org",
			Role:  model.ParseRole(c.Query("role")),
			Tier:  model.TierFree,
		}
		if err := session.SetPrincipal(c, p); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	for _, path := range []string{"/", "/teachings", "/login", "/dashboard/user", "/dashboard/admin"} {
		engine.GET(path, func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
	}
	return engine
}

// loginCookies obtains a session cookie carrying a principal of the
// given role.
func loginCookies(t *testing.T, engine *gin.Engine, role string) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test/loginAs?role="+role, nil)
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("loginAs returned %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie set")
	}
	return cookies
}

func doGet(engine *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthGateAnonymous(t *testing.T) {
	engine := newGateEngine(t)

	tests := []struct {
		path         string
		wantStatus   int
		wantRedirect string
	}{
		{"/", http.StatusOK, ""},
		{"/teachings", http.StatusOK, ""},
		{"/login", http.StatusOK, ""},
		{"/dashboard/user", http.StatusFound, "/login?callback=%2Fdashboard%2Fuser"},
		{"/dashboard/admin", http.StatusFound, "/login?callback=%2Fdashboard%2Fadmin"},
	}
	for _, tc := range tests {
		w := doGet(engine, tc.path, nil)
		if w.Code != tc.wantStatus {
			t.Errorf("GET %s status = %d, want %d", tc.path, w.Code, tc.wantStatus)
		}
		if tc.wantRedirect != "" {
			if loc := w.Header().Get("Location"); loc != tc.wantRedirect {
				t.Errorf("GET %s redirect = %q, want %q", tc.path, loc, tc.wantRedirect)
			}
		}
	}
}

func TestAuthGateUser(t *testing.T) {
	engine := newGateEngine(t)
	cookies := loginCookies(t, engine, "user")

	if w := doGet(engine, "/dashboard/user", cookies); w.Code != http.StatusOK {
		t.Errorf("user on /dashboard/user: status %d, want 200", w.Code)
	}

	// Authenticated but not authorized: bounced to own landing page.
	w := doGet(engine, "/dashboard/admin", cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("user on /dashboard/admin: status %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != UserLandingPath {
		t.Errorf("user on /dashboard/admin redirected to %q, want %q", loc, UserLandingPath)
	}

	// Guest-only pages push logged-in users to their landing page.
	w = doGet(engine, "/login", cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("user on /login: status %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != UserLandingPath {
		t.Errorf("user on /login redirected to %q, want %q", loc, UserLandingPath)
	}
}

func TestAuthGateAdmin(t *testing.T) {
	engine := newGateEngine(t)
	cookies := loginCookies(t, engine, "admin")

	for _, path := range []string{"/dashboard/user", "/dashboard/admin"} {
		if w := doGet(engine, path, cookies); w.Code != http.StatusOK {
			t.Errorf("admin on %s: status %d, want 200", path, w.Code)
		}
	}

	w := doGet(engine, "/login", cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("admin on /login: status %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != AdminLandingPath {
		t.Errorf("admin on /login redirected to %q, want %q", loc, AdminLandingPath)
	}
}

// A tampered cookie must fail closed: no principal, redirect to login,
// and the gate must not write a fresh session.
func TestAuthGateMalformedCookie(t *testing.T) {
	engine := newGateEngine(t)

	cookies := []*http.Cookie{{Name: "sy-portal", Value: "garbage-value"}}
	w := doGet(engine, "/dashboard/user", cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("malformed cookie: status %d, want 302", w.Code)
	}
	loc := w.Header().Get("Location")
	if got, err := url.Parse(loc); err != nil || got.Path != LoginPath {
		t.Errorf("malformed cookie redirected to %q, want %s", loc, LoginPath)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "sy-portal" && c.Value != "" && c.MaxAge >= 0 {
			t.Errorf("gate wrote a session cookie on a failed request")
		}
	}
}

func TestAuthGateCallbackEscaped(t *testing.T) {
	engine := newGateEngine(t)

	w := doGet(engine, "/dashboard/user?tab=calendar", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status %d, want 302", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if cb := loc.Query().Get("callback"); cb != "/dashboard/user" {
		t.Errorf("callback = %q, want /dashboard/user", cb)
	}
}
