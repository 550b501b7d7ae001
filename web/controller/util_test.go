package controller

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/goccy/go-json"

	"github.com/satyogainstitute/portal/web/entity"
)

func newUtilEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	engine.Use(sessions.Sessions("sy-portal", store))
	engine.SetHTMLTemplate(template.Must(template.New("error.html").Parse("<h1>{{ .title }}</h1>")))
	engine.GET("/missing", func(c *gin.Context) {
		html404(c)
	})
	return engine
}

func TestHtml404Page(t *testing.T) {
	engine := newUtilEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Not Found") {
		t.Errorf("body = %q, want rendered error page", w.Body.String())
	}
}

// Fetch requests get the JSON envelope rather than an HTML page.
func TestHtml404Ajax(t *testing.T) {
	engine := newUtilEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var msg entity.Msg
	if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
		t.Fatalf("body is not a JSON envelope: %v", err)
	}
	if msg.Success {
		t.Error("404 envelope should not be marked success")
	}
}

func TestGetRemoteIp(t *testing.T) {
	tests := []struct {
		realIP     string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"203.0.113.9", "", "10.0.0.1:1234", "203.0.113.9"},
		{"", "203.0.113.9, 10.0.0.2", "10.0.0.1:1234", "203.0.113.9"},
		{"", "", "10.0.0.1:1234", "10.0.0.1"},
	}
	for _, tc := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.RemoteAddr = tc.remoteAddr
		if tc.realIP != "" {
			c.Request.Header.Set("X-Real-IP", tc.realIP)
		}
		if tc.forwarded != "" {
			c.Request.Header.Set("X-Forwarded-For", tc.forwarded)
		}
		if got := getRemoteIp(c); got != tc.want {
			t.Errorf("getRemoteIp = %q, want %q", got, tc.want)
		}
	}
}
