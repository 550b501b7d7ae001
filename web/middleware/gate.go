// Package middleware holds the portal's gin middleware, including the
// authorization gate that maps route prefixes to required principals.
package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/web/session"
)

// Access is the principal predicate a route prefix requires.
type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
	GuestOnly
)

// Rule classifies every path under Prefix. Matching is segment-aware:
// "/dashboard" covers "/dashboard" and "/dashboard/..." but not
// "/dashboards".
type Rule struct {
	Prefix string
	Access Access
}

const (
	LoginPath        = "/login"
	UserLandingPath  = "/dashboard/user"
	AdminLandingPath = "/dashboard/admin"
)

// DefaultRules is the portal's route classification table. Longest
// matching prefix wins, so the admin subtree stays stricter than the
// general dashboard prefix it sits under.
var DefaultRules = []Rule{
	{Prefix: "/dashboard/admin", Access: AdminOnly},
	{Prefix: "/dashboard", Access: Authenticated},
	{Prefix: "/account", Access: Authenticated},
	{Prefix: "/login", Access: GuestOnly},
	{Prefix: "/signup", Access: GuestOnly},
	{Prefix: "/forgot-password", Access: GuestOnly},
}

func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Classify resolves the access class for path using longest-prefix match.
func Classify(rules []Rule, path string) Access {
	best := -1
	access := Public
	for _, r := range rules {
		if matchesPrefix(path, r.Prefix) && len(r.Prefix) > best {
			best = len(r.Prefix)
			access = r.Access
		}
	}
	return access
}

// SafeCallback reports whether cb is a site-local path that may be
// honored as a post-login redirect. Absolute and scheme-relative URLs
// are rejected, as are guest-only pages.
func SafeCallback(rules []Rule, cb string) bool {
	if !strings.HasPrefix(cb, "/") {
		return false
	}
	if strings.HasPrefix(cb, "//") || strings.HasPrefix(cb, "/\\") {
		return false
	}
	return Classify(rules, cb) != GuestOnly
}

func landingFor(p *model.Principal) string {
	if p.Role == model.RoleAdmin {
		return AdminLandingPath
	}
	return UserLandingPath
}

// AuthGate decides allow-or-redirect per request. It never mutates the
// session: an undecodable cookie simply yields no principal and the
// request fails closed.
func AuthGate(rules []Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		p := session.GetPrincipal(c)

		switch Classify(rules, path) {
		case Authenticated:
			if p == nil {
				redirectToLogin(c, path)
				return
			}
		case AdminOnly:
			if p == nil {
				redirectToLogin(c, path)
				return
			}
			if p.Role != model.RoleAdmin {
				// Authenticated but unauthorized for this subtree.
				c.Redirect(http.StatusFound, UserLandingPath)
				c.Abort()
				return
			}
		case GuestOnly:
			if p != nil {
				c.Redirect(http.StatusFound, landingFor(p))
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

func redirectToLogin(c *gin.Context, callback string) {
	c.Redirect(http.StatusFound, LoginPath+"?callback="+url.QueryEscape(callback))
	c.Abort()
}
