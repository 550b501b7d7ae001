// Package session stores the request Principal in the encrypted cookie
// session and exposes typed accessors for the rest of the web layer.
package session

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/database/model"
)

const (
	principalKey   = "PRINCIPAL"
	tokenSyncedKey = "TOKEN_SYNCED"

	cookieName = "sy-portal"
)

func init() {
	gob.Register(model.Principal{})
}

// SetPrincipal stores the principal in the session. Called only at login.
func SetPrincipal(c *gin.Context, p *model.Principal) error {
	s := sessions.Default(c)
	s.Set(principalKey, *p)
	s.Set(tokenSyncedKey, false)
	return s.Save()
}

// SetMaxAge updates the session cookie lifetime in seconds.
func SetMaxAge(c *gin.Context, maxAge int) error {
	s := sessions.Default(c)
	s.Options(sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
	})
	return s.Save()
}

// GetPrincipal returns the principal for the current request, or nil.
// A malformed session value is treated as no principal.
func GetPrincipal(c *gin.Context) *model.Principal {
	s := sessions.Default(c)
	if obj := s.Get(principalKey); obj != nil {
		if p, ok := obj.(model.Principal); ok {
			return &p
		}
	}
	return nil
}

// IsLogin reports whether the current request carries a principal.
func IsLogin(c *gin.Context) bool {
	return GetPrincipal(c) != nil
}

// IsAdmin reports whether the current principal has the admin role.
func IsAdmin(c *gin.Context) bool {
	p := GetPrincipal(c)
	return p != nil && p.Role == model.RoleAdmin
}

// MarkTokenSynced flags that the bearer token has been handed to the
// browser once; subsequent sync requests are refused.
func MarkTokenSynced(c *gin.Context) error {
	s := sessions.Default(c)
	s.Set(tokenSyncedKey, true)
	return s.Save()
}

// IsTokenSynced reports whether the one-time client token sync happened.
func IsTokenSynced(c *gin.Context) bool {
	s := sessions.Default(c)
	if v := s.Get(tokenSyncedKey); v != nil {
		if synced, ok := v.(bool); ok {
			return synced
		}
	}
	return false
}

// ClearSession destroys the session and expires the cookie.
func ClearSession(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	s.Options(sessions.Options{
		Path:   "/",
		MaxAge: -1,
	})
	if err := s.Save(); err != nil {
		return err
	}
	c.SetCookie(cookieName, "", -1, "/", "", false, true)
	return nil
}
