// Package controller provides the HTTP handlers for the portal's
// public pages, member dashboard, admin back-office and payment flow.
package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/logger"
)

// BaseController provides helpers shared by all controllers. Route
// authorization itself lives in the middleware gate, not here.
type BaseController struct{}

// I18nWeb translates a message key for the current request locale.
func I18nWeb(c *gin.Context, key string, params ...string) string {
	anyfunc, exists := c.Get("I18n")
	if !exists {
		logger.Warning("I18n function not set in gin context")
		return key
	}
	i18nFunc, ok := anyfunc.(func(key string, params ...string) string)
	if !ok {
		return key
	}
	return i18nFunc(key, params...)
}
