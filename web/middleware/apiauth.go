package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/web/service"
)

// ApiAuth guards server-to-server endpoints (webhooks, ops) with the
// Api-Key header, verified against the bcrypt hash stored in settings.
func ApiAuth() gin.HandlerFunc {
	settingService := service.SettingService{}

	return func(c *gin.Context) {
		apiKey := c.GetHeader("Api-Key")
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key is required"})
			c.Abort()
			return
		}

		if !settingService.CheckAPIKey(apiKey) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
