package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/web/service"
	"github.com/satyogainstitute/portal/web/session"
)

// Audit records admin mutations to the local audit table. Reads and
// anonymous requests pass through untouched.
func Audit() gin.HandlerFunc {
	auditService := service.AuditService{}

	return func(c *gin.Context) {
		method := c.Request.Method
		path := c.Request.URL.Path
		if method == "GET" || !strings.HasPrefix(path, "/dashboard/admin") {
			c.Next()
			return
		}

		p := session.GetPrincipal(c)
		if p == nil {
			c.Next()
			return
		}

		c.Next()

		action, resource, resourceId := classifyAction(method, path)
		details := map[string]any{
			"method": method,
			"path":   path,
			"status": c.Writer.Status(),
		}

		err := auditService.LogAction(p.Id, p.Email, action, resource, resourceId, c.ClientIP(), c.GetHeader("User-Agent"), details)
		if err != nil {
			logger.Warning("audit log:", err)
		}
	}
}

// classifyAction derives an action verb, resource type and id from the
// mutated admin path.
func classifyAction(method, path string) (action, resource, resourceId string) {
	switch method {
	case "POST":
		action = "CREATE"
	case "PUT", "PATCH":
		action = "UPDATE"
	case "DELETE":
		action = "DELETE"
	default:
		action = method
	}

	trimmed := strings.TrimPrefix(path, "/dashboard/admin/")
	parts := strings.Split(trimmed, "/")
	resource = parts[0]

	// POST endpoints name their verb in the path, e.g. /settings/update
	// or /courses/del/:slug; the remaining segment is the resource id.
	for _, part := range parts[1:] {
		switch part {
		case "update", "modify":
			action = "UPDATE"
		case "del", "delete":
			action = "DELETE"
		default:
			resourceId = part
		}
	}
	return action, resource, resourceId
}
