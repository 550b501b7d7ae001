package controller

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/config"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/web/entity"
	"github.com/satyogainstitute/portal/web/service"
	"github.com/satyogainstitute/portal/web/session"
)

// getRemoteIp extracts the client IP from proxy headers or the socket.
func getRemoteIp(c *gin.Context) string {
	value := c.GetHeader("X-Real-IP")
	if value != "" {
		return value
	}
	value = c.GetHeader("X-Forwarded-For")
	if value != "" {
		ips := strings.Split(value, ",")
		return ips[0]
	}
	addr := c.Request.RemoteAddr
	ip, _, _ := net.SplitHostPort(addr)
	return ip
}

// jsonMsg sends a JSON envelope with a message and error status.
func jsonMsg(c *gin.Context, msg string, err error) {
	jsonMsgObj(c, msg, nil, err)
}

// jsonObj sends a JSON envelope with an object and error status.
func jsonObj(c *gin.Context, obj any, err error) {
	jsonMsgObj(c, "", obj, err)
}

func jsonMsgObj(c *gin.Context, msg string, obj any, err error) {
	m := entity.Msg{
		Obj: obj,
	}
	if err == nil {
		m.Success = true
		if msg != "" {
			m.Msg = msg
		}
	} else {
		m.Success = false
		m.Msg = msg + " (" + err.Error() + ")"
		logger.Warning(msg+" "+I18nWeb(c, "errors.fail")+": ", err)
	}
	c.JSON(http.StatusOK, m)
}

// pureJsonMsg sends an envelope with an explicit status code.
func pureJsonMsg(c *gin.Context, statusCode int, success bool, msg string) {
	c.JSON(statusCode, entity.Msg{
		Success: success,
		Msg:     msg,
	})
}

// html renders a template with the shared context fields attached.
func html(c *gin.Context, name string, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["title"] = I18nWeb(c, title)
	data["cur_ver"] = config.GetVersion()
	data["request_uri"] = c.Request.RequestURI
	data["is_login"] = session.IsLogin(c)
	data["is_admin"] = session.IsAdmin(c)
	c.HTML(http.StatusOK, name, data)
}

// html404 renders the error page with a 404 status. Fetch requests get
// the JSON envelope instead of a page.
func html404(c *gin.Context) {
	if isAjax(c) {
		pureJsonMsg(c, http.StatusNotFound, false, "not found")
		return
	}
	c.HTML(http.StatusNotFound, "error.html", gin.H{
		"title":    "Not Found",
		"cur_ver":  config.GetVersion(),
		"is_login": session.IsLogin(c),
		"is_admin": session.IsAdmin(c),
	})
}

// isAjax reports whether the request came from browser fetch code.
func isAjax(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

func atoiParam(s string) (int, error) {
	return strconv.Atoi(s)
}

const pageFetchTimeout = 15 * time.Second

// fetchCtx bounds a page's upstream fetches to a single deadline.
func fetchCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), pageFetchTimeout)
}

// isNotFoundFetch reports whether err is an upstream 404.
func isNotFoundFetch(err error) bool {
	var fe *service.FetchError
	return errors.As(err, &fe) && fe.Status == http.StatusNotFound
}

// fieldErrors writes a validation failure as inline field errors, any
// other error as a generic envelope.
func fieldErrors(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusUnprocessableEntity, entity.Msg{
			Success: false,
			Msg:     ve.Error(),
			Obj:     gin.H{"fields": ve.Fields},
		})
		return
	}
	jsonMsg(c, "submit", err)
}
