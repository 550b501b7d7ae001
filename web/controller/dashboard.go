package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/web/service"
	"github.com/satyogainstitute/portal/web/session"
)

// DashboardController serves the authenticated member area. The gate
// middleware guarantees a principal exists before any handler runs.
type DashboardController struct {
	BaseController

	pageService *service.PageService
	backend     *service.BackendClient
}

func NewDashboardController(g *gin.RouterGroup, pageService *service.PageService, backend *service.BackendClient) *DashboardController {
	a := &DashboardController{
		pageService: pageService,
		backend:     backend,
	}
	a.initRouter(g)
	return a
}

func (a *DashboardController) initRouter(g *gin.RouterGroup) {
	g.GET("/user", a.userHome)
	g.GET("/user/calendar", a.calendar)
	g.GET("/user/recommendations", a.recommendations)
}

func (a *DashboardController) userHome(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	p := session.GetPrincipal(c)
	props := a.pageService.Dashboard(ctx, p)
	html(c, "dashboard_user.html", "pages.dashboard.title", gin.H{
		"props":     props,
		"principal": p,
	})
}

// calendar serves the AJAX reload of the calendar section.
func (a *DashboardController) calendar(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	p := session.GetPrincipal(c)
	from := c.Query("from")
	to := c.Query("to")
	events, err := a.backend.GetCalendarEvents(ctx, p.AccessToken, from, to)
	if err != nil {
		jsonMsg(c, "calendar", err)
		return
	}
	jsonObj(c, events, nil)
}

func (a *DashboardController) recommendations(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	p := session.GetPrincipal(c)
	recs, err := a.backend.GetRecommendations(ctx, p.AccessToken)
	if err != nil {
		jsonMsg(c, "recommendations", err)
		return
	}
	jsonObj(c, recs, nil)
}

