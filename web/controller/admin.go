package controller

import (
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/config"
	"github.com/satyogainstitute/portal/database"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/util/common"
	"github.com/satyogainstitute/portal/web/entity"
	"github.com/satyogainstitute/portal/web/service"
	"github.com/satyogainstitute/portal/web/session"
)

// AdminController serves the back-office: content overview, campaigns,
// form submissions, payments, audit log, system status and settings.
// The gate middleware guarantees an admin principal.
type AdminController struct {
	BaseController

	pageService    *service.PageService
	backend        *service.BackendClient
	formService    *service.FormService
	tilopayService *service.TilopayService
	statusService  *service.StatusService
	auditService   service.AuditService
	settingService service.SettingService
	stepUpService  service.StepUpService
}

func NewAdminController(g *gin.RouterGroup, pageService *service.PageService, backend *service.BackendClient, formService *service.FormService, tilopayService *service.TilopayService, statusService *service.StatusService) *AdminController {
	a := &AdminController{
		pageService:    pageService,
		backend:        backend,
		formService:    formService,
		tilopayService: tilopayService,
		statusService:  statusService,
	}
	a.initRouter(g)
	return a
}

func (a *AdminController) initRouter(g *gin.RouterGroup) {
	g.GET("", a.adminHome)
	g.GET("/content", a.contentOverview)
	g.POST("/courses/save", a.saveCourse)
	g.POST("/courses/del/:slug", a.deleteCourse)
	g.GET("/forms", a.formSubmissions)
	g.GET("/payments", a.payments)
	g.GET("/audit", a.auditLog)
	g.GET("/status", a.status)
	g.GET("/logs", a.logs)

	g.GET("/db", a.downloadDB)
	g.POST("/db/import", a.importDB)

	g.POST("/campaigns/send", a.sendCampaign)
	g.POST("/settings/update", a.updateSettings)
	g.POST("/settings/rotateApiKey", a.rotateApiKey)
	g.POST("/settings/enableStepUp", a.enableStepUp)
	g.POST("/cache/flush", a.flushCache)
}

func (a *AdminController) adminHome(c *gin.Context) {
	html(c, "dashboard_admin.html", "pages.dashboard.adminTitle", gin.H{
		"principal": session.GetPrincipal(c),
	})
}

// contentOverview lists the published courses and latest articles so
// admins can see the live catalog next to the CRUD actions.
func (a *AdminController) contentOverview(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	courses := a.pageService.Courses(ctx)
	articles := a.pageService.Teachings(ctx, 1, 20)
	jsonObj(c, gin.H{"courses": courses, "articles": articles}, nil)
}

// saveCourse proxies a course create/update to the backend's admin API.
func (a *AdminController) saveCourse(c *gin.Context) {
	var course map[string]any
	if err := c.ShouldBindJSON(&course); err != nil || course["slug"] == nil {
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}

	ctx, cancel := fetchCtx(c)
	defer cancel()

	p := session.GetPrincipal(c)
	err := a.backend.UpsertCourse(ctx, p.AccessToken, course)
	if err == nil {
		a.pageService.FlushContentCache()
	}
	jsonMsg(c, "course save", err)
}

func (a *AdminController) deleteCourse(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	p := session.GetPrincipal(c)
	err := a.backend.DeleteCourse(ctx, p.AccessToken, c.Param("slug"))
	if err == nil {
		a.pageService.FlushContentCache()
	}
	jsonMsg(c, "course delete", err)
}

func (a *AdminController) formSubmissions(c *gin.Context) {
	submissions, err := a.formService.ListSubmissions(100)
	if err != nil {
		jsonMsg(c, "form submissions", err)
		return
	}
	jsonObj(c, submissions, nil)
}

func (a *AdminController) payments(c *gin.Context) {
	records, err := a.tilopayService.ListRecords(100)
	if err != nil {
		jsonMsg(c, "payments", err)
		return
	}
	jsonObj(c, records, nil)
}

func (a *AdminController) auditLog(c *gin.Context) {
	page := 1
	if v, err := atoiParam(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	pageSize, err := a.settingService.GetPageSize()
	if err != nil {
		pageSize = 20
	}

	entries, total, err := a.auditService.List(page, pageSize)
	if err != nil {
		jsonMsg(c, "audit log", err)
		return
	}
	jsonObj(c, gin.H{"entries": entries, "total": total}, nil)
}

func (a *AdminController) status(c *gin.Context) {
	jsonObj(c, a.statusService.GetStatus(), nil)
}

func (a *AdminController) logs(c *gin.Context) {
	count := 50
	if v, err := atoiParam(c.Query("count")); err == nil && v > 0 && v <= 1000 {
		count = v
	}
	level := c.DefaultQuery("level", "INFO")
	jsonObj(c, logger.GetLogs(count, level), nil)
}

// sendCampaign relays an email campaign send to the backend. This is a
// destructive operation: with step-up enabled a valid TOTP code is
// required.
func (a *AdminController) sendCampaign(c *gin.Context) {
	var form struct {
		CampaignId string `json:"campaignId" form:"campaignId"`
		TotpCode   string `json:"totpCode" form:"totpCode"`
	}
	if err := c.ShouldBind(&form); err != nil || form.CampaignId == "" {
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}
	if !a.stepUpService.Verify(form.TotpCode) {
		pureJsonMsg(c, http.StatusForbidden, false, I18nWeb(c, "errors.stepUpRequired"))
		return
	}

	ctx, cancel := fetchCtx(c)
	defer cancel()

	p := session.GetPrincipal(c)
	err := a.backend.SendCampaign(ctx, p.AccessToken, form.CampaignId)
	jsonMsg(c, "campaign send", err)
}

func (a *AdminController) updateSettings(c *gin.Context) {
	allSetting := &entity.AllSetting{}
	if err := c.ShouldBind(allSetting); err != nil {
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}

	err := a.settingService.UpdateAllSetting(allSetting)
	jsonMsg(c, "settings update", err)
}

// downloadDB serves a consistent snapshot of the local database.
func (a *AdminController) downloadDB(c *gin.Context) {
	if err := database.Checkpoint(); err != nil {
		logger.Warning("wal checkpoint:", err)
	}
	db, err := os.ReadFile(config.GetDBPath())
	if err != nil {
		jsonMsg(c, "db download", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename=sy-portal.db`)
	c.Data(http.StatusOK, "application/octet-stream", db)
}

// importDB restores an uploaded database backup. The new data takes
// effect on the next restart.
func (a *AdminController) importDB(c *gin.Context) {
	header, err := c.FormFile("db")
	if err != nil {
		pureJsonMsg(c, http.StatusBadRequest, false, "missing db file")
		return
	}
	file, err := header.Open()
	if err != nil {
		jsonMsg(c, "db import", err)
		return
	}
	defer file.Close()

	ok, err := database.IsSQLiteDB(file)
	if err != nil || !ok {
		pureJsonMsg(c, http.StatusUnsupportedMediaType, false, "not a sqlite database")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		jsonMsg(c, "db import", err)
		return
	}

	if err := database.Checkpoint(); err != nil {
		logger.Warning("wal checkpoint:", err)
	}
	dst, err := os.Create(config.GetDBPath())
	if err != nil {
		jsonMsg(c, "db import", err)
		return
	}
	_, err = io.Copy(dst, file)
	err = common.Combine(err, dst.Close())
	jsonMsg(c, "db import", err)
}

// rotateApiKey issues a fresh server-to-server API key. The plaintext
// is returned once and only its hash is stored.
func (a *AdminController) rotateApiKey(c *gin.Context) {
	key, err := a.settingService.RotateAPIKey()
	if err != nil {
		jsonMsg(c, "rotate api key", err)
		return
	}
	jsonObj(c, gin.H{"apiKey": key}, nil)
}

func (a *AdminController) enableStepUp(c *gin.Context) {
	secret, err := a.stepUpService.GenerateSecret()
	if err != nil {
		jsonMsg(c, "enable step-up", err)
		return
	}
	jsonObj(c, gin.H{"secret": secret}, nil)
}

func (a *AdminController) flushCache(c *gin.Context) {
	a.pageService.FlushContentCache()
	jsonMsg(c, "cache flush", nil)
}
