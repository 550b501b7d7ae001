package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/web/middleware"
	"github.com/satyogainstitute/portal/web/service"
	"github.com/satyogainstitute/portal/web/session"
)

// LoginForm is the login request body.
type LoginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Callback string `json:"callback" form:"callback"`
}

// IndexController serves the public pages and the login/logout flow.
type IndexController struct {
	BaseController

	pageService    *service.PageService
	backend        *service.BackendClient
	formService    *service.FormService
	settingService service.SettingService
	notifyService  *service.NotifyService
}

// NewIndexController creates the controller and registers its routes.
func NewIndexController(g *gin.RouterGroup, pageService *service.PageService, backend *service.BackendClient, formService *service.FormService, notifyService *service.NotifyService) *IndexController {
	a := &IndexController{
		pageService:   pageService,
		backend:       backend,
		formService:   formService,
		notifyService: notifyService,
	}
	a.initRouter(g)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup) {
	g.GET("/", a.home)
	g.GET("/teachings", a.teachings)
	g.GET("/teachings/:slug", a.article)
	g.GET("/courses", a.courses)
	g.GET("/courses/:slug", a.course)
	g.GET("/retreats", a.retreats)
	g.GET("/about", a.staticPage("about"))
	g.GET("/contact", a.contact)
	g.POST("/contact", a.submitContact)

	g.GET("/login", a.loginPage)
	g.POST("/login", a.login)
	g.GET("/logout", a.logout)
	g.POST("/session/token", a.syncToken)
}

func (a *IndexController) home(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()
	props := a.pageService.Home(ctx)
	html(c, "home.html", "pages.home.title", gin.H{"props": props})
}

func (a *IndexController) teachings(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	page := 1
	if v, err := atoiParam(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	pageSize, err := a.settingService.GetPageSize()
	if err != nil {
		pageSize = 20
	}

	props := a.pageService.Teachings(ctx, page, pageSize)
	html(c, "teachings.html", "pages.teachings.title", gin.H{"props": props})
}

func (a *IndexController) article(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	article, err := a.pageService.Article(ctx, c.Param("slug"))
	if err != nil {
		if isNotFoundFetch(err) {
			html404(c)
			return
		}
		logger.Warning("article page:", err)
		html(c, "error.html", "errors.sectionUnavailable", nil)
		return
	}
	html(c, "article.html", "pages.teachings.title", gin.H{"article": article})
}

func (a *IndexController) courses(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()
	props := a.pageService.Courses(ctx)
	html(c, "courses.html", "pages.courses.title", gin.H{"props": props})
}

func (a *IndexController) course(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	props := a.pageService.CourseDetail(ctx, session.GetPrincipal(c), c.Param("slug"))
	if props.NotFound {
		html404(c)
		return
	}
	data := gin.H{"props": props}
	if props.UpgradePrompt {
		data["upgradeMsg"] = I18nWeb(c, "pages.courses.upgradeRequired", "tier=="+string(props.RequiredTier))
	}
	html(c, "course.html", "pages.courses.title", data)
}

func (a *IndexController) retreats(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()
	props := a.pageService.Retreats(ctx)
	html(c, "retreats.html", "pages.retreats.title", gin.H{"props": props})
}

func (a *IndexController) staticPage(slug string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := fetchCtx(c)
		defer cancel()
		props := a.pageService.Static(ctx, slug)
		html(c, "page.html", "pages."+slug+".title", gin.H{"props": props})
	}
}

func (a *IndexController) contact(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()
	props := a.pageService.Static(ctx, "contact")
	html(c, "contact.html", "pages.contact.title", gin.H{"props": props})
}

func (a *IndexController) submitContact(c *gin.Context) {
	var form struct {
		Name    string `json:"name" form:"name"`
		Email   string `json:"email" form:"email"`
		Message string `json:"message" form:"message"`
	}
	if err := c.ShouldBind(&form); err != nil {
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}

	ctx, cancel := fetchCtx(c)
	defer cancel()

	token := ""
	if p := session.GetPrincipal(c); p != nil {
		token = p.AccessToken
	}
	payload := map[string]any{"name": form.Name, "email": form.Email, "message": form.Message}
	submissionId, err := a.formService.Submit(ctx, token, "contact", payload)
	if err != nil {
		fieldErrors(c, err)
		return
	}
	jsonObj(c, gin.H{"submissionId": submissionId, "msg": I18nWeb(c, "pages.contact.thanks")}, nil)
}

func (a *IndexController) loginPage(c *gin.Context) {
	// The gate redirects authenticated sessions away before this point.
	html(c, "login.html", "pages.login.title", gin.H{
		"callback": c.Query("callback"),
	})
}

func (a *IndexController) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}
	if form.Email == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.emptyEmail"))
		return
	}
	if form.Password == "" {
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.emptyPassword"))
		return
	}

	ctx, cancel := fetchCtx(c)
	defer cancel()

	principal, err := a.backend.Login(ctx, form.Email, form.Password)
	if err != nil {
		logger.Warningf("failed login for %q from %s: %v", form.Email, getRemoteIp(c), err)
		pureJsonMsg(c, http.StatusOK, false, I18nWeb(c, "pages.login.toasts.wrongCredentials"))
		return
	}

	if principal.Role == model.RoleAdmin {
		a.notifyService.AdminLoginNotify(principal.Email, getRemoteIp(c), true)
	}

	sessionMaxAge, err := a.settingService.GetSessionMaxAge()
	if err != nil {
		logger.Warning("unable to read session max age:", err)
		sessionMaxAge = 60
	}
	if err := session.SetMaxAge(c, sessionMaxAge*60); err != nil {
		logger.Warning("unable to set session max age:", err)
	}
	if err := session.SetPrincipal(c, principal); err != nil {
		jsonMsg(c, "login", err)
		return
	}

	logger.Infof("%s logged in from %s", principal.Email, getRemoteIp(c))

	landing := middleware.UserLandingPath
	if principal.Role == model.RoleAdmin {
		landing = middleware.AdminLandingPath
	}
	if middleware.SafeCallback(middleware.DefaultRules, form.Callback) {
		landing = form.Callback
	}
	jsonObj(c, gin.H{"redirect": landing, "msg": I18nWeb(c, "pages.login.toasts.successLogin")}, nil)
}

func (a *IndexController) logout(c *gin.Context) {
	if p := session.GetPrincipal(c); p != nil {
		logger.Infof("%s logged out", p.Email)
	}
	if err := session.ClearSession(c); err != nil {
		logger.Warning("unable to clear session:", err)
	}
	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// syncToken hands the bearer token to the browser exactly once per
// session so client-side code can call the backend directly.
func (a *IndexController) syncToken(c *gin.Context) {
	p := session.GetPrincipal(c)
	if p == nil {
		pureJsonMsg(c, http.StatusUnauthorized, false, I18nWeb(c, "pages.login.loginAgain"))
		return
	}
	if session.IsTokenSynced(c) {
		pureJsonMsg(c, http.StatusConflict, false, "token already synced for this session")
		return
	}
	if err := session.MarkTokenSynced(c); err != nil {
		jsonMsg(c, "token sync", err)
		return
	}
	jsonObj(c, gin.H{"accessToken": p.AccessToken}, nil)
}
