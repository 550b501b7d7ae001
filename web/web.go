// Package web provides the portal's web server: routing, sessions, the
// authorization gate, embedded templates and background job scheduling.
package web

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/satyogainstitute/portal/caching"
	"github.com/satyogainstitute/portal/config"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/util/common"
	"github.com/satyogainstitute/portal/util/metrics"
	"github.com/satyogainstitute/portal/web/controller"
	"github.com/satyogainstitute/portal/web/job"
	"github.com/satyogainstitute/portal/web/locale"
	"github.com/satyogainstitute/portal/web/middleware"
	"github.com/satyogainstitute/portal/web/service"
)

//go:embed assets
var assetsFS embed.FS

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

// Server is the portal web server with its services, controllers and
// scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	index     *controller.IndexController
	dashboard *controller.DashboardController
	admin     *controller.AdminController
	payment   *controller.PaymentController

	contentCache   *caching.Cache
	cmsClient      *service.CMSClient
	backendClient  *service.BackendClient
	pageService    *service.PageService
	formService    *service.FormService
	tilopayService *service.TilopayService
	statusService  *service.StatusService
	notifyService  *service.NotifyService
	settingService service.SettingService

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server instance with a cancellable context.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{ctx: ctx, cancel: cancel}
}

func (s *Server) initServices() error {
	ttl, err := s.settingService.GetContentCacheTTL()
	if err != nil {
		return err
	}

	s.contentCache = caching.NewCache(ttl)
	s.cmsClient = service.NewCMSClient(config.GetCMSBaseURL(), config.GetCMSToken(), s.contentCache)
	s.backendClient = service.NewBackendClient(config.GetBackendBaseURL())
	s.pageService = service.NewPageService(s.cmsClient, s.backendClient)
	s.formService = service.NewFormService(s.backendClient)
	s.notifyService = &service.NotifyService{}
	s.notifyService.Init()
	s.tilopayService = service.NewTilopayService(
		config.GetTilopayBaseURL(),
		config.GetTilopayAPIKey(),
		config.GetTilopayAPIUser(),
		config.GetTilopayAPIPassword(),
		config.GetTilopayWebhookSecret(),
		s.notifyService,
	)
	s.statusService = service.NewStatusService(s.contentCache)
	return nil
}

// getHtmlTemplate parses the embedded HTML templates.
func (s *Server) getHtmlTemplate(funcMap template.FuncMap) (*template.Template, error) {
	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(htmlFS, "html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			newT, err := t.ParseFS(htmlFS, path+"/*.html")
			if err != nil {
				// folders without templates are fine
				return nil
			}
			t = newT
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// initRouter configures gin: sessions, gate, locale, metrics, gzip,
// templates, static assets and all controllers.
func (s *Server) initRouter() (*gin.Engine, error) {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()

	secret := config.GetSessionSecret()
	if secret == "" {
		return nil, common.NewError("SY_SESSION_SECRET must be set")
	}
	store := cookie.NewStore([]byte(secret))
	engine.Use(sessions.Sessions("sy-portal", store))

	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
	))
	engine.Use(metrics.Middleware())
	engine.Use(locale.LocalizerMiddleware())
	engine.Use(middleware.AuthGate(middleware.DefaultRules))
	engine.Use(middleware.Audit())

	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
	tpl, err := s.getHtmlTemplate(funcMap)
	if err != nil {
		return nil, err
	}
	engine.SetHTMLTemplate(tpl)

	assets, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		return nil, err
	}
	engine.StaticFS("/assets", http.FS(assets))

	engine.GET("/metrics", metrics.Handler())

	// Server-to-server ops endpoints, guarded by the rotating API key.
	ops := engine.Group("/ops")
	ops.Use(middleware.ApiAuth())
	ops.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.statusService.GetStatus())
	})
	ops.POST("/cache/warm", func(c *gin.Context) {
		go func() {
			defer common.Recover("cache warm")
			s.cmsClient.WarmCache(s.ctx)
		}()
		c.Status(http.StatusAccepted)
	})

	// Webhooks bypass the session layer entirely.
	webhooks := engine.Group("/hooks")

	g := engine.Group("/")
	s.index = controller.NewIndexController(g, s.pageService, s.backendClient, s.formService, s.notifyService)
	s.payment = controller.NewPaymentController(g, webhooks, s.tilopayService, s.backendClient)

	dash := engine.Group("/dashboard")
	s.dashboard = controller.NewDashboardController(dash, s.pageService, s.backendClient)

	adminGroup := engine.Group("/dashboard/admin")
	s.admin = controller.NewAdminController(adminGroup, s.pageService, s.backendClient, s.formService, s.tilopayService, s.statusService)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

// startTask schedules the background jobs.
func (s *Server) startTask() {
	s.cron.AddJob("@every 5m", job.NewCacheWarmJob(s.cmsClient))
	s.cron.AddJob("@every 10m", job.NewPaymentReconcileJob(s.tilopayService, s.formService))
	s.cron.AddJob("@daily", job.NewAuditCleanupJob())
}

// Start initializes services, the router and the listener, then serves.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	metrics.Init()
	if err := locale.InitLocalizer(i18nFS); err != nil {
		return err
	}
	if err := s.initServices(); err != nil {
		return err
	}

	loc, err := s.settingService.GetTimeLocation()
	if err != nil {
		return err
	}
	s.cron = cron.New(cron.WithLocation(loc))
	s.cron.Start()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("web server running on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{Handler: engine}

	go func() {
		defer common.Recover("web server")
		_ = s.httpServer.Serve(listener)
	}()

	s.startTask()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2 error
	if s.httpServer != nil {
		err1 = s.httpServer.Shutdown(s.ctx)
	}
	if s.listener != nil {
		err2 = s.listener.Close()
	}
	return common.Combine(err1, err2)
}

// GetCtx returns the server's context.
func (s *Server) GetCtx() context.Context { return s.ctx }

// GetCron returns the cron scheduler.
func (s *Server) GetCron() *cron.Cron { return s.cron }
