package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/web/service"
	"github.com/satyogainstitute/portal/web/session"
)

const maxWebhookBytes = 64 << 10

// PaymentController serves the donation/checkout pages, the SDK token
// proxy and the provider webhook. The browser initializes the hosted
// payment form with a short-lived token from /payment/token; the
// long-lived Tilopay credentials never leave the server.
type PaymentController struct {
	BaseController

	tilopayService *service.TilopayService
	backend        *service.BackendClient
}

func NewPaymentController(g *gin.RouterGroup, webhooks *gin.RouterGroup, tilopayService *service.TilopayService, backend *service.BackendClient) *PaymentController {
	a := &PaymentController{
		tilopayService: tilopayService,
		backend:        backend,
	}
	a.initRouter(g, webhooks)
	return a
}

func (a *PaymentController) initRouter(g *gin.RouterGroup, webhooks *gin.RouterGroup) {
	g.GET("/donate", a.donatePage)
	g.GET("/donate/qr", a.donateQR)
	g.POST("/payment/token", a.sdkToken)
	g.POST("/payment/order", a.createOrder)

	// Webhooks carry the provider signature, not a browser session.
	webhooks.POST("/payment/webhook", a.webhook)
}

func (a *PaymentController) donatePage(c *gin.Context) {
	html(c, "donate.html", "pages.donate.title", nil)
}

// donateQR renders a QR code PNG pointing at the hosted donation link.
func (a *PaymentController) donateQR(c *gin.Context) {
	// Fixed link only; this must not become an open QR generator.
	png, err := a.tilopayService.DonationQR("https://donate.satyoga.org/give")
	if err != nil {
		jsonMsg(c, "donation qr", err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// sdkToken exchanges server-held credentials for the short-lived token
// the payment SDK mounts with.
func (a *PaymentController) sdkToken(c *gin.Context) {
	ctx, cancel := fetchCtx(c)
	defer cancel()

	token, err := a.tilopayService.GetSDKToken(ctx)
	if err != nil {
		jsonMsg(c, "payment token", err)
		return
	}
	jsonObj(c, token, nil)
}

// createOrder opens a backend order plus the local payment record the
// webhook will settle against.
func (a *PaymentController) createOrder(c *gin.Context) {
	var form struct {
		AmountCents int64  `json:"amountCents" form:"amountCents"`
		Currency    string `json:"currency" form:"currency"`
		Purpose     string `json:"purpose" form:"purpose"`
		Email       string `json:"email" form:"email"`
	}
	if err := c.ShouldBind(&form); err != nil || form.AmountCents <= 0 {
		pureJsonMsg(c, http.StatusBadRequest, false, I18nWeb(c, "pages.login.toasts.invalidFormData"))
		return
	}
	if form.Currency == "" {
		form.Currency = "USD"
	}
	if form.Purpose == "" {
		form.Purpose = "donation"
	}

	userId := 0
	token := ""
	if p := session.GetPrincipal(c); p != nil {
		userId = p.Id
		token = p.AccessToken
		if form.Email == "" {
			form.Email = p.Email
		}
	}

	ctx, cancel := fetchCtx(c)
	defer cancel()

	// The backend order is advisory for members; anonymous donations
	// only get the local record.
	if token != "" {
		if _, err := a.backend.CreateOrder(ctx, token, form.AmountCents, form.Currency, form.Purpose); err != nil {
			logger.Warning("backend order:", err)
		}
	}

	record, err := a.tilopayService.CreateRecord(userId, form.AmountCents, form.Currency, form.Purpose, form.Email)
	if err != nil {
		jsonMsg(c, "payment order", err)
		return
	}
	jsonObj(c, gin.H{"orderId": record.OrderId}, nil)
}

// webhook settles a payment record. Authenticated by HMAC signature.
func (a *PaymentController) webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		pureJsonMsg(c, http.StatusBadRequest, false, "unreadable body")
		return
	}

	signature := c.GetHeader("X-Tilopay-Signature")
	record, err := a.tilopayService.HandleWebhook(body, signature)
	if err != nil {
		logger.Warning("payment webhook:", err)
		pureJsonMsg(c, http.StatusBadRequest, false, "rejected")
		return
	}
	jsonObj(c, gin.H{"orderId": record.OrderId, "status": record.Status}, nil)
}
