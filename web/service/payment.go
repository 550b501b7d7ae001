package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/satyogainstitute/portal/database"
	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/util/crypto"
)

// TilopayService proxies the Tilopay payment provider. The browser only
// ever sees short-lived SDK tokens obtained here; the long-lived API
// credentials stay server-side.
type TilopayService struct {
	base          string
	apiKey        string
	apiUser       string
	apiPassword   string
	webhookSecret string
	http          *http.Client

	notify *NotifyService
}

func NewTilopayService(base, apiKey, apiUser, apiPassword, webhookSecret string, notify *NotifyService) *TilopayService {
	return &TilopayService{
		base:          base,
		apiKey:        apiKey,
		apiUser:       apiUser,
		apiPassword:   apiPassword,
		webhookSecret: webhookSecret,
		http:          &http.Client{Timeout: 15 * time.Second},
		notify:        notify,
	}
}

// SDKToken is the short-lived token the hosted payment form initializes with.
type SDKToken struct {
	Token     string `json:"access_token"`
	ExpiresIn int    `json:"expires_in"`
}

// GetSDKToken exchanges the server-held credentials for an SDK token.
func (s *TilopayService) GetSDKToken(ctx context.Context) (*SDKToken, error) {
	in := map[string]string{
		"apiuser":  s.apiUser,
		"password": s.apiPassword,
		"key":      s.apiKey,
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/api/v1/loginSdk", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &FetchError{Endpoint: "/api/v1/loginSdk", Status: 0, Msg: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBackendResponseBytes))
	if err != nil {
		return nil, &FetchError{Endpoint: "/api/v1/loginSdk", Status: resp.StatusCode, Msg: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Endpoint: "/api/v1/loginSdk", Status: resp.StatusCode, Body: string(body), Msg: http.StatusText(resp.StatusCode)}
	}

	var token SDKToken
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &FetchError{Endpoint: "/api/v1/loginSdk", Status: resp.StatusCode, Msg: "malformed token response: " + err.Error()}
	}
	return &token, nil
}

// CreateRecord opens a local pending payment record and returns it.
func (s *TilopayService) CreateRecord(userId int, amountCents int64, currency, purpose, payerEmail string) (*model.PaymentRecord, error) {
	record := &model.PaymentRecord{
		OrderId:     uuid.NewString(),
		UserId:      userId,
		AmountCents: amountCents,
		Currency:    currency,
		Purpose:     purpose,
		Status:      model.PaymentPending,
		PayerEmail:  payerEmail,
	}
	db := database.GetDB()
	if err := db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// GetRecord looks a payment record up by order id.
func (s *TilopayService) GetRecord(orderId string) (*model.PaymentRecord, error) {
	db := database.GetDB()
	var record model.PaymentRecord
	err := db.Where("order_id = ?", orderId).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecords returns recent payment records for the admin back-office.
func (s *TilopayService) ListRecords(limit int) ([]*model.PaymentRecord, error) {
	db := database.GetDB()
	var records []*model.PaymentRecord
	err := db.Order("created_at desc").Limit(limit).Find(&records).Error
	return records, err
}

type webhookEvent struct {
	OrderId     string `json:"order_id"`
	Status      string `json:"status"` // approved | declined
	ProviderRef string `json:"provider_ref"`
}

// HandleWebhook verifies the HMAC signature, updates the matching local
// record and notifies admins. The raw body is signed, not a re-encoding.
func (s *TilopayService) HandleWebhook(body []byte, signature string) (*model.PaymentRecord, error) {
	if !crypto.VerifyHMAC(s.webhookSecret, body, signature) {
		return nil, fmt.Errorf("webhook signature mismatch")
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}

	record, err := s.GetRecord(event.OrderId)
	if err != nil {
		return nil, fmt.Errorf("unknown order %s: %w", event.OrderId, err)
	}

	switch event.Status {
	case "approved":
		record.Status = model.PaymentSucceeded
	default:
		record.Status = model.PaymentFailed
	}
	record.ProviderRef = event.ProviderRef

	db := database.GetDB()
	if err := db.Save(record).Error; err != nil {
		return nil, err
	}

	s.notify.PaymentNotify(record)
	return record, nil
}

// DonationQR renders a PNG QR code for a hosted payment link.
func (s *TilopayService) DonationQR(link string) ([]byte, error) {
	return qrcode.Encode(link, qrcode.Medium, 256)
}

// ReconcilePending re-queries the provider for records stuck in pending
// longer than an hour. Used by the reconciliation job; failures are
// logged per record and skipped.
func (s *TilopayService) ReconcilePending(ctx context.Context) {
	db := database.GetDB()
	var pending []*model.PaymentRecord
	cutoff := time.Now().Add(-time.Hour)
	err := db.Where("status = ? AND created_at < ?", model.PaymentPending, cutoff).Find(&pending).Error
	if err != nil {
		logger.Warning("payment reconcile: query pending:", err)
		return
	}

	for _, record := range pending {
		status, err := s.consultOrder(ctx, record.OrderId)
		if err != nil {
			logger.Warningf("payment reconcile: order %s: %v", record.OrderId, err)
			continue
		}
		switch status {
		case "approved":
			record.Status = model.PaymentSucceeded
		case "declined":
			record.Status = model.PaymentFailed
		default:
			continue
		}
		if err := db.Save(record).Error; err != nil {
			logger.Warningf("payment reconcile: save %s: %v", record.OrderId, err)
		}
	}
}

func (s *TilopayService) consultOrder(ctx context.Context, orderId string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/api/v1/consult?order="+orderId, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("consult returned %d", resp.StatusCode)
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Status, nil
}
