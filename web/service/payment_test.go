package service

import (
	"testing"

	"github.com/satyogainstitute/portal/database"
	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/util/crypto"
)

func newTestTilopay(t *testing.T) *TilopayService {
	t.Helper()
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	return NewTilopayService("http://unused", "key", "user", "pw", "whk-secret", &NotifyService{})
}

func TestHandleWebhookSettlesRecord(t *testing.T) {
	s := newTestTilopay(t)

	record, err := s.CreateRecord(3, 5000, "USD", "donation", "d@example.org")
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != model.PaymentPending {
		t.Fatalf("new record status = %q", record.Status)
	}

	body := []byte(`{"order_id": "` + record.OrderId + `", "status": "approved", "provider_ref": "tp-77"}`)
	sig := crypto.SignHMAC("whk-secret", body)

	settled, err := s.HandleWebhook(body, sig)
	if err != nil {
		t.Fatal(err)
	}
	if settled.Status != model.PaymentSucceeded {
		t.Errorf("status = %q, want succeeded", settled.Status)
	}
	if settled.ProviderRef != "tp-77" {
		t.Errorf("providerRef = %q", settled.ProviderRef)
	}

	stored, err := s.GetRecord(record.OrderId)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != model.PaymentSucceeded {
		t.Errorf("stored status = %q, want succeeded", stored.Status)
	}
}

func TestHandleWebhookDeclined(t *testing.T) {
	s := newTestTilopay(t)

	record, err := s.CreateRecord(0, 2500, "USD", "donation", "")
	if err != nil {
		t.Fatal(err)
	}

	body := []byte(`{"order_id": "` + record.OrderId + `", "status": "declined"}`)
	settled, err := s.HandleWebhook(body, crypto.SignHMAC("whk-secret", body))
	if err != nil {
		t.Fatal(err)
	}
	if settled.Status != model.PaymentFailed {
		t.Errorf("status = %q, want failed", settled.Status)
	}
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	s := newTestTilopay(t)

	record, err := s.CreateRecord(0, 2500, "USD", "donation", "")
	if err != nil {
		t.Fatal(err)
	}

	body := []byte(`{"order_id": "` + record.OrderId + `", "status": "approved"}`)
	tests := []struct {
		name string
		sig  string
	}{
		{"empty", ""},
		{"wrong key", crypto.SignHMAC("other-secret", body)},
		{"tampered body", crypto.SignHMAC("whk-secret", []byte(`{}`))},
	}
	for _, tc := range tests {
		if _, err := s.HandleWebhook(body, tc.sig); err == nil {
			t.Errorf("%s: webhook accepted", tc.name)
		}
	}

	// Record must stay pending after rejected deliveries.
	stored, err := s.GetRecord(record.OrderId)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != model.PaymentPending {
		t.Errorf("status = %q after rejected webhooks, want pending", stored.Status)
	}
}

func TestHandleWebhookUnknownOrder(t *testing.T) {
	s := newTestTilopay(t)

	body := []byte(`{"order_id": "never-created", "status": "approved"}`)
	if _, err := s.HandleWebhook(body, crypto.SignHMAC("whk-secret", body)); err == nil {
		t.Error("unknown order accepted")
	}
}

func TestDonationQR(t *testing.T) {
	s := newTestTilopay(t)

	png, err := s.DonationQR("https://donate.satyoga.org/give")
	if err != nil {
		t.Fatal(err)
	}
	if len(png) == 0 {
		t.Fatal("empty png")
	}
	// PNG magic bytes.
	if png[0] != 0x89 || string(png[1:4]) != "PNG" {
		t.Error("output is not a png")
	}
}
