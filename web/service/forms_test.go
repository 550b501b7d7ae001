package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/satyogainstitute/portal/database"
)

func TestFormSubmitRelayed(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/forms/contact/submissions" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	svc := NewFormService(backend)

	id, err := svc.Submit(context.Background(), "", "contact", map[string]any{"email": "a@example.org"})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty submission id")
	}

	subs, err := svc.ListSubmissions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || !subs[0].Relayed {
		t.Errorf("submissions = %+v, want one relayed entry", subs)
	}
}

// A backend outage must not lose the submission: it stays journaled
// unrelayed and the caller still gets an id.
func TestFormSubmitOutageJournals(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	svc := NewFormService(NewBackendClient("http://127.0.0.1:1"))

	id, err := svc.Submit(context.Background(), "", "contact", map[string]any{"email": "a@example.org"})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty submission id")
	}

	subs, err := svc.ListSubmissions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0].Relayed {
		t.Errorf("submissions = %+v, want one unrelayed entry", subs)
	}
}

// Validation failures go back to the user and are not kept for retry.
func TestFormSubmitValidationError(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": {"fields": [{"field": "email", "msg": "invalid email"}]}}`))
	})
	svc := NewFormService(backend)

	_, err := svc.Submit(context.Background(), "", "contact", map[string]any{"email": "nope"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}

	subs, err := svc.ListSubmissions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 0 {
		t.Errorf("validation-failed submission should not stay journaled, got %+v", subs)
	}
}

func TestRetryUnrelayed(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}

	// First submit against a dead backend to journal an unrelayed entry.
	svc := NewFormService(NewBackendClient("http://127.0.0.1:1"))
	if _, err := svc.Submit(context.Background(), "", "contact", map[string]any{"email": "a@example.org"}); err != nil {
		t.Fatal(err)
	}

	// Retry once the backend is reachable.
	backend := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	svc = NewFormService(backend)
	svc.RetryUnrelayed(context.Background())

	subs, err := svc.ListSubmissions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || !subs[0].Relayed {
		t.Errorf("submissions = %+v, want relayed after retry", subs)
	}
}
