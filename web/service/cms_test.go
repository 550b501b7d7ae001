package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/satyogainstitute/portal/caching"
)

func TestGetArticlesFlattensEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pagination[page]"); got != "2" {
			t.Errorf("pagination[page] = %q, want 2", got)
		}
		w.Write([]byte(`{
			"data": [
				{"id": 9, "attributes": {"slug": "first", "title": "First"}},
				{"id": 10, "attributes": {"slug": "second", "title": "Second"}}
			],
			"meta": {"pagination": {"page": 2, "pageSize": 2, "pageCount": 5, "total": 10}}
		}`))
	}))
	defer srv.Close()

	c := NewCMSClient(srv.URL, "", caching.NewCache(time.Minute))
	articles, pagination, err := c.GetArticles(context.Background(), 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles", len(articles))
	}
	if articles[0].Id != 9 || articles[0].Slug != "first" {
		t.Errorf("article[0] = %+v", articles[0])
	}
	if pagination.PageCount != 5 || pagination.Total != 10 {
		t.Errorf("pagination = %+v", pagination)
	}
}

func TestGetArticlesSkipsMalformedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"data": [
				{"id": 1, "attributes": {"slug": "good", "title": "Good"}},
				{"id": 2, "attributes": "not-an-object"},
				{"id": 3, "attributes": {"slug": "also-good", "title": "Also Good"}}
			]
		}`))
	}))
	defer srv.Close()

	c := NewCMSClient(srv.URL, "", caching.NewCache(time.Minute))
	articles, _, err := c.GetArticles(context.Background(), 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 2 {
		t.Fatalf("got %d articles, want malformed entry skipped", len(articles))
	}
}

func TestGetArticleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	c := NewCMSClient(srv.URL, "", caching.NewCache(time.Minute))
	_, err := c.GetArticle(context.Background(), "missing")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", fe.Status)
	}
}

func TestCMSErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": null, "error": {"status": 403, "name": "ForbiddenError", "message": "token expired"}}`))
	}))
	defer srv.Close()

	c := NewCMSClient(srv.URL, "", caching.NewCache(time.Minute))
	_, err := c.GetCourses(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Status != 403 || fe.Msg != "token expired" {
		t.Errorf("err = %+v", fe)
	}
}

func TestGetCoursesUsesCache(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(`{"data": [{"id": 1, "attributes": {"slug": "c", "title": "C"}}]}`))
	}))
	defer srv.Close()

	c := NewCMSClient(srv.URL, "", caching.NewCache(time.Minute))
	for i := 0; i < 3; i++ {
		if _, err := c.GetCourses(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("upstream hits = %d, want 1 (cached)", got)
	}
}

func TestCMSSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer cms-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	c := NewCMSClient(srv.URL, "cms-token", caching.NewCache(time.Minute))
	if _, err := c.GetRetreats(context.Background()); err != nil {
		t.Fatal(err)
	}
}
