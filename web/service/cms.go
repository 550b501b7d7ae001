package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/satyogainstitute/portal/caching"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/util/metrics"
	"github.com/satyogainstitute/portal/web/entity"
)

const maxCMSResponseBytes = 4 << 20

// Article is an editorial post from the teachings blog.
type Article struct {
	Id          int       `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt"`
	Body        string    `json:"body"`
	CoverURL    string    `json:"coverUrl"`
	PublishedAt time.Time `json:"publishedAt"`
}

// CourseContent is the editorial half of a course; enrollment and tier
// state live in the application backend.
type CourseContent struct {
	Id           int    `json:"id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	Body         string `json:"body"`
	Instructor   string `json:"instructor"`
	RequiredTier string `json:"requiredTier"`
	CoverURL     string `json:"coverUrl"`
}

// Retreat is a scheduled on-site or online retreat.
type Retreat struct {
	Id       int    `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Body     string `json:"body"`
	Location string `json:"location"`
	StartsOn string `json:"startsOn"`
	EndsOn   string `json:"endsOn"`
}

// StaticPage is CMS-managed copy for a public page (about, contact...).
type StaticPage struct {
	Id    int    `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CMSClient fetches content objects from the Strapi-style CMS. Relation
// fields arrive nested under a data/attributes envelope; the client
// flattens them into plain structs. Cacheable collections go through
// the shared TTL cache.
type CMSClient struct {
	base  string
	token string
	http  *http.Client
	cache *caching.Cache
}

// NewCMSClient builds a client for the given base URL. token may be
// empty for deployments where every collection is public.
func NewCMSClient(base, token string, cache *caching.Cache) *CMSClient {
	return &CMSClient{
		base:  base,
		token: token,
		http:  &http.Client{Timeout: 10 * time.Second},
		cache: cache,
	}
}

type cmsEntry struct {
	Id         int             `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

type cmsEnvelope struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		Pagination entity.Pagination `json:"pagination"`
	} `json:"meta"`
	Error *struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

// get performs one GET against the CMS and returns the raw envelope.
func (c *CMSClient) get(ctx context.Context, path string, query url.Values) (*cmsEnvelope, error) {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream("cms", "error")
		return nil, &FetchError{Endpoint: path, Status: 0, Msg: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCMSResponseBytes))
	if err != nil {
		metrics.ObserveUpstream("cms", "error")
		return nil, &FetchError{Endpoint: path, Status: resp.StatusCode, Msg: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveUpstream("cms", fmt.Sprintf("http_%d", resp.StatusCode))
		return nil, &FetchError{Endpoint: path, Status: resp.StatusCode, Body: string(body), Msg: http.StatusText(resp.StatusCode)}
	}

	var envelope cmsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		metrics.ObserveUpstream("cms", "error")
		return nil, &FetchError{Endpoint: path, Status: resp.StatusCode, Body: string(body), Msg: "malformed CMS response: " + err.Error()}
	}
	if envelope.Error != nil {
		metrics.ObserveUpstream("cms", fmt.Sprintf("http_%d", envelope.Error.Status))
		return nil, &FetchError{Endpoint: path, Status: envelope.Error.Status, Body: string(body), Msg: envelope.Error.Message}
	}

	metrics.ObserveUpstream("cms", "ok")
	return &envelope, nil
}

// decodeCollection flattens the envelope's data array of id+attributes
// entries into plain structs. Malformed entries are skipped, not fatal.
func decodeCollection[T any](envelope *cmsEnvelope, path string) ([]T, error) {
	var entries []cmsEntry
	if err := json.Unmarshal(envelope.Data, &entries); err != nil {
		return nil, &FetchError{Endpoint: path, Msg: "malformed CMS collection: " + err.Error()}
	}

	items := make([]T, 0, len(entries))
	for _, entry := range entries {
		var item T
		if err := json.Unmarshal(entry.Attributes, &item); err != nil {
			logger.Warningf("skipping malformed CMS entry %d on %s: %v", entry.Id, path, err)
			continue
		}
		setEntryId(&item, entry.Id)
		items = append(items, item)
	}
	return items, nil
}

func decodeSingle[T any](envelope *cmsEnvelope, path string) (*T, error) {
	var entry cmsEntry
	if err := json.Unmarshal(envelope.Data, &entry); err != nil {
		return nil, &FetchError{Endpoint: path, Msg: "malformed CMS entry: " + err.Error()}
	}
	var item T
	if err := json.Unmarshal(entry.Attributes, &item); err != nil {
		return nil, &FetchError{Endpoint: path, Msg: "malformed CMS attributes: " + err.Error()}
	}
	setEntryId(&item, entry.Id)
	return &item, nil
}

// setEntryId copies the envelope id into the flattened struct.
func setEntryId(item any, id int) {
	switch v := item.(type) {
	case *Article:
		v.Id = id
	case *CourseContent:
		v.Id = id
	case *Retreat:
		v.Id = id
	case *StaticPage:
		v.Id = id
	}
}

// GetArticles returns one page of published articles, newest first.
func (c *CMSClient) GetArticles(ctx context.Context, page, pageSize int) ([]Article, *entity.Pagination, error) {
	cacheKey := fmt.Sprintf("cms:articles:%d:%d", page, pageSize)
	if v, ok := c.cache.Get(cacheKey); ok {
		cached := v.(articlesPage)
		return cached.items, &cached.pagination, nil
	}

	query := url.Values{}
	query.Set("sort", "publishedAt:desc")
	query.Set("pagination[page]", fmt.Sprint(page))
	query.Set("pagination[pageSize]", fmt.Sprint(pageSize))

	envelope, err := c.get(ctx, "/api/articles", query)
	if err != nil {
		return nil, nil, err
	}
	items, err := decodeCollection[Article](envelope, "/api/articles")
	if err != nil {
		return nil, nil, err
	}

	c.cache.Set(cacheKey, articlesPage{items: items, pagination: envelope.Meta.Pagination})
	return items, &envelope.Meta.Pagination, nil
}

type articlesPage struct {
	items      []Article
	pagination entity.Pagination
}

// GetArticle fetches one article by slug.
func (c *CMSClient) GetArticle(ctx context.Context, slug string) (*Article, error) {
	cacheKey := "cms:article:" + slug
	if v, ok := c.cache.Get(cacheKey); ok {
		cached := v.(Article)
		return &cached, nil
	}

	query := url.Values{}
	query.Set("filters[slug][$eq]", slug)

	envelope, err := c.get(ctx, "/api/articles", query)
	if err != nil {
		return nil, err
	}
	items, err := decodeCollection[Article](envelope, "/api/articles")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &FetchError{Endpoint: "/api/articles", Status: http.StatusNotFound, Msg: "article not found: " + slug}
	}

	c.cache.Set(cacheKey, items[0])
	return &items[0], nil
}

// GetCourses returns the editorial course catalog.
func (c *CMSClient) GetCourses(ctx context.Context) ([]CourseContent, error) {
	if v, ok := c.cache.Get("cms:courses"); ok {
		return v.([]CourseContent), nil
	}

	envelope, err := c.get(ctx, "/api/courses", nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeCollection[CourseContent](envelope, "/api/courses")
	if err != nil {
		return nil, err
	}

	c.cache.Set("cms:courses", items)
	return items, nil
}

// GetCourse fetches one course's editorial content by slug.
func (c *CMSClient) GetCourse(ctx context.Context, slug string) (*CourseContent, error) {
	query := url.Values{}
	query.Set("filters[slug][$eq]", slug)

	envelope, err := c.get(ctx, "/api/courses", query)
	if err != nil {
		return nil, err
	}
	items, err := decodeCollection[CourseContent](envelope, "/api/courses")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &FetchError{Endpoint: "/api/courses", Status: http.StatusNotFound, Msg: "course not found: " + slug}
	}
	return &items[0], nil
}

// GetRetreats returns upcoming retreats.
func (c *CMSClient) GetRetreats(ctx context.Context) ([]Retreat, error) {
	if v, ok := c.cache.Get("cms:retreats"); ok {
		return v.([]Retreat), nil
	}

	query := url.Values{}
	query.Set("sort", "startsOn:asc")

	envelope, err := c.get(ctx, "/api/retreats", query)
	if err != nil {
		return nil, err
	}
	items, err := decodeCollection[Retreat](envelope, "/api/retreats")
	if err != nil {
		return nil, err
	}

	c.cache.Set("cms:retreats", items)
	return items, nil
}

// GetStaticPage fetches CMS-managed copy for a public page.
func (c *CMSClient) GetStaticPage(ctx context.Context, slug string) (*StaticPage, error) {
	cacheKey := "cms:page:" + slug
	if v, ok := c.cache.Get(cacheKey); ok {
		cached := v.(StaticPage)
		return &cached, nil
	}

	query := url.Values{}
	query.Set("filters[slug][$eq]", slug)

	envelope, err := c.get(ctx, "/api/pages", query)
	if err != nil {
		return nil, err
	}
	items, err := decodeCollection[StaticPage](envelope, "/api/pages")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &FetchError{Endpoint: "/api/pages", Status: http.StatusNotFound, Msg: "page not found: " + slug}
	}

	c.cache.Set(cacheKey, items[0])
	return &items[0], nil
}

// WarmCache refreshes the hot public collections, used by the periodic
// cache warm job. Failures are logged and skipped.
func (c *CMSClient) WarmCache(ctx context.Context) {
	c.cache.Delete("cms:courses")
	c.cache.Delete("cms:retreats")

	if _, err := c.GetCourses(ctx); err != nil {
		logger.Warning("cache warm: courses:", err)
	}
	if _, err := c.GetRetreats(ctx); err != nil {
		logger.Warning("cache warm: retreats:", err)
	}
	if _, _, err := c.GetArticles(ctx, 1, 20); err != nil {
		logger.Warning("cache warm: articles:", err)
	}
}
