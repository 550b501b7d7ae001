package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/util/metrics"
)

const maxBackendResponseBytes = 1 << 20

// upgradeRequiredCode is the application backend's distinguished signal
// for tier-gated endpoints, sent instead of a generic 403.
const upgradeRequiredCode = "UPGRADE_REQUIRED"

// AuthResult is the backend's response to a successful login or refresh.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		Id    int    `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
		Tier  string `json:"membership_tier"`
	} `json:"user"`
}

// Profile is the member profile as served by the application backend.
type Profile struct {
	Id       int    `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Tier     string `json:"membership_tier"`
	JoinedAt string `json:"joined_at"`
}

// CalendarEvent is one entry of the member calendar.
type CalendarEvent struct {
	Id       int    `json:"id"`
	Title    string `json:"title"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	Kind     string `json:"kind"` // satsang | class | retreat
	Online   bool   `json:"online"`
}

// Recommendation is a content suggestion computed by the backend.
type Recommendation struct {
	Kind  string `json:"kind"` // article | course | retreat
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Why   string `json:"reason"`
}

// ForumPost is one thread summary from the community forum.
type ForumPost struct {
	Id       int    `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Replies  int    `json:"replies"`
	PostedAt string `json:"posted_at"`
}

// CourseAccess reports whether the principal may open a course's
// full material.
type CourseAccess struct {
	CourseSlug string `json:"course_slug"`
	Granted    bool   `json:"granted"`
	Enrolled   bool   `json:"enrolled"`
}

// Order is a commerce order created on the backend.
type Order struct {
	Id          string `json:"id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// FormField describes one field-level validation error.
type FormField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

// ValidationError carries field-level form errors from the backend.
type ValidationError struct {
	Fields []FormField
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// BackendClient talks to the application backend (auth, calendar,
// recommendations, forms, commerce, audit). Tier-gated endpoints answer
// with the UPGRADE_REQUIRED code, surfaced here as *TierError.
type BackendClient struct {
	base string
	http *http.Client
}

func NewBackendClient(base string) *BackendClient {
	return &BackendClient{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type backendDetail struct {
	Detail struct {
		Code         string      `json:"code"`
		RequiredTier string      `json:"required_tier"`
		Msg          string      `json:"msg"`
		Fields       []FormField `json:"fields"`
	} `json:"detail"`
}

// do issues one request. If token is empty and the endpoint requires
// auth, the caller must not reach this point; fetchers substitute a
// public variant or an empty default instead.
func (b *BackendClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.base+path, reqBody)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream("backend", "error")
		return &FetchError{Endpoint: path, Status: 0, Msg: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBackendResponseBytes))
	if err != nil {
		metrics.ObserveUpstream("backend", "error")
		return &FetchError{Endpoint: path, Status: resp.StatusCode, Msg: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveUpstream("backend", fmt.Sprintf("http_%d", resp.StatusCode))
		return b.errorFrom(path, resp.StatusCode, body)
	}

	metrics.ObserveUpstream("backend", "ok")
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Endpoint: path, Status: resp.StatusCode, Body: string(body), Msg: "malformed backend response: " + err.Error()}
	}
	return nil
}

// errorFrom maps a non-2xx response to the richest error type the body
// supports: TierError, ValidationError, then FetchError.
func (b *BackendClient) errorFrom(path string, status int, body []byte) error {
	var detail backendDetail
	if err := json.Unmarshal(body, &detail); err == nil {
		if detail.Detail.Code == upgradeRequiredCode {
			return &TierError{
				RequiredTier: model.ParseTier(detail.Detail.RequiredTier),
				Msg:          detail.Detail.Msg,
			}
		}
		if len(detail.Detail.Fields) > 0 {
			return &ValidationError{Fields: detail.Detail.Fields}
		}
		if detail.Detail.Msg != "" {
			return &FetchError{Endpoint: path, Status: status, Body: string(body), Msg: detail.Detail.Msg}
		}
	}
	return &FetchError{Endpoint: path, Status: status, Body: string(body), Msg: http.StatusText(status)}
}

// Login exchanges credentials for tokens and builds the session
// principal. Role and tier come from the access token claims when
// present, falling back to the user object; the backend remains the
// sole verifier of the token signature.
func (b *BackendClient) Login(ctx context.Context, email, password string) (*model.Principal, error) {
	var result AuthResult
	in := map[string]string{"email": email, "password": password}
	if err := b.do(ctx, http.MethodPost, "/api/auth/login", "", in, &result); err != nil {
		return nil, err
	}

	p := &model.Principal{
		Id:           result.User.Id,
		Email:        result.User.Email,
		Name:         result.User.Name,
		Role:         model.ParseRole(result.User.Role),
		Tier:         model.ParseTier(result.User.Tier),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}

	if claims := decodeClaims(result.AccessToken); claims != nil {
		if role, ok := claims["role"].(string); ok {
			p.Role = model.ParseRole(role)
		}
		if tier, ok := claims["tier"].(string); ok {
			p.Tier = model.ParseTier(tier)
		}
	}
	return p, nil
}

// decodeClaims parses the JWT payload without verifying the signature;
// display-only fields, never an authorization source on its own.
func decodeClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}

// Refresh trades a refresh token for a new token pair.
func (b *BackendClient) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	var result AuthResult
	in := map[string]string{"refresh_token": refreshToken}
	if err := b.do(ctx, http.MethodPost, "/api/auth/refresh", "", in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProfile fetches the member profile.
func (b *BackendClient) GetProfile(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	if err := b.do(ctx, http.MethodGet, "/api/members/me", token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetCalendarEvents fetches the member calendar for a date range.
func (b *BackendClient) GetCalendarEvents(ctx context.Context, token, from, to string) ([]CalendarEvent, error) {
	var events []CalendarEvent
	path := fmt.Sprintf("/api/calendar/events?from=%s&to=%s", from, to)
	if err := b.do(ctx, http.MethodGet, path, token, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetRecommendations fetches personalized content suggestions.
func (b *BackendClient) GetRecommendations(ctx context.Context, token string) ([]Recommendation, error) {
	var recs []Recommendation
	if err := b.do(ctx, http.MethodGet, "/api/recommendations", token, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetForumLatest fetches the newest community forum threads.
func (b *BackendClient) GetForumLatest(ctx context.Context, token string) ([]ForumPost, error) {
	var posts []ForumPost
	if err := b.do(ctx, http.MethodGet, "/api/forum/latest", token, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpsertCourse creates or updates a course on the backend's admin API.
func (b *BackendClient) UpsertCourse(ctx context.Context, token string, course map[string]any) error {
	return b.do(ctx, http.MethodPost, "/api/admin/courses", token, course, nil)
}

// DeleteCourse removes a course on the backend's admin API.
func (b *BackendClient) DeleteCourse(ctx context.Context, token, slug string) error {
	return b.do(ctx, http.MethodDelete, "/api/admin/courses/"+slug, token, nil, nil)
}

// GetCourseAccess asks whether the principal may open a course. A
// *TierError return means the course exists but needs a higher tier.
func (b *BackendClient) GetCourseAccess(ctx context.Context, token, courseSlug string) (*CourseAccess, error) {
	var access CourseAccess
	path := "/api/courses/" + courseSlug + "/access"
	if err := b.do(ctx, http.MethodGet, path, token, nil, &access); err != nil {
		return nil, err
	}
	return &access, nil
}

// SubmitForm relays a form submission. Field-level failures come back
// as *ValidationError.
func (b *BackendClient) SubmitForm(ctx context.Context, token, formSlug string, payload map[string]any) error {
	return b.do(ctx, http.MethodPost, "/api/forms/"+formSlug+"/submissions", token, payload, nil)
}

// CreateOrder opens a commerce order ahead of payment.
func (b *BackendClient) CreateOrder(ctx context.Context, token string, amountCents int64, currency, purpose string) (*Order, error) {
	var order Order
	in := map[string]any{
		"amount_cents": amountCents,
		"currency":     currency,
		"purpose":      purpose,
	}
	if err := b.do(ctx, http.MethodPost, "/api/commerce/orders", token, in, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// SendCampaign triggers an email campaign send on the backend.
func (b *BackendClient) SendCampaign(ctx context.Context, token, campaignId string) error {
	return b.do(ctx, http.MethodPost, "/api/campaigns/"+campaignId+"/send", token, nil, nil)
}

// RelayAuditEvent forwards a local admin action to the backend's audit
// trail. Best effort; callers log and continue on failure.
func (b *BackendClient) RelayAuditEvent(ctx context.Context, token string, event map[string]any) error {
	return b.do(ctx, http.MethodPost, "/api/audit/events", token, event, nil)
}
