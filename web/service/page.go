package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/web/entity"
)

// PageService composes CMS and backend fetches into per-page props.
// Independent calls for one page run concurrently, each resolving to
// data or a safe default plus an error marker; one upstream failing
// never discards a sibling's successful data, and no failure escapes
// to the renderer.
type PageService struct {
	cms     *CMSClient
	backend *BackendClient
}

func NewPageService(cms *CMSClient, backend *BackendClient) *PageService {
	return &PageService{cms: cms, backend: backend}
}

// Section is one independently fetched portion of a page: either its
// data or an error marker the template turns into a panel.
type Section[T any] struct {
	Data   T      `json:"data"`
	Failed bool   `json:"failed"`
	ErrMsg string `json:"errMsg,omitempty"`
}

func okSection[T any](data T) Section[T] {
	return Section[T]{Data: data}
}

// failedSection logs the upstream failure with its context and returns
// the error-marker section. Raw details stay in the log, not the page.
func failedSection[T any](page string, err error) Section[T] {
	logger.Warningf("page %s: %v", page, err)
	return Section[T]{Failed: true, ErrMsg: "content temporarily unavailable"}
}

// HomeProps feeds the public home page.
type HomeProps struct {
	Intro    Section[*StaticPage] `json:"intro"`
	Articles Section[[]Article]   `json:"articles"`
	Retreats Section[[]Retreat]   `json:"retreats"`
}

// Home fetches the three independent home page sections concurrently.
func (s *PageService) Home(ctx context.Context) HomeProps {
	var (
		wg       sync.WaitGroup
		intro    *StaticPage
		articles []Article
		retreats []Retreat
		introErr, articlesErr, retreatsErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		intro, introErr = s.cms.GetStaticPage(ctx, "home")
	}()
	go func() {
		defer wg.Done()
		articles, _, articlesErr = s.cms.GetArticles(ctx, 1, 3)
	}()
	go func() {
		defer wg.Done()
		retreats, retreatsErr = s.cms.GetRetreats(ctx)
	}()
	wg.Wait()

	props := HomeProps{}
	if introErr != nil {
		props.Intro = failedSection[*StaticPage]("home", introErr)
	} else {
		props.Intro = okSection(intro)
	}
	if articlesErr != nil {
		props.Articles = failedSection[[]Article]("home", articlesErr)
	} else {
		props.Articles = okSection(articles)
	}
	if retreatsErr != nil {
		props.Retreats = failedSection[[]Retreat]("home", retreatsErr)
	} else {
		props.Retreats = okSection(retreats)
	}
	return props
}

// TeachingsProps feeds the teachings blog index.
type TeachingsProps struct {
	Articles   Section[[]Article] `json:"articles"`
	Pagination entity.Pagination  `json:"pagination"`
}

func (s *PageService) Teachings(ctx context.Context, page, pageSize int) TeachingsProps {
	articles, pagination, err := s.cms.GetArticles(ctx, page, pageSize)
	if err != nil {
		return TeachingsProps{Articles: failedSection[[]Article]("teachings", err)}
	}
	return TeachingsProps{Articles: okSection(articles), Pagination: *pagination}
}

// FlushContentCache drops every cached CMS entry, forcing fresh pulls.
func (s *PageService) FlushContentCache() {
	s.cms.cache.Flush()
}

// Article fetches a single article; 404s pass through to the caller so
// the controller can render a not-found page.
func (s *PageService) Article(ctx context.Context, slug string) (*Article, error) {
	return s.cms.GetArticle(ctx, slug)
}

// CoursesProps feeds the public course catalog.
type CoursesProps struct {
	Courses Section[[]CourseContent] `json:"courses"`
}

func (s *PageService) Courses(ctx context.Context) CoursesProps {
	courses, err := s.cms.GetCourses(ctx)
	if err != nil {
		return CoursesProps{Courses: failedSection[[]CourseContent]("courses", err)}
	}
	return CoursesProps{Courses: okSection(courses)}
}

// RetreatsProps feeds the retreats page.
type RetreatsProps struct {
	Retreats Section[[]Retreat] `json:"retreats"`
}

func (s *PageService) Retreats(ctx context.Context) RetreatsProps {
	retreats, err := s.cms.GetRetreats(ctx)
	if err != nil {
		return RetreatsProps{Retreats: failedSection[[]Retreat]("retreats", err)}
	}
	return RetreatsProps{Retreats: okSection(retreats)}
}

// StaticProps feeds a CMS-managed static page.
type StaticProps struct {
	Page Section[*StaticPage] `json:"page"`
}

func (s *PageService) Static(ctx context.Context, slug string) StaticProps {
	page, err := s.cms.GetStaticPage(ctx, slug)
	if err != nil {
		return StaticProps{Page: failedSection[*StaticPage]("page:"+slug, err)}
	}
	return StaticProps{Page: okSection(page)}
}

// CourseDetailProps merges the CMS editorial content with the backend's
// access decision for the current principal.
type CourseDetailProps struct {
	Course         Section[*CourseContent] `json:"course"`
	Access         Section[*CourseAccess]  `json:"access"`
	UpgradePrompt  bool                    `json:"upgradePrompt"`
	RequiredTier   model.Tier              `json:"requiredTier,omitempty"`
	NotFound       bool                    `json:"notFound"`
}

// CourseDetail fetches course content and access concurrently. The
// access call is only attempted with a bearer token; anonymous visitors
// get the public preview. A tier-gated refusal becomes an upgrade
// prompt, not an error panel.
func (s *PageService) CourseDetail(ctx context.Context, p *model.Principal, slug string) CourseDetailProps {
	var (
		wg     sync.WaitGroup
		course *CourseContent
		access *CourseAccess
		courseErr, accessErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		course, courseErr = s.cms.GetCourse(ctx, slug)
	}()

	if p != nil && p.AccessToken != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			access, accessErr = s.backend.GetCourseAccess(ctx, p.AccessToken, slug)
		}()
	}
	wg.Wait()

	props := CourseDetailProps{}

	if courseErr != nil {
		var fe *FetchError
		if errors.As(courseErr, &fe) && fe.Status == 404 {
			props.NotFound = true
			return props
		}
		props.Course = failedSection[*CourseContent]("course:"+slug, courseErr)
	} else {
		props.Course = okSection(course)
	}

	switch {
	case p == nil || p.AccessToken == "":
		// Anonymous preview: no access call was made.
		props.Access = okSection[*CourseAccess](nil)
	case accessErr != nil:
		var te *TierError
		if errors.As(accessErr, &te) {
			props.UpgradePrompt = true
			props.RequiredTier = te.RequiredTier
			props.Access = okSection[*CourseAccess](nil)
		} else {
			props.Access = failedSection[*CourseAccess]("course:"+slug, accessErr)
		}
	default:
		props.Access = okSection(access)
	}
	return props
}

// DashboardProps feeds the member dashboard.
type DashboardProps struct {
	Profile         Section[*Profile]         `json:"profile"`
	Events          Section[[]CalendarEvent]  `json:"events"`
	Recommendations Section[[]Recommendation] `json:"recommendations"`
	Forum           Section[[]ForumPost]      `json:"forum"`
}

// Dashboard fetches profile, calendar and recommendations concurrently
// with the principal's bearer token.
func (s *PageService) Dashboard(ctx context.Context, p *model.Principal) DashboardProps {
	token := ""
	if p != nil {
		token = p.AccessToken
	}
	if token == "" {
		// The gate redirects anonymous requests before this point; an
		// empty token here means a stale session, so render empty-state.
		empty := failedSection[*Profile]("dashboard", errors.New("no bearer token in session"))
		return DashboardProps{
			Profile:         empty,
			Events:          Section[[]CalendarEvent]{Failed: true, ErrMsg: empty.ErrMsg},
			Recommendations: Section[[]Recommendation]{Failed: true, ErrMsg: empty.ErrMsg},
			Forum:           Section[[]ForumPost]{Failed: true, ErrMsg: empty.ErrMsg},
		}
	}

	from := time.Now().Format("2006-01-02")
	to := time.Now().AddDate(0, 1, 0).Format("2006-01-02")

	var (
		wg      sync.WaitGroup
		profile *Profile
		events  []CalendarEvent
		recs    []Recommendation
		posts   []ForumPost
		profileErr, eventsErr, recsErr, forumErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		profile, profileErr = s.backend.GetProfile(ctx, token)
	}()
	go func() {
		defer wg.Done()
		events, eventsErr = s.backend.GetCalendarEvents(ctx, token, from, to)
	}()
	go func() {
		defer wg.Done()
		recs, recsErr = s.backend.GetRecommendations(ctx, token)
	}()
	go func() {
		defer wg.Done()
		posts, forumErr = s.backend.GetForumLatest(ctx, token)
	}()
	wg.Wait()

	props := DashboardProps{}
	if profileErr != nil {
		props.Profile = failedSection[*Profile]("dashboard", profileErr)
	} else {
		props.Profile = okSection(profile)
	}
	if eventsErr != nil {
		props.Events = failedSection[[]CalendarEvent]("dashboard", eventsErr)
	} else {
		props.Events = okSection(events)
	}
	if recsErr != nil {
		props.Recommendations = failedSection[[]Recommendation]("dashboard", recsErr)
	} else {
		props.Recommendations = okSection(recs)
	}
	if forumErr != nil {
		props.Forum = failedSection[[]ForumPost]("dashboard", forumErr)
	} else {
		props.Forum = okSection(posts)
	}
	return props
}
