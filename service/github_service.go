package service

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Scalingo/sclng-repo-health/cache"
	"github.com/Scalingo/sclng-repo-health/config"
	"github.com/Scalingo/sclng-repo-health/logger"
	"github.com/Scalingo/sclng-repo-health/metrics"
	"github.com/Scalingo/sclng-repo-health/model"
	"github.com/Scalingo/sclng-repo-health/scoring"
	"github.com/google/go-github/v66/github"

	log "github.com/sirupsen/logrus"

	"golang.org/x/time/rate"
)

const maxPerPage = 100

type GithubService interface {
	SearchRepositories(ctx context.Context, searchQuery model.SearchQuery) (model.SearchResult, error)
	GetRepository(ctx context.Context, owner string, name string) (model.DisplayRepository, error)
	CompareRepositories(ctx context.Context, fullNames []string) (model.Comparison, error)
	EnrichRepositories(ctx context.Context, repos []model.RepositoryMetadata) []model.RepositoryMetadata

	HandleRequestErrors(err error) error
}

type githubService struct {
	githubClient      *github.Client
	githubRateLimiter *rate.Limiter
	cache             cache.Store
	metrics           *metrics.Metrics
	config            config.Config
	nowFunc           func() time.Time
}

// Every search consume one request, then up to three enrichment requests per repository.
// Enrichment requests are only made while the local rate limiter allows them,
// the others are degraded to their default value
func NewGithubService(config config.Config, githubClient *github.Client, rateLimiter *rate.Limiter, store cache.Store, m *metrics.Metrics) GithubService {
	return newGithubService(config, githubClient, rateLimiter, store, m, time.Now)
}

func newGithubService(config config.Config, githubClient *github.Client, rateLimiter *rate.Limiter, store cache.Store, m *metrics.Metrics, nowFunc func() time.Time) githubService {
	if store == nil {
		store = cache.NopStore{}
	}

	if m == nil {
		m = metrics.New()
	}

	return githubService{
		githubClient:      githubClient,
		githubRateLimiter: rateLimiter,
		cache:             store,
		metrics:           m,
		config:            config,
		nowFunc:           nowFunc,
	}
}

func (s githubService) SearchRepositories(ctx context.Context, searchQuery model.SearchQuery) (model.SearchResult, error) {
	page, perPage := s.pagination(searchQuery)

	if !s.githubRateLimiter.Allow() {
		log.Warning("the Github rate limit has been reached. Use a token or wait until the limit reset")
		s.metrics.SearchesTotal.WithLabelValues("rate_limited").Inc()
		return model.SearchResult{}, model.ErrRateLimitReached
	}

	githubQuery := searchQuery.ToGithubQuery(s.config.Search.OnlyPublic)

	log.WithFields(log.Fields{
		"query":   githubQuery,
		"page":    page,
		"perPage": perPage,
	}).Info("search repositories on github")

	result, _, err := s.githubClient.Search.Repositories(
		ctx,
		githubQuery,
		&github.SearchOptions{
			Sort:  "stars",
			Order: "desc",
			ListOptions: github.ListOptions{
				Page:    page,
				PerPage: perPage,
			},
		},
	)

	if err != nil {
		s.metrics.SearchesTotal.WithLabelValues("error").Inc()
		return model.SearchResult{}, s.HandleRequestErrors(err)
	}

	repositories := make([]model.RepositoryMetadata, 0, len(result.Repositories))

	for _, r := range result.Repositories {
		meta, ok := ToRepositoryMetadata(r)
		if !ok {
			log.WithField("repositoryID", r.GetID()).Debug("repository found with invalid information. skipped")
			continue
		}

		repositories = append(repositories, meta)
	}

	log.WithField("numberOfRepositories", len(repositories)).Debug("will enrich all repositories found")
	repositories = s.EnrichRepositories(ctx, repositories)

	now := s.nowFunc()
	items := make([]model.DisplayRepository, 0, len(repositories))

	for _, meta := range repositories {
		display := scoring.Transform(meta, now)
		s.metrics.HealthScore.Observe(float64(display.HealthScore))
		items = append(items, display)
	}

	items = SortRepositories(FilterRepositories(items, searchQuery), searchQuery)
	s.metrics.SearchesTotal.WithLabelValues("success").Inc()

	return model.SearchResult{
		TotalCount: result.GetTotal(),
		Page:       page,
		PerPage:    perPage,
		Items:      items,
	}, nil
}

// GetRepository load a single repository, enrich and score it
func (s githubService) GetRepository(ctx context.Context, owner string, name string) (model.DisplayRepository, error) {
	if !s.githubRateLimiter.Allow() {
		log.Warning("the Github rate limit has been reached. Use a token or wait until the limit reset")
		return model.DisplayRepository{}, model.ErrRateLimitReached
	}

	logger.WithRepository(owner, name).Debug("fetch repository from github")

	r, _, err := s.githubClient.Repositories.Get(ctx, owner, name)
	if err != nil {
		return model.DisplayRepository{}, s.HandleRequestErrors(err)
	}

	meta, ok := ToRepositoryMetadata(r)
	if !ok {
		logger.WithRepository(owner, name).Error("repository found with invalid information")
		return model.DisplayRepository{}, model.ErrFetch
	}

	enriched := s.EnrichRepositories(ctx, []model.RepositoryMetadata{meta})
	display := scoring.Transform(enriched[0], s.nowFunc())
	s.metrics.HealthScore.Observe(float64(display.HealthScore))

	return display, nil
}

// HandleRequestErrors manage errors including github rate limit errors at the same location
// If error is a rate limit error, this function will update the local rate limiter to consume all available requests
// this can help us to keep the local rate limiter up to date
func (s githubService) HandleRequestErrors(err error) error {
	var rateLimitErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError

	if errors.As(err, &rateLimitErr) || errors.As(err, &abuseErr) {
		remaining := int(s.githubRateLimiter.Tokens())
		if remaining > 0 && !s.githubRateLimiter.AllowN(time.Now(), remaining) {
			return model.ErrRateLimiter
		}

		log.Warning("the Github rate limit has been reached. Use a token or wait until the limit reset")
		return model.ErrRateLimitReached
	}

	var responseErr *github.ErrorResponse
	if errors.As(err, &responseErr) && responseErr.Response != nil && responseErr.Response.StatusCode == http.StatusNotFound {
		return model.ErrNotFound
	}

	log.WithError(err).Error("error catched when fetching data from github")
	return model.ErrFetch
}

func (s githubService) pagination(searchQuery model.SearchQuery) (int, int) {
	page := searchQuery.Page
	if page < 1 {
		page = 1
	}

	perPage := searchQuery.PerPage
	if perPage < 1 {
		perPage = s.config.Search.DefaultPerPage
	}

	if perPage < 1 || perPage > maxPerPage {
		perPage = maxPerPage
	}

	return page, perPage
}

// ToRepositoryMetadata convert a github repository to the scoring input.
// Repositories without identity fields are reported as invalid
func ToRepositoryMetadata(r *github.Repository) (model.RepositoryMetadata, bool) {
	if r == nil || r.ID == nil || r.FullName == nil || r.Owner == nil || r.Owner.Login == nil || r.Name == nil {
		return model.RepositoryMetadata{}, false
	}

	meta := model.RepositoryMetadata{
		ID:          r.GetID(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Owner:       r.GetOwner().GetLogin(),
		HTMLURL:     r.GetHTMLURL(),
		Description: r.Description,
		Language:    r.Language,
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		CreatedAt:   r.GetCreatedAt().Time,
		PushedAt:    r.GetPushedAt().Time,
		HasWiki:     r.GetHasWiki(),
		HasPages:    r.GetHasPages(),
		Homepage:    r.Homepage,
		Topics:      uniqueTopics(r.Topics),
	}

	// repositories never pushed to only have an update date
	if r.PushedAt == nil {
		meta.PushedAt = r.GetUpdatedAt().Time
	}

	// licence can be null or empty for some repositories
	if r.License != nil {
		meta.License = &model.License{
			Key:  r.License.GetKey(),
			Name: r.License.GetName(),
		}
	}

	return meta, true
}

func uniqueTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	unique := make([]string, 0, len(topics))

	for _, topic := range topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}

		if _, found := seen[topic]; found {
			continue
		}

		seen[topic] = struct{}{}
		unique = append(unique, topic)
	}

	sort.Strings(unique)
	return unique
}
