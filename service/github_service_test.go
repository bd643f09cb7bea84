package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Scalingo/sclng-repo-health/config"
	"github.com/Scalingo/sclng-repo-health/metrics"
	"github.com/Scalingo/sclng-repo-health/model"
	"github.com/Scalingo/sclng-repo-health/scoring"
	"github.com/google/go-github/v66/github"
	githubMock "github.com/migueleliasweb/go-github-mock/src/mock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var referenceNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) *github.Timestamp {
	return &github.Timestamp{Time: referenceNow.AddDate(0, 0, -days)}
}

func mockRepository(id int64, owner string, name string, stars int, pushedDaysAgo int, createdDaysAgo int) *github.Repository {
	return &github.Repository{
		ID:              github.Int64(id),
		Name:            github.String(name),
		FullName:        github.String(owner + "/" + name),
		Owner:           &github.User{Login: github.String(owner)},
		HTMLURL:         github.String("https://github.com/" + owner + "/" + name),
		StargazersCount: github.Int(stars),
		PushedAt:        daysAgo(pushedDaysAgo),
		CreatedAt:       daysAgo(createdDaysAgo),
	}
}

// enrichmentMock describe the upstream answers of the three enrichment lookups, by full name
type enrichmentMock struct {
	contributors    map[string]int
	goodFirstIssues map[string]int
	workflows       map[string]int
	failing         map[string]bool // full names for which every lookup fail
}

func writeServerError(w http.ResponseWriter) {
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"message":"server error"}`))
}

func (e enrichmentMock) options(t *testing.T) []githubMock.MockBackendOption {
	return []githubMock.MockBackendOption{
		githubMock.WithRequestMatchHandler(
			githubMock.GetReposContributorsByOwnerByRepo,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fullName := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/repos/"), "/contributors")
				if e.failing[fullName] {
					writeServerError(w)
					return
				}

				count := e.contributors[fullName]
				contributors := []*github.Contributor{}

				if count > 0 {
					contributors = append(contributors, &github.Contributor{Login: github.String("someone")})
				}

				if count > 1 {
					w.Header().Set("Link", fmt.Sprintf(`<https://api.github.com/repos/%s/contributors?anon=true&per_page=1&page=%d>; rel="last"`, fullName, count))
				}

				if _, err := w.Write(githubMock.MustMarshal(contributors)); err != nil {
					t.Error("unable to configure mock http client")
				}
			}),
		),
		githubMock.WithRequestMatchHandler(
			githubMock.GetSearchIssues,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query := r.URL.Query().Get("q")
				fullName := strings.Fields(strings.TrimPrefix(query, "repo:"))[0]

				if e.failing[fullName] {
					writeServerError(w)
					return
				}

				result := github.IssuesSearchResult{Total: github.Int(e.goodFirstIssues[fullName])}
				if _, err := w.Write(githubMock.MustMarshal(result)); err != nil {
					t.Error("unable to configure mock http client")
				}
			}),
		),
		githubMock.WithRequestMatchHandler(
			githubMock.GetReposActionsWorkflowsByOwnerByRepo,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fullName := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/repos/"), "/actions/workflows")
				if e.failing[fullName] {
					writeServerError(w)
					return
				}

				result := github.Workflows{TotalCount: github.Int(e.workflows[fullName])}
				if _, err := w.Write(githubMock.MustMarshal(result)); err != nil {
					t.Error("unable to configure mock http client")
				}
			}),
		),
	}
}

func newTestService(httpClient *http.Client, rateLimit int, m *metrics.Metrics) githubService {
	conf := config.GetDefault()
	mockedRateLimiter := rate.NewLimiter(rate.Every(time.Hour), rateLimit)
	mockedGithubClient := github.NewClient(httpClient)

	return newGithubService(*conf, mockedGithubClient, mockedRateLimiter, nil, m, func() time.Time { return referenceNow })
}

// TestSearchRepositories will test function SearchRepositories
func TestSearchRepositories(t *testing.T) {
	tests := []struct {
		name                     string
		searchQuery              model.SearchQuery
		mockResponseRepositories github.RepositoriesSearchResult
		enrichment               enrichmentMock
		rateLimit                int
		expectedFullNames        []string
		expectedContributors     map[string]int
		expectedCI               map[string]string
		expectError              bool
		expectedErr              error
	}{
		{
			name:      "Single repository enriched",
			rateLimit: 60,
			mockResponseRepositories: github.RepositoriesSearchResult{
				Total:        github.Int(1),
				Repositories: []*github.Repository{mockRepository(1, "acme", "router", 12000, 3, 2000)},
			},
			enrichment: enrichmentMock{
				contributors:    map[string]int{"acme/router": 57},
				goodFirstIssues: map[string]int{"acme/router": 4},
				workflows:       map[string]int{"acme/router": 2},
			},
			expectedFullNames:    []string{"acme/router"},
			expectedContributors: map[string]int{"acme/router": 57},
			expectedCI:           map[string]string{"acme/router": model.CIStatusPassing},
		},
		{
			name:      "Sorted by health score by default",
			rateLimit: 60,
			mockResponseRepositories: github.RepositoriesSearchResult{
				Total: github.Int(2),
				Repositories: []*github.Repository{
					mockRepository(1, "old", "stale", 60000, 400, 3000),
					mockRepository(2, "acme", "router", 12000, 1, 2000),
				},
			},
			enrichment: enrichmentMock{
				contributors: map[string]int{"acme/router": 1, "old/stale": 0},
				workflows:    map[string]int{"acme/router": 1},
			},
			expectedFullNames:    []string{"acme/router", "old/stale"},
			expectedContributors: map[string]int{"acme/router": 1, "old/stale": 0},
			expectedCI:           map[string]string{"acme/router": model.CIStatusPassing, "old/stale": model.CIStatusWarning},
		},
		{
			name:        "Failed enrichment degraded to default values",
			rateLimit:   60,
			searchQuery: model.SearchQuery{Sort: model.SortByStars},
			mockResponseRepositories: github.RepositoriesSearchResult{
				Total: github.Int(2),
				Repositories: []*github.Repository{
					mockRepository(1, "acme", "router", 12000, 3, 2000),
					mockRepository(2, "acme", "broken", 500, 3, 2000),
				},
			},
			enrichment: enrichmentMock{
				contributors: map[string]int{"acme/router": 30, "acme/broken": 99},
				workflows:    map[string]int{"acme/router": 1, "acme/broken": 1},
				failing:      map[string]bool{"acme/broken": true},
			},
			expectedFullNames:    []string{"acme/router", "acme/broken"},
			expectedContributors: map[string]int{"acme/router": 30, "acme/broken": 0},
			expectedCI:           map[string]string{"acme/router": model.CIStatusPassing, "acme/broken": model.CIStatusWarning},
		},
		{
			name:      "Invalid repository skipped",
			rateLimit: 60,
			mockResponseRepositories: github.RepositoriesSearchResult{
				Total: github.Int(2),
				Repositories: []*github.Repository{
					{ID: github.Int64(2), FullName: github.String("Owner2/repo2"), Name: github.String("repo2")},
					mockRepository(1, "acme", "router", 12000, 3, 2000),
				},
			},
			enrichment:           enrichmentMock{contributors: map[string]int{"acme/router": 2}},
			expectedFullNames:    []string{"acme/router"},
			expectedContributors: map[string]int{"acme/router": 2},
			expectedCI:           map[string]string{"acme/router": model.CIStatusWarning},
		},
		{
			name:      "Enrichment skipped when rate limiter is drained",
			rateLimit: 1,
			mockResponseRepositories: github.RepositoriesSearchResult{
				Total:        github.Int(1),
				Repositories: []*github.Repository{mockRepository(1, "acme", "router", 12000, 3, 2000)},
			},
			enrichment: enrichmentMock{
				contributors: map[string]int{"acme/router": 57},
				workflows:    map[string]int{"acme/router": 2},
			},
			expectedFullNames:    []string{"acme/router"},
			expectedContributors: map[string]int{"acme/router": 0},
			expectedCI:           map[string]string{"acme/router": model.CIStatusWarning},
		},
		{
			name:      "Client side filter on minimum health",
			rateLimit: 60,
			searchQuery: model.SearchQuery{
				MinHealth: 50,
			},
			mockResponseRepositories: github.RepositoriesSearchResult{
				Total: github.Int(2),
				Repositories: []*github.Repository{
					mockRepository(1, "old", "stale", 10, 400, 3000),
					mockRepository(2, "acme", "router", 12000, 1, 2000),
				},
			},
			enrichment: enrichmentMock{
				contributors: map[string]int{"acme/router": 100},
				workflows:    map[string]int{"acme/router": 1},
			},
			expectedFullNames:    []string{"acme/router"},
			expectedContributors: map[string]int{"acme/router": 100},
			expectedCI:           map[string]string{"acme/router": model.CIStatusPassing},
		},
		{
			name:        "No request available",
			rateLimit:   0,
			expectError: true,
			expectedErr: model.ErrRateLimitReached,
		},
	}

	// execute tests
	for _, tt := range tests {

		t.Run(tt.name, func(t *testing.T) {
			options := append(tt.enrichment.options(t),
				githubMock.WithRequestMatchHandler(
					githubMock.GetSearchRepositories,
					http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
						_, err := w.Write(githubMock.MustMarshal(tt.mockResponseRepositories))

						if err != nil {
							t.Error("unable to configure mock http client")
						}
					}),
				),
			)

			svc := newTestService(githubMock.NewMockedHTTPClient(options...), tt.rateLimit, nil)
			result, err := svc.SearchRepositories(context.Background(), tt.searchQuery)

			if tt.expectError {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Empty(t, result.Items)
				return
			}

			require.NoError(t, err)

			fullNames := make([]string, 0, len(result.Items))
			for _, item := range result.Items {
				fullNames = append(fullNames, item.FullName)
				assert.Equal(t, tt.expectedContributors[item.FullName], item.Contributors, item.FullName)
				assert.Equal(t, tt.expectedCI[item.FullName], item.CIStatus, item.FullName)
			}

			assert.Equal(t, tt.expectedFullNames, fullNames)
			assert.Equal(t, tt.mockResponseRepositories.GetTotal(), result.TotalCount)
			assert.Equal(t, 1, result.Page)
			assert.Equal(t, 30, result.PerPage)
		})
	}
}

// TestSearchRepositoriesDisplay check the full display record of an enriched search result
func TestSearchRepositoriesDisplay(t *testing.T) {
	repo := mockRepository(1, "acme", "router", 12000, 3, 2000)
	repo.Description = github.String("Fast HTTP router for Go services")
	repo.Language = github.String("Go")
	repo.HasWiki = github.Bool(true)
	repo.License = &github.License{Key: github.String("mit"), Name: github.String("MIT License")}
	repo.Topics = []string{"http", "Go", "go"}

	enrichment := enrichmentMock{
		contributors:    map[string]int{"acme/router": 57},
		goodFirstIssues: map[string]int{"acme/router": 2},
		workflows:       map[string]int{"acme/router": 1},
	}

	options := append(enrichment.options(t),
		githubMock.WithRequestMatch(
			githubMock.GetSearchRepositories,
			github.RepositoriesSearchResult{Total: github.Int(1), Repositories: []*github.Repository{repo}},
		),
	)

	m := metrics.New()
	svc := newTestService(githubMock.NewMockedHTTPClient(options...), 60, m)

	result, err := svc.SearchRepositories(context.Background(), model.SearchQuery{Language: "Go"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.Equal(t, 85, item.HealthScore)
	assert.Equal(t, model.HealthBreakdown{Activity: 95, Community: 85, Documentation: 50, Freshness: 95, Compatibility: 100}, item.HealthBreakdown)
	assert.Equal(t, []string{scoring.SignalActive, scoring.SignalGoodDocs, scoring.SignalBeginnerFriendly, scoring.SignalLargeCommunity}, item.Signals)
	assert.Equal(t, []string{"go", "http"}, item.Topics)
	assert.Equal(t, "MIT License", item.License)
	assert.Equal(t, model.TrendUp, item.Trend)
	assert.Equal(t, "3 days ago", item.LastCommit)
	assert.Equal(t, 2, item.GoodFirstIssues)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("success")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.EnrichmentFailures.WithLabelValues(metrics.LookupCI)))
}

// TestSearchRepositoriesErrors will test primary search failures
func TestSearchRepositoriesErrors(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		expectedErr error
	}{
		{
			name: "Github server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeServerError(w)
			},
			expectedErr: model.ErrFetch,
		},
		{
			name: "Github rate limit",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("X-RateLimit-Limit", "30")
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", fmt.Sprint(time.Now().Add(time.Minute).Unix()))
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"message":"API rate limit exceeded for 127.0.0.1."}`))
			},
			expectedErr: model.ErrRateLimitReached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockedHTTPClient := githubMock.NewMockedHTTPClient(
				githubMock.WithRequestMatchHandler(githubMock.GetSearchRepositories, tt.handler),
			)

			m := metrics.New()
			svc := newTestService(mockedHTTPClient, 60, m)

			result, err := svc.SearchRepositories(context.Background(), model.SearchQuery{})

			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Empty(t, result.Items)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesTotal.WithLabelValues("error")))
		})
	}
}

// TestHandleRequestErrorsDrainLimiter check a github rate limit error empty the local rate limiter
func TestHandleRequestErrorsDrainLimiter(t *testing.T) {
	svc := newTestService(githubMock.NewMockedHTTPClient(), 60, nil)
	require.True(t, svc.githubRateLimiter.Allow())

	err := svc.HandleRequestErrors(&github.RateLimitError{Message: "API rate limit exceeded"})

	assert.ErrorIs(t, err, model.ErrRateLimitReached)
	assert.False(t, svc.githubRateLimiter.Allow())
}

// TestGetRepository will test function GetRepository
func TestGetRepository(t *testing.T) {
	enrichment := enrichmentMock{
		contributors: map[string]int{"acme/router": 12},
		workflows:    map[string]int{"acme/router": 1},
	}

	t.Run("Repository found", func(t *testing.T) {
		options := append(enrichment.options(t),
			githubMock.WithRequestMatch(
				githubMock.GetReposByOwnerByRepo,
				mockRepository(1, "acme", "router", 700, 10, 100),
			),
		)

		svc := newTestService(githubMock.NewMockedHTTPClient(options...), 60, nil)
		repo, err := svc.GetRepository(context.Background(), "acme", "router")

		require.NoError(t, err)
		assert.Equal(t, "acme/router", repo.FullName)
		assert.Equal(t, 12, repo.Contributors)
		assert.Equal(t, model.CIStatusPassing, repo.CIStatus)
		assert.Equal(t, "1 week ago", repo.LastCommit)
	})

	t.Run("Repository not found", func(t *testing.T) {
		mockedHTTPClient := githubMock.NewMockedHTTPClient(
			githubMock.WithRequestMatchHandler(
				githubMock.GetReposByOwnerByRepo,
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusNotFound)
					_, _ = w.Write([]byte(`{"message":"Not Found"}`))
				}),
			),
		)

		svc := newTestService(mockedHTTPClient, 60, nil)
		_, err := svc.GetRepository(context.Background(), "acme", "missing")

		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

// TestEnrichRepositories test the three lookups and their default values
func TestEnrichRepositories(t *testing.T) {
	enrichment := enrichmentMock{
		contributors:    map[string]int{"a/one": 250, "b/two": 1},
		goodFirstIssues: map[string]int{"a/one": 7},
		workflows:       map[string]int{"a/one": 3},
		failing:         map[string]bool{"c/three": true},
	}

	m := metrics.New()
	svc := newTestService(githubMock.NewMockedHTTPClient(enrichment.options(t)...), 60, m)

	repos := []model.RepositoryMetadata{
		{ID: 1, Owner: "a", Name: "one", FullName: "a/one"},
		{ID: 2, Owner: "b", Name: "two", FullName: "b/two"},
		{ID: 3, Owner: "c", Name: "three", FullName: "c/three"},
	}

	enriched := svc.EnrichRepositories(context.Background(), repos)
	require.Len(t, enriched, 3)

	assert.Equal(t, 250, enriched[0].Contributors)
	assert.Equal(t, 7, enriched[0].GoodFirstIssues)
	assert.True(t, *enriched[0].HasCI)

	assert.Equal(t, 1, enriched[1].Contributors)
	assert.Equal(t, 0, enriched[1].GoodFirstIssues)
	assert.False(t, *enriched[1].HasCI)

	assert.Equal(t, 0, enriched[2].Contributors)
	assert.Equal(t, 0, enriched[2].GoodFirstIssues)
	assert.False(t, *enriched[2].HasCI)

	// input is left untouched
	assert.Equal(t, 0, repos[0].Contributors)
	assert.Nil(t, repos[0].HasCI)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EnrichmentFailures.WithLabelValues(metrics.LookupContributors)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EnrichmentFailures.WithLabelValues(metrics.LookupGoodFirstIssues)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EnrichmentFailures.WithLabelValues(metrics.LookupCI)))
}

func TestToRepositoryMetadata(t *testing.T) {
	_, ok := ToRepositoryMetadata(nil)
	assert.False(t, ok)

	_, ok = ToRepositoryMetadata(&github.Repository{ID: github.Int64(1), Name: github.String("x")})
	assert.False(t, ok)

	repo := mockRepository(1, "acme", "router", 10, 3, 20)
	repo.PushedAt = nil
	repo.UpdatedAt = daysAgo(5)
	repo.Topics = []string{" CLI ", "cli", "", "tools"}

	meta, ok := ToRepositoryMetadata(repo)
	require.True(t, ok)
	assert.Equal(t, daysAgo(5).Time, meta.PushedAt)
	assert.Equal(t, []string{"cli", "tools"}, meta.Topics)
	assert.Nil(t, meta.License)
}
