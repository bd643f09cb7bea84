package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Scalingo/sclng-repo-health/logger"
	"github.com/Scalingo/sclng-repo-health/metrics"
	"github.com/Scalingo/sclng-repo-health/model"
	"github.com/google/go-github/v66/github"
	"github.com/remeh/sizedwaitgroup"

	log "github.com/sirupsen/logrus"
)

// EnrichRepositories fetch contributors count, good first issues count and CI presence for each repository.
// The three lookups of every repository run in parallel, bounded by MaxParallelTasksAllowed.
// A failed lookup never fails the repository, the field keeps its default value (0 or false)
func (s githubService) EnrichRepositories(ctx context.Context, repos []model.RepositoryMetadata) []model.RepositoryMetadata {
	if s.config.Search.EnrichmentTimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.config.Search.EnrichmentTimeoutSec)*time.Second)
		defer cancel()
	}

	enriched := make([]model.RepositoryMetadata, len(repos))
	copy(enriched, repos)

	swg := sizedwaitgroup.New(max(1, s.config.Tasks.MaxParallelTasksAllowed))

	for i := range enriched {
		r := &enriched[i]
		owner, name := r.Owner, r.Name

		// each goroutine writes a distinct field of the repository
		swg.Add()
		go func() {
			defer swg.Done()
			r.Contributors = s.FetchContributorsCount(ctx, owner, name)
		}()

		swg.Add()
		go func() {
			defer swg.Done()
			r.GoodFirstIssues = s.FetchGoodFirstIssuesCount(ctx, owner, name)
		}()

		swg.Add()
		go func() {
			defer swg.Done()
			hasCI := s.FetchHasCI(ctx, owner, name)
			r.HasCI = &hasCI
		}()
	}

	log.Debug("waiting for all enrichment lookups to be finished")
	swg.Wait()
	log.Debug("all enrichment lookups finished")

	return enriched
}

// FetchContributorsCount count contributors (anonymous included) using a single item page:
// the last page number of the pagination is the number of contributors
func (s githubService) FetchContributorsCount(ctx context.Context, owner string, name string) int {
	return lookup(ctx, s, metrics.LookupContributors, owner, name, 0, func() (int, error) {
		contributors, resp, err := s.githubClient.Repositories.ListContributors(ctx, owner, name, &github.ListContributorsOptions{
			Anon:        "true",
			ListOptions: github.ListOptions{PerPage: 1},
		})

		if err != nil {
			return 0, err
		}

		if resp != nil && resp.LastPage > 0 {
			return resp.LastPage, nil
		}

		return len(contributors), nil
	})
}

// FetchGoodFirstIssuesCount count open issues labelled as good first issue
func (s githubService) FetchGoodFirstIssuesCount(ctx context.Context, owner string, name string) int {
	return lookup(ctx, s, metrics.LookupGoodFirstIssues, owner, name, 0, func() (int, error) {
		query := fmt.Sprintf(`repo:%s/%s is:issue is:open label:"%s"`, owner, name, s.config.Search.GoodFirstIssueLabel)

		result, _, err := s.githubClient.Search.Issues(ctx, query, &github.SearchOptions{
			ListOptions: github.ListOptions{PerPage: 1},
		})

		if err != nil {
			return 0, err
		}

		return result.GetTotal(), nil
	})
}

// FetchHasCI report if at least one github actions workflow is configured
func (s githubService) FetchHasCI(ctx context.Context, owner string, name string) bool {
	return lookup(ctx, s, metrics.LookupCI, owner, name, false, func() (bool, error) {
		workflows, _, err := s.githubClient.Actions.ListWorkflows(ctx, owner, name, &github.ListOptions{PerPage: 1})
		if err != nil {
			return false, err
		}

		return workflows.GetTotalCount() > 0, nil
	})
}

// lookup run an enrichment request through the cache and the rate limiter.
// Any failure is logged and counted, then the fallback value is returned
func lookup[T any](ctx context.Context, s githubService, kind string, owner string, name string, fallback T, fetch func() (T, error)) T {
	key := kind + ":" + owner + "/" + name
	entry := logger.WithRepository(owner, name).WithField("lookup", kind)

	var cached T
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		entry.WithError(err).Debug("unable to read enrichment from cache")
	}

	if found {
		s.metrics.EnrichmentCacheHits.WithLabelValues(kind).Inc()
		return cached
	}

	if !s.githubRateLimiter.Allow() {
		entry.Debug("no request left in rate limiter. enrichment skipped")
		s.metrics.EnrichmentFailures.WithLabelValues(kind).Inc()
		return fallback
	}

	value, err := fetch()
	if err != nil {
		entry.WithError(err).Debug("enrichment lookup failed. default value used")
		s.metrics.EnrichmentFailures.WithLabelValues(kind).Inc()
		return fallback
	}

	ttl := time.Duration(s.config.Cache.TTLMinutes) * time.Minute
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		entry.WithError(err).Debug("unable to write enrichment to cache")
	}

	return value
}
