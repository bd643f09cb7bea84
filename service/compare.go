package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Scalingo/sclng-repo-health/model"
	"github.com/remeh/sizedwaitgroup"

	log "github.com/sirupsen/logrus"
)

const minComparedRepositories = 2

type repositoryName struct {
	owner string
	name  string
}

// CompareRepositories load all repositories in parallel and report the leader of each sub-score.
// The first failure aborts the whole comparison
func (s githubService) CompareRepositories(ctx context.Context, fullNames []string) (model.Comparison, error) {
	names, err := parseFullNames(fullNames, s.config.Compare.MaxRepositories)
	if err != nil {
		return model.Comparison{}, err
	}

	log.WithField("repositories", fullNames).Info("compare repositories")

	repositories := make([]model.DisplayRepository, len(names))
	errs := make([]error, len(names))
	swg := sizedwaitgroup.New(len(names))

	for i, n := range names {
		i, n := i, n
		swg.Add()
		go func() {
			defer swg.Done()
			repositories[i], errs[i] = s.GetRepository(ctx, n.owner, n.name)
		}()
	}

	swg.Wait()

	for _, err := range errs {
		if err != nil {
			return model.Comparison{}, err
		}
	}

	return model.Comparison{
		Repositories: repositories,
		Leaders:      Leaders(repositories),
	}, nil
}

// parseFullNames validate a list of owner/name values, duplicates are ignored
func parseFullNames(fullNames []string, maxRepositories int) ([]repositoryName, error) {
	names := make([]repositoryName, 0, len(fullNames))
	seen := make(map[string]struct{}, len(fullNames))

	for _, fullName := range fullNames {
		parts := strings.Split(strings.TrimSpace(fullName), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("%w: %q is not a valid owner/name repository", model.ErrInvalidQuery, fullName)
		}

		key := strings.ToLower(parts[0] + "/" + parts[1])
		if _, found := seen[key]; found {
			continue
		}

		seen[key] = struct{}{}
		names = append(names, repositoryName{owner: parts[0], name: parts[1]})
	}

	if len(names) < minComparedRepositories || len(names) > maxRepositories {
		return nil, fmt.Errorf("%w: between %d and %d distinct repositories can be compared", model.ErrInvalidQuery, minComparedRepositories, maxRepositories)
	}

	return names, nil
}

// Leaders return, for the health score and each sub-score, the full name of the best repository.
// On a tie the first repository wins
func Leaders(repositories []model.DisplayRepository) map[string]string {
	criteria := map[string]func(r model.DisplayRepository) int{
		"healthScore":   func(r model.DisplayRepository) int { return r.HealthScore },
		"activity":      func(r model.DisplayRepository) int { return r.HealthBreakdown.Activity },
		"community":     func(r model.DisplayRepository) int { return r.HealthBreakdown.Community },
		"documentation": func(r model.DisplayRepository) int { return r.HealthBreakdown.Documentation },
		"freshness":     func(r model.DisplayRepository) int { return r.HealthBreakdown.Freshness },
		"compatibility": func(r model.DisplayRepository) int { return r.HealthBreakdown.Compatibility },
	}

	leaders := make(map[string]string, len(criteria))
	if len(repositories) == 0 {
		return leaders
	}

	for criterion, value := range criteria {
		best := repositories[0]
		for _, r := range repositories[1:] {
			if value(r) > value(best) {
				best = r
			}
		}

		leaders[criterion] = best.FullName
	}

	return leaders
}
