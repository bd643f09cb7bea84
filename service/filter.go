package service

import (
	"sort"
	"strings"

	"github.com/Scalingo/sclng-repo-health/model"
	"github.com/Scalingo/sclng-repo-health/scoring"
)

// FilterRepositories apply the client side filters of the query
func FilterRepositories(repos []model.DisplayRepository, searchQuery model.SearchQuery) []model.DisplayRepository {
	filtered := make([]model.DisplayRepository, 0, len(repos))

	for _, r := range repos {
		if r.HealthScore < searchQuery.MinHealth {
			continue
		}

		if searchQuery.HasCI && r.CIStatus != model.CIStatusPassing {
			continue
		}

		if searchQuery.BeginnerFriendly && !r.HasSignal(scoring.SignalBeginnerFriendly) {
			continue
		}

		if searchQuery.Trend != "" && string(r.Trend) != searchQuery.Trend {
			continue
		}

		if searchQuery.Signal != "" && !hasSignalFold(r, searchQuery.Signal) {
			continue
		}

		filtered = append(filtered, r)
	}

	return filtered
}

// SortRepositories sort the current page, equal elements keep the upstream order
func SortRepositories(repos []model.DisplayRepository, searchQuery model.SearchQuery) []model.DisplayRepository {
	var less func(a, b model.DisplayRepository) bool

	switch searchQuery.SortKey() {
	case model.SortByStars:
		less = func(a, b model.DisplayRepository) bool { return a.Stars < b.Stars }
	case model.SortByUpdated:
		less = func(a, b model.DisplayRepository) bool { return a.PushedAt.Before(b.PushedAt) }
	case model.SortByContributors:
		less = func(a, b model.DisplayRepository) bool { return a.Contributors < b.Contributors }
	case model.SortByName:
		less = func(a, b model.DisplayRepository) bool {
			return strings.ToLower(a.FullName) < strings.ToLower(b.FullName)
		}
	default:
		less = func(a, b model.DisplayRepository) bool { return a.HealthScore < b.HealthScore }
	}

	descending := searchQuery.Descending()
	sort.SliceStable(repos, func(i, j int) bool {
		if descending {
			return less(repos[j], repos[i])
		}

		return less(repos[i], repos[j])
	})

	return repos
}

// hasSignalFold match the signal label ignoring case, "good docs" matches "Good Docs"
func hasSignalFold(r model.DisplayRepository, signal string) bool {
	for _, s := range r.Signals {
		if strings.EqualFold(s, signal) {
			return true
		}
	}

	return false
}
