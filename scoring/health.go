package scoring

import (
	"math"
	"time"

	"github.com/Scalingo/sclng-repo-health/model"
)

// Breakdown compute the five sub-scores of a repository
func Breakdown(meta model.RepositoryMetadata, now time.Time) model.HealthBreakdown {
	freshness, _ := FreshnessScore(meta.CreatedAt, meta.PushedAt, now)

	return model.HealthBreakdown{
		Activity:      ActivityScore(meta.PushedAt, now),
		Community:     CommunityScore(meta.Stars, meta.Contributors),
		Documentation: DocumentationScore(meta.Description, meta.HasWiki, meta.HasPages, meta.Homepage),
		Freshness:     freshness,
		Compatibility: CompatibilityScore(meta.License, meta.HasCI, meta.Topics),
	}
}

// HealthScore is the unweighted mean of the sub-scores, rounded to the nearest integer
func HealthScore(b model.HealthBreakdown) int {
	sum := b.Activity + b.Community + b.Documentation + b.Freshness + b.Compatibility
	return int(math.Round(float64(sum) / 5))
}

// Calculate return the health score and its breakdown
func Calculate(meta model.RepositoryMetadata, now time.Time) (int, model.HealthBreakdown) {
	breakdown := Breakdown(meta, now)
	return HealthScore(breakdown), breakdown
}
