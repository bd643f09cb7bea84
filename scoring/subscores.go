package scoring

import (
	"time"
	"unicode/utf8"

	"github.com/Scalingo/sclng-repo-health/model"
)

// step is one row of a threshold ladder
type step struct {
	limit int
	score int
}

// ladder is evaluated in order, the first matching step wins
type ladder struct {
	steps    []step
	fallback int
}

// atMost return the score of the first step where value <= limit
func (l ladder) atMost(value int) int {
	for _, s := range l.steps {
		if value <= s.limit {
			return s.score
		}
	}

	return l.fallback
}

// atLeast return the score of the first step where value >= limit
func (l ladder) atLeast(value int) int {
	for _, s := range l.steps {
		if value >= s.limit {
			return s.score
		}
	}

	return l.fallback
}

// thresholds tables, in days for activity and freshness
var (
	activityLadder = ladder{
		steps:    []step{{7, 95}, {14, 90}, {30, 85}, {60, 75}, {90, 65}, {180, 50}},
		fallback: 30,
	}

	starsLadder = ladder{
		steps:    []step{{50000, 50}, {10000, 45}, {5000, 40}, {1000, 35}, {500, 25}},
		fallback: 15,
	}

	contributorsLadder = ladder{
		steps:    []step{{500, 50}, {100, 45}, {50, 40}, {20, 30}, {10, 20}},
		fallback: 10,
	}

	youngFreshnessLadder = ladder{
		steps:    []step{{30, 95}, {90, 85}},
		fallback: 70,
	}

	matureFreshnessLadder = ladder{
		steps:    []step{{7, 95}, {30, 85}, {90, 70}, {180, 55}},
		fallback: 35,
	}
)

const (
	maxScore = 100

	// repositories younger than this get the lenient freshness curve
	youngRepositoryDays = 365

	minDescriptionLength = 20
	documentationFactor  = 25

	licenseBonus = 40
	ciBonus      = 30
	topicsBonus  = 30
)

// FreshnessPolicy names the rule path used by the freshness sub-score
type FreshnessPolicy string

const (
	FreshnessYoung  FreshnessPolicy = "young"
	FreshnessMature FreshnessPolicy = "mature"
)

func ActivityScore(pushedAt, now time.Time) int {
	return activityLadder.atMost(DaysSince(pushedAt, now))
}

// CommunityScore sum the stars and contributors contributions.
// Both ladders top out at 50, the cap only matters if the tables change
func CommunityScore(stars, contributors int) int {
	return min(starsLadder.atLeast(stars)+contributorsLadder.atLeast(contributors), maxScore)
}

func DocumentationScore(description *string, hasWiki, hasPages bool, homepage *string) int {
	score := 0

	if description != nil && utf8.RuneCountInString(*description) > minDescriptionLength {
		score += documentationFactor
	}

	if hasWiki {
		score += documentationFactor
	}

	if hasPages {
		score += documentationFactor
	}

	if hasHomepage(homepage) {
		score += documentationFactor
	}

	return min(score, maxScore)
}

// FreshnessScore return the freshness sub-score and the policy that produced it
func FreshnessScore(createdAt, pushedAt, now time.Time) (int, FreshnessPolicy) {
	sincePush := DaysSince(pushedAt, now)

	if DaysSince(createdAt, now) < youngRepositoryDays {
		return youngFreshnessLadder.atMost(sincePush), FreshnessYoung
	}

	return matureFreshnessLadder.atMost(sincePush), FreshnessMature
}

func CompatibilityScore(license *model.License, hasCI *bool, topics []string) int {
	score := 0

	if license != nil {
		score += licenseBonus
	}

	if hasCI != nil && *hasCI {
		score += ciBonus
	}

	if len(topics) > 0 {
		score += topicsBonus
	}

	return min(score, maxScore)
}

func hasHomepage(homepage *string) bool {
	return homepage != nil && *homepage != ""
}
