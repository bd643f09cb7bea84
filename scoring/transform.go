package scoring

import (
	"time"

	"github.com/Scalingo/sclng-repo-health/model"
)

// signals labels, appended in this order
const (
	SignalActive           = "Active"
	SignalGoodDocs         = "Good Docs"
	SignalBeginnerFriendly = "Beginner Friendly"
	SignalLargeCommunity   = "Large Community"
	SignalModern           = "Modern"
)

const (
	activeDays           = 7
	stalledDays          = 90
	largeCommunityStars  = 10000
	modernRepositoryDays = 730
)

// fallback display values
const (
	NoDescription   = "No description available"
	NoLicense       = "No license"
	UnknownLanguage = "Unknown"
)

// placeholder estimates, not measured from repository data
const (
	PlaceholderIssueResponseTime = "< 2 days"
	PlaceholderPRMergeRate       = 75
	PlaceholderCodeCoverage      = 80
)

// Transform build the display record of a repository
func Transform(meta model.RepositoryMetadata, now time.Time) model.DisplayRepository {
	score, breakdown := Calculate(meta, now)

	display := model.DisplayRepository{
		ID:              meta.ID,
		Name:            meta.Name,
		FullName:        meta.FullName,
		Owner:           meta.Owner,
		URL:             meta.HTMLURL,
		Description:     NoDescription,
		Language:        UnknownLanguage,
		License:         NoLicense,
		Topics:          append([]string{}, meta.Topics...),
		Stars:           meta.Stars,
		Forks:           meta.Forks,
		OpenIssues:      meta.OpenIssues,
		Contributors:    meta.Contributors,
		GoodFirstIssues: meta.GoodFirstIssues,
		CIStatus:        model.CIStatusWarning,
		HealthScore:     score,
		HealthBreakdown: breakdown,
		Signals:         Signals(meta, now),
		Trend:           TrendOf(meta.PushedAt, now),
		LastCommit:      TimeAgo(meta.PushedAt, now),
		PushedAt:        meta.PushedAt,
		CreatedAt:       meta.CreatedAt,
		Estimates:       EstimatesFor(meta.Contributors),
	}

	if meta.Description != nil && *meta.Description != "" {
		display.Description = *meta.Description
	}

	if meta.Language != nil && *meta.Language != "" {
		display.Language = *meta.Language
	}

	if meta.License != nil && meta.License.Name != "" {
		display.License = meta.License.Name
	}

	if meta.HasCI != nil && *meta.HasCI {
		display.CIStatus = model.CIStatusPassing
	}

	return display
}

// TrendOf derive the trend from the last push
func TrendOf(pushedAt, now time.Time) model.Trend {
	days := DaysSince(pushedAt, now)

	if days <= activeDays {
		return model.TrendUp
	} else if days > stalledDays {
		return model.TrendDown
	}

	return model.TrendStable
}

// Signals return the labels attached to the repository, possibly empty
func Signals(meta model.RepositoryMetadata, now time.Time) []string {
	signals := make([]string, 0, 5)

	if DaysSince(meta.PushedAt, now) <= activeDays {
		signals = append(signals, SignalActive)
	}

	if meta.HasWiki || meta.HasPages || hasHomepage(meta.Homepage) {
		signals = append(signals, SignalGoodDocs)
	}

	if meta.GoodFirstIssues > 0 {
		signals = append(signals, SignalBeginnerFriendly)
	}

	if meta.Stars >= largeCommunityStars {
		signals = append(signals, SignalLargeCommunity)
	}

	if DaysSince(meta.CreatedAt, now) < modernRepositoryDays {
		signals = append(signals, SignalModern)
	}

	return signals
}

// EstimatesFor fill the placeholder estimates.
// Contributors estimates are floor(0.3 * n) and floor(0.5 * n)
func EstimatesFor(contributors int) model.Estimates {
	return model.Estimates{
		Measured:             false,
		AvgIssueResponseTime: PlaceholderIssueResponseTime,
		PRMergeRate:          PlaceholderPRMergeRate,
		CodeCoverage:         PlaceholderCodeCoverage,
		ActiveContributors:   contributors * 3 / 10,
		ContributorDiversity: contributors / 2,
	}
}
