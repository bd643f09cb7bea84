package model

import "time"

// Trend is the coarse direction of a repository activity
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// CI status reported to the front end
const (
	CIStatusPassing = "passing"
	CIStatusWarning = "warning"
)

type License struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// RepositoryMetadata is the raw record built from a search result item
// and its three enrichments (contributors, good first issues, CI)
type RepositoryMetadata struct {
	ID              int64
	Name            string
	FullName        string
	Owner           string
	HTMLURL         string
	Description     *string // nil for repositories without description
	Language        *string
	Stars           int
	Forks           int
	OpenIssues      int
	Contributors    int
	GoodFirstIssues int
	HasCI           *bool // nil when the workflow lookup was not made
	CreatedAt       time.Time
	PushedAt        time.Time
	License         *License
	HasWiki         bool
	HasPages        bool
	Homepage        *string
	Topics          []string
}

// HealthBreakdown holds the five sub-scores, each in [0,100]
type HealthBreakdown struct {
	Activity      int `json:"activity"`
	Community     int `json:"community"`
	Documentation int `json:"documentation"`
	Freshness     int `json:"freshness"`
	Compatibility int `json:"compatibility"`
}

// Estimates are fixed placeholder values, they are not measured from
// repository data and Measured is always false
type Estimates struct {
	Measured             bool   `json:"measured"`
	AvgIssueResponseTime string `json:"avgIssueResponseTime"`
	PRMergeRate          int    `json:"prMergeRate"`
	CodeCoverage         int    `json:"codeCoverage"`
	ActiveContributors   int    `json:"activeContributors"`
	ContributorDiversity int    `json:"contributorDiversity"`
}

// DisplayRepository is the record returned to the front end
type DisplayRepository struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	FullName        string          `json:"fullName"`
	Owner           string          `json:"owner"`
	URL             string          `json:"url"`
	Description     string          `json:"description"`
	Language        string          `json:"language"`
	License         string          `json:"license"`
	Topics          []string        `json:"topics"`
	Stars           int             `json:"stars"`
	Forks           int             `json:"forks"`
	OpenIssues      int             `json:"openIssues"`
	Contributors    int             `json:"contributors"`
	GoodFirstIssues int             `json:"goodFirstIssues"`
	CIStatus        string          `json:"ciStatus"`
	HealthScore     int             `json:"healthScore"`
	HealthBreakdown HealthBreakdown `json:"healthBreakdown"`
	Signals         []string        `json:"signals"`
	Trend           Trend           `json:"trend"`
	LastCommit      string          `json:"lastCommit"`
	PushedAt        time.Time       `json:"pushedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	Estimates       Estimates       `json:"estimates"`
}

// HasSignal report if the given label is attached to the repository
func (r DisplayRepository) HasSignal(signal string) bool {
	for _, s := range r.Signals {
		if s == signal {
			return true
		}
	}

	return false
}

type SearchResult struct {
	TotalCount int                 `json:"totalCount"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"perPage"`
	Items      []DisplayRepository `json:"items"`
}

// Comparison lists compared repositories in request order and,
// for each sub-score, the full name of the leading repository
type Comparison struct {
	Repositories []DisplayRepository `json:"repositories"`
	Leaders      map[string]string   `json:"leaders"`
}
