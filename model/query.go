package model

import (
	"strconv"
	"strings"
)

// sort keys accepted for the client side sort
const (
	SortByHealth       = "health"
	SortByStars        = "stars"
	SortByUpdated      = "updated"
	SortByContributors = "contributors"
	SortByName         = "name"
)

type SearchQuery struct {
	// upstream filters, sent to the Github search API
	Query    string `form:"q"`
	Language string `form:"language"`
	License  string `form:"license"`
	Topic    string `form:"topic"`
	MinStars int    `form:"minStars" binding:"omitempty,min=0"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PerPage  int    `form:"perPage" binding:"omitempty,min=1,max=100"`

	// client side filters and sort, applied on the current page only
	Sort             string `form:"sort" binding:"omitempty,oneof=health stars updated contributors name"`
	Order            string `form:"order" binding:"omitempty,oneof=asc desc"`
	MinHealth        int    `form:"minHealth" binding:"omitempty,min=0,max=100"`
	HasCI            bool   `form:"hasCI"`
	BeginnerFriendly bool   `form:"beginnerFriendly"`
	Trend            string `form:"trend" binding:"omitempty,oneof=up down stable"`
	Signal           string `form:"signal"`
}

func (params SearchQuery) ToGithubQuery(filterPublicRepositories bool) string {
	var githubQuery strings.Builder

	if params.Query != "" {
		githubQuery.WriteString(params.Query + " ")
	}

	if filterPublicRepositories {
		githubQuery.WriteString("is:public ")
	}

	if params.Language != "" {
		githubQuery.WriteString("language:" + params.Language + " ")
	}

	if params.License != "" {
		githubQuery.WriteString("license:" + params.License + " ")
	}

	if params.Topic != "" {
		githubQuery.WriteString("topic:" + params.Topic + " ")
	}

	if params.MinStars > 0 {
		githubQuery.WriteString("stars:>=" + strconv.Itoa(params.MinStars) + " ")
	}

	return strings.TrimSpace(githubQuery.String())
}

// SortKey return the requested sort key, health score by default
func (params SearchQuery) SortKey() string {
	if params.Sort == "" {
		return SortByHealth
	}

	return params.Sort
}

// Descending report if the sort order is descending.
// Without explicit order, names are sorted ascending and everything else descending
func (params SearchQuery) Descending() bool {
	if params.Order == "" {
		return params.SortKey() != SortByName
	}

	return params.Order == "desc"
}
