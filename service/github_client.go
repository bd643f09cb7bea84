package service

import (
	"context"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// NewGithubClient build a github client, authenticated when a token is given.
// Without token, the core rate limit is 60 requests per hour
func NewGithubClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}

	tokenSource := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)

	return github.NewClient(oauth2.NewClient(ctx, tokenSource))
}
