// Package githook registers the deployment webhook on a GitHub repository.
package githook

import (
	"context"
	"fmt"
	"net/http"

	"leadbox/internal/security"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const (
	StatusCreated = "created"
	StatusExists  = "exists"
)

// Result reports what Register did.
type Result struct {
	Status string
	HookID int64
	URL    string
}

// NewClient creates a GitHub client authenticated with a personal access token.
func NewClient(ctx context.Context, token string) (*github.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("a GitHub token is required")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	return github.NewClient(oauth2.NewClient(ctx, ts)), nil
}

// Register makes sure ownerRepo has an active push webhook pointing at
// hookURL. An existing hook with the same URL is left untouched.
func Register(ctx context.Context, client *github.Client, ownerRepo, hookURL, secret string) (*Result, error) {
	owner, repo, err := security.SplitOwnerRepo(ownerRepo)
	if err != nil {
		return nil, err
	}

	existing, err := findHook(ctx, client, owner, repo, hookURL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Result{Status: StatusExists, HookID: existing.GetID(), URL: hookURL}, nil
	}

	hookConfig := map[string]interface{}{
		"url":          hookURL,
		"content_type": "json",
		"insecure_ssl": "0",
	}
	if secret != "" {
		hookConfig["secret"] = secret
	}

	active := true
	hookReq := &github.Hook{
		Events: []string{"push"},
		Active: &active,
		Config: hookConfig,
	}

	hook, _, err := client.Repositories.CreateHook(ctx, owner, repo, hookReq)
	if err != nil {
		return nil, fmt.Errorf("creating webhook: %w", err)
	}

	return &Result{Status: StatusCreated, HookID: hook.GetID(), URL: hookURL}, nil
}

func findHook(ctx context.Context, client *github.Client, owner, repo, hookURL string) (*github.Hook, error) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		hooks, resp, err := client.Repositories.ListHooks(ctx, owner, repo, opts)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return nil, fmt.Errorf("repository %s/%s not found or token lacks admin:repo_hook scope", owner, repo)
			}
			return nil, fmt.Errorf("listing webhooks: %w", err)
		}

		for _, hook := range hooks {
			if hook.Config == nil {
				continue
			}
			if url, ok := hook.Config["url"].(string); ok && url == hookURL {
				return hook, nil
			}
		}

		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}
