package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-github/v68/github"

	"code-bounty/internal/log"
	"code-bounty/internal/utils"
)

// ErrNotGitHubRepo is returned for repository URLs that are not on github.com.
var ErrNotGitHubRepo = errors.New("not a GitHub repository URL")

// RepoMetadata is the repository information attached to submission notifications.
type RepoMetadata struct {
	FullName      string
	Description   string
	Language      string
	Stars         int
	DefaultBranch string
	Private       bool
}

// GitHubService looks up repositories referenced by submissions.
type GitHubService struct {
	client *github.Client
}

// NewGitHubService creates a client for the public API. An empty token makes
// unauthenticated requests.
func NewGitHubService(token string) *GitHubService {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubService{client: client}
}

// NewGitHubServiceWithClient targets baseURL using httpClient. Used by tests.
func NewGitHubServiceWithClient(httpClient *http.Client, baseURL string) (*GitHubService, error) {
	client := github.NewClient(httpClient)
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}
	client.BaseURL = u
	return &GitHubService{client: client}, nil
}

// GetRepoMetadata fetches metadata for the repository at repoURL.
func (s *GitHubService) GetRepoMetadata(ctx context.Context, repoURL string) (*RepoMetadata, error) {
	link, ok := utils.ParseRepoURL(repoURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGitHubRepo, repoURL)
	}

	repo, _, err := s.client.Repositories.Get(ctx, link.Owner, link.Repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s: %w", link.FullRepoName, err)
	}

	log.Debug(ctx, "Fetched repository metadata",
		"repo", repo.GetFullName(),
		"stars", repo.GetStargazersCount(),
	)

	return &RepoMetadata{
		FullName:      repo.GetFullName(),
		Description:   repo.GetDescription(),
		Language:      repo.GetLanguage(),
		Stars:         repo.GetStargazersCount(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
	}, nil
}
