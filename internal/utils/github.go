package utils

import (
	"net/url"
	"regexp"
	"strings"
)

// RepoLink is a parsed GitHub repository URL.
type RepoLink struct {
	URL          string // URL as submitted
	Owner        string // Repository owner/organization name
	Repo         string // Repository name without a .git suffix
	FullRepoName string // Combined "owner/repo" format for convenience
}

var repoNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseRepoURL extracts owner and repository from a github.com URL. Paths
// below the repository (tree/main, pull/1, ...) are ignored. It reports false
// for other hosts and for URLs without both path segments.
func ParseRepoURL(raw string) (RepoLink, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return RepoLink{}, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return RepoLink{}, false
	}
	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return RepoLink{}, false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return RepoLink{}, false
	}
	owner, repo := parts[0], strings.TrimSuffix(parts[1], ".git")
	if !repoNamePattern.MatchString(owner) || !repoNamePattern.MatchString(repo) {
		return RepoLink{}, false
	}

	return RepoLink{
		URL:          raw,
		Owner:        owner,
		Repo:         repo,
		FullRepoName: owner + "/" + repo,
	}, true
}
