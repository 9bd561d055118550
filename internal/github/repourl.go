package github

import (
	"fmt"
	"regexp"
	"strings"

	"reposcanner/internal/models"
)

var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)

// ParseRepoURL extracts owner and repository name from a GitHub URL. Extra
// path segments such as /tree/main are ignored.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	m := repoURLPattern.FindStringSubmatch(s)
	if m == nil {
		return "", "", fmt.Errorf("parse repository url: %w: %q", models.ErrInvalidURL, raw)
	}

	owner, repo = m[1], strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return "", "", fmt.Errorf("parse repository url: %w: %q", models.ErrInvalidURL, raw)
	}
	return owner, repo, nil
}

// CanonicalRepoURL is the form the application stores repositories under
// when it builds a URL itself.
func CanonicalRepoURL(owner, repo string) string {
	return "https://github.com/" + owner + "/" + repo
}
