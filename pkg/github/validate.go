package github

import (
	"regexp"
	"strings"

	"github.com/plugdex/plugdex/pkg/errors"
)

// Regex patterns for GitHub resource validation.
var (
	// GitHub usernames/orgs: 1-39 alphanumeric or hyphen, not starting with hyphen
	validOwner = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)
	// GitHub repo names: 1-100 alphanumeric, hyphen, underscore, or dot
	validRepo = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// ValidateOwner validates a GitHub username or organization name.
func ValidateOwner(owner string) error {
	if owner == "" {
		return errors.New(errors.ErrCodeInvalidRepoRef, "owner is required")
	}
	if !validOwner.MatchString(owner) {
		return errors.New(errors.ErrCodeInvalidRepoRef, "invalid owner %q", owner)
	}
	return nil
}

// ValidateRepo validates a GitHub repository name.
func ValidateRepo(repo string) error {
	if repo == "" {
		return errors.New(errors.ErrCodeInvalidRepoRef, "repo is required")
	}
	if !validRepo.MatchString(repo) {
		return errors.New(errors.ErrCodeInvalidRepoRef, "invalid repo name %q", repo)
	}
	return nil
}

// ParseRepoRef parses an "owner/repo" string and validates both parts.
// A full name that cannot be split or fails validation is the
// INVALID_REPO_REF drop reason.
func ParseRepoRef(fullName string) (RepoRef, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || strings.Contains(repo, "/") {
		return RepoRef{}, errors.New(errors.ErrCodeInvalidRepoRef, "%q is not owner/repo", fullName)
	}
	if err := ValidateOwner(owner); err != nil {
		return RepoRef{}, err
	}
	if err := ValidateRepo(repo); err != nil {
		return RepoRef{}, err
	}
	return RepoRef{Owner: owner, Repo: repo}, nil
}
