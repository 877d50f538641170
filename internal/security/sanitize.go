package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	ownerRepoPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+$`)
	branchPattern    = regexp.MustCompile(`^[a-zA-Z0-9/_.-]+$`)
)

// ValidateOwnerRepo ensures a GitHub repository reference has the form owner/repo.
func ValidateOwnerRepo(ownerRepo string) error {
	if !ownerRepoPattern.MatchString(ownerRepo) {
		return fmt.Errorf("invalid owner/repo format: %q", ownerRepo)
	}
	if strings.Contains(ownerRepo, "..") {
		return fmt.Errorf("invalid owner/repo format: %q", ownerRepo)
	}
	return nil
}

// SplitOwnerRepo validates and splits "owner/repo".
func SplitOwnerRepo(ownerRepo string) (string, string, error) {
	if err := ValidateOwnerRepo(ownerRepo); err != nil {
		return "", "", err
	}
	owner, repo, _ := strings.Cut(ownerRepo, "/")
	return owner, repo, nil
}

// ValidateBranchName ensures branch name is safe to compare against and log.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name cannot be empty")
	}
	if strings.HasPrefix(branch, "-") {
		return fmt.Errorf("branch name cannot start with '-'")
	}
	if strings.HasPrefix(branch, "refs/") {
		return fmt.Errorf("branch name must not include the refs/ prefix")
	}
	if !branchPattern.MatchString(branch) {
		return fmt.Errorf("branch name contains invalid characters")
	}
	return nil
}

// SanitizePath ensures a path is absolute and doesn't contain traversal attempts.
func SanitizePath(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path must be absolute: %s", path)
	}

	// Check before cleaning, filepath.Clean removes them
	for _, elem := range strings.Split(filepath.ToSlash(path), "/") {
		if elem == ".." {
			return "", fmt.Errorf("path contains traversal elements: %s", path)
		}
	}

	return filepath.Clean(path), nil
}
