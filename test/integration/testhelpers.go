// Package integration provides integration test utilities and fixtures.
package integration

import (
	"os/exec"
	"strings"
	"testing"
)

// TestRepo is a temporary git repository serving as a storage root, so
// a post-write hook can commit the tree the way a production
// deployment would.
type TestRepo struct {
	t   testing.TB
	Dir string
}

// NewTestRepo initializes a git repository in a temp directory. Tests
// are skipped when git is not installed.
func NewTestRepo(t testing.TB) *TestRepo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	repo := &TestRepo{t: t, Dir: t.TempDir()}
	repo.Git("init", "--initial-branch=main")
	repo.Git("config", "user.email", "test@example.com")
	repo.Git("config", "user.name", "Test User")
	repo.Git("config", "commit.gpgsign", "false")
	return repo
}

// Git runs a git command in the repository and returns its output.
func (r *TestRepo) Git(args ...string) string {
	r.t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// CommitCount returns the number of commits on the current branch.
func (r *TestRepo) CommitCount() string {
	r.t.Helper()
	return r.Git("rev-list", "--count", "HEAD")
}
