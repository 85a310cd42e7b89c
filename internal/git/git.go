package git

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// NoChanges is the message returned by AddCommitPush when the working copy
// has nothing to commit.
const NoChanges = "No changes to commit"

// DefaultTimeout bounds each git invocation.
const DefaultTimeout = 60 * time.Second

// Syncer is the version-control collaborator used by the review service.
type Syncer interface {
	Clone(ctx context.Context, repoURL, path string) error
	Pull(ctx context.Context, path string) error
	AddCommitPush(ctx context.Context, path, message string) (string, error)
	Setup(ctx context.Context, repoURL, path string) (string, error)
}

// SyncError reports a failed git operation. Message never contains the
// access token.
type SyncError struct {
	Op      string
	Message string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("git %s: %s", e.Op, e.Message)
}

// Client runs the git binary against a working copy.
type Client struct {
	// Token is injected into HTTPS remote URLs on clone.
	Token   string
	Timeout time.Duration
}

// NewClient returns a Client with the default timeout.
func NewClient(token string) *Client {
	return &Client{Token: token, Timeout: DefaultTimeout}
}

func (c *Client) redact(s string) string {
	if c.Token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.Token, "***")
}

// run executes git with -C path under the client timeout and returns trimmed stdout.
func (c *Client) run(ctx context.Context, op, path string, args ...string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullArgs := args
	if path != "" {
		fullArgs = append([]string{"-C", path}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &SyncError{Op: op, Message: fmt.Sprintf("timed out after %s", timeout)}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(string(exitErr.Stderr))
			if msg == "" {
				msg = exitErr.Error()
			}
			return "", &SyncError{Op: op, Message: c.redact(msg)}
		}
		return "", &SyncError{Op: op, Message: c.redact(err.Error())}
	}
	return strings.TrimSpace(string(out)), nil
}

// AuthenticatedURL injects token into an HTTPS repository URL. Other URLs
// are returned unchanged.
func AuthenticatedURL(repoURL, token string) string {
	if token == "" {
		return repoURL
	}
	u, err := url.Parse(repoURL)
	if err != nil || u.Scheme != "https" || u.User != nil {
		return repoURL
	}
	u.User = url.User(token)
	return u.String()
}

// Clone clones repoURL into path.
func (c *Client) Clone(ctx context.Context, repoURL, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &SyncError{Op: "clone", Message: err.Error()}
	}
	_, err := c.run(ctx, "clone", "", "clone", AuthenticatedURL(repoURL, c.Token), path)
	return err
}

// Pull fast-forwards the working copy from its upstream.
func (c *Client) Pull(ctx context.Context, path string) error {
	_, err := c.run(ctx, "pull", path, "pull", "--ff-only")
	return err
}

// AddCommitPush stages everything, commits with message and pushes. When the
// tree is clean it returns NoChanges without committing.
func (c *Client) AddCommitPush(ctx context.Context, path, message string) (string, error) {
	if _, err := c.run(ctx, "add", path, "add", "-A"); err != nil {
		return "", err
	}
	status, err := c.run(ctx, "status", path, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	if status == "" {
		if c.ahead(ctx, path) == 0 {
			return NoChanges, nil
		}
		// earlier commits never reached the remote
		if _, err := c.run(ctx, "push", path, "push"); err != nil {
			return "", err
		}
		return "Changes pushed", nil
	}
	if _, err := c.run(ctx, "commit", path, "commit", "-m", message); err != nil {
		return "", err
	}
	if _, err := c.run(ctx, "push", path, "push"); err != nil {
		return "", err
	}
	return "Changes pushed", nil
}

// ahead returns how many local commits are missing from the upstream branch.
// Without an upstream it reports zero.
func (c *Client) ahead(ctx context.Context, path string) int {
	out, err := c.run(ctx, "rev-list", path, "rev-list", "--count", "@{u}..HEAD")
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0
	}
	return n
}

// Setup clones the repository when path is not yet a working copy and pulls
// otherwise.
func (c *Client) Setup(ctx context.Context, repoURL, path string) (string, error) {
	if IsRepo(path) {
		if err := c.Pull(ctx, path); err != nil {
			return "", err
		}
		return "Repository updated", nil
	}
	if repoURL == "" {
		return "", &SyncError{Op: "clone", Message: "no repository URL configured"}
	}
	if err := c.Clone(ctx, repoURL, path); err != nil {
		return "", err
	}
	return "Repository cloned", nil
}

// IsRepo reports whether path contains a .git directory.
func IsRepo(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// LastCommitMessage returns the subject of HEAD.
func (c *Client) LastCommitMessage(ctx context.Context, path string) (string, error) {
	return c.run(ctx, "log", path, "log", "-1", "--format=%s")
}
