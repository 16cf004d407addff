package git

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/cliossg/tekir/pkg/cl/logger"
)

const tokenUser = "oauth2"

// client drives the git command line.
type client struct {
	log logger.Logger
}

// NewClient returns a Client that shells out to the git binary on PATH.
func NewClient(log logger.Logger) Client {
	return &client{
		log: log,
	}
}

func (c *client) Clone(ctx context.Context, repoURL, localPath string, auth Auth, env []string) error {
	repoURL, err := withAuth(repoURL, auth)
	if err != nil {
		return err
	}
	c.log.Debugf("Cloning repository into %s", localPath)
	_, err = c.git(ctx, "", env, "clone", "--quiet", repoURL, localPath)
	return err
}

func (c *client) Checkout(ctx context.Context, localRepoPath, branch string, create bool, env []string) error {
	args := []string{"checkout", "--quiet"}
	if create {
		args = append(args, "-b")
	}
	_, err := c.git(ctx, localRepoPath, env, append(args, branch)...)
	return err
}

func (c *client) Add(ctx context.Context, localRepoPath, pathspec string, env []string) error {
	_, err := c.git(ctx, localRepoPath, env, "add", "--all", pathspec)
	return err
}

// Commit records the staged changes and returns the new commit hash, or
// an empty hash when there is nothing to commit.
func (c *client) Commit(ctx context.Context, localRepoPath string, commit Commit, env []string) (string, error) {
	status, err := c.Status(ctx, localRepoPath, env)
	if err != nil {
		return "", err
	}
	if status == "" {
		c.log.Info("No changes to commit")
		return "", nil
	}

	_, err = c.git(ctx, localRepoPath, env,
		"-c", "user.name="+commit.UserName,
		"-c", "user.email="+commit.UserEmail,
		"commit", "--quiet", "-m", commit.Message)
	if err != nil {
		return "", fmt.Errorf("cannot commit changes: %w", err)
	}

	hash, err := c.git(ctx, localRepoPath, env, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("cannot get commit hash: %w", err)
	}
	return strings.TrimSpace(hash), nil
}

// Push force-pushes HEAD to branch on remote. Token auth rewrites the
// remote URL for this push only.
func (c *client) Push(ctx context.Context, localRepoPath string, auth Auth, remote, branch string, env []string) error {
	target := remote
	if auth.Method == AuthToken {
		remoteURL, err := c.git(ctx, localRepoPath, env, "remote", "get-url", remote)
		if err != nil {
			return fmt.Errorf("cannot get remote URL for %s: %w", remote, err)
		}
		if target, err = withAuth(strings.TrimSpace(remoteURL), auth); err != nil {
			return err
		}
	}

	c.log.Infof("Pushing branch %s", branch)
	_, err := c.git(ctx, localRepoPath, env, "push", "--quiet", "--force", target, "HEAD:refs/heads/"+branch)
	return err
}

func (c *client) Status(ctx context.Context, localRepoPath string, env []string) (string, error) {
	out, err := c.git(ctx, localRepoPath, env, "status", "--porcelain")
	if err != nil {
		return "", fmt.Errorf("cannot get git status: %w", err)
	}
	return out, nil
}

// git runs one git command in dir and returns its standard output.
func (c *client) git(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w: %s", strings.Join(redact(args), " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// withAuth embeds a token into an https repository URL.
func withAuth(repoURL string, auth Auth) (string, error) {
	if auth.Method != AuthToken {
		return repoURL, nil
	}
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("cannot parse repo URL: %w", err)
	}
	u.User = url.UserPassword(tokenUser, auth.Token)
	return u.String(), nil
}

// redact hides credentials embedded in URL arguments.
func redact(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if u, err := url.Parse(a); err == nil && u.User != nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), "xxxxx")
				a = u.String()
			}
		}
		out[i] = a
	}
	return out
}
