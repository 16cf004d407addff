// Package git publishes directories to remote repositories through the
// git command line.
package git

import (
	"context"
)

// Client is the subset of git operations used to publish build output.
// env is passed to every git process as is; nil inherits the environment.
type Client interface {
	Clone(ctx context.Context, repoURL, localPath string, auth Auth, env []string) error
	Checkout(ctx context.Context, localRepoPath, branch string, create bool, env []string) error
	Add(ctx context.Context, localRepoPath, pathspec string, env []string) error
	Commit(ctx context.Context, localRepoPath string, commit Commit, env []string) (string, error)
	Push(ctx context.Context, localRepoPath string, auth Auth, remote, branch string, env []string) error
	Status(ctx context.Context, localRepoPath string, env []string) (string, error)
}

// Auth selects how the remote is reached. ssh relies on the user's agent
// and keys; token is embedded into https URLs.
type Auth struct {
	Method AuthMethod
	Token  string
}

type AuthMethod string

const (
	AuthToken AuthMethod = "token"
	AuthSSH   AuthMethod = "ssh"
)

// Commit carries the author identity and message of a publish commit.
type Commit struct {
	UserName  string
	UserEmail string
	Message   string
}
