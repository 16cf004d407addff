package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/pkg/cl/config"
	"github.com/cliossg/tekir/pkg/cl/git"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

var ErrInvalidTarget = errors.New("invalid publish target")

// ghPagesTarget is a parsed ghpages:// or ghpages+https:// target.
type ghPagesTarget struct {
	RepoURL string
	Branch  string
	CNAME   string
	UseSSH  bool
}

// parseGHPagesTarget reads targets of the form ghpages://user/repo,
// optionally with ?cname=example.com. User pages repositories publish to
// master, all others to gh-pages.
func parseGHPagesTarget(target string) (ghPagesTarget, bool, error) {
	u, err := url.Parse(target)
	if err != nil {
		return ghPagesTarget{}, false, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}
	if u.Scheme != "ghpages" && u.Scheme != "ghpages+https" {
		return ghPagesTarget{}, false, nil
	}

	user := u.Host
	repo := strings.Trim(u.Path, "/")
	if user == "" || repo == "" || strings.Contains(repo, "/") {
		return ghPagesTarget{}, true, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}

	t := ghPagesTarget{
		Branch: "gh-pages",
		CNAME:  u.Query().Get("cname"),
		UseSSH: u.Scheme == "ghpages",
	}
	if strings.EqualFold(repo, user+".github.io") {
		t.Branch = "master"
	}
	if t.UseSSH {
		t.RepoURL = fmt.Sprintf("git@github.com:%s/%s.git", user, repo)
	} else {
		t.RepoURL = fmt.Sprintf("https://github.com/%s/%s.git", user, repo)
	}
	return t, true, nil
}

// Publisher uploads the build output to a server of the project.
type Publisher struct {
	builder   *Builder
	gitClient git.Client
	cfg       config.PublishConfig
	log       logger.Logger
}

func NewPublisher(builder *Builder, gitClient git.Client, cfg config.PublishConfig, log logger.Logger) *Publisher {
	return &Publisher{
		builder:   builder,
		gitClient: gitClient,
		cfg:       cfg,
		log:       log,
	}
}

// Publish sends the output to server and returns the progress lines.
// GitHub pages targets are pushed with git, everything else is handed to
// lektor deploy.
func (p *Publisher) Publish(ctx context.Context, server lektor.Server) ([]string, error) {
	target, ok, err := parseGHPagesTarget(server.Target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return p.builder.Deploy(ctx, server.ID)
	}
	return p.publishGHPages(ctx, target)
}

func (p *Publisher) publishGHPages(ctx context.Context, target ghPagesTarget) ([]string, error) {
	sourceDir := p.builder.OutputPath()
	if _, err := os.Stat(sourceDir); err != nil {
		return nil, fmt.Errorf("output directory not found: %w", err)
	}

	parentTempDir, err := os.MkdirTemp("", "tekir-publish-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp dir: %w", err)
	}
	defer os.RemoveAll(parentTempDir)

	tempDir := filepath.Join(parentTempDir, "repo")
	env := os.Environ()
	var lines []string

	auth := git.Auth{Method: git.AuthSSH}
	if !target.UseSSH {
		if p.cfg.Token == "" {
			return nil, fmt.Errorf("%w: a token is required for https targets", ErrInvalidTarget)
		}
		auth = git.Auth{Method: git.AuthToken, Token: p.cfg.Token}
	}

	lines = append(lines, "Cloning "+target.RepoURL)
	if err := p.gitClient.Clone(ctx, target.RepoURL, tempDir, auth, env); err != nil {
		return lines, fmt.Errorf("cannot clone repo: %w", err)
	}

	lines = append(lines, "Checking out "+target.Branch)
	if err := p.gitClient.Checkout(ctx, tempDir, target.Branch, false, env); err != nil {
		if err := p.gitClient.Checkout(ctx, tempDir, target.Branch, true, env); err != nil {
			return lines, fmt.Errorf("cannot checkout branch %s: %w", target.Branch, err)
		}
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return lines, fmt.Errorf("cannot read temp dir: %w", err)
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(tempDir, entry.Name())); err != nil {
			return lines, fmt.Errorf("cannot clean %s: %w", entry.Name(), err)
		}
	}

	lines = append(lines, "Copying "+sourceDir)
	if err := copyOutput(sourceDir, tempDir); err != nil {
		return lines, fmt.Errorf("cannot copy output: %w", err)
	}
	if target.CNAME != "" {
		if err := os.WriteFile(filepath.Join(tempDir, "CNAME"), []byte(target.CNAME+"\n"), 0o644); err != nil {
			return lines, fmt.Errorf("cannot write CNAME: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".nojekyll"), nil, 0o644); err != nil {
		return lines, fmt.Errorf("cannot write .nojekyll: %w", err)
	}

	if err := p.gitClient.Add(ctx, tempDir, ".", env); err != nil {
		return lines, fmt.Errorf("cannot stage files: %w", err)
	}

	commit := git.Commit{
		UserName:  p.cfg.CommitName,
		UserEmail: p.cfg.CommitEmail,
		Message:   fmt.Sprintf("Synchronized build - %s", time.Now().Format("2006-01-02 15:04:05")),
	}
	hash, err := p.gitClient.Commit(ctx, tempDir, commit, env)
	if err != nil {
		return lines, fmt.Errorf("cannot commit: %w", err)
	}
	if hash == "" {
		return append(lines, "No changes"), nil
	}
	lines = append(lines, "Committed "+hash)

	if err := p.gitClient.Push(ctx, tempDir, auth, "origin", target.Branch, env); err != nil {
		return lines, fmt.Errorf("cannot push: %w", err)
	}
	p.log.Infof("Published %s to %s", hash, target.RepoURL)
	return append(lines, "Pushed "+target.Branch), nil
}

// copyOutput copies the build output to dst, leaving out the Lektor
// state directory.
func copyOutput(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() && rel == stateDir {
			return filepath.SkipDir
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
