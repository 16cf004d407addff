package site

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cliossg/tekir/pkg/cl/logger"
)

// runFunc runs an external command in dir and returns its combined output.
type runFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.Bytes(), fmt.Errorf("%s %s failed: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(out.String()))
	}
	return out.Bytes(), nil
}

// Builder drives the Lektor command line against one project and output
// directory.
type Builder struct {
	command     string
	projectRoot string
	projectFile string
	outputPath  string
	run         runFunc
	log         logger.Logger
}

func NewBuilder(command, projectFile, outputPath string, log logger.Logger) *Builder {
	return &Builder{
		command:     command,
		projectRoot: filepath.Dir(projectFile),
		projectFile: projectFile,
		outputPath:  outputPath,
		run:         execRun,
		log:         log,
	}
}

// OutputPath is the build destination.
func (b *Builder) OutputPath() string { return b.outputPath }

// Build builds all sources. Artifacts that failed to build are returned
// as "artifact: exception" lines; err is reserved for failures to run
// the build at all.
func (b *Builder) Build(ctx context.Context) ([]string, error) {
	b.log.Infof("Building %s into %s", b.projectRoot, b.outputPath)
	start := time.Now()

	_, runErr := b.run(ctx, b.projectRoot, b.command, "build", "--output-path", b.outputPath)

	failures, err := b.Failures()
	if err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		b.log.Warnf("Build finished with %d failures", len(failures))
		return failures, nil
	}
	if runErr != nil {
		return nil, fmt.Errorf("cannot build project: %w", runErr)
	}

	if err := b.TouchSiteConfig(); err != nil {
		return nil, err
	}
	b.log.Infof("Build finished in %s", time.Since(start).Round(time.Millisecond))
	return nil, nil
}

// Clean removes all artifacts from the output directory.
func (b *Builder) Clean(ctx context.Context) error {
	b.log.Infof("Cleaning %s", b.outputPath)
	if _, err := b.run(ctx, b.projectRoot, b.command, "clean", "--output-path", b.outputPath, "--yes"); err != nil {
		return fmt.Errorf("cannot clean build: %w", err)
	}
	return b.TouchSiteConfig()
}

// Deploy publishes the output to a server through the Lektor command
// line and returns its output lines.
func (b *Builder) Deploy(ctx context.Context, server string) ([]string, error) {
	out, err := b.run(ctx, b.projectRoot, b.command, "deploy", "--output-path", b.outputPath, server)
	lines := splitLines(string(out))
	if err != nil {
		return lines, fmt.Errorf("cannot deploy to %s: %w", server, err)
	}
	return lines, nil
}

// Failures reads the failure records Lektor leaves for artifacts that
// could not be built, ordered by file name.
func (b *Builder) Failures() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(b.outputPath, stateDir, failuresDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("cannot list build failures: %w", err)
	}
	sort.Strings(files)

	var failures []string
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("cannot read build failure: %w", err)
		}
		var failure struct {
			Artifact  string `json:"artifact"`
			Exception string `json:"exception"`
		}
		if err := json.Unmarshal(data, &failure); err != nil {
			b.log.Warnf("Skipping unreadable failure record %s: %v", filepath.Base(f), err)
			continue
		}
		failures = append(failures, failure.Artifact+": "+failure.Exception)
	}
	return failures, nil
}

// TouchSiteConfig bumps the modification time of the project file so the
// next build reconsiders every artifact.
func (b *Builder) TouchSiteConfig() error {
	now := time.Now()
	if err := os.Chtimes(b.projectFile, now, now); err != nil {
		return fmt.Errorf("cannot touch project file: %w", err)
	}
	return nil
}

// OutputTime returns the time of the last build, taken from the build
// state database. The second result is false when nothing was built.
func (b *Builder) OutputTime() (time.Time, bool) {
	info, err := os.Stat(filepath.Join(b.outputPath, stateDir, buildstateDB))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			b.log.Warnf("Cannot stat build state: %v", err)
		}
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimRight(line, "\r "); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
