package site

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

const timeLayout = "2006-01-02 15:04:05"

// Service runs builds and publishing for the project and reports on the
// build output.
type Service interface {
	Output(ctx context.Context, tag language.Tag) (*Output, error)
	OutputTime(tag language.Tag) string
	Build(ctx context.Context) ([]string, error)
	Clean(ctx context.Context) error
	Publish(ctx context.Context, server lektor.Server) ([]string, error)
	OpenFolder(ctx context.Context, path string) error
	ArtifactRecord(ctx context.Context, artifact string) (string, bool)
}

// openFunc opens a directory in the desktop file manager.
type openFunc func(ctx context.Context, path string) error

var fileManagers = map[string]string{
	"darwin":  "open",
	"linux":   "xdg-open",
	"windows": "explorer",
}

func openInFileManager(ctx context.Context, path string) error {
	manager, ok := fileManagers[runtime.GOOS]
	if !ok {
		manager = "xdg-open"
	}
	if err := exec.CommandContext(ctx, manager, path).Start(); err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	return nil
}

type service struct {
	builder   *Builder
	publisher *Publisher
	state     *Buildstate
	open      openFunc
	log       logger.Logger

	// mu keeps builds, cleans and publishes from overlapping.
	mu sync.Mutex
}

func NewService(builder *Builder, publisher *Publisher, log logger.Logger) Service {
	return &service{
		builder:   builder,
		publisher: publisher,
		state:     NewBuildstate(builder.OutputPath()),
		open:      openInFileManager,
		log:       log,
	}
}

func (s *service) Output(ctx context.Context, tag language.Tag) (*Output, error) {
	artifacts, err := s.state.ArtifactCount(ctx)
	if err != nil {
		return nil, err
	}
	dirty, err := s.state.DirtySources(ctx)
	if err != nil {
		return nil, err
	}
	_, built := s.builder.OutputTime()
	return &Output{
		Path:      s.builder.OutputPath(),
		Time:      s.OutputTime(tag),
		Built:     built,
		Artifacts: artifacts,
		Dirty:     len(dirty),
	}, nil
}

// OutputTime formats the time of the last build, or a translated
// placeholder when there is no output.
func (s *service) OutputTime(tag language.Tag) string {
	t, ok := s.builder.OutputTime()
	if !ok {
		return i18n.T(tag, i18n.MsgNoOutput)
	}
	return t.Local().Format(timeLayout)
}

func (s *service) Build(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Build(ctx)
}

func (s *service) Clean(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.Clean(ctx)
}

func (s *service) Publish(ctx context.Context, server lektor.Server) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	lines, err := s.publisher.Publish(ctx, server)
	if err != nil {
		return lines, err
	}
	s.log.Infof("Published to %s in %s", server.ID, time.Since(start).Round(time.Millisecond))
	return lines, nil
}

func (s *service) OpenFolder(ctx context.Context, path string) error {
	return s.open(ctx, path)
}

// ArtifactRecord returns the record path an artifact was built from.
func (s *service) ArtifactRecord(ctx context.Context, artifact string) (string, bool) {
	source, err := s.state.PrimarySource(ctx, artifact)
	if err != nil {
		return "", false
	}
	recordPath, _, ok := SourceRecord(source)
	return recordPath, ok
}
