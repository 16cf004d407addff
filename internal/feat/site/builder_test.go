package site

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cliossg/tekir/internal/testutil"
	"github.com/cliossg/tekir/pkg/cl/logger"
)

// fakeRun records commands and runs fn in place of the external tool.
type fakeRun struct {
	calls [][]string
	dirs  []string
	fn    func(args []string) ([]byte, error)
}

func (f *fakeRun) run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	f.dirs = append(f.dirs, dir)
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(args)
}

func newTestBuilder(t *testing.T) (*Builder, *fakeRun, string) {
	t.Helper()
	root := testutil.CopyProject(t)
	projectFile := filepath.Join(root, "site.lektorproject")
	out := filepath.Join(t.TempDir(), "out")

	fake := &fakeRun{}
	b := NewBuilder("lektor", projectFile, out, logger.NewNoopLogger())
	b.run = fake.run
	return b, fake, projectFile
}

func age(t *testing.T, path string) {
	t.Helper()
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
}

func modTime(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return info.ModTime()
}

func TestBuilderBuild(t *testing.T) {
	b, fake, projectFile := newTestBuilder(t)
	age(t, projectFile)

	failures, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(failures) != 0 {
		t.Errorf("Build() failures = %v", failures)
	}

	want := [][]string{{"lektor", "build", "--output-path", b.OutputPath()}}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if fake.dirs[0] != filepath.Dir(projectFile) {
		t.Errorf("build ran in %q", fake.dirs[0])
	}
	if time.Since(modTime(t, projectFile)) > time.Hour {
		t.Error("project file was not touched after a successful build")
	}
}

func TestBuilderBuildFailures(t *testing.T) {
	b, fake, projectFile := newTestBuilder(t)
	age(t, projectFile)
	fake.fn = func(args []string) ([]byte, error) {
		testutil.WriteFailure(t, b.OutputPath(), "b", "blog/index.html", "TemplateNotFound")
		testutil.WriteFailure(t, b.OutputPath(), "a", "index.html", "KeyError")
		return nil, errors.New("exit status 1")
	}

	failures, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"index.html: KeyError", "blog/index.html: TemplateNotFound"}
	if diff := cmp.Diff(want, failures); diff != "" {
		t.Errorf("Build() failures mismatch (-want +got):\n%s", diff)
	}
	if time.Since(modTime(t, projectFile)) < time.Hour {
		t.Error("project file must not be touched after a failed build")
	}
}

func TestBuilderBuildError(t *testing.T) {
	b, fake, _ := newTestBuilder(t)
	fake.fn = func(args []string) ([]byte, error) {
		return nil, errors.New("lektor: command not found")
	}

	if _, err := b.Build(context.Background()); err == nil {
		t.Error("Build() succeeded although the command failed")
	}
}

func TestBuilderClean(t *testing.T) {
	b, fake, _ := newTestBuilder(t)

	if err := b.Clean(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"lektor", "clean", "--output-path", b.OutputPath(), "--yes"}}
	if diff := cmp.Diff(want, fake.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilderDeploy(t *testing.T) {
	b, fake, _ := newTestBuilder(t)
	fake.fn = func(args []string) ([]byte, error) {
		return []byte("Deploying to staging\n\nDone!\n"), nil
	}

	lines, err := b.Deploy(context.Background(), "staging")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Deploying to staging", "Done!"}, lines); diff != "" {
		t.Errorf("Deploy() lines mismatch (-want +got):\n%s", diff)
	}
	if got := strings.Join(fake.calls[0], " "); got != "lektor deploy --output-path "+b.OutputPath()+" staging" {
		t.Errorf("command = %q", got)
	}
}

func TestBuilderOutputTime(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	if _, ok := b.OutputTime(); ok {
		t.Error("OutputTime() reported a build before any build")
	}

	testutil.WriteBuildstate(t, b.OutputPath(), fixtureArtifacts)
	got, ok := b.OutputTime()
	if !ok {
		t.Fatal("OutputTime() found no build")
	}
	if time.Since(got) > time.Minute {
		t.Errorf("OutputTime() = %v", got)
	}
}
