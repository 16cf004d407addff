// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ProjectFixture is the name of the sample Lektor project under testdata.
const ProjectFixture = "site"

// TestdataDir returns the absolute path of the testdata directory.
func TestdataDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata")
}

// CopyProject copies the sample project into a temporary directory and
// returns its path. Tests are free to modify the copy.
func CopyProject(t testing.TB) string {
	t.Helper()
	src := filepath.Join(TestdataDir(), ProjectFixture)
	dst := filepath.Join(t.TempDir(), ProjectFixture)
	if err := CopyDir(src, dst); err != nil {
		t.Fatalf("cannot copy project fixture: %v", err)
	}
	return dst
}

// CopyDir copies the tree at src to dst.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
}

// WriteFile writes content under root, creating parent directories.
func WriteFile(t testing.TB, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile returns the content of root/rel or fails the test.
func ReadFile(t testing.TB, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
