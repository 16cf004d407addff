package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFileDefaults(t *testing.T) {
	t.Setenv("TEKIR_ENV", "")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}

	if cfg.Env != "dev" {
		t.Errorf("Env = %q, want dev", cfg.Env)
	}
	if cfg.Server.Addr != "127.0.0.1:5001" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Lektor.Command != "lektor" {
		t.Errorf("Lektor.Command = %q", cfg.Lektor.Command)
	}
	if cfg.Admin.Language != "en" {
		t.Errorf("Admin.Language = %q", cfg.Admin.Language)
	}
	if cfg.Admin.Minify {
		t.Error("expected minify to be off in dev")
	}
	if cfg.Auth.Enabled() {
		t.Error("expected auth to be disabled by default")
	}
	if cfg.Publish.CommitName != "Tekir" {
		t.Errorf("Publish.CommitName = %q", cfg.Publish.CommitName)
	}
}

func TestLoadFileYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tekir.yaml")
	data := []byte(`
server:
  addr: ":9000"
project:
  path: /srv/site
admin:
  language: tr
auth:
  username: editor
  password_hash: "$2a$10$abc"
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEKIR_ENV", "prod")
	t.Setenv("TEKIR_SERVER_ADDR", ":9100")
	t.Setenv("TEKIR_ADMIN_MINIFY", "false")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Addr != ":9100" {
		t.Errorf("env override not applied, got %q", cfg.Server.Addr)
	}
	if cfg.Project.Path != "/srv/site" {
		t.Errorf("Project.Path = %q", cfg.Project.Path)
	}
	if cfg.Admin.Language != "tr" {
		t.Errorf("Admin.Language = %q", cfg.Admin.Language)
	}
	if cfg.Admin.Minify {
		t.Error("expected TEKIR_ADMIN_MINIFY=false to win")
	}
	if !cfg.Auth.Enabled() {
		t.Error("expected auth to be enabled")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tekir.yaml")
	data := []byte("auth:\n  username: editor\n  password_hash: [unclosed\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEKIR_AUTH_USERNAME", "")

	cfg, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected an error for a broken config file")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error does not name the file: %v", err)
	}
	if cfg.Auth.Username != "" || cfg.Server.Addr != "127.0.0.1:5001" {
		t.Errorf("partial file values leaked into defaults: %+v", cfg)
	}
}

func TestResolvedOutputPath(t *testing.T) {
	p := ProjectConfig{Path: "/srv/site"}
	if got := p.ResolvedOutputPath(); got != filepath.Join("/srv/site", "_build") {
		t.Errorf("ResolvedOutputPath() = %q", got)
	}
	p.OutputPath = "/tmp/out"
	if got := p.ResolvedOutputPath(); got != "/tmp/out" {
		t.Errorf("ResolvedOutputPath() = %q", got)
	}
}
