package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const DefaultFile = "tekir.yaml"

type Config struct {
	Env     string        `yaml:"env"` // "dev" or "prod"
	Server  ServerConfig  `yaml:"server"`
	Project ProjectConfig `yaml:"project"`
	Lektor  LektorConfig  `yaml:"lektor"`
	Log     LogConfig     `yaml:"log"`
	Admin   AdminConfig   `yaml:"admin"`
	Auth    AuthConfig    `yaml:"auth"`
	Publish PublishConfig `yaml:"publish"`
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	PreviewAddr string `yaml:"preview_addr"`
}

type ProjectConfig struct {
	Path       string `yaml:"path"`
	OutputPath string `yaml:"output_path"`
}

// ResolvedOutputPath returns the build destination, defaulting to
// a _build directory inside the project.
func (p ProjectConfig) ResolvedOutputPath() string {
	if p.OutputPath != "" {
		return p.OutputPath
	}
	return filepath.Join(p.Path, "_build")
}

type LektorConfig struct {
	Command string `yaml:"command"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AdminConfig struct {
	Language string `yaml:"language"`
	Minify   bool   `yaml:"minify"`
}

type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// Enabled reports whether basic auth should guard the admin.
func (a AuthConfig) Enabled() bool {
	return a.Username != "" && a.PasswordHash != ""
}

// PublishConfig holds the git identity and credentials used for
// ghpages targets.
type PublishConfig struct {
	CommitName  string `yaml:"commit_name"`
	CommitEmail string `yaml:"commit_email"`
	Token       string `yaml:"token"`
}

// LoadFile builds the configuration from defaults, the given yaml file
// (if it exists) and TEKIR_* environment overrides, in that order.
// A file that exists but cannot be read or parsed is an error; the
// returned config then holds the defaults with environment overrides.
func LoadFile(path string) (*Config, error) {
	env := os.Getenv("TEKIR_ENV")
	if env == "" {
		env = "dev"
	}

	cfg := &Config{
		Env:     env,
		Server:  ServerConfig{Addr: "127.0.0.1:5001", PreviewAddr: "127.0.0.1:5000"},
		Project: ProjectConfig{Path: "."},
		Lektor:  LektorConfig{Command: "lektor"},
		Log:     LogConfig{Level: "info"},
		Admin:   AdminConfig{Language: "en", Minify: env != "dev"},
		Publish: PublishConfig{CommitName: "Tekir", CommitEmail: "tekir@localhost"},
	}

	var fileErr error
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			fileErr = fmt.Errorf("cannot read config: %w", err)
		default:
			fromFile := *cfg
			if err := yaml.Unmarshal(data, &fromFile); err != nil {
				fileErr = fmt.Errorf("cannot parse %s: %w", path, err)
			} else {
				*cfg = fromFile
			}
		}
	}

	if v := os.Getenv("TEKIR_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TEKIR_PREVIEW_ADDR"); v != "" {
		cfg.Server.PreviewAddr = v
	}
	if v := os.Getenv("TEKIR_PROJECT_PATH"); v != "" {
		cfg.Project.Path = v
	}
	if v := os.Getenv("TEKIR_OUTPUT_PATH"); v != "" {
		cfg.Project.OutputPath = v
	}
	if v := os.Getenv("TEKIR_LEKTOR_COMMAND"); v != "" {
		cfg.Lektor.Command = v
	}
	if v := os.Getenv("TEKIR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TEKIR_ADMIN_LANGUAGE"); v != "" {
		cfg.Admin.Language = v
	}
	if v := os.Getenv("TEKIR_ADMIN_MINIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Admin.Minify = b
		}
	}
	if v := os.Getenv("TEKIR_AUTH_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv("TEKIR_AUTH_PASSWORD_HASH"); v != "" {
		cfg.Auth.PasswordHash = v
	}
	if v := os.Getenv("TEKIR_PUBLISH_TOKEN"); v != "" {
		cfg.Publish.Token = v
	}

	return cfg, fileErr
}
