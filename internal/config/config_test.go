package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bindery/internal/config"
)

func TestLoadMissingFileUsesEnvTokenAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("BINDERY_API_TOKEN", "env-token")

	configPath := filepath.Join(tempHome, "bindery.toml")
	writeConfig(t, configPath, map[string]any{
		"repository": map[string]any{
			"base_url":      "https://repo.example.edu/api/",
			"collection_id": 12,
		},
	})

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}

	if cfg.Repository.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.Repository.Token)
	}
	if cfg.Repository.BaseURL != "https://repo.example.edu/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Repository.BaseURL)
	}
	if cfg.Repository.CollectionID != 12 {
		t.Fatalf("unexpected collection id: %d", cfg.Repository.CollectionID)
	}

	wantPackages := filepath.Join(tempHome, ".local", "share", "bindery", "packages")
	if cfg.Paths.PackageDir != wantPackages {
		t.Fatalf("unexpected package dir: got %q want %q", cfg.Paths.PackageDir, wantPackages)
	}
	if cfg.Repository.RequestTimeout != 120 {
		t.Fatalf("unexpected request timeout default: %d", cfg.Repository.RequestTimeout)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}
}

func TestLoadRejectsMissingBaseURL(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("BINDERY_API_TOKEN", "env-token")

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error for missing base_url")
	}
	if !strings.Contains(err.Error(), "repository.base_url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "missing token",
			mutate: func(c *config.Config) { c.Repository.Token = "" },
			want:   "repository.token",
		},
		{
			name:   "bad scheme",
			mutate: func(c *config.Config) { c.Repository.BaseURL = "ftp://repo.example.edu" },
			want:   "http or https",
		},
		{
			name:   "negative collection",
			mutate: func(c *config.Config) { c.Repository.CollectionID = -2 },
			want:   "collection_id",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "yaml" },
			want:   "logging.format",
		},
		{
			name:   "bad log level",
			mutate: func(c *config.Config) { c.Logging.Level = "trace" },
			want:   "logging.level",
		},
		{
			name:   "negative free space",
			mutate: func(c *config.Config) { c.Batch.MinFreeSpaceGiB = -1 },
			want:   "min_free_space_gib",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Repository.BaseURL = "https://repo.example.edu"
			cfg.Repository.Token = "token"
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.PackageDir = filepath.Join(base, "packages")
	cfg.Paths.LogDir = filepath.Join(base, "logs", "nested")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.PackageDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory at %s: %v", dir, err)
		}
	}
}

func TestCreateSampleParsesAndValidatesWithCredentials(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	target := filepath.Join(tempHome, "sample.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
}

func TestExpandPathResolvesHome(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	expanded, err := config.ExpandPath("~/data/file.zip")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if expanded != filepath.Join(tempHome, "data", "file.zip") {
		t.Fatalf("unexpected expansion: %q", expanded)
	}
}

func writeConfig(t *testing.T, path string, doc map[string]any) {
	t.Helper()
	data, err := toml.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal config doc: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
