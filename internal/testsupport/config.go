package testsupport

import (
	"path/filepath"
	"testing"

	"bindery/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.PackageDir = filepath.Join(base, "packages")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Repository.BaseURL = "http://127.0.0.1:1"
	cfgVal.Repository.Token = "test-token"
	cfgVal.Repository.CollectionID = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithRepository points the test config at a live endpoint, usually an
// httptest server URL.
func WithRepository(baseURL, token string, collectionID int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Repository.BaseURL = baseURL
		b.cfg.Repository.Token = token
		b.cfg.Repository.CollectionID = collectionID
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.PackageDir)
}
