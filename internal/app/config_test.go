package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/shelf/internal/tokenstore"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, LogFormatText, cfg.LogFormat)
	assert.Equal(t, DefaultConfigLogExporter, cfg.LogExporter)
	assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 30*time.Second, cfg.API.RefreshTimeout)
	assert.Equal(t, TokenStorageTypeFile, cfg.Auth.Storage)
	assert.NotEmpty(t, cfg.Auth.Dir)
	assert.Equal(t, uint16(8000), cfg.DevServer.Port)
	assert.NoError(t, cfg.Validate())
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		API:  APIConfig{BaseURL: "https://shelf.example/api/v1", Timeout: time.Second},
		Auth: AuthConfig{Storage: TokenStorageTypeMemory},
	}
	require.NoError(t, cfg.ApplyDefaults())

	assert.Equal(t, "https://shelf.example/api/v1", cfg.API.BaseURL)
	assert.Equal(t, time.Second, cfg.API.Timeout)
	assert.Empty(t, cfg.Auth.Dir)
}

func TestApplyDefaultsTrimsBaseURL(t *testing.T) {
	cfg := &Config{API: APIConfig{BaseURL: "https://shelf.example/api/v1/"}}
	require.NoError(t, cfg.ApplyDefaults())

	assert.Equal(t, "https://shelf.example/api/v1", cfg.API.BaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "memory storage", mutate: func(c *Config) { c.Auth.Storage = TokenStorageTypeMemory }},
		{name: "json logs", mutate: func(c *Config) { c.LogFormat = LogFormatJSON }},
		{name: "otlp exporter", mutate: func(c *Config) { c.LogExporter = "otlp-grpc" }},
		{name: "unknown log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: true},
		{name: "unknown exporter", mutate: func(c *Config) { c.LogExporter = "syslog" }, wantErr: true},
		{name: "invalid base url", mutate: func(c *Config) { c.API.BaseURL = "not a url" }, wantErr: true},
		{name: "unknown storage", mutate: func(c *Config) { c.Auth.Storage = "s3" }, wantErr: true},
		{name: "env without key", mutate: func(c *Config) { c.Auth.Storage = TokenStorageTypeEnv }, wantErr: true},
		{name: "file without dir", mutate: func(c *Config) { c.Auth.Dir = "" }, wantErr: true},
		{name: "short dev secret", mutate: func(c *Config) { c.DevServer.Secret = "abc" }, wantErr: true},
		{name: "invalid redis url", mutate: func(c *Config) { c.DevServer.RedisURL = "::" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.API.Timeout = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewTokenStore(t *testing.T) {
	t.Setenv("SHELF_TEST_TOKEN", "abc")

	tests := []struct {
		name string
		cfg  AuthConfig
		want any
	}{
		{name: "file", cfg: AuthConfig{Storage: TokenStorageTypeFile, Dir: t.TempDir()}, want: &tokenstore.FileStore{}},
		{name: "env", cfg: AuthConfig{Storage: TokenStorageTypeEnv, EnvKey: "SHELF_TEST_TOKEN"}, want: &tokenstore.EnvStore{}},
		{name: "memory", cfg: AuthConfig{Storage: TokenStorageTypeMemory}, want: &tokenstore.MemoryStore{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := tt.cfg.NewTokenStore()
			require.NoError(t, err)
			assert.IsType(t, tt.want, store)
		})
	}

	_, err := (&AuthConfig{Storage: "s3"}).NewTokenStore()
	assert.Error(t, err)
}
