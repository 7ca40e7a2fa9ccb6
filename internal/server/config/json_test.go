package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":         "www.example:8080",
		"grpc_addr":         "www.example:9000",
		"storage":           "memory",
		"database_dsn":      "postgres://db",
		"secret_key":        "my_secret_key",
		"token_ttl":         "20m",
		"hash_cost":         11,
		"lockout_threshold": 3,
		"lockout_duration":  "10m",
		"reset_token_ttl":   "30m",
		"notify_timeout":    float64(2 * time.Second),
		"log_level":         "warn",
		"cors_origins":      []string{"http://app.example"},
		"redis_addr":        "redis:6379",
		"notifier":          "s3",
		"s3_access_key":     "user",
		"s3_secret_key":     "password",
		"s3_bucket":         "bucket",
		"s3_region":         "region",
		"s3_base_endpoint":  "base_endpoint",
		"otel_endpoint":     "http://otel:4318",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:8080", cfg.HTTPAddr)
		assert.Equal(t, "www.example:9000", cfg.GRPCAddr)
		assert.Equal(t, "memory", cfg.Storage)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 20*time.Minute, cfg.TokenTTL)
		assert.Equal(t, 11, cfg.HashCost)
		assert.Equal(t, 3, cfg.LockoutThreshold)
		assert.Equal(t, 10*time.Minute, cfg.LockoutDuration)
		assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
		assert.Equal(t, 2*time.Second, cfg.NotifyTimeout)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, []string{"http://app.example"}, cfg.CORSOrigins)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "s3", cfg.Notifier)
		assert.Equal(t, "user", cfg.S3AccessKey)
		assert.Equal(t, "password", cfg.S3SecretKey)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, "http://otel:4318", cfg.OTelEndpoint)
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"log_level": "error"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "error", cfg.LogLevel)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, time.Hour, cfg.TokenTTL)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{}
		cfg.LoadDefaults()
		want := *cfg
		parseJson(cfg)

		assert.Equal(t, want, *cfg)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
