package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_CLOUD_PROJECT",
		"SPANNER_EMULATOR_HOST",
		"SPANALYTICS_PROJECT",
		"SPANALYTICS_INSTANCE",
		"SPANALYTICS_DATABASE",
		"SPANALYTICS_ENDPOINT",
		"SPANALYTICS_MAX_CONCURRENCY",
		"SPANALYTICS_LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	r := require.New(t)

	cfg, err := Load("")
	r.NoError(err)

	r.Equal("", cfg.Project)
	r.True(cfg.DataBoost)
	r.Equal(0, cfg.MaxConcurrency)
	r.Equal("table", cfg.Format)
	r.Equal("info", cfg.Log.Level)
	r.Equal("text", cfg.Log.Format)

	r.ErrorIs(cfg.Validate(), ErrMissingProject)
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "spanalytics.yaml")
	err := os.WriteFile(path, []byte(`
project: file-project
instance: file-instance
database: orders
max_concurrency: 8
data_boost: false
format: csv
log:
  level: debug
`), 0o600)
	r.NoError(err)

	t.Setenv("SPANALYTICS_INSTANCE", "env-instance")
	t.Setenv("SPANALYTICS_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	r.NoError(err)

	r.Equal("file-project", cfg.Project)
	r.Equal("env-instance", cfg.Instance)
	r.Equal("orders", cfg.Database)
	r.Equal(8, cfg.MaxConcurrency)
	r.False(cfg.DataBoost)
	r.Equal("csv", cfg.Format)
	r.Equal("warn", cfg.Log.Level)
	r.NoError(cfg.Validate())

	r.Equal("spanner://file-project/env-instance/orders?data-boost=false&max-concurrency=8", cfg.URL())
}

func TestLoad_GoogleCloudProject(t *testing.T) {
	clearEnv(t)
	r := require.New(t)

	t.Setenv("GOOGLE_CLOUD_PROJECT", "gcloud-project")
	t.Setenv("SPANNER_EMULATOR_HOST", "localhost:9010")

	cfg, err := Load("")
	r.NoError(err)
	r.Equal("gcloud-project", cfg.Project)
	r.Equal("localhost:9010", cfg.Endpoint)

	// the prefixed variable wins
	t.Setenv("SPANALYTICS_PROJECT", "own-project")
	cfg, err = Load("")
	r.NoError(err)
	r.Equal("own-project", cfg.Project)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Project: "p", Instance: "i", Database: "d", Format: "json"}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing instance", mutate: func(c *Config) { c.Instance = "" }, wantErr: ErrMissingInstance},
		{name: "missing database", mutate: func(c *Config) { c.Database = "" }, wantErr: ErrMissingDatabase},
		{name: "negative concurrency", mutate: func(c *Config) { c.MaxConcurrency = -1 }},
		{name: "unknown format", mutate: func(c *Config) { c.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()

			switch {
			case tt.name == "valid":
				require.NoError(t, err)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.Error(t, err)
			}
		})
	}
}

func TestConnectionParams(t *testing.T) {
	r := require.New(t)

	c := &Config{Project: "p", Instance: "i", Database: "d", DataBoost: true, Endpoint: "localhost:9010"}
	params := c.ConnectionParams()
	r.Equal("spanner", params.Type)
	r.Equal("d", params.Name)
	r.Equal("spanner://p/i/d?endpoint=localhost%3A9010", params.URL)
}
