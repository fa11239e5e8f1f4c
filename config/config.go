package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/kndndrj/spanalytics/adapters"
	"github.com/kndndrj/spanalytics/core"
	"github.com/kndndrj/spanalytics/format"
	"github.com/kndndrj/spanalytics/logger"
)

const EnvPrefix = "SPANALYTICS"

var (
	ErrMissingProject  = errors.New("project is not set (use --project, SPANALYTICS_PROJECT or GOOGLE_CLOUD_PROJECT)")
	ErrMissingInstance = errors.New("instance is not set")
	ErrMissingDatabase = errors.New("database is not set")
)

// Config is the configuration of the command line tool. Every value can be
// set in a config file, through SPANALYTICS_* environment variables or with
// flags.
type Config struct {
	Project     string `mapstructure:"project"`
	Instance    string `mapstructure:"instance"`
	Database    string `mapstructure:"database"`
	Credentials string `mapstructure:"credentials"`
	// Endpoint points the client to an emulator.
	Endpoint string `mapstructure:"endpoint"`

	DataBoost      bool   `mapstructure:"data_boost"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	MaxPartitions  int64  `mapstructure:"max_partitions"`
	RequestTag     string `mapstructure:"request_tag"`
	Format         string `mapstructure:"format"`

	Log logger.Config `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project", "")
	v.SetDefault("instance", "")
	v.SetDefault("database", "")
	v.SetDefault("credentials", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("data_boost", true)
	v.SetDefault("max_concurrency", 0)
	v.SetDefault("max_partitions", 0)
	v.SetDefault("request_tag", "")
	v.SetDefault("format", "table")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "-")
}

// Load reads configuration from the optional file at path (yaml, json or
// toml) and the environment. Environment variables take precedence over the
// file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// well known variables of the google cloud tooling
	if err := v.BindEnv("project", EnvPrefix+"_PROJECT", "GOOGLE_CLOUD_PROJECT"); err != nil {
		return nil, fmt.Errorf("v.BindEnv: %w", err)
	}
	if err := v.BindEnv("endpoint", EnvPrefix+"_ENDPOINT", "SPANNER_EMULATOR_HOST"); err != nil {
		return nil, fmt.Errorf("v.BindEnv: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("v.ReadInConfig: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is complete enough to run a query.
func (c *Config) Validate() error {
	if c.Project == "" {
		return ErrMissingProject
	}
	if c.Instance == "" {
		return ErrMissingInstance
	}
	if c.Database == "" {
		return ErrMissingDatabase
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max concurrency must not be negative, got %d", c.MaxConcurrency)
	}
	if c.MaxPartitions < 0 {
		return fmt.Errorf("max partitions must not be negative, got %d", c.MaxPartitions)
	}
	if _, err := format.New(c.Format); err != nil {
		return err
	}
	return nil
}

// URL returns the connection url of the configured database.
func (c *Config) URL() string {
	params := url.Values{}
	if c.Endpoint != "" {
		params.Set("endpoint", c.Endpoint)
	}
	if c.Credentials != "" {
		params.Set("credentials", c.Credentials)
	}
	if !c.DataBoost {
		params.Set("data-boost", "false")
	}
	if c.MaxConcurrency > 0 {
		params.Set("max-concurrency", strconv.Itoa(c.MaxConcurrency))
	}
	if c.MaxPartitions > 0 {
		params.Set("max-partitions", strconv.FormatInt(c.MaxPartitions, 10))
	}
	if c.RequestTag != "" {
		params.Set("request-tag", c.RequestTag)
	}

	return adapters.SpannerURL(c.Project, c.Instance, c.Database, params)
}

// ConnectionParams returns parameters for adapters.NewConnection.
func (c *Config) ConnectionParams() *core.ConnectionParams {
	return &core.ConnectionParams{
		Name: c.Database,
		Type: "spanner",
		URL:  c.URL(),
	}
}
