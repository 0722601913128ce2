// Package config loads and validates castelos configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Wikidata WikidataConfig `mapstructure:"wikidata"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Output   OutputConfig   `mapstructure:"output"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig names the listing page that seeds the run.
type SourceConfig struct {
	ListingURL string `mapstructure:"listing_url"`
}

// WikidataConfig points at the structured-data API.
type WikidataConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// HTTPConfig configures outbound requests.
type HTTPConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	// RequestsPerSecond caps requests per host; zero means unlimited.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// PipelineConfig governs the worker pool.
type PipelineConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Pause       time.Duration `mapstructure:"pause"`
}

// OutputConfig names the artifacts. An empty GeoJSONPath disables that export.
type OutputConfig struct {
	IntermediatePath string `mapstructure:"intermediate_path"`
	FinalPath        string `mapstructure:"final_path"`
	GeoJSONPath      string `mapstructure:"geojson_path"`
}

// StorageConfig selects the artifact backend.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// PostgresConfig enables the optional dataset mirror when DSN is set.
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	EnsureSchema    bool          `mapstructure:"ensure_schema"`
}

// MetricsConfig controls the end-of-run metrics dump. An empty Textfile disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. Environment variables use the
// CASTELOS_ prefix with dots replaced by underscores, e.g. CASTELOS_PIPELINE_CONCURRENCY.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CASTELOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.listing_url", "https://pt.wikipedia.org/wiki/Lista_de_fortificações_de_Portugal")
	v.SetDefault("wikidata.endpoint", "https://www.wikidata.org/w/api.php")
	v.SetDefault("http.user_agent", "castelos/1.0 (+https://github.com/pjpmarques/Castelos)")
	v.SetDefault("http.timeout", 15*time.Second)
	v.SetDefault("http.respect_robots", true)
	v.SetDefault("http.requests_per_second", 0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("pipeline.concurrency", 10)
	v.SetDefault("pipeline.pause", 100*time.Millisecond)
	v.SetDefault("output.intermediate_path", "portuguese_fortifications_temp.csv")
	v.SetDefault("output.final_path", "portuguese_fortifications.csv")
	v.SetDefault("output.geojson_path", "portuguese_fortifications.geojson")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.base_dir", ".")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.gcs_prefix", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "fortifications")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("postgres.ensure_schema", true)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := validateAbsoluteURL("source.listing_url", c.Source.ListingURL); err != nil {
		return err
	}
	if err := validateAbsoluteURL("wikidata.endpoint", c.Wikidata.Endpoint); err != nil {
		return err
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be > 0")
	}
	if c.HTTP.RequestsPerSecond < 0 {
		return errors.New("http.requests_per_second must be >= 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return errors.New("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.Pause < 0 {
		return errors.New("pipeline.pause must be >= 0")
	}
	if strings.TrimSpace(c.Output.IntermediatePath) == "" || strings.TrimSpace(c.Output.FinalPath) == "" {
		return errors.New("output.intermediate_path and output.final_path are required")
	}
	if c.Output.IntermediatePath == c.Output.FinalPath {
		return errors.New("output.intermediate_path and output.final_path must differ")
	}
	if c.Postgres.MaxConnLifetime < 0 {
		return errors.New("postgres.max_conn_lifetime must be >= 0")
	}
	switch c.Storage.Backend {
	case "local", "memory":
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return errors.New("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of local, memory, gcs", c.Storage.Backend)
	}
	return nil
}

func validateAbsoluteURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", key, raw)
	}
	return nil
}
