package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.ListingURL != "https://pt.wikipedia.org/wiki/Lista_de_fortificações_de_Portugal" {
		t.Fatalf("unexpected listing url %q", cfg.Source.ListingURL)
	}
	if cfg.Pipeline.Concurrency != 10 || cfg.Pipeline.Pause != 100*time.Millisecond {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Output.IntermediatePath != "portuguese_fortifications_temp.csv" ||
		cfg.Output.FinalPath != "portuguese_fortifications.csv" {
		t.Fatalf("unexpected output defaults: %+v", cfg.Output)
	}
	if cfg.Storage.Backend != "local" || cfg.Storage.BaseDir != "." {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.HTTP.RequestsPerSecond != 0 || cfg.HTTP.Timeout != 15*time.Second {
		t.Fatalf("unexpected http defaults: %+v", cfg.HTTP)
	}
	if cfg.Postgres.DSN != "" {
		t.Fatalf("postgres must be disabled by default")
	}
	if cfg.Postgres.MaxConnLifetime != 30*time.Minute {
		t.Fatalf("unexpected postgres.max_conn_lifetime default %s", cfg.Postgres.MaxConnLifetime)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  listing_url: https://pt.wikipedia.org/wiki/Lista_de_castelos_de_Portugal
wikidata:
  endpoint: http://localhost:8081/w/api.php
http:
  user_agent: castelos-test/0.1
  timeout: 30s
  respect_robots: false
  requests_per_second: 5
  burst: 2
pipeline:
  concurrency: 4
  pause: 250ms
output:
  intermediate_path: tmp.csv
  final_path: final.csv
  geojson_path: ""
storage:
  backend: gcs
  gcs_bucket: castelos-artifacts
  gcs_prefix: runs
postgres:
  dsn: postgres://localhost/castelos
  table: castelos
  max_conn_lifetime: 5m
metrics:
  textfile: castelos.prom
logging:
  development: false
  level: warn
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Timeout != 30*time.Second || cfg.HTTP.RespectRobots || cfg.HTTP.RequestsPerSecond != 5 {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if cfg.Pipeline.Concurrency != 4 || cfg.Pipeline.Pause != 250*time.Millisecond {
		t.Fatalf("expected pipeline overrides to apply: %+v", cfg.Pipeline)
	}
	if cfg.Output.GeoJSONPath != "" {
		t.Fatalf("expected geojson export disabled, got %q", cfg.Output.GeoJSONPath)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.GCSBucket != "castelos-artifacts" {
		t.Fatalf("expected storage overrides to apply: %+v", cfg.Storage)
	}
	if cfg.Postgres.MaxConnLifetime != 5*time.Minute {
		t.Fatalf("expected postgres.max_conn_lifetime override, got %s", cfg.Postgres.MaxConnLifetime)
	}
	if cfg.Postgres.Table != "castelos" || cfg.Metrics.Textfile != "castelos.prom" || cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected remaining overrides to apply: %+v", cfg)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CASTELOS_PIPELINE_CONCURRENCY", "3")
	t.Setenv("CASTELOS_STORAGE_BACKEND", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pipeline.Concurrency != 3 || cfg.Storage.Backend != "memory" {
		t.Fatalf("expected env overrides, got %+v %+v", cfg.Pipeline, cfg.Storage)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Source:   SourceConfig{ListingURL: "https://pt.wikipedia.org/wiki/Lista"},
		Wikidata: WikidataConfig{Endpoint: "https://www.wikidata.org/w/api.php"},
		HTTP:     HTTPConfig{Timeout: time.Second},
		Pipeline: PipelineConfig{Concurrency: 1},
		Output:   OutputConfig{IntermediatePath: "a.csv", FinalPath: "b.csv"},
		Storage:  StorageConfig{Backend: "local"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config must be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative listing url", func(c *Config) { c.Source.ListingURL = "/wiki/Lista" }, "source.listing_url"},
		{"bad endpoint scheme", func(c *Config) { c.Wikidata.Endpoint = "ftp://x/api" }, "wikidata.endpoint"},
		{"invalid timeout", func(c *Config) { c.HTTP.Timeout = 0 }, "http.timeout"},
		{"negative rate", func(c *Config) { c.HTTP.RequestsPerSecond = -1 }, "http.requests_per_second"},
		{"invalid concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }, "pipeline.concurrency"},
		{"negative pause", func(c *Config) { c.Pipeline.Pause = -time.Second }, "pipeline.pause"},
		{"missing final path", func(c *Config) { c.Output.FinalPath = " " }, "output.final_path"},
		{"same artifact paths", func(c *Config) { c.Output.FinalPath = "a.csv" }, "must differ"},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = "gcs" }, "storage.gcs_bucket"},
		{"negative conn lifetime", func(c *Config) { c.Postgres.MaxConnLifetime = -time.Second }, "postgres.max_conn_lifetime"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
