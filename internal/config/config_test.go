package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Catalog:  CatalogConfig{Path: "config/catalog.yaml"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Database.Driver != DriverValkey {
		t.Errorf("driver: got %q", cfg.Database.Driver)
	}
	if cfg.Oracle.Provider != ProviderOpenAI || cfg.Oracle.TimeoutSec != 20 {
		t.Errorf("oracle defaults: got %+v", cfg.Oracle)
	}
	if cfg.Oracle.Temperature == nil || *cfg.Oracle.Temperature != 0.2 {
		t.Errorf("temperature: got %v", cfg.Oracle.Temperature)
	}
	if cfg.Pipeline.Workers != 5 || cfg.Pipeline.MinValueScore != 7 {
		t.Errorf("pipeline defaults: got %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.PerCategoryLimit != 3 || cfg.Pipeline.MaxProducts != 15 {
		t.Errorf("ranking limits: got %+v", cfg.Pipeline)
	}
	if cfg.Catalog.Driver != CatalogFile {
		t.Errorf("catalog driver: got %q", cfg.Catalog.Driver)
	}
	if cfg.Storage.KeyPrefix != "styletelling:" {
		t.Errorf("key prefix: got %q", cfg.Storage.KeyPrefix)
	}
	if !cfg.Cache.IsEnabled() || cfg.Cache.TTL() != 0 {
		t.Errorf("cache defaults: enabled=%v ttl=%v", cfg.Cache.IsEnabled(), cfg.Cache.TTL())
	}
	if cfg.Oracle.ProviderName() != ProviderOpenAI {
		t.Errorf("provider name: got %q", cfg.Oracle.ProviderName())
	}
}

func TestApplyDefaults_NegativeLimitsAreUnlimited(t *testing.T) {
	cfg := Config{Pipeline: PipelineConfig{PerCategoryLimit: -1, MaxProducts: -1}}
	cfg.ApplyDefaults()

	if cfg.Pipeline.PerCategoryLimit != 0 || cfg.Pipeline.MaxProducts != 0 {
		t.Errorf("got %+v, want unlimited", cfg.Pipeline)
	}
}

func TestApplyDefaults_ZeroTemperatureKept(t *testing.T) {
	zero := 0.0
	cfg := Config{Oracle: OracleConfig{Temperature: &zero}}
	cfg.ApplyDefaults()

	if *cfg.Oracle.Temperature != 0 {
		t.Errorf("temperature: got %v, want 0", *cfg.Oracle.Temperature)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"badger without addrs", func(c *Config) {
			c.Database.Driver = DriverBadger
			c.Database.Addrs = nil
		}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "memcached" }, "database.driver"},
		{"negative ttl", func(c *Config) { c.Cache.TTLHours = -1 }, "cache.ttl_hours"},
		{"unknown provider", func(c *Config) { c.Oracle.Provider = "anthropic" }, "oracle.provider"},
		{"temperature out of range", func(c *Config) {
			t := 3.0
			c.Oracle.Temperature = &t
		}, "oracle.temperature"},
		{"unknown stage", func(c *Config) {
			c.Oracle.StageModels = map[string]string{"ranking": "gpt-4o"}
		}, `unknown stage "ranking"`},
		{"known stage", func(c *Config) {
			c.Oracle.StageModels = map[string]string{"attribute": "gpt-4o"}
		}, ""},
		{"invalid budget action", func(c *Config) { c.Oracle.Budget.Action = "invalid_action" },
			`oracle.budget.action must be "warn" or "reject", got "invalid_action"`},
		{"reject budget", func(c *Config) { c.Oracle.Budget.Action = "reject" }, ""},
		{"negative category weight", func(c *Config) { c.Pipeline.MinCategoryWeight = -1 }, "min_category_weight"},
		{"file catalog without path", func(c *Config) { c.Catalog.Path = "" }, "catalog.path"},
		{"postgres without dsn", func(c *Config) { c.Catalog.Driver = CatalogPostgres }, "catalog.dsn"},
		{"unknown catalog", func(c *Config) { c.Catalog.Driver = "s3" }, "catalog.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("STYLE_TEST_PORT", "9090")
	t.Setenv("STYLE_TEST_KEY", "sk-test")

	data := []byte(`
http:
  port: ${STYLE_TEST_PORT}
database:
  driver: badger
oracle:
  api_key: ${STYLE_TEST_KEY}
  model: ${STYLE_TEST_MODEL:-gpt-4o}
catalog:
  path: catalog.yaml
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port: got %d", cfg.HTTP.Port)
	}
	if cfg.Oracle.APIKey != "sk-test" {
		t.Errorf("api key: got %q", cfg.Oracle.APIKey)
	}
	if cfg.Oracle.Model != "gpt-4o" {
		t.Errorf("model default: got %q", cfg.Oracle.Model)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("http:\n  port: 0\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad_Local(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("load local: %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("expected port from local.yaml")
	}
}
