package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the styletelling service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Prompts  PromptsConfig  `yaml:"prompts"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings. The write timeout bounds a whole
// event stream, so it must cover a cold pipeline run.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// Store drivers.
const (
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverBadger = "badger"
)

// DatabaseConfig holds the key-value store settings shared by the envelope
// cache and the budget counters.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, badger (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Path             string   `yaml:"path"` // badger directory; empty = in-memory
}

// CacheConfig holds envelope cache settings.
type CacheConfig struct {
	Enabled      *bool `yaml:"enabled"`   // default true
	TTLHours     int   `yaml:"ttl_hours"` // 0 = entries never expire
	SkipDegraded bool  `yaml:"skip_degraded"`
}

// IsEnabled reports whether the envelope cache is on.
func (c CacheConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

// TTL returns the entry lifetime, zero for no expiry.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

// Oracle providers.
const (
	ProviderOpenAI    = "openai"
	ProviderLangchain = "langchain"
)

// Oracle stages that accept a model override.
var oracleStages = []string{"context", "selection", "attribute", "composition"}

// OracleConfig holds the text oracle settings.
type OracleConfig struct {
	Provider     string                `yaml:"provider"` // openai, langchain (default: openai)
	Name         string                `yaml:"name"`     // label in metrics and budget keys (default: provider)
	BaseURL      string                `yaml:"base_url"`
	APIKey       string                `yaml:"api_key"`
	Model        string                `yaml:"model"`
	StageModels  map[string]string     `yaml:"stage_models"`
	TimeoutSec   int                   `yaml:"timeout_sec"`
	Temperature  *float64              `yaml:"temperature"`
	Retries      int                   `yaml:"retries"`
	SystemPrompt string                `yaml:"system_prompt"`
	Costs        map[string]CostConfig `yaml:"costs"`
	Budget       BudgetConfig          `yaml:"budget"`
}

// Timeout returns the per-call deadline.
func (o OracleConfig) Timeout() time.Duration { return time.Duration(o.TimeoutSec) * time.Second }

// ProviderName is the label used for metrics and budget keys.
func (o OracleConfig) ProviderName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Provider
}

// CostConfig is a per-million-token price in USD.
type CostConfig struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// PipelineConfig tunes the scoring and ranking stages.
// Negative limits disable them; zero selects the default.
type PipelineConfig struct {
	Workers           int     `yaml:"workers"`
	MinValueScore     float64 `yaml:"min_value_score"`
	MinCategoryWeight float64 `yaml:"min_category_weight"`
	PerCategoryLimit  int     `yaml:"per_category_limit"`
	MaxProducts       int     `yaml:"max_products"`
}

// Catalog drivers.
const (
	CatalogFile     = "file"
	CatalogPostgres = "postgres"
)

// CatalogConfig selects the product catalog source.
type CatalogConfig struct {
	Driver string `yaml:"driver"` // file, postgres (default: file)
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// PromptsConfig points at an optional template override directory.
type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it and validates the result.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = ProviderOpenAI
	}
	if c.Oracle.Model == "" {
		c.Oracle.Model = "gpt-4o-mini"
	}
	if c.Oracle.TimeoutSec <= 0 {
		c.Oracle.TimeoutSec = 20
	}
	if c.Oracle.Temperature == nil {
		t := 0.2
		c.Oracle.Temperature = &t
	}
	if c.Oracle.Retries <= 0 {
		c.Oracle.Retries = 1
	}
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 5
	}
	if c.Pipeline.MinValueScore <= 0 {
		c.Pipeline.MinValueScore = 7
	}
	c.Pipeline.PerCategoryLimit = limitOrDefault(c.Pipeline.PerCategoryLimit, 3)
	c.Pipeline.MaxProducts = limitOrDefault(c.Pipeline.MaxProducts, 15)
	if c.Catalog.Driver == "" {
		c.Catalog.Driver = CatalogFile
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "styletelling:"
	}
}

// limitOrDefault maps 0 to def and negative values to 0 (unlimited).
func limitOrDefault(v, def int) int {
	switch {
	case v == 0:
		return def
	case v < 0:
		return 0
	}
	return v
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverValkey, DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverBadger:
	default:
		return fmt.Errorf("database.driver must be valkey, redis or badger, got %q", c.Database.Driver)
	}

	if c.Cache.TTLHours < 0 {
		return fmt.Errorf("cache.ttl_hours must be >= 0, got %d", c.Cache.TTLHours)
	}

	if err := c.Oracle.validate(); err != nil {
		return err
	}

	if c.Pipeline.MinCategoryWeight < 0 {
		return fmt.Errorf("pipeline.min_category_weight must be >= 0, got %v", c.Pipeline.MinCategoryWeight)
	}
	if c.Pipeline.MinValueScore > 10 {
		return fmt.Errorf("pipeline.min_value_score must be <= 10, got %v", c.Pipeline.MinValueScore)
	}

	switch c.Catalog.Driver {
	case CatalogFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for driver %q", CatalogFile)
		}
	case CatalogPostgres:
		if c.Catalog.DSN == "" {
			return fmt.Errorf("catalog.dsn is required for driver %q", CatalogPostgres)
		}
	default:
		return fmt.Errorf("catalog.driver must be file or postgres, got %q", c.Catalog.Driver)
	}
	return nil
}

func (o OracleConfig) validate() error {
	switch o.Provider {
	case ProviderOpenAI, ProviderLangchain:
	default:
		return fmt.Errorf("oracle.provider must be openai or langchain, got %q", o.Provider)
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return fmt.Errorf("oracle.temperature must be between 0 and 2, got %v", *o.Temperature)
	}
	for stage := range o.StageModels {
		if !slices.Contains(oracleStages, stage) {
			return fmt.Errorf("oracle.stage_models: unknown stage %q (want one of %s)",
				stage, strings.Join(oracleStages, ", "))
		}
	}
	switch o.Budget.Action {
	case "", "warn", "reject":
	default:
		return fmt.Errorf("oracle.budget.action must be \"warn\" or \"reject\", got %q", o.Budget.Action)
	}
	if o.Budget.DailyTokenLimit < 0 || o.Budget.MonthlyTokenLimit < 0 {
		return fmt.Errorf("oracle.budget token limits must be >= 0")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests run from package directories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
