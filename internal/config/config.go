package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the ShelfSmart service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Vision   VisionConfig   `yaml:"vision"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Cache    CacheConfig    `yaml:"cache"`
	Upload   UploadConfig   `yaml:"upload"`
	Billing  BillingConfig  `yaml:"billing"`
	Webhooks WebhookConfig  `yaml:"webhooks"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
	RateLimitRPS    float64  `yaml:"rate_limit_rps"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies  []string `yaml:"trusted_proxies"`
}

type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	QueryTimeoutSec int    `yaml:"query_timeout_sec"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// VisionConfig selects and configures the vision model backend.
type VisionConfig struct {
	Provider   string `yaml:"provider"` // openai, gemini
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	MaxTokens  int    `yaml:"max_tokens"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// CatalogConfig selects the book catalog and the enrichment pacing.
type CatalogConfig struct {
	Provider         string  `yaml:"provider"` // googlebooks, openlibrary
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	UserAgent        string  `yaml:"user_agent"`
	RPS              float64 `yaml:"rps"` // 0 = unlimited
	LookupTimeoutSec int     `yaml:"lookup_timeout_sec"`
	GroupSize        int     `yaml:"group_size"`
	GroupDelayMs     int     `yaml:"group_delay_ms"`
}

// CacheConfig enables the Redis catalog cache when Addr is set.
type CacheConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLHours  int    `yaml:"ttl_hours"`
}

type UploadConfig struct {
	Dir           string `yaml:"dir"`
	PublicBaseURL string `yaml:"public_base_url"`
	MaxBytes      int64  `yaml:"max_bytes"`
}

// BillingConfig maps Stripe price ids to package names.
type BillingConfig struct {
	StripeSecretKey     string            `yaml:"stripe_secret_key"`
	StripeWebhookSecret string            `yaml:"stripe_webhook_secret"`
	Prices              map[string]string `yaml:"prices"`
}

type WebhookConfig struct {
	ClerkSecret string `yaml:"clerk_secret"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads config/<env>.yaml after loading .env files into the environment.
func Load(env string) (Config, error) {
	LoadEnvFiles()

	configPath := findConfigPath(env)
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data and decodes it.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnvFiles loads .env and .env.local. Variables already present in the
// environment are never overridden.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// GetEnv returns the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 15
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 15 << 20
	}
	if c.HTTP.RateLimitRPS <= 0 {
		c.HTTP.RateLimitRPS = 5
	}
	if c.HTTP.RateLimitBurst <= 0 {
		c.HTTP.RateLimitBurst = 10
	}
	if c.Database.QueryTimeoutSec <= 0 {
		c.Database.QueryTimeoutSec = 5
	}
	if c.Vision.Provider == "" {
		c.Vision.Provider = "openai"
	}
	if c.Vision.Model == "" {
		switch c.Vision.Provider {
		case "gemini":
			c.Vision.Model = "gemini-2.5-flash"
		default:
			c.Vision.Model = "gpt-4o"
		}
	}
	if c.Vision.MaxTokens <= 0 {
		c.Vision.MaxTokens = 4000
	}
	if c.Vision.TimeoutSec <= 0 {
		c.Vision.TimeoutSec = 60
	}
	if c.Catalog.Provider == "" {
		c.Catalog.Provider = "googlebooks"
	}
	if c.Catalog.UserAgent == "" {
		c.Catalog.UserAgent = "ShelfSmart/1.0"
	}
	if c.Catalog.LookupTimeoutSec <= 0 {
		c.Catalog.LookupTimeoutSec = 10
	}
	if c.Catalog.GroupSize <= 0 {
		c.Catalog.GroupSize = 5
	}
	if c.Catalog.GroupDelayMs <= 0 {
		c.Catalog.GroupDelayMs = 1000
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "shelfsmart:catalog:"
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 7
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 10 << 20
	}
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	switch c.Vision.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("vision.provider must be \"openai\" or \"gemini\", got %q", c.Vision.Provider)
	}
	if c.Vision.APIKey == "" {
		return fmt.Errorf("vision.api_key is required")
	}
	switch c.Catalog.Provider {
	case "googlebooks", "openlibrary":
	default:
		return fmt.Errorf("catalog.provider must be \"googlebooks\" or \"openlibrary\", got %q", c.Catalog.Provider)
	}
	if c.Catalog.RPS < 0 {
		return fmt.Errorf("catalog.rps must not be negative")
	}
	if c.Upload.PublicBaseURL != "" && !strings.HasPrefix(c.Upload.PublicBaseURL, "http") {
		return fmt.Errorf("upload.public_base_url must be an http(s) URL, got %q", c.Upload.PublicBaseURL)
	}
	return nil
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSec) * time.Second
}

func (c CatalogConfig) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutSec) * time.Second
}

func (c CatalogConfig) GroupDelay() time.Duration {
	return time.Duration(c.GroupDelayMs) * time.Millisecond
}

func (c VisionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

func findConfigPath(env string) string {
	filename := env + ".yaml"

	if p := os.Getenv("CONFIG_DIR"); p != "" {
		return filepath.Join(p, filename)
	}
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

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

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}
