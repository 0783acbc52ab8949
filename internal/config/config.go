package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/mddb/internal/domain"
)

// Storage drivers.
const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

// Config holds the mddbd configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Search   SearchConfig   `yaml:"search"`
	Batch    BatchConfig    `yaml:"batch"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	MCP      MCPConfig      `yaml:"mcp"`
}

// MCP transports.
const (
	MCPTransportHTTP  = "http"
	MCPTransportStdio = "stdio"
)

// MCPConfig holds mddb-mcp settings. The bridge reaches mddbd through the SDK.
type MCPConfig struct {
	Transport  string `yaml:"transport"`   // http, stdio (default: http)
	ListenAddr string `yaml:"listen_addr"` // http transport only
	ServerURL  string `yaml:"server_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Timeout returns the per-call SDK timeout.
func (c *MCPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys  []string `yaml:"api_keys"`
	Required bool     `yaml:"required"` // refuse to start without a non-empty key
}

// Keys returns the configured keys without empty entries left by unset variables.
func (c *AuthConfig) Keys() []string {
	keys := make([]string, 0, len(c.APIKeys))
	for _, k := range c.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Driver         string `yaml:"driver"` // bolt, sqlite (default: bolt)
	Path           string `yaml:"path"`
	Mode           string `yaml:"mode"` // read, write, wr (default: wr)
	OpenTimeoutSec int    `yaml:"open_timeout_sec"`
	BackupDir      string `yaml:"backup_dir"` // empty: backup paths are used as given
}

// CacheConfig holds the optional Redis/Valkey document cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds pagination settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// BatchConfig holds batch settings.
type BatchConfig struct {
	MaxSize int `yaml:"max_size"`
	Workers int `yaml:"workers"`
}

// AccessMode returns the parsed database mode. Valid after Validate.
func (c *Config) AccessMode() domain.AccessMode {
	m, _ := domain.ParseAccessMode(c.Database.Mode)
	return m
}

// OpenTimeout returns the store open timeout.
func (c *DatabaseConfig) OpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutSec) * time.Second
}

// TTL returns the cache entry lifetime.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
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

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 11023
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// exports stream whole collections
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 32 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverBolt
	}
	if c.Database.Path == "" {
		c.Database.Path = "mddb.db"
	}
	if c.Database.Mode == "" {
		c.Database.Mode = string(domain.ModeReadWrite)
	}
	if c.Database.OpenTimeoutSec <= 0 {
		c.Database.OpenTimeoutSec = 5
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "mddb:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 50
	}
	if c.Search.MaxLimit <= 0 {
		c.Search.MaxLimit = 1000
	}
	if c.Batch.MaxSize <= 0 {
		c.Batch.MaxSize = 1000
	}
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = 4
	}
	if c.MCP.Transport == "" {
		c.MCP.Transport = MCPTransportHTTP
	}
	if c.MCP.ListenAddr == "" {
		c.MCP.ListenAddr = ":9000"
	}
	if c.MCP.ServerURL == "" {
		c.MCP.ServerURL = fmt.Sprintf("http://localhost:%d", c.HTTP.Port)
	}
	if c.MCP.TimeoutSec <= 0 {
		c.MCP.TimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverBolt, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverBolt, DriverSQLite, c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := domain.ParseAccessMode(c.Database.Mode); err != nil {
		return fmt.Errorf("database.mode: %w", err)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when cache is enabled")
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Auth.Required && len(c.Auth.Keys()) == 0 {
		return fmt.Errorf("auth.required is set but auth.api_keys has no non-empty key")
	}
	switch c.MCP.Transport {
	case MCPTransportHTTP, MCPTransportStdio:
	default:
		return fmt.Errorf("mcp.transport must be %q or %q, got %q", MCPTransportHTTP, MCPTransportStdio, c.MCP.Transport)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
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
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
