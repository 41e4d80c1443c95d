// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                 `mapstructure:"app"`
	Server        ServerConfig              `mapstructure:"server"`
	Database      DatabaseConfig            `mapstructure:"database"`
	APIs          APIsConfig                `mapstructure:"apis"`
	RateLimit     RateLimitConfig           `mapstructure:"rate_limit"`
	Functions     map[string]FunctionConfig `mapstructure:"functions"`
	Logging       LoggingConfig             `mapstructure:"logging"`
	Notifications NotificationConfig        `mapstructure:"notifications"`
	GNSS          GNSSConfig                `mapstructure:"gnss"`
	Reports       ReportsConfig             `mapstructure:"reports"`
	Tracing       TracingConfig             `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name         string `mapstructure:"name"`
	Version      string `mapstructure:"version"`
	Environment  string `mapstructure:"environment"`
	RegistryPath string `mapstructure:"registry_path"`
}

type ServerConfig struct {
	Port            int   `mapstructure:"port"`
	ReadTimeout     int   `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int   `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int   `mapstructure:"shutdown_timeout"` // milliseconds
	MaxBodyBytes    int64 `mapstructure:"max_body_bytes"`
}

// Address returns the listen address for net/http.
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

const (
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver        string              `mapstructure:"driver"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Supabase      SupabaseConfig      `mapstructure:"supabase"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SupabaseConfig points at the PostgREST gateway of a Supabase project.
type SupabaseConfig struct {
	URL            string `mapstructure:"url"`
	ServiceRoleKey string `mapstructure:"service_role_key"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

// Enabled reports whether any Elasticsearch endpoint is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// --- External APIs ---

type APIsConfig struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Terrastar TerrastarConfig `mapstructure:"terrastar"`
	StarFix   StarFixConfig   `mapstructure:"starfix"`
}

type OpenAIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

type TerrastarConfig struct {
	URL     string `mapstructure:"url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type StarFixConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	OrganizationID string `mapstructure:"organization_id"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
}

// --- Runtime ---

const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
	RateLimitBackendNone   = "none"
)

type RateLimitConfig struct {
	Backend string `mapstructure:"backend"`
	Limit   int    `mapstructure:"limit"`
	Window  int    `mapstructure:"window"` // milliseconds
	// Peers allowed to set X-Forwarded-For, as CIDR blocks or addresses.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// FunctionConfig holds per-endpoint overrides. Zero values fall back to globals.
type FunctionConfig struct {
	Enabled         *bool `mapstructure:"enabled"`
	Timeout         int   `mapstructure:"timeout"` // milliseconds
	RateLimit       int   `mapstructure:"rate_limit"`
	RateLimitWindow int   `mapstructure:"rate_limit_window"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NotificationConfig holds the SES/SNS settings used by reports and alerts.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	Alerts struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"alerts"`
}

type GNSSConfig struct {
	StormKpThreshold float64 `mapstructure:"storm_kp_threshold"`
}

type ReportsConfig struct {
	Index string `mapstructure:"index"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
