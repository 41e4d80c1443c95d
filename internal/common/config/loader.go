// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Function names that carry extra environment requirements.
const (
	FunctionIonosphereProcessor = "ionosphere-processor"
	FunctionStarfixSync         = "starfix-sync"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

func setFromEnv(field *string, key string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(key); val != "" {
		*field = val
	}
}

// overrideEmptyConfig fills values still empty after expansion from canonical env names.
func overrideEmptyConfig(cfg *Config) {
	setFromEnv(&cfg.App.Environment, "APP_ENVIRONMENT")
	setFromEnv(&cfg.Logging.Level, "LOG_LEVEL")

	// External APIs
	setFromEnv(&cfg.APIs.OpenAI.APIKey, "OPENAI_API_KEY")
	setFromEnv(&cfg.APIs.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setFromEnv(&cfg.APIs.Terrastar.APIKey, "TERRASTAR_API_KEY")
	setFromEnv(&cfg.APIs.Terrastar.URL, "TERRASTAR_API_URL")
	setFromEnv(&cfg.APIs.StarFix.APIKey, "STARFIX_API_KEY")
	setFromEnv(&cfg.APIs.StarFix.URL, "STARFIX_API_URL")
	setFromEnv(&cfg.APIs.StarFix.OrganizationID, "STARFIX_ORG_ID")

	// Supabase
	setFromEnv(&cfg.Database.Supabase.URL, "SUPABASE_URL")
	setFromEnv(&cfg.Database.Supabase.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")

	// Database overrides
	setFromEnv(&cfg.Database.Postgres.Host, "DB_HOST")
	setFromEnv(&cfg.Database.Postgres.Database, "DB_NAME")
	setFromEnv(&cfg.Database.Postgres.User, "DB_USER")
	setFromEnv(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	if cfg.Database.Postgres.Port == 0 {
		if port, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
			cfg.Database.Postgres.Port = port
		}
	}
	setFromEnv(&cfg.Database.Redis.Address, "REDIS_ADDRESS")
	setFromEnv(&cfg.Database.Elasticsearch.URL, "ELASTICSEARCH_URL")

	// Notifications
	setFromEnv(&cfg.Notifications.AWS.Region, "AWS_REGION")
	setFromEnv(&cfg.Notifications.Email.FromEmail, "SES_FROM_EMAIL")
	setFromEnv(&cfg.Notifications.Alerts.TopicARN, "SNS_TOPIC_ARN")
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "maritime-edge"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	// Database defaults
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSupabase
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Supabase.Timeout == 0 {
		cfg.Database.Supabase.Timeout = 30000
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// API defaults
	if cfg.APIs.OpenAI.BaseURL == "" {
		cfg.APIs.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIs.OpenAI.Model == "" {
		cfg.APIs.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.APIs.OpenAI.Timeout == 0 {
		cfg.APIs.OpenAI.Timeout = 60000
	}
	if cfg.APIs.Terrastar.Timeout == 0 {
		cfg.APIs.Terrastar.Timeout = 60000
	}
	if cfg.APIs.StarFix.Timeout == 0 {
		cfg.APIs.StarFix.Timeout = 60000
	}

	// Rate limit defaults
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = RateLimitBackendMemory
	}
	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = 10
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = 60000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}
	if cfg.GNSS.StormKpThreshold == 0 {
		cfg.GNSS.StormKpThreshold = 5
	}
	if cfg.Reports.Index == "" {
		cfg.Reports.Index = "maritime-reports"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}

	if cfg.Functions == nil {
		cfg.Functions = map[string]FunctionConfig{}
	}
	for name, fn := range cfg.Functions {
		if fn.Timeout == 0 {
			fn.Timeout = 90000
		}
		cfg.Functions[name] = fn
	}
}

// validateConfig fails fast on secrets the enabled functions cannot run without.
func validateConfig(cfg *Config) error {
	if _, err := GetEnvVar("OPENAI_API_KEY", cfg.APIs.OpenAI.APIKey); err != nil {
		return err
	}

	switch cfg.Database.Driver {
	case DriverSupabase:
		if _, err := GetEnvVar("SUPABASE_URL", cfg.Database.Supabase.URL); err != nil {
			return err
		}
		if _, err := GetEnvVar("SUPABASE_SERVICE_ROLE_KEY", cfg.Database.Supabase.ServiceRoleKey); err != nil {
			return err
		}
	case DriverPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database.driver %q", cfg.Database.Driver)
	}

	switch cfg.RateLimit.Backend {
	case RateLimitBackendMemory, RateLimitBackendNone:
	case RateLimitBackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("unsupported rate_limit.backend %q", cfg.RateLimit.Backend)
	}

	if IsFunctionEnabled(cfg, FunctionIonosphereProcessor) {
		if _, err := GetEnvVar("TERRASTAR_API_KEY", cfg.APIs.Terrastar.APIKey); err != nil {
			return err
		}
		if _, err := GetEnvVar("TERRASTAR_API_URL", cfg.APIs.Terrastar.URL); err != nil {
			return err
		}
	}
	if IsFunctionEnabled(cfg, FunctionStarfixSync) {
		if _, err := GetEnvVar("STARFIX_API_KEY", cfg.APIs.StarFix.APIKey); err != nil {
			return err
		}
		if _, err := GetEnvVar("STARFIX_API_URL", cfg.APIs.StarFix.URL); err != nil {
			return err
		}
		if _, err := GetEnvVar("STARFIX_ORG_ID", cfg.APIs.StarFix.OrganizationID); err != nil {
			return err
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetFunctionConfig retrieves function-specific configuration with fallback to defaults
func GetFunctionConfig(cfg *Config, name string) FunctionConfig {
	fn := cfg.Functions[name]
	if fn.Timeout == 0 {
		fn.Timeout = 90000
	}
	if fn.RateLimit == 0 {
		fn.RateLimit = cfg.RateLimit.Limit
	}
	if fn.RateLimitWindow == 0 {
		fn.RateLimitWindow = cfg.RateLimit.Window
	}
	return fn
}

// IsFunctionEnabled reports whether a function should be mounted; unlisted functions are enabled.
func IsFunctionEnabled(cfg *Config, name string) bool {
	if fn, exists := cfg.Functions[name]; exists && fn.Enabled != nil {
		return *fn.Enabled
	}
	return true
}
