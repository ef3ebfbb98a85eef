// internal/common/config/config.go
package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Backend BackendConfig `mapstructure:"backend"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// BackendConfig describes the remote API the engine synchronizes with.
type BackendConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	DeviceType string `mapstructure:"device_type"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds credential persistence settings.
type AuthConfig struct {
	CredentialKey string `mapstructure:"credential_key"`
	CredentialTTL int    `mapstructure:"credential_ttl"` // hours
}

// CacheConfig holds fallback-cache key names and retention.
type CacheConfig struct {
	DealsKey        string `mapstructure:"deals_key"`
	UsersKey        string `mapstructure:"users_key"`
	ExpensesKey     string `mapstructure:"expenses_key"`
	SessionKey      string `mapstructure:"session_key"`
	LoginHistoryTTL int    `mapstructure:"login_history_ttl"` // days
}

// MetricsConfig holds the metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RequestTimeout converts the backend timeout to a time.Duration.
func (b BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(b.Timeout) * time.Millisecond
}

// TTL converts the configured credential lifetime to a time.Duration.
func (a AuthConfig) TTL() time.Duration {
	return time.Duration(a.CredentialTTL) * time.Hour
}

// HistoryTTL converts login-history retention to a time.Duration.
func (c CacheConfig) HistoryTTL() time.Duration {
	return time.Duration(c.LoginHistoryTTL) * 24 * time.Hour
}
