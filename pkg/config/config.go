package config

import "time"

// Config represents the complete library configuration.
type Config struct {
	Logger        LoggerConfig          `mapstructure:"logger"`
	Metrics       MetricsConfig         `mapstructure:"metrics"`
	ErrorTracking ErrorTrackingConfig   `mapstructure:"error_tracking"`
	Redis         RedisConfig           `mapstructure:"redis"`
	Feeds         map[string]FeedConfig `mapstructure:"feeds"`
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Dev  bool   `mapstructure:"dev"`
	Path string `mapstructure:"path"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"` // prometheus, noop
}

// ErrorTrackingConfig holds error tracking configuration.
type ErrorTrackingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Provider    string  `mapstructure:"provider"` // sentry, noop
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	Release     string  `mapstructure:"release"`
	Debug       bool    `mapstructure:"debug"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// RedisConfig holds the shared Redis connection configuration used by
// redis-backed feeds.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// FeedConfig is the file-side definition of one named feed.
type FeedConfig struct {
	Provider  string        `mapstructure:"provider"` // memory, redis
	PerPage   int           `mapstructure:"per_page"`
	BatchSize int           `mapstructure:"batch_size"`
	Namespace string        `mapstructure:"namespace"`
	MaxSize   int           `mapstructure:"max_size"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}
