// Package config provides application configuration management using Viper.
// Configuration is loaded from YAML files, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"content-query-service/internal/validator"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Query      QueryConfig      `mapstructure:"query"`
	Compat     CompatConfig     `mapstructure:"compat"`
	Search     SearchConfig     `mapstructure:"search"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Serializer SerializerConfig `mapstructure:"serializer"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name  string `mapstructure:"name" validate:"required"`
	Env   string `mapstructure:"env" validate:"oneof=development staging production test"`
	Port  int    `mapstructure:"port" validate:"min=1,max=65535"`
	Debug bool   `mapstructure:"debug"`
}

// HTTPConfig holds HTTP transport settings.
type HTTPConfig struct {
	Prefix         string        `mapstructure:"prefix" validate:"required,route_segment"`
	MaxQueryParams int           `mapstructure:"max_query_params" validate:"min=1"`
	MaxNesting     int           `mapstructure:"max_nesting" validate:"min=1"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	CORSOrigins    string        `mapstructure:"cors_origins"`
}

// QueryConfig holds settings of the query route.
type QueryConfig struct {
	Namespace        string          `mapstructure:"namespace" validate:"required,route_segment"`
	Route            string          `mapstructure:"route" validate:"required,route_segment"`
	MaxPostsPerPage  int             `mapstructure:"max_posts_per_page" validate:"min=1"`
	AllowedStatuses  []string        `mapstructure:"allowed_statuses" validate:"min=1"`
	FixPostStatusKey bool            `mapstructure:"fix_post_status_key"`
	PostTypes        PostTypesConfig `mapstructure:"post_types"`
	Defaults         DefaultsConfig  `mapstructure:"defaults"`
	Features         FeaturesConfig  `mapstructure:"features"`
	AllowedArgs      ArgsOverride    `mapstructure:"allowed_args"`
}

// FeaturesConfig toggles the optional parameter groups.
type FeaturesConfig struct {
	Authors    bool `mapstructure:"authors"`
	Meta       bool `mapstructure:"meta"`
	Search     bool `mapstructure:"search"`
	Taxonomies bool `mapstructure:"taxonomies"`
}

// ArgsOverride adds names to or removes names from the allow-list.
type ArgsOverride struct {
	Add    []string `mapstructure:"add" validate:"dive,required,arg_name"`
	Remove []string `mapstructure:"remove" validate:"dive,required,arg_name"`
}

// PostTypesConfig selects where public post types come from.
type PostTypesConfig struct {
	Source string   `mapstructure:"source" validate:"oneof=database static"`
	Static []string `mapstructure:"static"`
}

// DefaultsConfig holds the server-side default query arguments.
type DefaultsConfig struct {
	PostStatus               string `mapstructure:"post_status" validate:"required"`
	PostsPerPage             int    `mapstructure:"posts_per_page" validate:"min=1"`
	ExcludePasswordProtected bool   `mapstructure:"exclude_password_protected"`
}

// CompatConfig toggles integrations.
type CompatConfig struct {
	Languages     bool   `mapstructure:"languages"`
	SearchBackend string `mapstructure:"search_backend" validate:"oneof=none bleve remote"`
}

// SearchConfig holds alternate search backend settings.
type SearchConfig struct {
	Bleve  BleveConfig  `mapstructure:"bleve"`
	Remote RemoteConfig `mapstructure:"remote"`
}

// BleveConfig holds embedded index settings.
type BleveConfig struct {
	Path            string        `mapstructure:"path"` // empty keeps the index in memory
	ReindexInterval time.Duration `mapstructure:"reindex_interval"`
	OnStartup       bool          `mapstructure:"on_startup"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BatchSize       int           `mapstructure:"batch_size" validate:"min=1"`
}

// RemoteConfig holds the remote search API configuration.
type RemoteConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
	CB      CBConfig      `mapstructure:"circuit_breaker"`
}

// RetryConfig holds retry settings.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	WaitTime    time.Duration `mapstructure:"wait_time"`
	MaxWaitTime time.Duration `mapstructure:"max_wait_time"`
}

// CBConfig holds circuit breaker settings.
type CBConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio" validate:"min=0,max=1"`
}

// AuthConfig holds the API keys accepted by the permission gate. An empty
// list leaves the route public.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

// SerializerConfig holds item serialization settings.
type SerializerConfig struct {
	SiteURL        string              `mapstructure:"site_url" validate:"required,url"`
	RenderMarkdown bool                `mapstructure:"render_markdown"`
	MetaKeys       map[string][]string `mapstructure:"meta_keys"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host          string        `mapstructure:"host" validate:"required"`
	Port          int           `mapstructure:"port" validate:"min=1,max=65535"`
	Name          string        `mapstructure:"name" validate:"required"`
	User          string        `mapstructure:"user" validate:"required"`
	Password      string        `mapstructure:"password"`
	SSLMode       string        `mapstructure:"ssl_mode"`
	MaxOpenConns  int           `mapstructure:"max_open_conns"`
	MaxIdleConns  int           `mapstructure:"max_idle_conns"`
	MaxLifetime   time.Duration `mapstructure:"max_lifetime"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// RedisConfig holds Redis connection settings for distributed locking.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// SentryConfig holds Sentry error tracking settings.
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	Release     string  `mapstructure:"release"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// Load reads configuration from file and environment variables.
// Priority: env vars > .env > config file > defaults
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found, continue with defaults + env vars
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "content-query-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.debug", true)

	// HTTP defaults
	v.SetDefault("http.prefix", "wp-json")
	v.SetDefault("http.max_query_params", 1000)
	v.SetDefault("http.max_nesting", 16)
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.cors_origins", "*")

	// Query defaults
	v.SetDefault("query.namespace", "wp_query")
	v.SetDefault("query.route", "args")
	v.SetDefault("query.max_posts_per_page", 50)
	v.SetDefault("query.allowed_statuses", []string{"publish"})
	v.SetDefault("query.fix_post_status_key", false)
	v.SetDefault("query.post_types.source", "database")
	v.SetDefault("query.post_types.static", []string{"post", "page"})
	v.SetDefault("query.defaults.post_status", "publish")
	v.SetDefault("query.defaults.posts_per_page", 10)
	v.SetDefault("query.defaults.exclude_password_protected", true)
	v.SetDefault("query.features.authors", true)
	v.SetDefault("query.features.meta", true)
	v.SetDefault("query.features.search", true)
	v.SetDefault("query.features.taxonomies", true)
	v.SetDefault("query.allowed_args.add", []string{})
	v.SetDefault("query.allowed_args.remove", []string{})

	// Compat defaults
	v.SetDefault("compat.languages", true)
	v.SetDefault("compat.search_backend", "none")

	// Search defaults
	v.SetDefault("search.bleve.path", "")
	v.SetDefault("search.bleve.reindex_interval", "10m")
	v.SetDefault("search.bleve.on_startup", true)
	v.SetDefault("search.bleve.timeout", "2m")
	v.SetDefault("search.bleve.batch_size", 200)
	v.SetDefault("search.remote.base_url", "http://localhost:8081")
	v.SetDefault("search.remote.api_key", "")
	v.SetDefault("search.remote.timeout", "5s")
	v.SetDefault("search.remote.retry.max_attempts", 2)
	v.SetDefault("search.remote.retry.wait_time", "200ms")
	v.SetDefault("search.remote.retry.max_wait_time", "2s")
	v.SetDefault("search.remote.circuit_breaker.max_requests", 3)
	v.SetDefault("search.remote.circuit_breaker.interval", "60s")
	v.SetDefault("search.remote.circuit_breaker.timeout", "30s")
	v.SetDefault("search.remote.circuit_breaker.failure_ratio", 0.5)

	// Auth defaults
	v.SetDefault("auth.api_keys", []string{})

	// Serializer defaults
	v.SetDefault("serializer.site_url", "http://localhost:8080")
	v.SetDefault("serializer.render_markdown", true)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "content")
	v.SetDefault("database.user", "app")
	v.SetDefault("database.password", "secret")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")
	v.SetDefault("database.slow_threshold", "200ms")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")

	// Sentry defaults
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.release", "")
	v.SetDefault("sentry.sample_rate", 1.0)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}
