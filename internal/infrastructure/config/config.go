package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Costing   CostingConfig
	Report    ReportConfig
	Import    ImportConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres, sqlite, memory
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	Path            string // sqlite file, ":memory:" allowed
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int64
	TrustedProxies []string
	CORSOrigins    []string      // empty disables CORS headers
	IdempotencyTTL time.Duration // how long an Idempotency-Key stays claimed
}

// CostingConfig holds FIFO costing settings
type CostingConfig struct {
	MaxConflictRetries int           // optimistic-lock retries before surfacing the conflict
	MaxReplayDays      int           // 0 replays the full history
	LockTTL            time.Duration // per-product lock lease
	LockBackend        string        // memory, redis
	CostStrategy       string        // registered cost strategy name; empty picks fifo
}

// ReportConfig holds P&L aggregation settings
type ReportConfig struct {
	CargoInvoiceGraceDays int
	DefaultTimezone       string
	MaxParallelBuckets    int
	MaxBuckets            int
	RefreshEnabled        bool   // daily product reference refresh
	RefreshCron           string // "minute hour * * *"
	AllocationStrategy    string // registered allocation strategy name; empty picks proportional
}

// ImportConfig holds invoice upload settings
type ImportConfig struct {
	MaxRows      int
	MaxFileBytes int64 // body limit for upload routes, overrides http.max_body_bytes
}

// StorageConfig holds the S3-compatible archive for raw uploads
type StorageConfig struct {
	Enabled      bool
	Endpoint     string // host:port or URL; defaults to localhost:9000
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool // required by MinIO and most self-hosted services
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool          // Whether to enable OpenTelemetry
	CollectorEndpoint string        // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64       // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string        // Service name for traces
	Insecure          bool          // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	MetricsEnabled    bool          // Export costing and report metrics over OTLP
	MetricsInterval   time.Duration // Metrics export interval, default 60s
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SPNL_ prefix (e.g., SPNL_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SPNL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			Path:            v.GetString("database.path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodyBytes:   v.GetInt64("http.max_body_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			CORSOrigins:    v.GetStringSlice("http.cors_origins"),
			IdempotencyTTL: v.GetDuration("http.idempotency_ttl"),
		},
		Costing: CostingConfig{
			MaxConflictRetries: v.GetInt("costing.max_conflict_retries"),
			MaxReplayDays:      v.GetInt("costing.max_replay_days"),
			LockTTL:            v.GetDuration("costing.lock_ttl"),
			LockBackend:        v.GetString("costing.lock_backend"),
			CostStrategy:       v.GetString("costing.cost_strategy"),
		},
		Report: ReportConfig{
			CargoInvoiceGraceDays: v.GetInt("report.cargo_invoice_grace_days"),
			DefaultTimezone:       v.GetString("report.default_timezone"),
			MaxParallelBuckets:    v.GetInt("report.max_parallel_buckets"),
			MaxBuckets:            v.GetInt("report.max_buckets"),
			RefreshEnabled:        v.GetBool("report.refresh_enabled"),
			RefreshCron:           v.GetString("report.refresh_cron"),
			AllocationStrategy:    v.GetString("report.allocation_strategy"),
		},
		Import: ImportConfig{
			MaxRows:      v.GetInt("import.max_rows"),
			MaxFileBytes: v.GetInt64("import.max_file_bytes"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}
	// grace days may legitimately be zero, so only an unset key takes the default
	if !v.IsSet("report.cargo_invoice_grace_days") {
		cfg.Report.CargoInvoiceGraceDays = -1
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sellerpnl"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sellerpnl"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "sellerpnl.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.HTTP.IdempotencyTTL == 0 {
		cfg.HTTP.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Costing.MaxConflictRetries == 0 {
		cfg.Costing.MaxConflictRetries = 3
	}
	if cfg.Costing.LockTTL == 0 {
		cfg.Costing.LockTTL = 30 * time.Second
	}
	if cfg.Costing.LockBackend == "" {
		cfg.Costing.LockBackend = "memory"
	}
	if cfg.Report.CargoInvoiceGraceDays < 0 {
		cfg.Report.CargoInvoiceGraceDays = 7
	}
	if cfg.Report.DefaultTimezone == "" {
		cfg.Report.DefaultTimezone = "UTC"
	}
	if cfg.Report.MaxParallelBuckets == 0 {
		cfg.Report.MaxParallelBuckets = 8
	}
	if cfg.Report.MaxBuckets == 0 {
		cfg.Report.MaxBuckets = 366
	}
	if cfg.Report.RefreshCron == "" {
		cfg.Report.RefreshCron = "0 3 * * *"
	}
	if cfg.Import.MaxRows == 0 {
		cfg.Import.MaxRows = 10000
	}
	if cfg.Import.MaxFileBytes == 0 {
		cfg.Import.MaxFileBytes = 8 << 20
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "sellerpnl-uploads"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "sellerpnl"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be postgres, sqlite or memory, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Costing.LockBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("costing.lock_backend must be memory or redis, got %q", c.Costing.LockBackend)
	}
	if c.Costing.MaxConflictRetries < 0 {
		return fmt.Errorf("costing.max_conflict_retries cannot be negative")
	}
	if c.Costing.MaxReplayDays < 0 {
		return fmt.Errorf("costing.max_replay_days cannot be negative")
	}

	if _, err := time.LoadLocation(c.Report.DefaultTimezone); err != nil {
		return fmt.Errorf("report.default_timezone: %w", err)
	}
	if c.Report.MaxParallelBuckets <= 0 {
		return fmt.Errorf("report.max_parallel_buckets must be positive")
	}
	if c.Report.MaxBuckets <= 0 {
		return fmt.Errorf("report.max_buckets must be positive")
	}
	if c.Import.MaxRows < 0 || c.Import.MaxFileBytes < 0 {
		return fmt.Errorf("import limits cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "memory" {
			return fmt.Errorf("database.driver cannot be 'memory' in production")
		}
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// Location returns the default report timezone
func (r *ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
