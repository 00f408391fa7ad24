package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/storefront/fulfillment/internal/domain/shipping"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Telemetry   TelemetryConfig
	Shipping    ShippingConfig
	ShipEngine  ShipEngineConfig
	ShipStation ShipStationConfig
	Tracker     TrackerConfig
	Stripe      StripeConfig
	Webhook     WebhookConfig
	Email       EmailConfig
	Sweeper     SweeperConfig
	Kafka       KafkaConfig
	Storage     StorageConfig
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
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	AutoMigrate     bool // apply embedded migrations on server start
}

// RedisConfig holds Redis connection settings. When disabled the
// idempotency store and session locks stay in process memory.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds admin token settings
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
	AdminUsername         string
	AdminPasswordHash     string // bcrypt hash
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration

	ProfilingEnabled  bool
	PyroscopeAddress  string
	PyroscopeUser     string
	PyroscopePassword string
}

// ShippingConfig holds packaging defaults, planner thresholds and the rate formula
type ShippingConfig struct {
	DimDivisor          float64
	DefaultWeightLb     float64
	DefaultDims         string // "LxWxH" in inches
	FreightDimensionIn  float64
	SinglePieceLimitLb  float64
	FreightWeightLb     float64
	OversizeDimensionIn float64

	GroundBaseCents        int64
	GroundBaseWeightLb     float64
	GroundPerLbCents       int64
	OversizeSurchargeCents int64
	HazmatSurchargeCents   int64
	FreightBaseCents       int64
	FreightPerLbCents      int64

	ShipFrom shipping.Address
}

// ShipEngineConfig holds live rating API settings
type ShipEngineConfig struct {
	APIKey          string
	BaseURL         string
	CarrierIDs      []string
	CarrierID       string
	Timeout         time.Duration
	RequestsPerSec  float64
	CarrierCacheTTL time.Duration
}

// ShipStationConfig holds carrier notification settings
type ShipStationConfig struct {
	APIKey        string
	APISecret     string
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
}

// TrackerConfig holds tracking webhook settings
type TrackerConfig struct {
	WebhookSecret string // optional; empty disables signature checks
}

// StripeConfig holds payment processor settings
type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	Currency       string
	SuccessURL     string
	CancelURL      string
	ReservationTTL time.Duration
}

// WebhookConfig holds webhook idempotency settings
type WebhookConfig struct {
	IdempotencyTTL time.Duration
	LockTTL        time.Duration
}

// EmailConfig holds confirmation email settings
type EmailConfig struct {
	Provider  string // log, http
	APIURL    string
	APIKey    string
	From      string
	StoreName string
	Timeout   time.Duration
}

// SweeperConfig holds the background job schedule
type SweeperConfig struct {
	Enabled             bool
	ReservationInterval time.Duration
	SaleInterval        time.Duration
	BatchSize           int
	JobTimeout          time.Duration
}

// KafkaConfig holds domain event forwarding settings
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether brokers are configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// StorageConfig holds label archive bucket settings
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicBaseURL   string
}

// Enabled reports whether a label bucket is configured
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FULFILLMENT_ prefix (e.g., FULFILLMENT_STRIPE_SECRET_KEY)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

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

	v.SetEnvPrefix("FULFILLMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			AdminUsername:         v.GetString("jwt.admin_username"),
			AdminPasswordHash:     v.GetString("jwt.admin_password_hash"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			PyroscopeAddress:  v.GetString("telemetry.pyroscope_address"),
			PyroscopeUser:     v.GetString("telemetry.pyroscope_user"),
			PyroscopePassword: v.GetString("telemetry.pyroscope_password"),
		},
		Shipping: ShippingConfig{
			DimDivisor:             v.GetFloat64("shipping.dim_divisor"),
			DefaultWeightLb:        v.GetFloat64("shipping.default_weight_lb"),
			DefaultDims:            v.GetString("shipping.default_dims"),
			FreightDimensionIn:     v.GetFloat64("shipping.freight_dimension_in"),
			SinglePieceLimitLb:     v.GetFloat64("shipping.single_piece_limit_lb"),
			FreightWeightLb:        v.GetFloat64("shipping.freight_weight_lb"),
			OversizeDimensionIn:    v.GetFloat64("shipping.oversize_dimension_in"),
			GroundBaseCents:        v.GetInt64("shipping.ground_base_cents"),
			GroundBaseWeightLb:     v.GetFloat64("shipping.ground_base_weight_lb"),
			GroundPerLbCents:       v.GetInt64("shipping.ground_per_lb_cents"),
			OversizeSurchargeCents: v.GetInt64("shipping.oversize_surcharge_cents"),
			HazmatSurchargeCents:   v.GetInt64("shipping.hazmat_surcharge_cents"),
			FreightBaseCents:       v.GetInt64("shipping.freight_base_cents"),
			FreightPerLbCents:      v.GetInt64("shipping.freight_per_lb_cents"),
			ShipFrom: shipping.Address{
				Name:       v.GetString("shipping.from.name"),
				Company:    v.GetString("shipping.from.company"),
				Phone:      v.GetString("shipping.from.phone"),
				Line1:      v.GetString("shipping.from.line1"),
				Line2:      v.GetString("shipping.from.line2"),
				City:       v.GetString("shipping.from.city"),
				State:      v.GetString("shipping.from.state"),
				PostalCode: v.GetString("shipping.from.postal_code"),
				Country:    v.GetString("shipping.from.country"),
			},
		},
		ShipEngine: ShipEngineConfig{
			APIKey:          v.GetString("shipengine.api_key"),
			BaseURL:         v.GetString("shipengine.base_url"),
			CarrierIDs:      v.GetStringSlice("shipengine.carrier_ids"),
			CarrierID:       v.GetString("shipengine.carrier_id"),
			Timeout:         v.GetDuration("shipengine.timeout"),
			RequestsPerSec:  v.GetFloat64("shipengine.requests_per_sec"),
			CarrierCacheTTL: v.GetDuration("shipengine.carrier_cache_ttl"),
		},
		ShipStation: ShipStationConfig{
			APIKey:        v.GetString("shipstation.api_key"),
			APISecret:     v.GetString("shipstation.api_secret"),
			BaseURL:       v.GetString("shipstation.base_url"),
			WebhookSecret: v.GetString("shipstation.webhook_secret"),
			Timeout:       v.GetDuration("shipstation.timeout"),
		},
		Tracker: TrackerConfig{
			WebhookSecret: v.GetString("tracker.webhook_secret"),
		},
		Stripe: StripeConfig{
			SecretKey:      v.GetString("stripe.secret_key"),
			WebhookSecret:  v.GetString("stripe.webhook_secret"),
			Currency:       v.GetString("stripe.currency"),
			SuccessURL:     v.GetString("stripe.success_url"),
			CancelURL:      v.GetString("stripe.cancel_url"),
			ReservationTTL: v.GetDuration("stripe.reservation_ttl"),
		},
		Webhook: WebhookConfig{
			IdempotencyTTL: v.GetDuration("webhook.idempotency_ttl"),
			LockTTL:        v.GetDuration("webhook.lock_ttl"),
		},
		Email: EmailConfig{
			Provider:  v.GetString("email.provider"),
			APIURL:    v.GetString("email.api_url"),
			APIKey:    v.GetString("email.api_key"),
			From:      v.GetString("email.from"),
			StoreName: v.GetString("email.store_name"),
			Timeout:   v.GetDuration("email.timeout"),
		},
		Sweeper: SweeperConfig{
			Enabled:             v.GetBool("sweeper.enabled"),
			ReservationInterval: v.GetDuration("sweeper.reservation_interval"),
			SaleInterval:        v.GetDuration("sweeper.sale_interval"),
			BatchSize:           v.GetInt("sweeper.batch_size"),
			JobTimeout:          v.GetDuration("sweeper.job_timeout"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Storage: StorageConfig{
			Bucket:          v.GetString("storage.bucket"),
			Region:          v.GetString("storage.region"),
			Endpoint:        v.GetString("storage.endpoint"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			PublicBaseURL:   v.GetString("storage.public_base_url"),
		},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fulfillment"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "fulfillment"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
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
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "fulfillment"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = time.Hour
	}
	if cfg.JWT.AdminUsername == "" {
		cfg.JWT.AdminUsername = "admin"
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
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB, ShipStation labels are inline base64
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// An empty origin list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.ShipEngine.BaseURL == "" {
		cfg.ShipEngine.BaseURL = "https://api.shipengine.com"
	}
	if cfg.ShipEngine.Timeout == 0 {
		cfg.ShipEngine.Timeout = 8 * time.Second
	}
	if cfg.ShipEngine.RequestsPerSec == 0 {
		cfg.ShipEngine.RequestsPerSec = 5
	}
	if cfg.ShipEngine.CarrierCacheTTL == 0 {
		cfg.ShipEngine.CarrierCacheTTL = time.Hour
	}
	if cfg.ShipStation.BaseURL == "" {
		cfg.ShipStation.BaseURL = "https://ssapi.shipstation.com"
	}
	if cfg.ShipStation.Timeout == 0 {
		cfg.ShipStation.Timeout = 10 * time.Second
	}
	if cfg.Stripe.Currency == "" {
		cfg.Stripe.Currency = "usd"
	}
	if cfg.Stripe.ReservationTTL == 0 {
		cfg.Stripe.ReservationTTL = time.Hour
	}
	if cfg.Webhook.IdempotencyTTL == 0 {
		cfg.Webhook.IdempotencyTTL = 72 * time.Hour
	}
	if cfg.Webhook.LockTTL == 0 {
		cfg.Webhook.LockTTL = 30 * time.Second
	}
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "log"
	}
	if cfg.Email.Timeout == 0 {
		cfg.Email.Timeout = 10 * time.Second
	}
	if cfg.Sweeper.ReservationInterval == 0 {
		cfg.Sweeper.ReservationInterval = 5 * time.Minute
	}
	if cfg.Sweeper.SaleInterval == 0 {
		cfg.Sweeper.SaleInterval = 15 * time.Minute
	}
	if cfg.Sweeper.BatchSize == 0 {
		cfg.Sweeper.BatchSize = 100
	}
	if cfg.Sweeper.JobTimeout == 0 {
		cfg.Sweeper.JobTimeout = 2 * time.Minute
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "order-events"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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

	// Stripe refuses checkout sessions that expire sooner than 30 minutes
	if c.Stripe.ReservationTTL < 30*time.Minute || c.Stripe.ReservationTTL > 24*time.Hour {
		return fmt.Errorf("stripe.reservation_ttl must be between 30m and 24h, got %s", c.Stripe.ReservationTTL)
	}

	if c.Shipping.DefaultDims != "" {
		if _, ok := shipping.ParseDimensions(c.Shipping.DefaultDims); !ok {
			return fmt.Errorf("shipping.default_dims must look like 12x10x4, got %q", c.Shipping.DefaultDims)
		}
	}

	switch c.Email.Provider {
	case "log":
	case "http":
		if c.Email.APIURL == "" {
			return fmt.Errorf("email.api_url is required for the http provider")
		}
	default:
		return fmt.Errorf("email.provider must be log or http, got %q", c.Email.Provider)
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.JWT.AdminPasswordHash == "" {
			return fmt.Errorf("jwt.admin_password_hash is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Stripe.SecretKey == "" || c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe.secret_key and stripe.webhook_secret are required in production")
		}
		if c.ShipStation.WebhookSecret == "" {
			return fmt.Errorf("shipstation.webhook_secret is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.Telemetry.ProfilingEnabled && c.Telemetry.PyroscopeAddress == "" {
		return fmt.Errorf("telemetry.pyroscope_address is required when profiling is enabled")
	}
	return nil
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

// PlannerConfig converts the shipping section for the package planner.
// Zero values fall back to the planner defaults.
func (s ShippingConfig) PlannerConfig() shipping.PlannerConfig {
	packaging := shipping.PackagingDefaults{
		DimDivisor:      s.DimDivisor,
		DefaultWeightLb: s.DefaultWeightLb,
	}
	if dims, ok := shipping.ParseDimensions(s.DefaultDims); ok {
		packaging.DefaultDims = dims
	}
	return shipping.PlannerConfig{
		Packaging:           packaging,
		FreightDimensionIn:  s.FreightDimensionIn,
		SinglePieceLimitLb:  s.SinglePieceLimitLb,
		FreightWeightLb:     s.FreightWeightLb,
		OversizeDimensionIn: s.OversizeDimensionIn,
	}
}

// RateFormula converts the shipping section for the formula quote. An
// unset ground base keeps the whole default table.
func (s ShippingConfig) RateFormula() shipping.RateFormulaConfig {
	if s.GroundBaseCents == 0 {
		return shipping.DefaultRateFormulaConfig()
	}
	def := shipping.DefaultRateFormulaConfig()
	f := shipping.RateFormulaConfig{
		GroundBaseCents:        s.GroundBaseCents,
		GroundBaseWeightLb:     s.GroundBaseWeightLb,
		GroundPerLbCents:       s.GroundPerLbCents,
		OversizeSurchargeCents: s.OversizeSurchargeCents,
		HazmatSurchargeCents:   s.HazmatSurchargeCents,
		FreightBaseCents:       s.FreightBaseCents,
		FreightPerLbCents:      s.FreightPerLbCents,
	}
	if f.GroundBaseWeightLb <= 0 {
		f.GroundBaseWeightLb = def.GroundBaseWeightLb
	}
	if f.FreightBaseCents == 0 {
		f.FreightBaseCents = def.FreightBaseCents
	}
	return f
}
