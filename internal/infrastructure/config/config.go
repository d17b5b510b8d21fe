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
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Carrier  CarrierConfig
	Shipping ShippingConfig
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
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// CarrierConfig holds carrier API settings. Credentials are required when the
// carrier integration is enabled; URLs have production defaults that can be
// overridden per environment.
type CarrierConfig struct {
	Enabled        bool
	Email          string
	Password       string
	BaseURL        string
	AuthURL        string // override; defaults to BaseURL + auth path
	CreateOrderURL string // override; defaults to BaseURL + create path
	TimeoutSeconds int
}

// ShippingConfig holds package defaults and pickup settings used when
// building shipment payloads.
type ShippingConfig struct {
	DefaultWeightKg  float64
	DefaultLengthCm  float64
	DefaultBreadthCm float64
	DefaultHeightCm  float64
	PickupLocation   string
	PickupPincode    string
}

// Named fallback constants for shipping defaults. Package dimensions must
// never be zero or negative by the time a payload is built.
const (
	FallbackWeightKg  = 0.5
	FallbackLengthCm  = 20.0
	FallbackBreadthCm = 15.0
	FallbackHeightCm  = 10.0
	FallbackPickup    = "Primary"
)

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with FULFIL_ prefix (e.g. FULFIL_CARRIER_PASSWORD)
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
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("FULFIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
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
		},
		Carrier: CarrierConfig{
			Enabled:        v.GetBool("carrier.enabled"),
			Email:          v.GetString("carrier.email"),
			Password:       v.GetString("carrier.password"),
			BaseURL:        v.GetString("carrier.base_url"),
			AuthURL:        v.GetString("carrier.auth_url"),
			CreateOrderURL: v.GetString("carrier.create_order_url"),
			TimeoutSeconds: v.GetInt("carrier.timeout_seconds"),
		},
		Shipping: ShippingConfig{
			DefaultWeightKg:  v.GetFloat64("shipping.default_weight_kg"),
			DefaultLengthCm:  v.GetFloat64("shipping.default_length_cm"),
			DefaultBreadthCm: v.GetFloat64("shipping.default_breadth_cm"),
			DefaultHeightCm:  v.GetFloat64("shipping.default_height_cm"),
			PickupLocation:   v.GetString("shipping.pickup_location"),
			PickupPincode:    v.GetString("shipping.pickup_pincode"),
		},
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
		cfg.App.Name = "fulfillment-service"
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
		cfg.Database.DBName = "shopkart"
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
	if cfg.Carrier.TimeoutSeconds <= 0 {
		cfg.Carrier.TimeoutSeconds = 30
	}
	if cfg.Shipping.DefaultWeightKg <= 0 {
		cfg.Shipping.DefaultWeightKg = FallbackWeightKg
	}
	if cfg.Shipping.DefaultLengthCm <= 0 {
		cfg.Shipping.DefaultLengthCm = FallbackLengthCm
	}
	if cfg.Shipping.DefaultBreadthCm <= 0 {
		cfg.Shipping.DefaultBreadthCm = FallbackBreadthCm
	}
	if cfg.Shipping.DefaultHeightCm <= 0 {
		cfg.Shipping.DefaultHeightCm = FallbackHeightCm
	}
	if cfg.Shipping.PickupLocation == "" {
		cfg.Shipping.PickupLocation = FallbackPickup
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

	if c.Carrier.Enabled {
		if c.Carrier.Email == "" {
			return fmt.Errorf("carrier.email is required when the carrier integration is enabled")
		}
		if c.Carrier.Password == "" {
			return fmt.Errorf("carrier.password is required when the carrier integration is enabled")
		}
	}

	if c.Shipping.PickupPincode != "" && len(c.Shipping.PickupPincode) != 6 {
		return fmt.Errorf("shipping.pickup_pincode must be 6 digits, got %q", c.Shipping.PickupPincode)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
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
