package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

// Secret is a configuration string that must never end up in logs.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

func (s Secret) GoString() string {
	return s.String()
}

// Value returns the raw secret.
func (s Secret) Value() string {
	return string(s)
}

type Config struct {
	Server struct {
		Address         string        `yaml:"address" env:"ADDRESS"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
		AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
		TrustedProxies  []string      `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`
	} `yaml:"server" envPrefix:"SERVER_"`

	// HMS holds the 100ms account the service issues credentials for.
	HMS struct {
		AccessKey       string        `yaml:"access_key" env:"ACCESS_KEY"`
		Secret          Secret        `yaml:"secret" env:"SECRET"`
		RoomID          string        `yaml:"room_id" env:"ROOM_ID"`
		ManagementToken Secret        `yaml:"management_token" env:"MANAGEMENT_TOKEN"`
		APIBaseURL      string        `yaml:"api_base_url" env:"API_BASE_URL"`
		RequestTimeout  time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	} `yaml:"hms" envPrefix:"HMS_"`

	Recordings struct {
		CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`

		Retry struct {
			Enabled      bool          `yaml:"enabled" env:"ENABLED"`
			MaxAttempts  int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
			InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
			MaxDelay     time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
		} `yaml:"retry" envPrefix:"RETRY_"`

		CircuitBreaker struct {
			FailureThreshold int           `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
			SuccessThreshold int           `yaml:"success_threshold" env:"SUCCESS_THRESHOLD"`
			Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
		} `yaml:"circuit_breaker" envPrefix:"BREAKER_"`
	} `yaml:"recordings" envPrefix:"RECORDINGS_"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled" env:"PROMETHEUS_ENABLED"`
	} `yaml:"monitoring" envPrefix:"MONITORING_"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled" env:"ENABLED"`
		ServiceName string  `yaml:"service_name" env:"SERVICE_NAME"`
		JaegerURL   string  `yaml:"jaeger_url" env:"JAEGER_URL"`
		Environment string  `yaml:"environment" env:"ENVIRONMENT"`
		SampleRate  float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	} `yaml:"tracing" envPrefix:"TRACING_"`

	Logging struct {
		Level  string `yaml:"level" env:"LEVEL"`
		Format string `yaml:"format" env:"FORMAT"`
	} `yaml:"logging" envPrefix:"LOG_"`

	Redis struct {
		Enabled  bool   `yaml:"enabled" env:"ENABLED"`
		Address  string `yaml:"address" env:"ADDRESS"`
		Password Secret `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
		PoolSize int    `yaml:"pool_size" env:"POOL_SIZE"`
	} `yaml:"redis" envPrefix:"REDIS_"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled" env:"ENABLED"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
			Burst             int     `yaml:"burst" env:"BURST"`
			MaxConcurrent     int     `yaml:"max_concurrent" env:"MAX_CONCURRENT"` // global concurrent HTTP requests
		} `yaml:"http" envPrefix:"HTTP_"`
	} `yaml:"rate_limiting" envPrefix:"RATE_LIMIT_"`
}

// Validate checks that configuration values are within acceptable ranges.
// A missing signing secret or room id is always an error: the service must
// not start without them.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", proxy)
			}
		}
	}

	// HMS
	if c.HMS.Secret == "" {
		return fmt.Errorf("hms.secret must not be empty")
	}
	if c.HMS.RoomID == "" {
		return fmt.Errorf("hms.room_id must not be empty")
	}
	if c.HMS.ManagementToken == "" && c.HMS.AccessKey == "" {
		return fmt.Errorf("hms.access_key must be set when hms.management_token is empty")
	}
	if u, err := url.Parse(c.HMS.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("hms.api_base_url must be an absolute URL")
	}
	if c.HMS.RequestTimeout <= 0 {
		return fmt.Errorf("hms.request_timeout must be > 0")
	}

	// Recordings
	if c.Recordings.CacheTTL < 0 {
		return fmt.Errorf("recordings.cache_ttl must be >= 0")
	}
	if c.Recordings.Retry.Enabled {
		if c.Recordings.Retry.MaxAttempts < 0 {
			return fmt.Errorf("recordings.retry.max_attempts must be >= 0")
		}
		if c.Recordings.Retry.InitialDelay <= 0 {
			return fmt.Errorf("recordings.retry.initial_delay must be > 0")
		}
		if c.Recordings.Retry.MaxDelay < c.Recordings.Retry.InitialDelay {
			return fmt.Errorf("recordings.retry.max_delay must be >= initial_delay")
		}
	}
	if c.Recordings.CircuitBreaker.FailureThreshold <= 0 {
		return fmt.Errorf("recordings.circuit_breaker.failure_threshold must be > 0")
	}
	if c.Recordings.CircuitBreaker.SuccessThreshold <= 0 {
		return fmt.Errorf("recordings.circuit_breaker.success_threshold must be > 0")
	}
	if c.Recordings.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("recordings.circuit_breaker.timeout must be > 0")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from a YAML file over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error; the defaults plus environment are validated instead.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults. The signing secret
// and room id have no default.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":5000"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.AllowedOrigins = []string{"*"}

	cfg.HMS.APIBaseURL = "https://api.100ms.live/v2"
	cfg.HMS.RequestTimeout = 10 * time.Second

	cfg.Recordings.CacheTTL = 30 * time.Second
	cfg.Recordings.Retry.Enabled = true
	cfg.Recordings.Retry.MaxAttempts = 2
	cfg.Recordings.Retry.InitialDelay = 200 * time.Millisecond
	cfg.Recordings.Retry.MaxDelay = 2 * time.Second
	cfg.Recordings.CircuitBreaker.FailureThreshold = 5
	cfg.Recordings.CircuitBreaker.SuccessThreshold = 2
	cfg.Recordings.CircuitBreaker.Timeout = 30 * time.Second

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "cohortcast"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 20
	cfg.RateLimiting.HTTP.Burst = 40
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
