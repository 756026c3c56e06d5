package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Logging struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic" default:"stockinsight.logs"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100" validate:"gte=1"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Chart struct {
		Defaults struct {
			SMA    bool `yaml:"sma" default:"true"`
			EMA    bool `yaml:"ema"`
			BB     bool `yaml:"bb" default:"true"`
			Volume bool `yaml:"volume" default:"true"`
		} `yaml:"defaults"`
	} `yaml:"chart"`
	Store struct {
		SQLitePath    string        `yaml:"sqlite_path" default:"data/predictions.db" validate:"required"`
		TTL           time.Duration `yaml:"ttl" default:"24h"`
		PurgeInterval time.Duration `yaml:"purge_interval" default:"1h"`
	} `yaml:"store"`
	Cache struct {
		Backend       string        `yaml:"backend" default:"memory" validate:"oneof=none memory redis layered"`
		TTL           time.Duration `yaml:"ttl" default:"5m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000" validate:"gte=1"`
		Redis         struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"stockinsight"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers" validate:"required_if=Enabled true"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Topics       struct {
			Predictions string `yaml:"predictions" default:"stockinsight.predictions"`
			Signals     string `yaml:"signals" default:"stockinsight.signals"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"stockinsight"`
			Workers    int           `yaml:"workers" default:"4" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"stockinsight.predictions.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" validate:"required_if=Enabled true"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stockinsight"`
		Table            string        `yaml:"table" default:"signal_history"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Forecast struct {
		BaseURL        string        `yaml:"base_url" validate:"omitempty,url"`
		APIToken       string        `yaml:"api_token"`
		Timeout        time.Duration `yaml:"timeout" default:"60s"`
		MaxElapsed     time.Duration `yaml:"max_elapsed" default:"2m"`
		RequestsPerSec int           `yaml:"requests_per_sec" default:"2" validate:"gte=1"`
	} `yaml:"forecast"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" default:"5"`
		Burst int     `yaml:"burst" default:"10" validate:"gte=1"`
	} `yaml:"ratelimit"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Keys missing from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("FORECAST_BASE_URL"); v != "" {
		c.Forecast.BaseURL = v
	}
	if v := getenv("FORECAST_API_TOKEN"); v != "" {
		c.Forecast.APIToken = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Store.TTL <= 0 {
		return fmt.Errorf("store.ttl must be positive")
	}
	if (c.Cache.Backend == "redis" || c.Cache.Backend == "layered") && c.Cache.Redis.Host == "" {
		return fmt.Errorf("cache.redis.host is required for backend '%s'", c.Cache.Backend)
	}
	if c.Logging.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("logging.collector requires kafka.enabled")
	}
	return nil
}
