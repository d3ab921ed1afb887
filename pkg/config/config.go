package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Cache backends for valuation results.
const (
	CacheNone    = "none"
	CacheMemory  = "memory"
	CacheRedis   = "redis"
	CacheLayered = "layered"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Log struct {
		Level   string `yaml:"level" default:"info"`
		Format  string `yaml:"format" default:"json"`
		Output  string `yaml:"output" default:"stdout"`
		Collect struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"1m"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collect"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Model struct {
		Dirs         []string      `yaml:"dirs" default:"[\"models\",\".\"]"`
		ManifestFile string        `yaml:"manifest_file" default:"vehicle_price_pipeline.yaml"`
		ColumnsFile  string        `yaml:"columns_file" default:"input_columns.json"`
		Timeout      time.Duration `yaml:"timeout" default:"3s"`
	} `yaml:"model"`
	Valuation struct {
		CacheBackend string        `yaml:"cache_backend" default:"memory"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"10m"`
		LocalTTL     time.Duration `yaml:"local_ttl" default:"30s"`
		RateLimit    struct {
			Enabled      bool    `yaml:"enabled" default:"true"`
			Capacity     float64 `yaml:"capacity" default:"20"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"5"`
		} `yaml:"rate_limit"`
	} `yaml:"valuation"`
	Feed struct {
		Enabled      bool          `yaml:"enabled" default:"true"`
		PingInterval time.Duration `yaml:"ping_interval" default:"30s"`
		SendBuffer   int           `yaml:"send_buffer" default:"64"`
	} `yaml:"feed"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		EventsTopic   string   `yaml:"events_topic" default:"autovalue.valuations"`
		RequestsTopic string   `yaml:"requests_topic" default:"autovalue.requests"`
		ResultsTopic  string   `yaml:"results_topic" default:"autovalue.results"`
		LogsTopic     string   `yaml:"logs_topic" default:"autovalue.logs"`
		RequiredAcks  int      `yaml:"required_acks" default:"1"`
		Compression   string   `yaml:"compression" default:"snappy"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"autovalue-valuator"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"autovalue.requests.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"autovalue"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file. Keys missing from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env when present, then the YAML file, then applies
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("AUTOVALUE_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("AUTOVALUE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUTOVALUE_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("AUTOVALUE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("AUTOVALUE_MODEL_DIRS"); v != "" {
		c.Model.Dirs = splitList(v)
	}
	if v := os.Getenv("AUTOVALUE_CACHE_BACKEND"); v != "" {
		c.Valuation.CacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Environment == "" {
		errs = append(errs, errors.New("environment is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be 'json' or 'console', got '%s'", c.Log.Format))
	}
	if len(c.Model.Dirs) == 0 {
		errs = append(errs, errors.New("model.dirs cannot be empty"))
	}
	switch c.Valuation.CacheBackend {
	case CacheNone, CacheMemory, CacheRedis, CacheLayered:
	default:
		errs = append(errs, fmt.Errorf("valuation.cache_backend must be none, memory, redis or layered, got '%s'", c.Valuation.CacheBackend))
	}
	if c.Valuation.RateLimit.Enabled && c.Valuation.RateLimit.Capacity < 1 {
		errs = append(errs, errors.New("valuation.rate_limit.capacity must be at least 1"))
	}
	if c.Log.Collect.Enabled && !c.Kafka.Enabled {
		errs = append(errs, errors.New("log.collect requires kafka.enabled"))
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers cannot be empty"))
		}
		if c.Kafka.EventsTopic == "" {
			errs = append(errs, errors.New("kafka.events_topic is required"))
		}
	}
	if c.Kafka.Consumer.Enabled {
		if !c.Kafka.Enabled {
			errs = append(errs, errors.New("kafka.consumer requires kafka.enabled"))
		}
		if c.Kafka.RequestsTopic == "" || c.Kafka.ResultsTopic == "" {
			errs = append(errs, errors.New("kafka.requests_topic and kafka.results_topic are required"))
		}
		if c.Kafka.Consumer.GroupID == "" {
			errs = append(errs, errors.New("kafka.consumer.group_id is required"))
		}
	}
	if c.ClickHouse.Enabled && (c.ClickHouse.Host == "" || c.ClickHouse.Database == "") {
		errs = append(errs, errors.New("clickhouse.host and clickhouse.database are required"))
	}
	return errors.Join(errs...)
}
