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
	Environment string `yaml:"environment" default:"development" validate:"required"`
	DataDir     string `yaml:"data_dir" default:"data"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors"`

		// Manual run triggers per client address.
		RunTriggerBurst     int     `yaml:"run_trigger_burst" default:"2" validate:"gte=1"`
		RunTriggerPerMinute float64 `yaml:"run_trigger_per_minute" default:"1" validate:"gt=0"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level          string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format         string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output         string `yaml:"output" default:"stdout"`
		CollectorTopic string `yaml:"collector_topic"`
	} `yaml:"log"`
	Engine struct {
		WindowDays         int     `yaml:"window_days" default:"30" validate:"gte=1"`
		ManualThresholdPct float64 `yaml:"manual_threshold_pct" default:"30" validate:"gt=0"`
		MinObservations    int     `yaml:"min_observations" default:"3" validate:"gte=1"`
		MinDistinctLevels  int     `yaml:"min_distinct_levels" default:"3" validate:"gte=2"`
		Workers            int     `yaml:"workers" validate:"gte=0"`
		Model              struct {
			Type            string        `yaml:"type" default:"iforest" validate:"oneof=iforest zscore remote"`
			Contamination   float64       `yaml:"contamination" default:"0.01" validate:"gt=0,lt=0.5"`
			NEstimators     int           `yaml:"n_estimators" default:"80" validate:"gte=1"`
			MaxSamples      int           `yaml:"max_samples" default:"256" validate:"gte=2"`
			Seed            int64         `yaml:"seed" default:"42"`
			ZScoreThreshold float64       `yaml:"zscore_threshold" default:"2.5" validate:"gt=0"`
			RemoteURL       string        `yaml:"remote_url" validate:"required_if=Type remote"`
			Timeout         time.Duration `yaml:"timeout" default:"3s"`
		} `yaml:"model"`
	} `yaml:"engine"`
	Storage struct {
		Type       string `yaml:"type" default:"sqlite" validate:"oneof=sqlite clickhouse"`
		SQLitePath string `yaml:"sqlite_path" default:"pricepulse.db"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pricepulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled           bool     `yaml:"enabled"`
		Brokers           []string `yaml:"brokers" validate:"required_if=Enabled true"`
		ObservationsTopic string   `yaml:"observations_topic" default:"price-observations"`
		AnomaliesTopic    string   `yaml:"anomalies_topic" default:"price-anomalies"`
		RequiredAcks      int      `yaml:"required_acks" default:"-1"`
		Compression       string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		AutoCreateTopics  bool     `yaml:"auto_create_topics"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"pricepulse"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"10000"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix" default:"pricepulse"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
	} `yaml:"redis"`
	Ingest struct {
		LookbackDays int `yaml:"lookback_days" default:"30" validate:"gte=0"`
	} `yaml:"ingest"`
	Schedule struct {
		Interval   time.Duration `yaml:"interval" default:"24h"`
		RunOnStart bool          `yaml:"run_on_start"`
		LockTTL    time.Duration `yaml:"lock_ttl" default:"10m"`
		ReportTTL  time.Duration `yaml:"report_ttl" default:"48h"`
	} `yaml:"schedule"`
	Report struct {
		OutputDir string `yaml:"output_dir" default:"reports"`

		// CSVOut writes a CSV file on every run, not only when asked.
		CSVOut bool `yaml:"csv_out"`
	} `yaml:"report"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
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
// A missing file is not an error: defaults plus environment are used instead.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		c, err = Load(path)
	} else {
		c, err = Default()
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PRICEPULSE_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			if p, perr := strconv.Atoi(port); perr == nil {
				c.Redis.Port = p
			}
		}
		c.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Storage.Type == "sqlite" && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required for sqlite storage")
	}
	if c.Storage.Type == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for clickhouse storage")
	}
	return nil
}
