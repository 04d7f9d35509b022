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

const envPrefix = "SIGNALDESK_"

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"3s"`
		CORS            bool          `yaml:"cors" default:"true"`
		CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Log struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
			Topic     string        `yaml:"topic" default:"signaldesk.logs"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Engine Engine `yaml:"engine"`
	Policy Policy `yaml:"policy"`
	Cache  Cache  `yaml:"cache"`
	Source Source `yaml:"source"`
	Kafka  Kafka  `yaml:"kafka"`
	Warmup struct {
		Enabled  bool     `yaml:"enabled"`
		Schedule string   `yaml:"schedule" default:"@every 30m"`
		Symbols  []string `yaml:"symbols"`
	} `yaml:"warmup"`
	RateLimit struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		RPS     float64       `yaml:"rps" default:"5"`
		Burst   int           `yaml:"burst" default:"10"`
		Idle    time.Duration `yaml:"idle" default:"10m"`
	} `yaml:"ratelimit"`
	ClickHouse ClickHouse `yaml:"clickhouse"`
}

// Engine configures the analysis pipeline. Everything that changes a result is
// part of the cache fingerprint.
type Engine struct {
	DefaultSymbol    string        `yaml:"default_symbol" default:"408920.KQ"`
	FeatureSet       string        `yaml:"feature_set" default:"extended"`
	Classifier       string        `yaml:"classifier" default:"shallowEnsembleA"`
	Seed             int64         `yaml:"seed" default:"42"`
	Trees            int           `yaml:"trees" default:"100"`
	MaxDepth         int           `yaml:"max_depth" default:"3"`
	MinLeaf          int           `yaml:"min_leaf" default:"2"`
	LearningRate     float64       `yaml:"learning_rate" default:"0.1"`
	Subsample        float64       `yaml:"subsample" default:"1"`
	HistoryStart     string        `yaml:"history_start" default:"2023-01-01"`
	HistoryPeriod    string        `yaml:"history_period"`
	MinSamples       int           `yaml:"min_samples" default:"15"`
	RSIPeriod        int           `yaml:"rsi_period" default:"14"`
	BandWindow       int           `yaml:"band_window" default:"20"`
	SaturateZeroLoss bool          `yaml:"saturate_zero_loss" default:"true"`
	ComputeTimeout   time.Duration `yaml:"compute_timeout" default:"45s"`
}

// Policy holds the recommendation thresholds.
type Policy struct {
	AvoidBelow           float64 `yaml:"avoid_below" default:"0.3"`
	OpportunityAbove     float64 `yaml:"opportunity_above" default:"0.6"`
	AverageDownReturn    float64 `yaml:"average_down_return" default:"-0.1"`
	AverageDownMinProb   float64 `yaml:"average_down_min_prob" default:"0.55"`
	TakeProfitReturn     float64 `yaml:"take_profit_return" default:"0.05"`
	NearSupportFactor    float64 `yaml:"near_support_factor" default:"1.02"`
	NearResistanceFactor float64 `yaml:"near_resistance_factor" default:"0.97"`
}

type Cache struct {
	Backend         string        `yaml:"backend" default:"memory"`
	TTL             time.Duration `yaml:"ttl" default:"1h"`
	L1TTL           time.Duration `yaml:"l1_ttl" default:"1m"`
	MaxEntries      int           `yaml:"max_entries" default:"1000"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" default:"5m"`
	Redis           struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"signaldesk"`
	} `yaml:"redis"`
}

type Source struct {
	Kind  string `yaml:"kind" default:"yahoo"`
	Yahoo struct {
		ChartURL       string        `yaml:"chart_url" default:"https://query1.finance.yahoo.com/v8/finance/chart"`
		SearchURL      string        `yaml:"search_url" default:"https://query2.finance.yahoo.com/v1/finance/search"`
		UserAgent      string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; SignalDesk/1.0)"`
		Timeout        time.Duration `yaml:"timeout" default:"10s"`
		RPS            float64       `yaml:"rps" default:"2"`
		Burst          int           `yaml:"burst" default:"4"`
		MaxRetries     uint64        `yaml:"max_retries" default:"3"`
		InitialBackoff time.Duration `yaml:"initial_backoff" default:"500ms"`
		MaxBackoff     time.Duration `yaml:"max_backoff" default:"5s"`
		NameCacheTTL   time.Duration `yaml:"name_cache_ttl" default:"24h"`
	} `yaml:"yahoo"`
	CSVDir string            `yaml:"csv_dir" default:"data"`
	Names  map[string]string `yaml:"names"`
}

type Kafka struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	RefreshTopic string   `yaml:"refresh_topic" default:"signaldesk.refresh"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"snappy"`
	Producer     struct {
		Async        bool          `yaml:"async"`
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"signaldesk-refresh"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"64"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"signaldesk.refresh.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"1048576"`
	} `yaml:"consumer"`
}

type ClickHouse struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"signaldesk"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	Table            string        `yaml:"table" default:"daily_bars"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	InitSchema       bool          `yaml:"init_schema" default:"true"`
}

// Default returns a configuration populated only from `default` tags.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, then SIGNALDESK_* overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
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

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = splitList(v)
		}
	}

	str("ENVIRONMENT", &c.Environment)
	str("LOG_LEVEL", &c.Log.Level)
	str("DEFAULT_SYMBOL", &c.Engine.DefaultSymbol)
	str("FEATURE_SET", &c.Engine.FeatureSet)
	str("CLASSIFIER", &c.Engine.Classifier)
	str("SOURCE", &c.Source.Kind)
	str("CSV_DIR", &c.Source.CSVDir)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("REDIS_HOST", &c.Cache.Redis.Host)
	str("REDIS_PASSWORD", &c.Cache.Redis.Password)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	list("WARMUP_SYMBOLS", &c.Warmup.Symbols)

	if v := os.Getenv(envPrefix + "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", envPrefix, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(envPrefix + "CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sCACHE_TTL: %w", envPrefix, err)
		}
		c.Cache.TTL = ttl
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if err := oneOf("engine.feature_set", c.Engine.FeatureSet, "minimal", "extended"); err != nil {
		return err
	}
	if err := oneOf("engine.classifier", c.Engine.Classifier, "shallowEnsembleA", "shallowEnsembleB"); err != nil {
		return err
	}
	if c.Engine.HistoryStart != "" {
		if _, err := time.Parse("2006-01-02", c.Engine.HistoryStart); err != nil {
			return fmt.Errorf("engine.history_start must be YYYY-MM-DD: %w", err)
		}
	}
	if c.Engine.HistoryStart == "" && c.Engine.HistoryPeriod == "" {
		return fmt.Errorf("engine.history_start or engine.history_period is required")
	}
	if c.Engine.MinSamples < 2 {
		return fmt.Errorf("engine.min_samples must be at least 2, got %d", c.Engine.MinSamples)
	}
	if c.Engine.RSIPeriod < 1 || c.Engine.BandWindow < 1 {
		return fmt.Errorf("engine.rsi_period and engine.band_window must be positive")
	}
	if c.Engine.Subsample < 0 || c.Engine.Subsample > 1 {
		return fmt.Errorf("engine.subsample must lie in [0,1], got %v", c.Engine.Subsample)
	}
	p := c.Policy
	if p.AvoidBelow < 0 || p.OpportunityAbove > 1 || p.AvoidBelow > p.OpportunityAbove {
		return fmt.Errorf("policy: need 0 <= avoid_below <= opportunity_above <= 1")
	}
	if err := oneOf("cache.backend", c.Cache.Backend, "memory", "redis", "layered"); err != nil {
		return err
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if err := oneOf("source.kind", c.Source.Kind, "yahoo", "clickhouse", "csv", "archive"); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Collector.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("log.collector requires kafka.enabled")
	}
	if c.Warmup.Enabled && len(c.Warmup.Symbols) == 0 {
		return fmt.Errorf("warmup.symbols cannot be empty when warmup is enabled")
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got '%s'", field, strings.Join(allowed, "|"), value)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
