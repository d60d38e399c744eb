package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Log         struct {
		Level          string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format         string        `yaml:"format" default:"console" validate:"oneof=console json"`
		Output         string        `yaml:"output" default:"stdout"`
		TimeFormat     string        `yaml:"time_format"`
		DigestTopic    string        `yaml:"digest_topic"`
		DigestInterval time.Duration `yaml:"digest_interval" default:"5m"`
		DigestMax      int           `yaml:"digest_max" default:"200"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		ComputeBurst    float64       `yaml:"compute_burst" default:"10"`
		ComputeRate     float64       `yaml:"compute_rate" default:"2"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Valuation struct {
		LocalTZ         string        `yaml:"local_tz" default:"America/Argentina/Cordoba"`
		Anchor          string        `yaml:"anchor" default:"midnight" validate:"oneof=midnight end_of_day"`
		LookbackDays    int           `yaml:"lookback_days" default:"10" validate:"gte=0,lte=60"`
		Interval        time.Duration `yaml:"interval" default:"1m"`
		InitialGuess    float64       `yaml:"initial_guess" default:"0.1"`
		IndexSeries     string        `yaml:"index_series" default:"cer" validate:"required"`
		DebugInstrument string        `yaml:"debug_instrument"`
		LoadTimeout     time.Duration `yaml:"load_timeout" default:"30s"`
		LockTTL         time.Duration `yaml:"lock_ttl" default:"5m"`
		Window          struct {
			Start string `yaml:"start" default:"09:00" validate:"datetime=15:04"`
			Stop  string `yaml:"stop" default:"18:30" validate:"datetime=15:04"`
		} `yaml:"window"`
	} `yaml:"valuation"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost" validate:"required"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"finyield" validate:"required"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		ResultsTopic string   `yaml:"results_topic" default:"finyield.valuations"`
		QuotesTopic  string   `yaml:"quotes_topic" default:"finyield.quotes"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"finyield-quotes"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"512"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Addr      string        `yaml:"addr" default:"localhost:6379" validate:"required"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		KeyPrefix string        `yaml:"key_prefix" default:"finyield:quote:"`
		TTL       time.Duration `yaml:"ttl" default:"72h"`
	} `yaml:"redis"`
	Broker struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Token          string        `yaml:"token"`
		Symbols        []string      `yaml:"symbols"`
		Market         string        `yaml:"market" default:"ROFX"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		PushInterval   time.Duration `yaml:"push_interval" default:"10s"`
		FXDollarSymbol string        `yaml:"fx_dollar_symbol" default:"AL30D"`
		FXLocalSymbol  string        `yaml:"fx_local_symbol" default:"AL30"`
		Backend        string        `yaml:"backend" default:"redis" validate:"oneof=redis kafka"`
	} `yaml:"broker"`
	Index struct {
		BaseURL            string        `yaml:"base_url" default:"https://api.bcra.gob.ar/estadisticas/v4.0" validate:"url"`
		SeriesID           int           `yaml:"series_id" default:"30" validate:"gte=1"`
		Limit              int           `yaml:"limit" default:"70" validate:"gte=1"`
		Timeout            time.Duration `yaml:"timeout" default:"45s"`
		InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
		SyncInterval       time.Duration `yaml:"sync_interval" default:"6h"`
	} `yaml:"index"`
}

// Load reads a YAML configuration file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("BROKER_TOKEN"); v != "" {
		c.Broker.Token = v
	}
	if v := getenv("SYMBOLS"); v != "" {
		c.Broker.Symbols = splitList(v)
	}
	if v := getenv("LOCAL_TZ"); v != "" {
		c.Valuation.LocalTZ = v
	}
	if v := getenv("VALUATION_ANCHOR"); v != "" {
		c.Valuation.Anchor = strings.ToLower(v)
	}
	if v := getenv("INTERVAL"); v != "" {
		d, err := parseInterval(v)
		if err != nil {
			return fmt.Errorf("INTERVAL: %w", err)
		}
		c.Valuation.Interval = d
	}
	return nil
}

// parseInterval accepts Go durations ("90s") or plain seconds ("60").
func parseInterval(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Valuation.Interval <= 0 {
		return fmt.Errorf("valuation.interval must be positive")
	}
	if c.Valuation.Window.Start >= c.Valuation.Window.Stop {
		return fmt.Errorf("valuation.window.start must be before stop")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Broker.Enabled {
		if c.Broker.WebSocketURL == "" {
			return fmt.Errorf("broker.websocket_url is required")
		}
		if len(c.Broker.Symbols) == 0 {
			return fmt.Errorf("broker.symbols cannot be empty")
		}
		if c.Broker.Backend == "kafka" && !c.Kafka.Enabled {
			return fmt.Errorf("broker.backend=kafka requires kafka.enabled")
		}
	}
	if _, err := time.LoadLocation(c.Valuation.LocalTZ); err != nil {
		return fmt.Errorf("valuation.local_tz: %w", err)
	}
	return nil
}
