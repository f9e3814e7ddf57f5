package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FinScout/pkg/resilience"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	TestMode    bool   `yaml:"test_mode"`

	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Watchlist WatchlistConfig `yaml:"watchlist"`

	MarketData MarketDataConfig `yaml:"market_data"`
	News       NewsConfig       `yaml:"news"`
	LLM        LLMConfig        `yaml:"llm"`
	Telegram   TelegramConfig   `yaml:"telegram"`

	Cache     CacheConfig     `yaml:"cache"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Storage   StorageConfig   `yaml:"storage"`
	Publisher PublisherConfig `yaml:"publisher"`
	Stream    StreamConfig    `yaml:"stream"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// IsEnabled treats an unset flag as on.
func (c MetricsConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
}

type WatchlistConfig struct {
	Symbols []string          `yaml:"symbols"`
	Names   map[string]string `yaml:"names"`
}

// Name resolves the display name used in news queries, falling back to
// the raw ticker.
func (w WatchlistConfig) Name(symbol string) string {
	if name, ok := w.Names[symbol]; ok {
		return name
	}
	return symbol
}

type MarketDataConfig struct {
	APIKey       string                         `yaml:"api_key"`
	BaseURL      string                         `yaml:"base_url" default:"https://api.twelvedata.com"`
	Timeout      time.Duration                  `yaml:"timeout" default:"30s"`
	CreditWindow resilience.CreditWindowConfig  `yaml:"credit_window"`
	Retry        resilience.RetryConfig         `yaml:"retry"`
	Breaker      resilience.BreakerConfig       `yaml:"breaker"`
}

type NewsConfig struct {
	APIKey        string                   `yaml:"api_key"`
	BaseURL       string                   `yaml:"base_url" default:"https://newsapi.org/v2"`
	Timeout       time.Duration            `yaml:"timeout" default:"30s"`
	MacroDaysBack int                      `yaml:"macro_days_back" default:"3"`
	StockDaysBack int                      `yaml:"stock_days_back" default:"7"`
	Domains       []string                 `yaml:"domains"`
	Retry         resilience.RetryConfig   `yaml:"retry"`
	Breaker       resilience.BreakerConfig `yaml:"breaker"`
}

type LLMConfig struct {
	BaseURL      string        `yaml:"base_url" default:"http://localhost:11434"`
	Model        string        `yaml:"model" default:"qwen2.5:1.5b"`
	Timeout      time.Duration `yaml:"timeout" default:"120s"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" default:"5s"`
}

type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	ChatID    string `yaml:"chat_id"`
	ChannelID string `yaml:"channel_id"`
	BaseURL   string `yaml:"base_url" default:"https://api.telegram.org"`
}

type CacheSpec struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	KeepInvalid bool        `yaml:"keep_invalid"`
	Market      CacheSpec   `yaml:"market"`
	News        CacheSpec   `yaml:"news"`
	Sentiment   CacheSpec   `yaml:"sentiment"`
	Redis       RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"finscout"`
}

type AnalysisConfig struct {
	Macro        MacroConfig        `yaml:"macro"`
	Market       MarketConfig       `yaml:"market"`
	Fundamentals FundamentalsConfig `yaml:"fundamentals"`
	Technical    TechnicalConfig    `yaml:"technical"`
	Sentiment    SentimentConfig    `yaml:"sentiment"`
}

type MacroConfig struct {
	Enabled        *bool   `yaml:"enabled" default:"true"`
	TreasurySymbol string  `yaml:"treasury_symbol" default:"TNX"`
	DollarSymbol   string  `yaml:"dollar_symbol" default:"DXY"`
	YieldHigh      float64 `yaml:"yield_high" default:"4.5"`
	YieldLow       float64 `yaml:"yield_low" default:"3.0"`
	DollarHigh     float64 `yaml:"dollar_high" default:"105"`
	DollarLow      float64 `yaml:"dollar_low" default:"100"`
	Articles       int     `yaml:"articles" default:"5"`
	ClassifyLimit  int     `yaml:"classify_limit" default:"3"`
}

func (c MacroConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

type MarketConfig struct {
	Mode          string `yaml:"mode" default:"breadth" validate:"oneof=breadth index combined"`
	BreadthSample int    `yaml:"breadth_sample" default:"40"`
	IndexSymbol   string `yaml:"index_symbol" default:"SPX"`
	VIXSymbol     string `yaml:"vix_symbol" default:"VIX"`
}

type FundamentalsConfig struct {
	Mode string `yaml:"mode" default:"momentum" validate:"oneof=momentum ratios"`
}

type TechnicalConfig struct {
	Enabled *bool `yaml:"enabled" default:"true"`
	TopK    int   `yaml:"top_k" default:"10"`
}

func (c TechnicalConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

type SentimentConfig struct {
	Enabled    *bool `yaml:"enabled" default:"true"`
	MaxSymbols int   `yaml:"max_symbols" default:"5"`
	NewsCount  int   `yaml:"news_count" default:"5"`
}

func (c SentimentConfig) IsEnabled() bool { return c.Enabled == nil || *c.Enabled }

type ScoringConfig struct {
	Policy         string  `yaml:"policy" default:"four_factor" validate:"oneof=four_factor five_factor"`
	AlertThreshold float64 `yaml:"alert_threshold" default:"7.5" validate:"gte=0,lte=10"`
}

type StorageConfig struct {
	Backend    string           `yaml:"backend" default:"file" validate:"oneof=file clickhouse memory"`
	Dir        string           `yaml:"dir" default:"runtime_data/signals"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type ClickHouseConfig struct {
	Host        string        `yaml:"host" default:"localhost"`
	Port        int           `yaml:"port" default:"9000"`
	Database    string        `yaml:"database" default:"finscout"`
	User        string        `yaml:"user" default:"default"`
	Password    string        `yaml:"password"`
	DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout time.Duration `yaml:"read_timeout" default:"30s"`
}

type PublisherConfig struct {
	Backend string      `yaml:"backend" default:"none" validate:"oneof=none kafka"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"finscout.signals"`
	RequiredAcks int           `yaml:"required_acks" default:"1"`
	Compression  string        `yaml:"compression" default:"snappy"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	Linger       time.Duration `yaml:"linger" default:"100ms"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type StreamConfig struct {
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url" default:"wss://ws.twelvedata.com/v1/quotes/price"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	MinTickGap     time.Duration `yaml:"min_tick_gap" default:"1s"`
	BufferSize     int           `yaml:"buffer_size" default:"256"`
}

type SchedulerConfig struct {
	RunSpec         string `yaml:"run_spec" default:"0 */6 * * *"`
	PerformanceSpec string `yaml:"performance_spec" default:"30 7 * * *"`
	SweepSpec       string `yaml:"sweep_spec" default:"0 * * * *"`
}

// Load reads and parses a YAML configuration file, fills defaults and
// validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	c.normalize()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. A .env file next to the process is honored when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("NEWSAPI_KEY"); v != "" {
		c.News.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("TELEGRAM_CHANNEL_ID"); v != "" {
		c.Telegram.ChannelID = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Publisher.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Publisher.Kafka.Topic = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// normalize fills list and map defaults that cannot be expressed as
// struct tags.
func (c *Config) normalize() {
	if len(c.Watchlist.Symbols) == 0 {
		c.Watchlist.Symbols = defaultWatchlist()
	}
	if len(c.Watchlist.Names) == 0 {
		c.Watchlist.Names = defaultTickerNames()
	}
	if len(c.News.Domains) == 0 {
		c.News.Domains = defaultNewsDomains()
	}

	if c.Cache.Market.Size == 0 {
		c.Cache.Market.Size = 50
	}
	if c.Cache.Market.TTL == 0 {
		c.Cache.Market.TTL = 300 * time.Second
	}
	if c.Cache.News.Size == 0 {
		c.Cache.News.Size = 100
	}
	if c.Cache.News.TTL == 0 {
		c.Cache.News.TTL = 900 * time.Second
	}
	if c.Cache.Sentiment.Size == 0 {
		c.Cache.Sentiment.Size = 200
	}
	if c.Cache.Sentiment.TTL == 0 {
		c.Cache.Sentiment.TTL = 3600 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if len(c.Watchlist.Symbols) == 0 {
		return fmt.Errorf("watchlist.symbols cannot be empty")
	}
	if c.Publisher.Backend == "kafka" && len(c.Publisher.Kafka.Brokers) == 0 {
		return fmt.Errorf("publisher.kafka.brokers cannot be empty")
	}
	if c.Cache.Redis.Enabled && c.Cache.Redis.Host == "" {
		return fmt.Errorf("cache.redis.host is required when redis is enabled")
	}
	return nil
}
