// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RateLimit       int           `yaml:"rate_limit"` // requests per window per client, 0 disables
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"` // empty selects in-memory storage
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables redis
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	MetisKey        string `yaml:"metis_key"`
	MetisBaseURL    string `yaml:"metis_base_url"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls

	AgentModel          string        `yaml:"agent_model"`
	CompletionModel     string        `yaml:"completion_model"`
	AgentTimeout        time.Duration `yaml:"agent_timeout"`
	EnhancementTimeout  time.Duration `yaml:"enhancement_timeout"`
	RenderTimeout       time.Duration `yaml:"render_timeout"`
	MarketTimeout       time.Duration `yaml:"market_timeout"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	HistoryTokenBudget  int           `yaml:"history_token_budget"`
}

// Enabled reports whether any provider key is configured.
func (c AIConfig) Enabled() bool {
	return c.OpenAIKey != "" || c.GeminiKey != "" || c.MetisKey != ""
}

type TelegramConfig struct {
	Token    string `yaml:"token"` // empty disables the bot
	Workers  int    `yaml:"workers"`
	Debug    bool   `yaml:"debug"`
	Language string `yaml:"language"` // en|hi
}

type ProductConfig struct {
	Reference   string `yaml:"reference"`
	Title       string `yaml:"title"`
	ListedPrice int64  `yaml:"listed_price"`
	Category    string `yaml:"category"`
	Condition   string `yaml:"condition"`
	Location    string `yaml:"location"`
	Seller      string `yaml:"seller"`
	Platform    string `yaml:"platform"`
}

type NegotiationConfig struct {
	LexiconPath    string `yaml:"lexicon_path"`
	CategoriesPath string `yaml:"categories_path"`
	Currency       string `yaml:"currency"`
	MaxMessages    int    `yaml:"max_messages"`
	PhaseWindow    int    `yaml:"phase_window"`

	IdleTimeout   time.Duration `yaml:"idle_timeout"` // active sessions quiet this long are closed
	SweepInterval time.Duration `yaml:"sweep_interval"`

	AggressiveAbove   float64 `yaml:"aggressive_above"`   // gap % for the aggressive posture
	CollaborativeFrom float64 `yaml:"collaborative_from"` // gap % for the collaborative posture

	Products []ProductConfig `yaml:"products"`
}

type Config struct {
	Log         LogConfig         `yaml:"log"`
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	AI          AIConfig          `yaml:"ai"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Negotiation NegotiationConfig `yaml:"negotiation"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path. A missing file is an error; an
// empty path yields the defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.RateLimitWindow <= 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 30 * time.Second
	}

	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.MetisBaseURL == "" {
		cfg.AI.MetisBaseURL = "https://api.metisai.ir/openai/v1"
	}
	if cfg.AI.AgentModel == "" {
		cfg.AI.AgentModel = cfg.AI.DefaultModel
	}
	if cfg.AI.CompletionModel == "" {
		cfg.AI.CompletionModel = cfg.AI.DefaultModel
	}
	if cfg.AI.AgentTimeout <= 0 {
		cfg.AI.AgentTimeout = 8 * time.Second
	}
	if cfg.AI.EnhancementTimeout <= 0 {
		cfg.AI.EnhancementTimeout = 5 * time.Second
	}
	if cfg.AI.RenderTimeout <= 0 {
		cfg.AI.RenderTimeout = 6 * time.Second
	}
	if cfg.AI.MarketTimeout <= 0 {
		cfg.AI.MarketTimeout = 2 * time.Second
	}
	if cfg.AI.ConfidenceThreshold <= 0 {
		cfg.AI.ConfidenceThreshold = 0.6
	}
	if cfg.AI.HistoryTokenBudget <= 0 {
		cfg.AI.HistoryTokenBudget = 1500
	}

	if cfg.Telegram.Workers <= 0 {
		cfg.Telegram.Workers = 8
	}
	if cfg.Telegram.Language == "" {
		cfg.Telegram.Language = "en"
	}

	if cfg.Negotiation.Currency == "" {
		cfg.Negotiation.Currency = "₹"
	}
	if cfg.Negotiation.MaxMessages <= 0 {
		cfg.Negotiation.MaxMessages = 20
	}
	if cfg.Negotiation.IdleTimeout <= 0 {
		cfg.Negotiation.IdleTimeout = 24 * time.Hour
	}
	if cfg.Negotiation.SweepInterval <= 0 {
		cfg.Negotiation.SweepInterval = 5 * time.Minute
	}
	if cfg.Negotiation.AggressiveAbove <= 0 {
		cfg.Negotiation.AggressiveAbove = 30
	}
	if cfg.Negotiation.CollaborativeFrom <= 0 {
		cfg.Negotiation.CollaborativeFrom = 15
	}
}

// Minimal validation
func (cfg *Config) validate() error {
	if cfg.AI.ConfidenceThreshold > 1 {
		return errors.New("ai.confidence_threshold must be within (0, 1]")
	}
	if cfg.Negotiation.CollaborativeFrom >= cfg.Negotiation.AggressiveAbove {
		return errors.New("negotiation.collaborative_from must be below aggressive_above")
	}
	for i, p := range cfg.Negotiation.Products {
		if p.Reference == "" || p.Title == "" || p.ListedPrice <= 0 {
			return fmt.Errorf("negotiation.products[%d]: reference, title and listed_price are required", i)
		}
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
