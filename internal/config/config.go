// Package config loads application configuration from config.yaml and the
// FINCOMPARE environment prefix, and initializes the global zap logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crestline-labs/fincompare/internal/numparse"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig              `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig          `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig             `yaml:"gemini" mapstructure:"gemini"`
	Rates     numparse.ConversionRates `yaml:"rates" mapstructure:"rates"`
	Analysis  AnalysisConfig           `yaml:"analysis" mapstructure:"analysis"`
	Cache     CacheConfig              `yaml:"cache" mapstructure:"cache"`
	Market    MarketConfig             `yaml:"market" mapstructure:"market"`
	OCR       OCRConfig                `yaml:"ocr" mapstructure:"ocr"`
	Server    ServerConfig             `yaml:"server" mapstructure:"server"`
	Log       LogConfig                `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AnalysisConfig tunes the analysis pipeline.
type AnalysisConfig struct {
	// ChainOrder lists extractors by name, highest priority first.
	ChainOrder []string `yaml:"chain_order" mapstructure:"chain_order"`
	// NameMatchThreshold is the minimum name-match confidence to accept
	// an analysis.
	NameMatchThreshold float64 `yaml:"name_match_threshold" mapstructure:"name_match_threshold"`
	// QuickRatioFactor is the inventory-exclusion estimate used by the
	// quick ratio.
	QuickRatioFactor float64 `yaml:"quick_ratio_factor" mapstructure:"quick_ratio_factor"`
	// SynonymOverrides optionally points at a YAML file of extra KPI
	// synonyms.
	SynonymOverrides string `yaml:"synonym_overrides" mapstructure:"synonym_overrides"`
}

// CacheConfig sizes the web-data and document caches.
type CacheConfig struct {
	MaxSize          int `yaml:"max_size" mapstructure:"max_size"`
	TTLMinutes       int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	SweepMinutes     int `yaml:"sweep_minutes" mapstructure:"sweep_minutes"`
	DocumentTTLHours int `yaml:"document_ttl_hours" mapstructure:"document_ttl_hours"`
}

// MarketConfig configures the quote client.
type MarketConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
	Burst   int     `yaml:"burst" mapstructure:"burst"`
}

// OCRConfig configures PDF text extraction for document intake.
type OCRConfig struct {
	// Provider selects the extraction backend: "local" (pdftotext) or
	// "mistral".
	Provider string `yaml:"provider" mapstructure:"provider"`
	// PdfToTextPath overrides the pdftotext binary location.
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	// MistralKey authenticates against the Mistral OCR API.
	MistralKey string `yaml:"mistral_key" mapstructure:"mistral_key"`
	// MistralModel overrides the default OCR model.
	MistralModel string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FINCOMPARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so AutomaticEnv can bind them.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "fincompare.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("gemini.key", "")
	v.SetDefault("analysis.synonym_overrides", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	// Conversion rates are pinned at startup, never fetched live.
	v.SetDefault("rates.inr_per_usd", 83.0)
	v.SetDefault("rates.eur_to_usd", 1.1)
	v.SetDefault("rates.gbp_to_usd", 1.25)
	v.SetDefault("analysis.chain_order", []string{"anthropic", "gemini", "heuristic"})
	v.SetDefault("analysis.name_match_threshold", 0.7)
	v.SetDefault("analysis.quick_ratio_factor", 0.7)
	v.SetDefault("cache.max_size", 256)
	v.SetDefault("cache.ttl_minutes", 30)
	v.SetDefault("cache.sweep_minutes", 5)
	v.SetDefault("cache.document_ttl_hours", 24)
	v.SetDefault("market.base_url", "https://stooq.com/q/l/")
	v.SetDefault("market.rps", 2.0)
	v.SetDefault("market.burst", 2)
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "")
	v.SetDefault("ocr.mistral_key", "")
	v.SetDefault("ocr.mistral_model", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
