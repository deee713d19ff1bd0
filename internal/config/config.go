package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atelier-labs/campaign-engine/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Google    GoogleConfig    `yaml:"google" mapstructure:"google"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// AnthropicConfig holds Anthropic API settings. Key comes from the
// ANTHROPIC_API_KEY environment variable.
type AnthropicConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	RequestRPS float64 `yaml:"request_rps" mapstructure:"request_rps"`
}

// GoogleConfig holds Google Generative AI settings. Key comes from the
// GOOGLE_AI_API_KEY environment variable.
type GoogleConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	RequestRPS float64 `yaml:"request_rps" mapstructure:"request_rps"`
}

// OpenAIConfig holds embedding settings. Key comes from the
// OPENAI_API_KEY environment variable; its absence disables framework
// retrieval rather than crashing the process.
type OpenAIConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
}

// CatalogConfig selects the model catalog source.
type CatalogConfig struct {
	Source         string `yaml:"source" mapstructure:"source"` // "static" or "db"
	RefreshSeconds int    `yaml:"refresh_seconds" mapstructure:"refresh_seconds"`
}

// RetrievalConfig configures framework search defaults.
type RetrievalConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	Limit     int     `yaml:"limit" mapstructure:"limit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
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
	v.SetEnvPrefix("CAMPAIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Vendor keys keep their conventional env names.
	_ = v.BindEnv("anthropic.key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("google.key", "GOOGLE_AI_API_KEY")
	_ = v.BindEnv("openai.key", "OPENAI_API_KEY")

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("catalog.source", "db")
	v.SetDefault("catalog.refresh_seconds", 300)
	v.SetDefault("retrieval.threshold", 0.7)
	v.SetDefault("retrieval.limit", 5)
	v.SetDefault("anthropic.request_rps", 5)
	v.SetDefault("google.request_rps", 5)

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
