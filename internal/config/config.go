package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	OpenRouter  OpenRouterConfig  `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Models      ModelsConfig      `yaml:"models" mapstructure:"models"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Consistency ConsistencyConfig `yaml:"consistency" mapstructure:"consistency"`
	Documents   DocumentsConfig   `yaml:"documents" mapstructure:"documents"`
	Pricing     PricingConfig     `yaml:"pricing" mapstructure:"pricing"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the result store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// ModelsConfig names the default models for the capability stages and the
// path of the catalog file mapping friendly aliases to provider model ids.
type ModelsConfig struct {
	Extraction  string `yaml:"extraction" mapstructure:"extraction"`
	Analysis    string `yaml:"analysis" mapstructure:"analysis"`
	CatalogPath string `yaml:"catalog_path" mapstructure:"catalog_path"`
}

// PipelineConfig configures stage execution.
type PipelineConfig struct {
	StageTimeoutSecs  int `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	MaxTokens         int `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
	SubscriberBacklog int `yaml:"subscriber_backlog" mapstructure:"subscriber_backlog"`
}

// ConsistencyConfig holds the cross-check tolerances as fractions.
type ConsistencyConfig struct {
	BalanceSheetTolerance float64 `yaml:"balance_sheet_tolerance" mapstructure:"balance_sheet_tolerance"`
	CashFlowTolerance     float64 `yaml:"cash_flow_tolerance" mapstructure:"cash_flow_tolerance"`
	NetIncomeTolerance    float64 `yaml:"net_income_tolerance" mapstructure:"net_income_tolerance"`
	FCFTolerance          float64 `yaml:"fcf_tolerance" mapstructure:"fcf_tolerance"`
	AbsoluteFloor         float64 `yaml:"absolute_floor" mapstructure:"absolute_floor"`
}

// DocumentsConfig configures the statement source.
type DocumentsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Models map[string]ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing holds a model's input and output rates.
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
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
	v.SetEnvPrefix("FINREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "finreport.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.requests_per_second", 2.0)
	v.SetDefault("models.extraction", "auto")
	v.SetDefault("models.analysis", "auto")
	v.SetDefault("models.catalog_path", "models.yaml")
	v.SetDefault("pipeline.stage_timeout_secs", 300)
	v.SetDefault("pipeline.max_tokens", 8192)
	v.SetDefault("pipeline.max_concurrent_runs", 4)
	v.SetDefault("pipeline.subscriber_backlog", 64)
	v.SetDefault("consistency.balance_sheet_tolerance", 0.01)
	v.SetDefault("consistency.cash_flow_tolerance", 0.01)
	v.SetDefault("consistency.net_income_tolerance", 0.01)
	v.SetDefault("consistency.fcf_tolerance", 0.01)
	v.SetDefault("consistency.absolute_floor", 1000)
	v.SetDefault("documents.dir", "documents")
	// Pricing is keyed by resolved provider model ID, the same identifier
	// the pipeline records on each capability stage.
	v.SetDefault("pricing.models", map[string]ModelPricing{
		"openai/gpt-4o-mini":         {Input: 0.15, Output: 0.60},
		"openai/gpt-4o":              {Input: 2.50, Output: 10.00},
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
	})

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

// Validate checks that configuration required for the given mode is present.
// Modes: "analyze" (one-shot CLI runs), "serve" (HTTP server).
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func() {
		if c.OpenRouter.Key == "" && c.Anthropic.Key == "" {
			problems = append(problems, "openrouter.key or anthropic.key is required")
		}
		if c.Pipeline.StageTimeoutSecs <= 0 {
			problems = append(problems, "pipeline.stage_timeout_secs must be > 0")
		}
		if c.Pipeline.MaxConcurrentRuns < 1 || c.Pipeline.MaxConcurrentRuns > 64 {
			problems = append(problems, "pipeline.max_concurrent_runs must be between 1 and 64")
		}
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				problems = append(problems, "store.path is required for sqlite")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for postgres")
			}
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
	}

	switch mode {
	case "analyze":
		check()
	case "serve":
		check()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
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
