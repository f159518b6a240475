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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Serp      SerpConfig      `yaml:"serp" mapstructure:"serp"`
	Tavily    TavilyConfig    `yaml:"tavily" mapstructure:"tavily"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Validate  ValidateConfig  `yaml:"validate" mapstructure:"validate"`
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SerpConfig holds SerpAPI settings (primary search provider).
type SerpConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Engine  string `yaml:"engine" mapstructure:"engine"`
}

// TavilyConfig holds Tavily search settings (secondary search provider).
type TavilyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings (primary content provider).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SMTPConfig holds outbound mail transport settings.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// Configured reports whether credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// SearchConfig configures the discovery search adapter.
type SearchConfig struct {
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	RulesFile string  `yaml:"rules_file" mapstructure:"rules_file"`
}

// FetchConfig configures the content fetcher.
type FetchConfig struct {
	MaxPages    int `yaml:"max_pages" mapstructure:"max_pages"`
	PageCap     int `yaml:"page_cap" mapstructure:"page_cap"`
	OverallCap  int `yaml:"overall_cap" mapstructure:"overall_cap"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ValidateConfig configures relevance validation.
// Mode "lenient" logs rejections but persists the lead anyway; "strict"
// skips rejected leads.
type ValidateConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"`
}

// Strict reports whether rejections should block persistence.
func (c ValidateConfig) Strict() bool {
	return strings.EqualFold(c.Mode, "strict")
}

// SchedulerConfig configures the follow-up scheduler.
type SchedulerConfig struct {
	IntervalMinutes int `yaml:"interval_minutes" mapstructure:"interval_minutes"`
	FollowUpDays    int `yaml:"follow_up_days" mapstructure:"follow_up_days"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credential keys default empty so environment lookups resolve during
	// unmarshal.
	for _, key := range []string{
		"serp.key", "tavily.key", "firecrawl.key", "anthropic.key",
		"smtp.username", "smtp.password", "smtp.from", "search.rules_file",
	} {
		v.SetDefault(key, "")
	}

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("serp.base_url", "https://serpapi.com")
	v.SetDefault("serp.engine", "google")
	v.SetDefault("tavily.base_url", "https://api.tavily.com")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("search.rate_limit", 2)
	v.SetDefault("fetch.max_pages", 3)
	v.SetDefault("fetch.page_cap", 3000)
	v.SetDefault("fetch.overall_cap", 6000)
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("validate.mode", "lenient")
	v.SetDefault("scheduler.interval_minutes", 15)
	v.SetDefault("scheduler.follow_up_days", 7)
	v.SetDefault("server.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
