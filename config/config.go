// Package config loads polytlai settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ZaguanLabs/polytlai"
	"github.com/ZaguanLabs/polytlai/cache"
	"github.com/ZaguanLabs/polytlai/provider"
)

// EnvPrefix namespaces environment overrides (POLYTLAI_LOG_LEVEL, ...).
const EnvPrefix = "POLYTLAI"

// Config is the full set of runtime settings.
type Config struct {
	LogLevel         string                       `mapstructure:"log_level"`
	LLMLog           string                       `mapstructure:"llm_log"` // File receiving prompts and raw responses
	SourceLang       string                       `mapstructure:"source_lang"`
	TargetLang       string                       `mapstructure:"target_lang"`
	DefaultTimeout   time.Duration                `mapstructure:"default_timeout"`
	AnalysisTimeout  time.Duration                `mapstructure:"analysis_timeout"`
	MaxConcurrent    int                          `mapstructure:"max_concurrent"`
	AnalysisPriority []string                     `mapstructure:"analysis_priority"`
	Providers        map[string]provider.Override `mapstructure:"providers"`
	Store            StoreConfig                  `mapstructure:"store"`
	Cache            CacheConfig                  `mapstructure:"cache"`
	Retry            RetryConfig                  `mapstructure:"retry"`
	RateLimit        map[string]RateLimit         `mapstructure:"rate_limit"`
}

// StoreConfig locates the local settings database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig enables the translation cache.
type CacheConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	cache.Config `mapstructure:",squash"`
}

// RetryConfig enables retries of transient provider failures.
type RetryConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// RateLimit throttles one provider.
type RateLimit struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// Default returns the built-in settings.
func Default() Config {
	retry := polytlai.DefaultRetryConfig()
	priority := make([]string, 0, 5)
	for _, id := range polytlai.DefaultAnalysisPriority() {
		priority = append(priority, string(id))
	}
	return Config{
		LogLevel:         "info",
		SourceLang:       polytlai.DefaultSourceLang,
		TargetLang:       polytlai.DefaultTargetLang,
		DefaultTimeout:   polytlai.DefaultTimeout,
		AnalysisTimeout:  polytlai.DefaultAnalysisTimeout,
		MaxConcurrent:    polytlai.DefaultMaxConcurrent,
		AnalysisPriority: priority,
		Providers:        map[string]provider.Override{},
		Store:            StoreConfig{Path: DefaultStorePath()},
		Cache:            CacheConfig{Config: cache.Config{TTL: 24 * time.Hour}},
		Retry: RetryConfig{
			MaxRetries: retry.MaxRetries,
			BaseDelay:  retry.BaseDelay,
			MaxDelay:   retry.MaxDelay,
		},
		RateLimit: map[string]RateLimit{},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("llm_log", d.LLMLog)
	v.SetDefault("source_lang", d.SourceLang)
	v.SetDefault("target_lang", d.TargetLang)
	v.SetDefault("default_timeout", d.DefaultTimeout)
	v.SetDefault("analysis_timeout", d.AnalysisTimeout)
	v.SetDefault("max_concurrent", d.MaxConcurrent)
	v.SetDefault("analysis_priority", d.AnalysisPriority)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.key_prefix", cache.DefaultKeyPrefix)
	v.SetDefault("retry.enabled", d.Retry.Enabled)
	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", d.Retry.MaxDelay)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads path (when non-empty) over the defaults and environment.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]provider.Override{}
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = map[string]RateLimit{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every setting and reports all problems together.
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultTimeout <= 0 {
		errs = append(errs, fmt.Errorf("default_timeout must be positive"))
	}
	if c.AnalysisTimeout <= 0 {
		errs = append(errs, fmt.Errorf("analysis_timeout must be positive"))
	}
	if c.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("max_concurrent cannot be negative"))
	}
	if strings.TrimSpace(c.TargetLang) == "" {
		errs = append(errs, fmt.Errorf("target_lang cannot be empty"))
	}
	if _, err := c.Priority(); err != nil {
		errs = append(errs, fmt.Errorf("analysis_priority: %w", err))
	}
	for name := range c.Providers {
		if _, err := polytlai.ParseProviderID(name); err != nil {
			errs = append(errs, fmt.Errorf("providers: %w", err))
		}
	}
	for name, rl := range c.RateLimit {
		if _, err := polytlai.ParseProviderID(name); err != nil {
			errs = append(errs, fmt.Errorf("rate_limit: %w", err))
		}
		if rl.RequestsPerMinute <= 0 {
			errs = append(errs, fmt.Errorf("rate_limit.%s.requests_per_minute must be positive", name))
		}
	}
	if c.Retry.Enabled && c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries cannot be negative"))
	}
	return errors.Join(errs...)
}

// Priority returns the parsed analysis priority.
func (c *Config) Priority() ([]polytlai.ProviderID, error) {
	ids := make([]polytlai.ProviderID, 0, len(c.AnalysisPriority))
	for _, name := range c.AnalysisPriority {
		id, err := polytlai.ParseProviderID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Registry builds the provider registry with endpoint/model/timeout
// overrides applied.
func (c *Config) Registry() (*polytlai.Registry, error) {
	overrides := make(map[polytlai.ProviderID]provider.Override, len(c.Providers))
	for name, ov := range c.Providers {
		id, err := polytlai.ParseProviderID(name)
		if err != nil {
			return nil, err
		}
		overrides[id] = ov
	}
	return provider.NewRegistry(overrides)
}

// Options translates the settings into orchestrator options. The cache is
// wired separately because it owns a connection.
func (c *Config) Options() ([]polytlai.Option, error) {
	priority, err := c.Priority()
	if err != nil {
		return nil, err
	}
	opts := []polytlai.Option{
		polytlai.WithDefaultTimeout(c.DefaultTimeout),
		polytlai.WithAnalysisTimeout(c.AnalysisTimeout),
		polytlai.WithAnalysisPriority(priority),
		polytlai.WithMaxConcurrent(c.MaxConcurrent),
		polytlai.WithLanguages(c.SourceLang, c.TargetLang),
	}
	if c.Retry.Enabled {
		opts = append(opts, polytlai.WithRetry(polytlai.RetryConfig{
			MaxRetries: c.Retry.MaxRetries,
			BaseDelay:  c.Retry.BaseDelay,
			MaxDelay:   c.Retry.MaxDelay,
		}))
	}
	if len(c.RateLimit) > 0 {
		limits := make(map[polytlai.ProviderID]polytlai.RateLimitConfig, len(c.RateLimit))
		for name, rl := range c.RateLimit {
			id, err := polytlai.ParseProviderID(name)
			if err != nil {
				return nil, err
			}
			limits[id] = polytlai.RateLimitConfig{RequestsPerMinute: rl.RequestsPerMinute, BurstSize: rl.Burst}
		}
		opts = append(opts, polytlai.WithRateLimits(limits))
	}
	return opts, nil
}
