package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ZaguanLabs/polytlai"
	"github.com/ZaguanLabs/polytlai/cache"
	"github.com/ZaguanLabs/polytlai/provider"
)

// fileProvider and fileConfig mirror Config with durations as strings so the
// written file stays readable.
type fileProvider struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
}

type fileCache struct {
	Enabled   bool   `yaml:"enabled"`
	TTL       string `yaml:"ttl"`
	RedisURL  string `yaml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix"`
}

type fileRetry struct {
	Enabled    bool   `yaml:"enabled"`
	MaxRetries int    `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
	MaxDelay   string `yaml:"max_delay"`
}

type fileRateLimit struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

type fileConfig struct {
	LogLevel         string                   `yaml:"log_level"`
	LLMLog           string                   `yaml:"llm_log"`
	SourceLang       string                   `yaml:"source_lang"`
	TargetLang       string                   `yaml:"target_lang"`
	DefaultTimeout   string                   `yaml:"default_timeout"`
	AnalysisTimeout  string                   `yaml:"analysis_timeout"`
	MaxConcurrent    int                      `yaml:"max_concurrent"`
	AnalysisPriority []string                 `yaml:"analysis_priority"`
	Providers        map[string]fileProvider  `yaml:"providers"`
	Store            StoreConfig              `yaml:"store"`
	Cache            fileCache                `yaml:"cache"`
	Retry            fileRetry                `yaml:"retry"`
	RateLimit        map[string]fileRateLimit `yaml:"rate_limit"`
}

var keyComments = map[string]string{
	"log_level":         "debug, info, warn or error",
	"llm_log":           "File that receives every prompt and raw response (empty disables)",
	"default_timeout":   "Deadline for providers without their own timeout",
	"analysis_timeout":  "Deadline for the judge call",
	"max_concurrent":    "Simultaneous provider calls per run (0 = unlimited)",
	"analysis_priority": "Credentials tried in this order for the judge call",
	"providers":         "Per-provider endpoint, model and timeout",
	"store":             "Saved keys, selection and preferences",
	"cache":             "Translation cache (in-memory, or Redis when redis_url is set)",
	"retry":             "Retry rate-limited, server and network failures within the call deadline",
	"rate_limit":        "Token bucket per provider, e.g. openai: {requests_per_minute: 60, burst: 5}",
}

func toFile(c Config, registry *polytlai.Registry) fileConfig {
	providers := make(map[string]fileProvider)
	for _, id := range registry.Providers() {
		a, _ := registry.Lookup(id)
		providers[string(id)] = fileProvider{Endpoint: a.Endpoint, Model: a.Model, Timeout: a.Timeout.String()}
	}
	limits := make(map[string]fileRateLimit, len(c.RateLimit))
	for name, rl := range c.RateLimit {
		limits[name] = fileRateLimit{RequestsPerMinute: rl.RequestsPerMinute, Burst: rl.Burst}
	}
	keyPrefix := c.Cache.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = cache.DefaultKeyPrefix
	}
	return fileConfig{
		LogLevel:         c.LogLevel,
		LLMLog:           c.LLMLog,
		SourceLang:       c.SourceLang,
		TargetLang:       c.TargetLang,
		DefaultTimeout:   c.DefaultTimeout.String(),
		AnalysisTimeout:  c.AnalysisTimeout.String(),
		MaxConcurrent:    c.MaxConcurrent,
		AnalysisPriority: c.AnalysisPriority,
		Providers:        providers,
		Store:            c.Store,
		Cache: fileCache{
			Enabled:   c.Cache.Enabled,
			TTL:       c.Cache.TTL.String(),
			RedisURL:  c.Cache.RedisURL,
			KeyPrefix: keyPrefix,
		},
		Retry: fileRetry{
			Enabled:    c.Retry.Enabled,
			MaxRetries: c.Retry.MaxRetries,
			BaseDelay:  c.Retry.BaseDelay.String(),
			MaxDelay:   c.Retry.MaxDelay.String(),
		},
		RateLimit: limits,
	}
}

// Marshal renders the default configuration as commented YAML.
func Marshal() ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(toFile(Default(), provider.DefaultRegistry())); err != nil {
		return nil, err
	}
	doc.HeadComment = "polytlai configuration"
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if c, ok := keyComments[doc.Content[i].Value]; ok {
			doc.Content[i].HeadComment = c
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the default configuration to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s: %w", path, os.ErrExist)
		}
	}
	data, err := Marshal()
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
