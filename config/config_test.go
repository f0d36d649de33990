package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaguanLabs/polytlai"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.SourceLang)
	assert.Equal(t, "zh_CN", cfg.TargetLang)
	assert.Equal(t, 30*time.Second, cfg.DefaultTimeout)
	assert.Equal(t, 45*time.Second, cfg.AnalysisTimeout)
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, []string{"openai", "deepseek", "claude", "gemini", "qwen"}, cfg.AnalysisPriority)
	assert.False(t, cfg.Retry.Enabled)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
log_level: debug
target_lang: ja
analysis_timeout: 1m
max_concurrent: 2
analysis_priority: [claude, openai]
providers:
  deepseek:
    endpoint: http://localhost:8080/v1/chat/completions
    timeout: 5s
cache:
  enabled: true
  ttl: 10m
retry:
  enabled: true
  max_retries: 3
  base_delay: 250ms
rate_limit:
  openai:
    requests_per_minute: 30
    burst: 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ja", cfg.TargetLang)
	assert.Equal(t, time.Minute, cfg.AnalysisTimeout)
	assert.Equal(t, 2, cfg.MaxConcurrent)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 8*time.Second, cfg.Retry.MaxDelay, "unset keys keep defaults")
	assert.Equal(t, RateLimit{RequestsPerMinute: 30, Burst: 2}, cfg.RateLimit["openai"])

	priority, err := cfg.Priority()
	require.NoError(t, err)
	assert.Equal(t, []polytlai.ProviderID{polytlai.ProviderClaude, polytlai.ProviderOpenAI}, priority)

	registry, err := cfg.Registry()
	require.NoError(t, err)
	a, err := registry.Lookup(polytlai.ProviderDeepSeek)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1/chat/completions", a.Endpoint)
	assert.Equal(t, "deepseek-chat", a.Model)
	assert.Equal(t, 5*time.Second, a.Timeout)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Len(t, opts, 7, "base options plus retry and rate limit")
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("POLYTLAI_TARGET_LANG", "fr")
	t.Setenv("POLYTLAI_MAX_CONCURRENT", "9")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fr", cfg.TargetLang)
	assert.Equal(t, 9, cfg.MaxConcurrent)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, `
default_timeout: 0s
analysis_priority: [openai, mistral]
providers:
  llama: {endpoint: http://x}
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_timeout")
	assert.Contains(t, err.Error(), "mistral")
	assert.Contains(t, err.Error(), "llama")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, WriteDefault(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Deadline for the judge call")
	assert.Contains(t, string(data), "analysis_timeout: 45s")

	cfg, err := Load(path)
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.AnalysisTimeout, cfg.AnalysisTimeout)
	assert.Equal(t, def.AnalysisPriority, cfg.AnalysisPriority)
	assert.Equal(t, 25*time.Second, cfg.Providers["gemini"].Timeout)

	assert.Error(t, WriteDefault(path, false), "existing file is kept without force")
	assert.NoError(t, WriteDefault(path, true))
}

func TestWatch_Reload(t *testing.T) {
	path := writeFile(t, "target_lang: ja\n")
	w, err := Watch(path)
	require.NoError(t, err)
	assert.Equal(t, "ja", w.Current().TargetLang)

	changed := make(chan string, 16)
	w.OnChange(func(c *Config) {
		select {
		case changed <- c.TargetLang:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("target_lang: ko\n"), 0o600))

	// A write can surface as several events; wait for the final content.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case lang := <-changed:
			if lang == "ko" {
				assert.Equal(t, "ko", w.Current().TargetLang)
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
