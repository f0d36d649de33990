// Package provider holds the request and response rules of every supported
// translation API.
package provider

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ZaguanLabs/polytlai"
)

// Generation parameters shared by every provider.
const (
	temperature = 0.3
	maxTokens   = 2000
)

// Override replaces parts of a built-in adapter. Zero fields keep the
// default.
type Override struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Model    string        `mapstructure:"model" yaml:"model,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// New returns the built-in adapter for id with ov applied.
func New(id polytlai.ProviderID, ov Override) (polytlai.Adapter, error) {
	var a polytlai.Adapter
	switch id {
	case polytlai.ProviderOpenAI:
		a = OpenAI()
	case polytlai.ProviderGemini:
		a = Gemini()
	case polytlai.ProviderDeepSeek:
		a = DeepSeek()
	case polytlai.ProviderClaude:
		a = Claude()
	case polytlai.ProviderQwen:
		a = Qwen()
	default:
		return polytlai.Adapter{}, fmt.Errorf("%w: %q", polytlai.ErrUnknownProvider, id)
	}

	if ov.Endpoint != "" {
		a.Endpoint = ov.Endpoint
	}
	if ov.Model != "" {
		a.Model = ov.Model
		if id == polytlai.ProviderGemini && ov.Endpoint == "" {
			a.Endpoint = geminiEndpoint(ov.Model)
		}
	}
	if ov.Timeout > 0 {
		a.Timeout = ov.Timeout
	}
	return a, nil
}

// NewRegistry builds a registry of every supported provider, applying the
// overrides that are present.
func NewRegistry(overrides map[polytlai.ProviderID]Override) (*polytlai.Registry, error) {
	adapters := make([]polytlai.Adapter, 0, len(polytlai.AllProviders()))
	for _, id := range polytlai.AllProviders() {
		a, err := New(id, overrides[id])
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return polytlai.NewRegistry(adapters...)
}

// DefaultRegistry returns the built-in adapters without overrides.
func DefaultRegistry() *polytlai.Registry {
	r, err := NewRegistry(nil)
	if err != nil {
		panic(err)
	}
	return r
}

func bearerHeaders(key string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+key)
	return h
}
