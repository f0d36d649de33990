package provider

import (
	"net/http"
	"time"

	"github.com/ZaguanLabs/polytlai"
)

// anthropicVersion is the messages API version header value.
const anthropicVersion = "2023-06-01"

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

// Claude returns the adapter for Anthropic's messages API.
func Claude() polytlai.Adapter {
	return polytlai.Adapter{
		ID:       polytlai.ProviderClaude,
		Name:     "Anthropic Claude 3.5 Sonnet",
		Endpoint: "https://api.anthropic.com/v1/messages",
		Model:    "claude-3-5-sonnet-20240620",
		Timeout:  40 * time.Second,
		BuildHeaders: func(key string) http.Header {
			h := http.Header{}
			h.Set("Content-Type", "application/json")
			h.Set("x-api-key", key)
			h.Set("anthropic-version", anthropicVersion)
			return h
		},
		BuildBody: func(model, prompt string) any {
			return claudeRequest{
				Model:       model,
				MaxTokens:   maxTokens,
				Temperature: temperature,
				Messages:    []claudeMessage{{Role: "user", Content: prompt}},
			}
		},
		ParseResponse: func(raw []byte) (string, bool) {
			return gjsonText(raw, "content.0.text")
		},
	}
}
