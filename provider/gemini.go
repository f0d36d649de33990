package provider

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ZaguanLabs/polytlai"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// Gemini returns the adapter for Google's generateContent API. The model is
// part of the endpoint and the key travels in the query string.
func Gemini() polytlai.Adapter {
	return polytlai.Adapter{
		ID:       polytlai.ProviderGemini,
		Name:     "Google Gemini 1.5 Flash",
		Endpoint: geminiEndpoint("gemini-1.5-flash"),
		Model:    "gemini-1.5-flash",
		Timeout:  25 * time.Second,
		BuildURL: func(endpoint, key string) string {
			sep := "?"
			if strings.Contains(endpoint, "?") {
				sep = "&"
			}
			return endpoint + sep + "key=" + url.QueryEscape(key)
		},
		BuildHeaders: func(string) http.Header {
			h := http.Header{}
			h.Set("Content-Type", "application/json")
			return h
		},
		BuildBody: func(_, prompt string) any {
			return geminiRequest{
				Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
				GenerationConfig: geminiGenerationConfig{Temperature: temperature, MaxOutputTokens: maxTokens},
			}
		},
		ParseResponse: func(raw []byte) (string, bool) {
			return gjsonText(raw, "candidates.0.content.parts.0.text")
		},
	}
}

func geminiEndpoint(model string) string {
	return "https://generativelanguage.googleapis.com/v1beta/models/" + model + ":generateContent"
}

// gjsonText reads a string at path, failing on invalid JSON or a missing or
// non-string value.
func gjsonText(raw []byte, path string) (string, bool) {
	if !gjson.ValidBytes(raw) {
		return "", false
	}
	v := gjson.GetBytes(raw, path)
	if !v.Exists() || v.Type != gjson.String {
		return "", false
	}
	return v.String(), true
}
