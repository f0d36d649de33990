package provider

import (
	"time"

	"github.com/ZaguanLabs/polytlai"
)

type qwenInput struct {
	Prompt string `json:"prompt"`
}

type qwenParameters struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type qwenRequest struct {
	Model      string         `json:"model"`
	Input      qwenInput      `json:"input"`
	Parameters qwenParameters `json:"parameters"`
}

// Qwen returns the adapter for Alibaba DashScope text generation.
func Qwen() polytlai.Adapter {
	return polytlai.Adapter{
		ID:           polytlai.ProviderQwen,
		Name:         "Qwen-Max (通义千问)",
		Endpoint:     "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation",
		Model:        "qwen-max",
		Timeout:      30 * time.Second,
		BuildHeaders: bearerHeaders,
		BuildBody: func(model, prompt string) any {
			return qwenRequest{
				Model:      model,
				Input:      qwenInput{Prompt: prompt},
				Parameters: qwenParameters{Temperature: temperature, MaxTokens: maxTokens},
			}
		},
		ParseResponse: func(raw []byte) (string, bool) {
			return gjsonText(raw, "output.text")
		},
	}
}
