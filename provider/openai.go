package provider

import (
	"encoding/json"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/polytlai"
)

// OpenAI returns the adapter for OpenAI chat completions.
func OpenAI() polytlai.Adapter {
	return chatCompletions(polytlai.ProviderOpenAI, "ChatGPT (GPT-4o-mini)",
		"https://api.openai.com/v1/chat/completions", "gpt-4o-mini", 30*time.Second)
}

// DeepSeek returns the adapter for DeepSeek's OpenAI-compatible API.
func DeepSeek() polytlai.Adapter {
	return chatCompletions(polytlai.ProviderDeepSeek, "DeepSeek v2",
		"https://api.deepseek.com/v1/chat/completions", "deepseek-chat", 35*time.Second)
}

// chatCompletions shapes requests in the OpenAI chat format. Only the wire
// types of go-openai are used: the orchestrator owns the HTTP call.
func chatCompletions(id polytlai.ProviderID, name, endpoint, model string, timeout time.Duration) polytlai.Adapter {
	return polytlai.Adapter{
		ID:           id,
		Name:         name,
		Endpoint:     endpoint,
		Model:        model,
		Timeout:      timeout,
		BuildHeaders: bearerHeaders,
		BuildBody: func(model, prompt string) any {
			return openai.ChatCompletionRequest{
				Model: model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleUser, Content: prompt},
				},
				Temperature: temperature,
				MaxTokens:   maxTokens,
			}
		},
		ParseResponse: parseChatCompletion,
	}
}

func parseChatCompletion(raw []byte) (string, bool) {
	var resp openai.ChatCompletionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", false
	}
	if len(resp.Choices) == 0 {
		return "", false
	}
	return resp.Choices[0].Message.Content, true
}
