package ports

import "context"

// UsageData represents raw usage data from LLM provider APIs
type UsageData struct {
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	Model            string `json:"model"`
}

// LLMResponse represents an LLM response with usage data
type LLMResponse struct {
	Content string
	Usage   *UsageData
}

// LLMClient interface for the opaque AI collaborator. Calls must honor the
// context deadline; the application layer translates timeouts into a
// retryable AI_UNAVAILABLE condition.
type LLMClient interface {
	ChatCompletion(ctx context.Context, systemMessage, prompt string) (*LLMResponse, error)
}
