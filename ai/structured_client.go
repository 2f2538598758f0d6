package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"xceldash/ports"

	"github.com/tidwall/gjson"
)

// StructuredClient provides typed JSON responses from LLM calls
type StructuredClient[T any] struct {
	Client        ports.LLMClient
	PromptManager *PromptManager
	SystemContext string
}

// NewStructuredClient creates a new structured client
func NewStructuredClient[T any](client ports.LLMClient, promptsDir, systemContext string) *StructuredClient[T] {
	return &StructuredClient[T]{
		Client:        client,
		PromptManager: NewPromptManager(promptsDir),
		SystemContext: systemContext,
	}
}

// GetJSONResponse makes a typed LLM call and parses the JSON response.
// An empty systemMessage falls back to the configured system context.
func (c *StructuredClient[T]) GetJSONResponse(ctx context.Context, prompt, systemMessage string) (*T, error) {
	systemContent := systemMessage
	if systemContent == "" {
		systemContent = c.SystemContext
	}

	// OpenAI JSON mode requires the word JSON somewhere in the messages
	if !strings.Contains(strings.ToLower(systemContent), "json") {
		systemContent += "\n\nIMPORTANT: Respond with valid JSON output."
	}

	resp, err := c.Client.ChatCompletion(ctx, systemContent, prompt)
	if err != nil {
		return nil, err
	}

	content := cleanJSONContent(resp.Content)

	var result T
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		// Salvage pass: some models wrap the object in prose despite JSON
		// mode. gjson tolerates surrounding noise when locating the payload.
		if salvaged, ok := salvageJSON(content); ok {
			if err2 := json.Unmarshal([]byte(salvaged), &result); err2 == nil {
				log.Printf("[StructuredClient] Salvaged JSON object from noisy response (%d -> %d bytes)", len(content), len(salvaged))
				return &result, nil
			}
		}
		log.Printf("[StructuredClient] ERROR: Failed to unmarshal JSON content: %v", err)
		return nil, fmt.Errorf("failed to parse JSON content into result type: %w\nCleaned content: %s", err, content)
	}

	return &result, nil
}

// GetJSONResponseFromPrompt loads an external prompt template and gets a structured response
func (c *StructuredClient[T]) GetJSONResponseFromPrompt(ctx context.Context, promptName string, replacements map[string]string) (*T, error) {
	prompt, err := c.PromptManager.RenderPrompt(promptName, replacements)
	if err != nil {
		return nil, fmt.Errorf("failed to load/render prompt: %w", err)
	}

	return c.GetJSONResponse(ctx, prompt, "")
}

// cleanJSONContent removes markdown code blocks and common chatter around JSON
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	} else if strings.HasPrefix(content, "```") && strings.HasSuffix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	// Drop leading chatter lines before the first brace or bracket
	if idx := strings.IndexAny(content, "{["); idx > 0 {
		prefix := content[:idx]
		if !strings.ContainsAny(prefix, "{[") && strings.Contains(prefix, "\n") {
			content = content[idx:]
		}
	}

	return strings.TrimSpace(content)
}

// salvageJSON extracts the first structurally valid JSON object embedded in
// noisy content.
func salvageJSON(content string) (string, bool) {
	start := strings.IndexAny(content, "{[")
	if start < 0 {
		return "", false
	}
	for end := len(content); end > start; end-- {
		candidate := strings.TrimSpace(content[start:end])
		if gjson.Valid(candidate) {
			return candidate, true
		}
	}
	return "", false
}
