// Package openai provides a ChatModel adapter for OpenAI's API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/flowcheck/flow/advice"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ChatModel implements advice.ChatModel for OpenAI's API.
//
// Provides access to OpenAI models (GPT-4, GPT-4o, etc.) with:
//   - Automatic retry logic for transient errors
//   - Rate limit handling
//   - Context cancellation
//
// Example usage:
//
//	apiKey := os.Getenv("OPENAI_API_KEY")
//	m := openai.NewChatModel(apiKey, "gpt-4o")
//
//	messages := []advice.Message{
//	    {Role: advice.RoleUser, Content: "Why is this node unreachable?"},
//	}
//
//	out, err := m.Chat(ctx, messages)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Text)
type ChatModel struct {
	modelName  string
	client     openaiClient
	maxRetries int
	retryDelay time.Duration
}

// openaiClient defines the interface for OpenAI API operations.
// This allows for easy mocking in tests.
type openaiClient interface {
	createChatCompletion(ctx context.Context, messages []advice.Message) (advice.ChatOut, error)
}

// NewChatModel creates a new OpenAI ChatModel.
//
// Parameters:
//   - apiKey: OpenAI API key (get from https://platform.openai.com/api-keys)
//   - modelName: Model to use (e.g., "gpt-4o"). Empty string uses the default.
//
// Returns a ChatModel configured with:
//   - 3 retry attempts for transient errors
//   - 1 second delay between retries
//   - Exponential backoff for rate limits
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return &ChatModel{
		modelName:  modelName,
		client:     &defaultClient{apiKey: apiKey, modelName: modelName},
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Chat implements the advice.ChatModel interface.
//
// Sends messages to OpenAI's API and returns the response.
// Automatically retries on transient errors (network issues, rate limits).
func (m *ChatModel) Chat(ctx context.Context, messages []advice.Message) (advice.ChatOut, error) {
	// Check context cancellation
	if ctx.Err() != nil {
		return advice.ChatOut{}, ctx.Err()
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := m.client.createChatCompletion(ctx, messages)
		if err == nil {
			return out, nil
		}

		lastErr = err

		// Don't retry on non-transient errors
		if !isTransientError(err) {
			return advice.ChatOut{}, err
		}

		if attempt >= m.maxRetries {
			break
		}

		// Wait before retry (with exponential backoff for rate limits)
		delay := m.retryDelay
		if isRateLimitError(err) {
			delay = m.retryDelay * time.Duration(attempt+1)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return advice.ChatOut{}, ctx.Err()
		}
	}

	return advice.ChatOut{}, fmt.Errorf("OpenAI API failed after %d retries: %w", m.maxRetries, lastErr)
}

// isTransientError determines if an error should trigger a retry.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if isRateLimitError(err) {
		return true
	}

	msgLower := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"network",
		"connection",
		"temporary",
		"503",
		"502",
		"500",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(msgLower, pattern) {
			return true
		}
	}

	return false
}

// isRateLimitError checks if error is a rate limit error.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}

// defaultClient wraps the official openai-go client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createChatCompletion(ctx context.Context, messages []advice.Message) (advice.ChatOut, error) {
	if c.apiKey == "" {
		return advice.ChatOut{}, errors.New("OpenAI API key is required")
	}

	client := sdk.NewClient(option.WithAPIKey(c.apiKey))

	resp, err := client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.modelName),
		Messages: convertMessages(messages),
	})
	if err != nil {
		return advice.ChatOut{}, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return advice.ChatOut{}, nil
	}
	return advice.ChatOut{Text: resp.Choices[0].Message.Content}, nil
}

// convertMessages converts advice messages to OpenAI's format.
func convertMessages(messages []advice.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case advice.RoleSystem:
			out = append(out, sdk.SystemMessage(msg.Content))
		case advice.RoleAssistant:
			out = append(out, sdk.AssistantMessage(msg.Content))
		default:
			out = append(out, sdk.UserMessage(msg.Content))
		}
	}
	return out
}
