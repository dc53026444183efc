// Package anthropic provides a ChatModel adapter for Anthropic's Claude API.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/dshills/flowcheck/flow/advice"
)

const defaultMaxTokens = 1024

// ChatModel implements advice.ChatModel for Anthropic's Claude API.
//
// Provides access to Claude models with:
//   - Error translation to common format
//   - Context cancellation
//   - System prompt extraction (Anthropic uses a separate system parameter)
//
// Example usage:
//
//	apiKey := os.Getenv("ANTHROPIC_API_KEY")
//	m := anthropic.NewChatModel(apiKey, "claude-sonnet-4-20250514")
//
//	messages := []advice.Message{
//	    {Role: advice.RoleUser, Content: "Why is this branch incomplete?"},
//	}
//
//	out, err := m.Chat(ctx, messages)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Text)
type ChatModel struct {
	modelName string
	client    anthropicClient
}

// anthropicClient defines the interface for Anthropic API operations.
// This allows for easy mocking in tests.
type anthropicClient interface {
	createMessage(ctx context.Context, systemPrompt string, messages []advice.Message) (advice.ChatOut, error)
}

// NewChatModel creates a new Anthropic ChatModel.
//
// Parameters:
//   - apiKey: Anthropic API key (get from https://console.anthropic.com/)
//   - modelName: Model to use. Empty string uses the default.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "claude-sonnet-4-20250514"
	}

	return &ChatModel{
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements the advice.ChatModel interface.
//
// Sends messages to Anthropic's API and returns the response.
// Handles Anthropic-specific message format (system prompt extraction).
func (m *ChatModel) Chat(ctx context.Context, messages []advice.Message) (advice.ChatOut, error) {
	// Check context cancellation
	if ctx.Err() != nil {
		return advice.ChatOut{}, ctx.Err()
	}

	systemPrompt, conversationMessages := extractSystemPrompt(messages)

	out, err := m.client.createMessage(ctx, systemPrompt, conversationMessages)
	if err != nil {
		return advice.ChatOut{}, err
	}
	return out, nil
}

// extractSystemPrompt separates system messages from conversation messages.
// Anthropic's API expects system prompts as a separate parameter, not in
// the messages array.
func extractSystemPrompt(messages []advice.Message) (string, []advice.Message) {
	var systemPrompt string
	var conversationMessages []advice.Message

	for _, msg := range messages {
		if msg.Role == advice.RoleSystem {
			// Concatenate multiple system messages if present
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		} else {
			conversationMessages = append(conversationMessages, msg)
		}
	}

	return systemPrompt, conversationMessages
}

// defaultClient wraps the official anthropic-sdk-go client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createMessage(ctx context.Context, systemPrompt string, messages []advice.Message) (advice.ChatOut, error) {
	if c.apiKey == "" {
		return advice.ChatOut{}, errors.New("anthropic API key is required")
	}

	client := sdk.NewClient(option.WithAPIKey(c.apiKey))

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.modelName),
		MaxTokens: defaultMaxTokens,
		Messages:  convertMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return advice.ChatOut{}, fmt.Errorf("anthropic API error: %w", err)
	}

	return convertResponse(resp), nil
}

// convertMessages converts advice messages to Anthropic's format.
func convertMessages(messages []advice.Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case advice.RoleAssistant:
			out = append(out, sdk.NewAssistantMessage(sdk.NewTextBlock(msg.Content)))
		default:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		}
	}
	return out
}

// convertResponse flattens the response content blocks to text.
func convertResponse(resp *sdk.Message) advice.ChatOut {
	var out advice.ChatOut
	for _, block := range resp.Content {
		if block.Type == "text" {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += block.Text
		}
	}
	return out
}
