// Package google provides a ChatModel adapter for Google Gemini API.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/flowcheck/flow/advice"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ChatModel implements advice.ChatModel for Google's Gemini API.
//
// Provides access to Gemini models with:
//   - Safety filter handling
//   - Context cancellation
//   - User-friendly error messages for blocked content
//
// Example usage:
//
//	apiKey := os.Getenv("GOOGLE_API_KEY")
//	m := google.NewChatModel(apiKey, "gemini-2.5-flash")
//
//	out, err := m.Chat(ctx, messages)
//	if err != nil {
//	    var safetyErr *SafetyFilterError
//	    if errors.As(err, &safetyErr) {
//	        log.Printf("Content blocked: %s", safetyErr.Category())
//	        return
//	    }
//	    log.Fatal(err)
//	}
//	fmt.Println(out.Text)
type ChatModel struct {
	modelName string
	client    googleClient
}

// googleClient defines the interface for Google Gemini API operations.
// This allows for easy mocking in tests.
type googleClient interface {
	generateContent(ctx context.Context, messages []advice.Message) (advice.ChatOut, error)
}

// NewChatModel creates a new Google ChatModel.
//
// Parameters:
//   - apiKey: Google API key (get from https://makersuite.google.com/app/apikey)
//   - modelName: Model to use. Empty string uses the default.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	return &ChatModel{
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Chat implements the advice.ChatModel interface.
//
// Sends messages to Google's Gemini API and returns the response.
// Handles safety filter blocks with descriptive errors.
func (m *ChatModel) Chat(ctx context.Context, messages []advice.Message) (advice.ChatOut, error) {
	// Check context cancellation
	if ctx.Err() != nil {
		return advice.ChatOut{}, ctx.Err()
	}

	out, err := m.client.generateContent(ctx, messages)
	if err != nil {
		return advice.ChatOut{}, err
	}
	return out, nil
}

// defaultClient wraps the official Google Gemini SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generateContent(ctx context.Context, messages []advice.Message) (advice.ChatOut, error) {
	if c.apiKey == "" {
		return advice.ChatOut{}, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return advice.ChatOut{}, fmt.Errorf("failed to create Google client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	genModel := client.GenerativeModel(c.modelName)

	// System messages are set via SystemInstruction on the model;
	// remaining messages become content parts.
	system, parts := convertMessages(messages)
	if system != "" {
		genModel.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := genModel.GenerateContent(ctx, parts...)
	if err != nil {
		return advice.ChatOut{}, fmt.Errorf("google API error: %w", err)
	}

	return convertResponse(resp)
}

// convertMessages splits out the system instruction and converts the
// rest to Gemini content parts.
func convertMessages(messages []advice.Message) (string, []genai.Part) {
	var system string
	var parts []genai.Part

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		if msg.Role == advice.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
			continue
		}
		parts = append(parts, genai.Text(msg.Content))
	}

	return system, parts
}

// convertResponse converts Google's response to the common format.
func convertResponse(resp *genai.GenerateContentResponse) (advice.ChatOut, error) {
	var out advice.ChatOut

	if len(resp.Candidates) == 0 {
		return out, nil
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return out, &SafetyFilterError{
			reason:   candidate.FinishReason.String(),
			category: safetyCategory(candidate),
		}
	}
	if candidate.Content == nil {
		return out, nil
	}

	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(text)
		}
	}

	return out, nil
}

// safetyCategory returns the first blocking safety category, if any.
func safetyCategory(candidate *genai.Candidate) string {
	for _, rating := range candidate.SafetyRatings {
		if rating.Blocked {
			return rating.Category.String()
		}
	}
	return "UNKNOWN"
}

// SafetyFilterError represents a Google safety filter block.
//
// Use errors.As to check for this error type:
//
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("Content blocked: %s", safetyErr.Category())
//	}
type SafetyFilterError struct {
	reason   string
	category string
}

// Error implements the error interface.
func (e *SafetyFilterError) Error() string {
	return "content blocked by safety filter: " + e.category
}

// Category returns the safety category that triggered the block.
func (e *SafetyFilterError) Category() string {
	return e.category
}

// Reason returns why the content was blocked.
func (e *SafetyFilterError) Reason() string {
	return e.reason
}
