package google

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/flowcheck/flow/advice"
)

type mockGoogleClient struct {
	response  string
	err       error
	callCount int
	lastMsgs  []advice.Message
}

func (m *mockGoogleClient) generateContent(ctx context.Context, messages []advice.Message) (advice.ChatOut, error) {
	m.callCount++
	m.lastMsgs = messages
	if m.err != nil {
		return advice.ChatOut{}, m.err
	}
	return advice.ChatOut{Text: m.response}, nil
}

func TestGoogleChatModel_Construction(t *testing.T) {
	m := NewChatModel("test-api-key", "")
	if m == nil {
		t.Fatal("expected non-nil model")
	}
	if m.modelName == "" {
		t.Error("expected default model name to be set")
	}
}

func TestGoogleChatModel_Chat(t *testing.T) {
	t.Run("returns response", func(t *testing.T) {
		mockClient := &mockGoogleClient{response: "The node is unreachable."}
		m := &ChatModel{client: mockClient, modelName: "gemini-2.5-flash"}

		out, err := m.Chat(context.Background(), []advice.Message{
			{Role: advice.RoleUser, Content: "Explain this finding."},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Text != "The node is unreachable." {
			t.Errorf("unexpected text %q", out.Text)
		}
		if mockClient.callCount != 1 {
			t.Errorf("expected 1 API call, got %d", mockClient.callCount)
		}
	})

	t.Run("propagates safety filter errors", func(t *testing.T) {
		safetyErr := &SafetyFilterError{reason: "SAFETY", category: "HARM_CATEGORY_DANGEROUS_CONTENT"}
		m := &ChatModel{client: &mockGoogleClient{err: safetyErr}}

		_, err := m.Chat(context.Background(), []advice.Message{
			{Role: advice.RoleUser, Content: "hi"},
		})

		var got *SafetyFilterError
		if !errors.As(err, &got) {
			t.Fatalf("expected SafetyFilterError, got %v", err)
		}
		if got.Category() != "HARM_CATEGORY_DANGEROUS_CONTENT" {
			t.Errorf("category = %q", got.Category())
		}
		if got.Reason() != "SAFETY" {
			t.Errorf("reason = %q", got.Reason())
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		mockClient := &mockGoogleClient{response: "never"}
		m := &ChatModel{client: mockClient}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.Chat(ctx, []advice.Message{{Role: advice.RoleUser, Content: "hi"}})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if mockClient.callCount != 0 {
			t.Errorf("expected no API calls, got %d", mockClient.callCount)
		}
	})
}

func TestConvertMessages_SystemInstruction(t *testing.T) {
	system, parts := convertMessages([]advice.Message{
		{Role: advice.RoleSystem, Content: "Explain findings."},
		{Role: advice.RoleUser, Content: "Question"},
		{Role: advice.RoleAssistant, Content: "Answer"},
		{Role: advice.RoleUser, Content: ""},
	})

	if system != "Explain findings." {
		t.Errorf("system = %q", system)
	}
	if len(parts) != 2 {
		t.Errorf("parts = %d, want 2 (empty content skipped)", len(parts))
	}
}

func TestSafetyFilterError_Message(t *testing.T) {
	err := &SafetyFilterError{reason: "SAFETY", category: "HARM_CATEGORY_HATE_SPEECH"}
	if err.Error() != "content blocked by safety filter: HARM_CATEGORY_HATE_SPEECH" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestGoogleDefaultClient_RequiresAPIKey(t *testing.T) {
	c := &defaultClient{modelName: "gemini-2.5-flash"}
	_, err := c.generateContent(context.Background(), nil)
	if err == nil {
		t.Error("expected error for empty API key")
	}
}
