package anthropic

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/flowcheck/flow/advice"
)

type mockAnthropicClient struct {
	response   string
	err        error
	callCount  int
	lastSystem string
	lastMsgs   []advice.Message
}

func (m *mockAnthropicClient) createMessage(ctx context.Context, systemPrompt string, messages []advice.Message) (advice.ChatOut, error) {
	m.callCount++
	m.lastSystem = systemPrompt
	m.lastMsgs = messages
	if m.err != nil {
		return advice.ChatOut{}, m.err
	}
	return advice.ChatOut{Text: m.response}, nil
}

func TestAnthropicChatModel_Construction(t *testing.T) {
	t.Run("creates model with API key", func(t *testing.T) {
		m := NewChatModel("test-api-key", "claude-sonnet-4-20250514")
		if m == nil {
			t.Fatal("expected non-nil model")
		}
	})

	t.Run("creates model with default model name", func(t *testing.T) {
		m := NewChatModel("test-api-key", "")
		if m == nil {
			t.Fatal("expected non-nil model")
		}
		if m.modelName == "" {
			t.Error("expected default model name to be set")
		}
	})
}

func TestAnthropicChatModel_Chat(t *testing.T) {
	t.Run("sends messages and returns response", func(t *testing.T) {
		mockClient := &mockAnthropicClient{response: "Connect port 1 to a node."}
		m := &ChatModel{client: mockClient, modelName: "claude-sonnet-4-20250514"}

		out, err := m.Chat(context.Background(), []advice.Message{
			{Role: advice.RoleUser, Content: "Why is this branch incomplete?"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if out.Text != "Connect port 1 to a node." {
			t.Errorf("unexpected text %q", out.Text)
		}
		if mockClient.callCount != 1 {
			t.Errorf("expected 1 API call, got %d", mockClient.callCount)
		}
	})

	t.Run("extracts system prompt from messages", func(t *testing.T) {
		mockClient := &mockAnthropicClient{response: "ok"}
		m := &ChatModel{client: mockClient, modelName: "claude-sonnet-4-20250514"}

		_, err := m.Chat(context.Background(), []advice.Message{
			{Role: advice.RoleSystem, Content: "You explain validation findings."},
			{Role: advice.RoleUser, Content: "Question"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if mockClient.lastSystem != "You explain validation findings." {
			t.Errorf("system prompt = %q", mockClient.lastSystem)
		}
		if len(mockClient.lastMsgs) != 1 || mockClient.lastMsgs[0].Role != advice.RoleUser {
			t.Errorf("conversation messages = %+v", mockClient.lastMsgs)
		}
	})

	t.Run("concatenates multiple system messages", func(t *testing.T) {
		system, msgs := extractSystemPrompt([]advice.Message{
			{Role: advice.RoleSystem, Content: "First."},
			{Role: advice.RoleUser, Content: "Hi"},
			{Role: advice.RoleSystem, Content: "Second."},
		})
		if system != "First.\n\nSecond." {
			t.Errorf("system = %q", system)
		}
		if len(msgs) != 1 {
			t.Errorf("messages = %+v", msgs)
		}
	})

	t.Run("propagates API errors", func(t *testing.T) {
		wantErr := errors.New("overloaded")
		m := &ChatModel{client: &mockAnthropicClient{err: wantErr}}

		_, err := m.Chat(context.Background(), []advice.Message{
			{Role: advice.RoleUser, Content: "hi"},
		})
		if !errors.Is(err, wantErr) {
			t.Errorf("expected wrapped API error, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		mockClient := &mockAnthropicClient{response: "never"}
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

func TestAnthropicDefaultClient_RequiresAPIKey(t *testing.T) {
	c := &defaultClient{modelName: "claude-sonnet-4-20250514"}
	_, err := c.createMessage(context.Background(), "", []advice.Message{
		{Role: advice.RoleUser, Content: "hi"},
	})
	if err == nil {
		t.Error("expected error for empty API key")
	}
}
