package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo-assistant/internal/apperr"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Temperature: DefaultTemperature})
}

func TestOpenAIProviderParsesToolCalls(t *testing.T) {
	var got map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [
						{"id": "call_1", "type": "function", "function": {"name": "add_todo", "arguments": "{\"title\":\"Buy milk\"}"}},
						{"id": "call_2", "type": "function", "function": {"name": "get_all_todos", "arguments": ""}}
					]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	})

	out, err := p.Complete(context.Background(), Request{
		SystemPrompt: "be helpful",
		History:      []Message{{Role: RoleUser, Content: "add buy milk"}},
		Tools: []Tool{{
			Name:        "add_todo",
			Description: "Add a todo",
			Parameters:  ObjReq(map[string]any{"title": Prop("string", "Title")}, "title"),
		}},
	})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if len(out.ToolCalls) != 2 {
		t.Fatalf("len(ToolCalls) = %d, want 2", len(out.ToolCalls))
	}
	if out.ToolCalls[0].Name != "add_todo" || string(out.ToolCalls[0].Arguments) != `{"title":"Buy milk"}` {
		t.Errorf("ToolCalls[0] = %+v", out.ToolCalls[0])
	}
	if string(out.ToolCalls[1].Arguments) != "{}" {
		t.Errorf("empty arguments should become {}, got %s", out.ToolCalls[1].Arguments)
	}

	if got["model"] != DefaultModel {
		t.Errorf("model = %v, want %s", got["model"], DefaultModel)
	}
	if got["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v, want auto", got["tool_choice"])
	}
	messages, _ := got["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system + user messages, got %v", got["messages"])
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be helpful" {
		t.Errorf("first message = %v", first)
	}
	tools, _ := got["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("tools = %v", got["tools"])
	}
}

func TestOpenAIProviderSendsZeroTemperature(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL, Temperature: 0})
	if _, err := p.Complete(context.Background(), Request{History: []Message{{Role: RoleUser, Content: "hi"}}}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	temperature, ok := got["temperature"].(float64)
	if !ok {
		t.Fatalf("temperature missing from request: %v", got)
	}
	if temperature < 0 || temperature > 1e-6 {
		t.Errorf("temperature = %v, want ~0", temperature)
	}
}

func TestOpenAIProviderReturnsText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"Hello there"},"finish_reason":"stop"}]}`))
	})

	out, err := p.Complete(context.Background(), Request{History: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out.Text != "Hello there" || len(out.ToolCalls) != 0 {
		t.Fatalf("unexpected completion %+v", out)
	}
}

func TestOpenAIProviderClassifiesErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, apperr.ErrProviderUnavailable},
		{http.StatusBadGateway, apperr.ErrProviderUnavailable},
		{http.StatusBadRequest, apperr.ErrProviderError},
		{http.StatusUnauthorized, apperr.ErrProviderError},
	}
	for _, tt := range tests {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"error":{"message":"nope","type":"test_error"}}`))
		})
		_, err := p.Complete(context.Background(), Request{History: []Message{{Role: RoleUser, Content: "hi"}}})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
		}
	}
}

func TestOpenAIProviderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: url})
	_, err := p.Complete(context.Background(), Request{History: []Message{{Role: RoleUser, Content: "hi"}}})
	if !errors.Is(err, apperr.ErrProviderUnavailable) {
		t.Fatalf("got %v, want ErrProviderUnavailable", err)
	}
}
