package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestClientCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Fatalf("missing auth header")
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if req.Stream {
			t.Fatalf("expected non-streaming request")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt","choices":[{"index":0,"message":{"role":"assistant","content":"all good"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "key", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	if resp.Content() != "all good" {
		t.Fatalf("unexpected content: %q", resp.Content())
	}
}

func TestClientCreateChatCompletionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewLLMClientModes(t *testing.T) {
	t.Setenv(EnvUATMode, ModeMock)
	if _, ok := NewLLMClient("", "", time.Second).(*MockClient); !ok {
		t.Fatalf("expected mock client in mock mode")
	}

	t.Setenv(EnvUATMode, "")
	if c := NewLLMClient("", "", time.Second); c != nil {
		t.Fatalf("expected nil client without base url, got %T", c)
	}
	if _, ok := NewLLMClient("http://litellm", "", time.Second).(*Client); !ok {
		t.Fatalf("expected real client")
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 100)
	got := truncate(s, 80)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 80) + "..."; got != want {
		t.Fatalf("truncate = %q, want %q", got, want)
	}
	if got := truncate("短い", 80); got != "短い" {
		t.Fatalf("truncate short = %q", got)
	}

	resp, err := NewMockClient().CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: strings.Repeat("検", 200)}},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion: %v", err)
	}
	if !utf8.ValidString(resp.Content()) {
		t.Fatalf("mock summary is not valid UTF-8: %q", resp.Content())
	}
}
