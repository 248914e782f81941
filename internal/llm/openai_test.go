package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestOpenAIChatSuccess(t *testing.T) {
	var gotAuth string
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path should be /v1/chat/completions, got %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "REJECTED"}},
			},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(Options{BaseURL: srv.URL, APIKey: "sk-test", Timeout: time.Second}, zerolog.Nop())
	reply, err := client.Chat(context.Background(), "gpt-4o-mini", "system", "user")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "REJECTED" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("missing bearer auth: %q", gotAuth)
	}
	if got.Model != "gpt-4o-mini" || len(got.Messages) != 2 {
		t.Fatalf("request payload wrong: %+v", got)
	}
}

func TestOpenAIChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "invalid api key", "type": "auth"},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := client.Chat(context.Background(), "gpt-4o-mini", "s", "u"); err == nil {
		t.Fatal("API error should surface")
	}
}

func TestOpenAIChatNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := NewOpenAIClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := client.Chat(context.Background(), "gpt-4o-mini", "s", "u"); err == nil {
		t.Fatal("empty choices should error")
	}
}

func TestNewProviderDispatch(t *testing.T) {
	if _, err := NewProvider("ollama", Options{}, zerolog.Nop()); err != nil {
		t.Fatalf("ollama provider: %v", err)
	}
	if _, err := NewProvider("OpenAI", Options{}, zerolog.Nop()); err != nil {
		t.Fatalf("provider dispatch should be case-insensitive: %v", err)
	}
	if _, err := NewProvider("bedrock", Options{}, zerolog.Nop()); err == nil {
		t.Fatal("unknown provider must be a config error")
	}
}
