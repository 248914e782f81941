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

func TestOllamaChatSuccess(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("path should be /api/chat, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "APPROVED"},
			"done":    true,
		})
	}))
	defer srv.Close()

	client := NewOllamaClient(Options{BaseURL: srv.URL, Temperature: 0.1, Timeout: time.Second}, zerolog.Nop())
	reply, err := client.Chat(context.Background(), "llama3", "system", "user")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "APPROVED" {
		t.Fatalf("unexpected reply: %q", reply)
	}

	if got.Model != "llama3" || got.Stream {
		t.Fatalf("request payload wrong: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("messages wrong: %+v", got.Messages)
	}
	if got.Options["temperature"] != 0.1 {
		t.Fatalf("temperature not forwarded: %v", got.Options)
	}
}

func TestOllamaChatEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": ""}})
	}))
	defer srv.Close()

	client := NewOllamaClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := client.Chat(context.Background(), "llama3", "s", "u"); err == nil {
		t.Fatal("empty content should error")
	}
}

func TestOllamaChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewOllamaClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := client.Chat(context.Background(), "llama3", "s", "u"); err == nil {
		t.Fatal("HTTP 500 should error")
	}
}

func TestOllamaAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewOllamaClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if !client.Available(context.Background()) {
		t.Fatal("server up, should be available")
	}

	srv.Close()
	if client.Available(context.Background()) {
		t.Fatal("server down, should be unavailable")
	}
}
