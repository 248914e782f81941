package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestWebhookRecorderSuccess(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method should be POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	recorder := NewWebhookRecorder(srv.URL, time.Second, zerolog.Nop())
	event := Event{
		RequestID:   "req-1",
		Decision:    "APPROVED",
		CreditScore: decimal.NewFromInt(700),
		LoanAmount:  decimal.NewFromInt(50000),
		Reason:      "All rules passed",
		Mode:        "rules",
		Timestamp:   time.Now().UTC(),
	}

	if err := recorder.Record(context.Background(), event); err != nil {
		t.Fatalf("record should succeed: %v", err)
	}
	if received.RequestID != "req-1" || received.Decision != "APPROVED" {
		t.Fatalf("event incomplete: %+v", received)
	}
}

func TestWebhookRecorderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	recorder := NewWebhookRecorder(srv.URL, time.Second, zerolog.Nop())
	if err := recorder.Record(context.Background(), Event{RequestID: "req-1"}); err == nil {
		t.Fatal("HTTP 500 should error")
	}
}
