// Package audit ships decision events to an external audit trail.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Event is the payload recorded for one completed decision.
type Event struct {
	RequestID   string          `json:"requestId"`
	Decision    string          `json:"decision"`
	CreditScore decimal.Decimal `json:"creditScore"`
	LoanAmount  decimal.Decimal `json:"loanAmount"`
	Reason      string          `json:"reason"`
	Mode        string          `json:"mode"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Recorder delivers audit events to an external sink.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// WebhookRecorder posts audit events to an HTTP endpoint.
type WebhookRecorder struct {
	endpoint string
	client   *http.Client
	logger   zerolog.Logger
}

// NewWebhookRecorder constructs a recorder posting to the given endpoint.
func NewWebhookRecorder(endpoint string, timeout time.Duration, logger zerolog.Logger) *WebhookRecorder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookRecorder{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "audit_webhook").Logger(),
	}
}

// Record posts the event. Callers treat failures as non-fatal: the decision
// itself has already been persisted.
func (r *WebhookRecorder) Record(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send audit request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit endpoint returned status %d", resp.StatusCode)
	}

	r.logger.Debug().Str("request_id", event.RequestID).Msg("audit event delivered")
	return nil
}

var _ Recorder = (*WebhookRecorder)(nil)
