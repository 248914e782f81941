package bureau

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const checkPath = "/check"

// ClientOptions parameterise one HTTP bureau connector.
type ClientOptions struct {
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls a bureau connector over HTTP.
type Client struct {
	opts    ClientOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewClient constructs a bureau connector client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		opts:    opts,
		logger:  logger.With().Str("component", "bureau_client").Str("bureau", opts.Name).Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Name returns the configured source name.
func (c *Client) Name() string {
	return c.opts.Name
}

// Check issues a credit check against the connector.
func (c *Client) Check(ctx context.Context, creditReq CreditRequest) (Result, error) {
	if c.baseURL == "" {
		return Result{}, errors.New("bureau base url not configured")
	}

	body, err := json.Marshal(creditReq)
	if err != nil {
		return Result{}, err
	}

	endpoint := c.baseURL + checkPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, parseHTTPError(c.opts.Name, resp.StatusCode, payload)
	}

	var wire struct {
		BureauName   string           `json:"bureauName"`
		CreditScore  *decimal.Decimal `json:"creditScore"`
		Status       string           `json:"status"`
		ErrorMessage string           `json:"errorMessage"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Result{}, fmt.Errorf("decode bureau response: %w", err)
	}

	result := Result{
		Source:       c.opts.Name,
		Score:        wire.CreditScore,
		Status:       wire.Status,
		ErrorMessage: wire.ErrorMessage,
		Timestamp:    time.Now().UTC(),
	}
	if wire.BureauName != "" {
		result.Source = wire.BureauName
	}
	if result.Status == "" {
		result.Status = StatusFailed
	}

	return result, nil
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(source string, status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Message)
		}
		if apiErr.Description != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Description)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("%s api error (%d): %s", source, status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("%s api error (%d): %s", source, status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("%s api error (%d)", source, status)
}

var _ Checker = (*Client)(nil)
