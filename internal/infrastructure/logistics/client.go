package logistics

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

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/ports"

	"github.com/rs/zerolog"
)

// ShopifyLoginPath is the partner endpoint that registers a Shopify channel.
const ShopifyLoginPath = "/v1/merchant/shopify-login"

// Client is the Gaint Logistics partner REST client
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ ports.PartnerClient = (*Client)(nil)

// NewClient creates a partner client. timeout bounds a single attempt; zero disables it.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ValidateChannel posts the channel identity once and decodes the response envelope.
// Non-2xx statuses are not errors by themselves: the envelope decides the outcome.
func (c *Client) ValidateChannel(ctx context.Context, payload domain.ChannelValidationRequest) domain.ValidationResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ShopifyLoginPath, bytes.NewReader(body))
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TransportFailure(fmt.Errorf("failed to read response: %w", err))
	}

	result := DecodeEnvelope(raw)
	c.logger.Info().
		Str("channelId", payload.ChannelID).
		Str("channelName", payload.ChannelName).
		Int("status", resp.StatusCode).
		Str("outcome", string(result.Kind)).
		Msg("Shopify login response")

	return result
}

// envelope is the partner's response shape: {s, msg?, data?}
type envelope struct {
	S    json.RawMessage `json:"s"`
	Msg  json.RawMessage `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// DecodeEnvelope turns a response body into a tagged result. s must be the JSON
// number 1 for success; anything else is a rejection. A body that is not a JSON
// object is a transport failure.
func DecodeEnvelope(raw []byte) domain.ValidationResult {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.TransportFailure(errors.New("failed to decode response: body is not a JSON object"))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.TransportFailure(fmt.Errorf("failed to decode response: %w", err))
	}

	if isOne(env.S) {
		if truthy(env.Data) {
			return domain.Success(env.Data)
		}
		return domain.Success(json.RawMessage(trimmed))
	}

	if truthy(env.Msg) {
		var msg string
		if err := json.Unmarshal(env.Msg, &msg); err == nil {
			return domain.Rejected(msg)
		}
		return domain.Rejected(string(env.Msg))
	}
	return domain.Rejected(domain.MsgOperationFailed)
}

func isOne(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return false
	}
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	f, err := n.Float64()
	return err == nil && f == 1
}

// truthy follows the partner's JavaScript-style checks: absent, null, false, 0 and ""
// count as missing.
func truthy(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
