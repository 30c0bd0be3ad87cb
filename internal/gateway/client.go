// Package gateway calls the payment processor's order-creation API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiKeyHeader = "merchant-api-key"

// CreateOrderRequest is the body of POST {base}/v1/order.
type CreateOrderRequest struct {
	ExternalID    string `json:"externalId"`
	PayAmount     string `json:"payAmount"`
	CurrencyCode  string `json:"currencyCode"`
	Timeout       int    `json:"timeout"` // seconds
	Description   string `json:"description"`
	ReturnURL     string `json:"returnUrl"`
	FailReturnURL string `json:"failReturnUrl"`
}

type CreateOrderResponse struct {
	PayLink string `json:"payLink"`
}

// Client is the narrow port the order service calls through.
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error)
}

// HTTPClient is a Client for the processor REST API. There is no retry; a
// failed call is reported to the caller as is.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) CreateOrder(ctx context.Context, in CreateOrderRequest) (CreateOrderResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return CreateOrderResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/order", bytes.NewReader(body))
	if err != nil {
		return CreateOrderResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return CreateOrderResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CreateOrderResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CreateOrderResponse{}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	var env struct {
		Data CreateOrderResponse `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return CreateOrderResponse{}, fmt.Errorf("gateway: decode response: %w", err)
	}
	if env.Data.PayLink == "" {
		return CreateOrderResponse{}, fmt.Errorf("gateway: response has no payLink")
	}
	return env.Data, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway: unexpected status %d", e.Code)
	}
	return fmt.Sprintf("gateway: unexpected status %d: %s", e.Code, e.Body)
}
