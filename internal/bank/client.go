package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthorizationRequest is the body posted to the acquiring bank. It is built per call and never stored.
type AuthorizationRequest struct {
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
	Currency   string `json:"currency"`
	Amount     int64  `json:"amount"`
	CVV        string `json:"cvv"`
}

type AuthorizationResponse struct {
	Authorized        bool   `json:"authorized"`
	AuthorizationCode string `json:"authorization_code"`
}

// Authorizer sends one authorization to the bank.
type Authorizer interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResponse, error)
}

// ErrMalformedResponse is returned when the bank answers 2xx with a body that is not a usable authorization.
var ErrMalformedResponse = errors.New("malformed authorization response")

// StatusError is returned for every non-2xx bank response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bank responded with status=%d", e.StatusCode)
	}
	return fmt.Sprintf("bank responded with status=%d body=%s", e.StatusCode, e.Body)
}

const maxErrorBody = 4 << 10

// Client talks JSON over HTTP to the acquiring bank.
type Client struct {
	Base string
	HTTP *http.Client
}

// New returns a client for the bank at base. base must be an absolute URL.
// When hc is nil a client with a 10s per-request timeout is used.
func New(base string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, fmt.Errorf("parse bank base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("bank base url %q is not absolute", base)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{Base: strings.TrimRight(u.String(), "/"), HTTP: hc}, nil
}

func (c *Client) Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode authorization: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/payments", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build authorization request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send authorization: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		Authorized        *bool  `json:"authorized"`
		AuthorizationCode string `json:"authorization_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Authorized == nil {
		return nil, fmt.Errorf("%w: authorized flag is missing", ErrMalformedResponse)
	}

	return &AuthorizationResponse{
		Authorized:        *payload.Authorized,
		AuthorizationCode: payload.AuthorizationCode,
	}, nil
}
