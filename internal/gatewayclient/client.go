// Package gatewayclient is a small HTTP client for the payment gateway API, used by tooling.
package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alovak/cardflow-gateway/gateway/models"
)

type Client struct {
	Base string
	HTTP *http.Client
}

func New(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{Base: strings.TrimRight(base, "/"), HTTP: hc}
}

// Result is the gateway's answer to a payment submission. Exactly one of Payment and
// Rejected is set for 200 and 400 answers; other statuses only carry Message.
type Result struct {
	StatusCode int
	Payment    *models.Payment
	Rejected   *models.RejectedPayment
	Message    string
}

func (c *Client) CreatePayment(ctx context.Context, req models.PaymentRequest) (*Result, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode payment: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/api/payments", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post payment: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	res := &Result{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusOK:
		res.Payment = &models.Payment{}
		if err := json.Unmarshal(body, res.Payment); err != nil {
			return nil, fmt.Errorf("decode payment: %w", err)
		}
	case http.StatusBadRequest:
		res.Rejected = &models.RejectedPayment{}
		if err := json.Unmarshal(body, res.Rejected); err != nil {
			return nil, fmt.Errorf("decode rejection: %w", err)
		}
		res.Message = res.Rejected.Message
	default:
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &msg) == nil && msg.Message != "" {
			res.Message = msg.Message
		} else {
			res.Message = strings.TrimSpace(string(body))
		}
	}
	return res, nil
}

// GetPayment fetches a payment by id; found is false on 404.
func (c *Client) GetPayment(ctx context.Context, id string) (payment models.Payment, found bool, err error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+"/api/payments/"+id, nil)
	if err != nil {
		return models.Payment{}, false, err
	}
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return models.Payment{}, false, fmt.Errorf("get payment: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
			return models.Payment{}, false, fmt.Errorf("decode payment: %w", err)
		}
		return payment, true, nil
	case http.StatusNotFound:
		return models.Payment{}, false, nil
	default:
		return models.Payment{}, false, fmt.Errorf("get payment: unexpected status %d", resp.StatusCode)
	}
}
