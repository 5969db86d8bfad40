// Package notify delivers best-effort outbound messages to customers.
// Callers treat every failure as non-fatal.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// SMSClient sends text messages through an HTTP SMS gateway.
type SMSClient struct {
	url    string
	apiKey string
	sender string
	client *http.Client
}

// NewSMSClient creates a client for the given gateway endpoint.
func NewSMSClient(url, apiKey, sender string) *SMSClient {
	return &SMSClient{
		url:    url,
		apiKey: apiKey,
		sender: sender,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type smsRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

// Send posts one message to the gateway. A non-2xx response is an error;
// the caller decides whether that matters.
func (c *SMSClient) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(smsRequest{To: phone, Message: message, Sender: c.sender})
	if err != nil {
		return errors.Wrap(err, "marshal sms request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build sms request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send sms")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
