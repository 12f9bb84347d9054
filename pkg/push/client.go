// Package push delivers device notifications through an Expo-style push API.
package push

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

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	defaultTimeout          = 5 * time.Second
	responseReadLimit int64 = 1024
	statusOK                = "ok"
	errDeviceNotRegistered  = "DeviceNotRegistered"
)

// ErrDeviceNotRegistered means the token is stale and should be forgotten.
var ErrDeviceNotRegistered = errors.New("device not registered")

// Sender delivers one message to one device.
type Sender interface {
	Send(ctx context.Context, deviceToken, title, body string) error
}

// Client is the HTTP implementation of Sender.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
}

var _ Sender = (*Client)(nil)

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds a push client. The access token is optional.
func NewClient(cfg config.PushConfig, opts ...Option) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.BaseURL)
	if endpoint == "" {
		return nil, errors.New("push endpoint is required")
	}
	client := &Client{
		httpClient:  &http.Client{Timeout: defaultTimeout},
		endpoint:    endpoint,
		accessToken: strings.TrimSpace(cfg.AccessToken),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

type message struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound,omitempty"`
}

type ticket struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

// Send pushes a single notification.
func (c *Client) Send(ctx context.Context, deviceToken, title, body string) error {
	token := strings.TrimSpace(deviceToken)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "device token is required")
	}
	payload, err := json.Marshal(message{To: token, Title: title, Body: body, Sound: "default"})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal push message")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build push request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute push request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "push request failed")
	}

	var out struct {
		Data ticket `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode push response")
	}
	if out.Data.Status == statusOK {
		return nil
	}
	if out.Data.Details.Error == errDeviceNotRegistered {
		return ErrDeviceNotRegistered
	}
	return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("push rejected: %s", out.Data.Message))
}
