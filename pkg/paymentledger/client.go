// Package paymentledger reads recent incoming transfers from the bank
// account feed used for online payments.
package paymentledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultPageSize         = 100
	responseReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("payment ledger api key is required")

// Transaction is one incoming transfer on the shop account.
type Transaction struct {
	ReferenceID string    `json:"reference_id"`
	Memo        string    `json:"memo"`
	Amount      int64     `json:"amount"`
	When        time.Time `json:"when"`
}

// Feed lists recent incoming transfers.
type Feed interface {
	ListRecentTransactions(ctx context.Context) ([]Transaction, error)
}

// Client is the HTTP implementation of Feed.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
}

var _ Feed = (*Client)(nil)

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

// WithPageSize overrides how many transfers are requested per poll.
func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// NewClient builds a ledger client from configuration.
func NewClient(cfg config.PaymentLedgerConfig, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("payment ledger base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		apiKey:     key,
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ListRecentTransactions returns the most recent incoming transfers. A 404
// from the feed surfaces as CodeNotFound.
func (c *Client) ListRecentTransactions(ctx context.Context) ([]Transaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment ledger client not configured")
	}
	url := fmt.Sprintf("%s/transactions?limit=%s", c.baseURL, strconv.Itoa(c.pageSize))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build ledger request")
	}
	req.Header.Set("Authorization", "Apikey "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute ledger request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment ledger has no transactions")
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "ledger request failed")
	}

	var body struct {
		Transactions []Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode ledger response")
	}
	return body.Transactions, nil
}
