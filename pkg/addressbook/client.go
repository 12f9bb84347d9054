// Package addressbook reads the carrier's administrative-division directory
// (provinces, districts, wards).
package addressbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	defaultTimeout          = 10 * time.Second
	responseReadLimit int64 = 1024
)

var errTokenRequired = errors.New("address directory token is required")

type Province struct {
	ID   int    `json:"ProvinceID"`
	Name string `json:"ProvinceName"`
}

type District struct {
	ID         int    `json:"DistrictID"`
	ProvinceID int    `json:"ProvinceID"`
	Name       string `json:"DistrictName"`
}

type Ward struct {
	Code       string `json:"WardCode"`
	DistrictID int    `json:"DistrictID"`
	Name       string `json:"WardName"`
}

// Directory is the lookup surface used for address enrichment.
type Directory interface {
	Provinces(ctx context.Context) ([]Province, error)
	Districts(ctx context.Context, provinceID int) ([]District, error)
	Wards(ctx context.Context, districtID int) ([]Ward, error)
}

// Client is the HTTP implementation of Directory.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ Directory = (*Client)(nil)

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

// NewClient builds the directory client.
func NewClient(cfg config.AddressBookConfig, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errTokenRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("address directory base url is required")
	}
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    base,
		token:      token,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) Provinces(ctx context.Context) ([]Province, error) {
	var out []Province
	if err := c.get(ctx, "province", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Districts(ctx context.Context, provinceID int) ([]District, error) {
	if provinceID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "province id is required")
	}
	var out []District
	q := url.Values{"province_id": []string{strconv.Itoa(provinceID)}}
	if err := c.get(ctx, "district", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Wards(ctx context.Context, districtID int) ([]Ward, error) {
	if districtID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "district id is required")
	}
	var out []Ward
	q := url.Values{"district_id": []string{strconv.Itoa(districtID)}}
	if err := c.get(ctx, "ward", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "address directory client not configured")
	}
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build directory request")
	}
	req.Header.Set("Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute directory request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "directory request failed")
	}

	var env struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode directory response")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode directory payload")
	}
	return nil
}
