// Package carrier talks to the shipping carrier's order API.
package carrier

import (
	"bytes"
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
	defaultTimeout             = 10 * time.Second
	responseReadLimit    int64 = 1024
	codeOK                     = 200
	pathAvailableService       = "v2/shipping-order/available-services"
	pathFee                    = "v2/shipping-order/fee"
	pathCreate                 = "v2/shipping-order/create"
	pathCancel                 = "v2/switch-status/cancel"
)

var errTokenRequired = errors.New("carrier token is required")

// API is the carrier surface the order flows depend on.
type API interface {
	AvailableServices(ctx context.Context, fromDistrict, toDistrict int) ([]Service, error)
	QuoteFee(ctx context.Context, req FeeRequest) (int64, error)
	CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error)
	CancelShipment(ctx context.Context, codes ...string) error
}

// Service is a delivery service offered between two districts.
type Service struct {
	ServiceID     int    `json:"service_id"`
	ShortName     string `json:"short_name"`
	ServiceTypeID int    `json:"service_type_id"`
}

// FeeRequest quotes a parcel between two points.
type FeeRequest struct {
	ServiceID      int    `json:"service_id"`
	FromDistrictID int    `json:"from_district_id"`
	FromWardCode   string `json:"from_ward_code,omitempty"`
	ToDistrictID   int    `json:"to_district_id"`
	ToWardCode     string `json:"to_ward_code"`
	WeightGrams    int    `json:"weight"`
	InsuranceValue int64  `json:"insurance_value"`
}

// ShipmentItem is one line of the parcel manifest.
type ShipmentItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// ShipmentRequest creates a carrier order for a confirmed store order.
type ShipmentRequest struct {
	ClientOrderCode string         `json:"client_order_code"`
	ServiceID       int            `json:"service_id,omitempty"`
	PaymentTypeID   int            `json:"payment_type_id"`
	RequiredNote    string         `json:"required_note"`
	FromName        string         `json:"from_name"`
	FromPhone       string         `json:"from_phone"`
	FromAddress     string         `json:"from_address"`
	FromDistrictID  int            `json:"from_district_id,omitempty"`
	FromWardCode    string         `json:"from_ward_code,omitempty"`
	ToName          string         `json:"to_name"`
	ToPhone         string         `json:"to_phone"`
	ToAddress       string         `json:"to_address"`
	ToDistrictID    int            `json:"to_district_id"`
	ToWardCode      string         `json:"to_ward_code"`
	CODAmount       int64          `json:"cod_amount"`
	WeightGrams     int            `json:"weight"`
	Items           []ShipmentItem `json:"items"`
}

// Shipment is the carrier's acknowledgement of a created order.
type Shipment struct {
	OrderCode            string `json:"order_code"`
	TotalFee             int64  `json:"total_fee"`
	ExpectedDeliveryTime string `json:"expected_delivery_time"`
}

const (
	// PaymentTypeShopPays bills the shipping fee to the shop.
	PaymentTypeShopPays = 1
	// RequiredNoteNoInspect forbids the recipient from opening the parcel.
	RequiredNoteNoInspect = "KHONGCHOXEMHANG"
)

// Client is the HTTP implementation of API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	shopID     string
}

var _ API = (*Client)(nil)

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

// NewClient builds a carrier client from configuration.
func NewClient(cfg config.CarrierConfig, opts ...Option) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errTokenRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      token,
		shopID:     strings.TrimSpace(cfg.ShopID),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		return nil, errors.New("carrier base url is required")
	}
	return client, nil
}

// AvailableServices lists delivery services between two districts.
func (c *Client) AvailableServices(ctx context.Context, fromDistrict, toDistrict int) ([]Service, error) {
	if fromDistrict <= 0 || toDistrict <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to districts are required")
	}
	shopID, _ := strconv.Atoi(c.shopID)
	body := map[string]int{
		"shop_id":       shopID,
		"from_district": fromDistrict,
		"to_district":   toDistrict,
	}
	var services []Service
	if err := c.post(ctx, pathAvailableService, body, &services); err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier offers no service for route")
	}
	return services, nil
}

// QuoteFee returns the total shipping fee for the parcel.
func (c *Client) QuoteFee(ctx context.Context, req FeeRequest) (int64, error) {
	if req.ServiceID == 0 || req.ToDistrictID == 0 || strings.TrimSpace(req.ToWardCode) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "service, destination district and ward are required")
	}
	if req.WeightGrams <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "parcel weight must be positive")
	}
	var out struct {
		Total int64 `json:"total"`
	}
	if err := c.post(ctx, pathFee, req, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}

// CreateShipment registers the parcel with the carrier.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	if strings.TrimSpace(req.ToName) == "" || strings.TrimSpace(req.ToPhone) == "" || req.ToDistrictID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient name, phone and district are required")
	}
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment requires at least one item")
	}
	var out Shipment
	if err := c.post(ctx, pathCreate, req, &out); err != nil {
		return nil, err
	}
	if out.OrderCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier returned no order code")
	}
	return &out, nil
}

// CancelShipment cancels one or more carrier orders.
func (c *Client) CancelShipment(ctx context.Context, codes ...string) error {
	clean := make([]string, 0, len(codes))
	for _, code := range codes {
		if trimmed := strings.TrimSpace(code); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	if len(clean) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one carrier order code is required")
	}
	return c.post(ctx, pathCancel, map[string][]string{"order_codes": clean}, nil)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal carrier request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build carrier request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)
	if c.shopID != "" {
		req.Header.Set("ShopId", c.shopID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute carrier request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "carrier request failed")
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode carrier response")
	}
	if env.Code != codeOK {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("carrier rejected request: %s", env.Message))
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode carrier payload")
	}
	return nil
}
