package carrier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(config.CarrierConfig{
		BaseURL: "http://carrier.test/api/",
		Token:   "tok",
		ShopID:  "885",
	}, WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)
	return client
}

func TestAvailableServicesSendsRoute(t *testing.T) {
	var captured map[string]int
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		require.Equal(t, "http://carrier.test/api/v2/shipping-order/available-services", req.URL.String())
		require.Equal(t, "tok", req.Header.Get("Token"))
		require.Equal(t, "885", req.Header.Get("ShopId"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
		return jsonResponse(http.StatusOK, `{"code":200,"message":"Success","data":[{"service_id":53320,"short_name":"Standard","service_type_id":2}]}`), nil
	})

	services, err := client.AvailableServices(context.Background(), 1454, 1442)
	require.NoError(t, err)
	require.Len(t, services, 1)
	require.Equal(t, 53320, services[0].ServiceID)
	require.Equal(t, 885, captured["shop_id"])
	require.Equal(t, 1454, captured["from_district"])
	require.Equal(t, 1442, captured["to_district"])
}

func TestAvailableServicesEmptyIsDependencyError(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"code":200,"data":[]}`), nil
	})
	_, err := client.AvailableServices(context.Background(), 1, 2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestQuoteFee(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		var body FeeRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.Equal(t, 400, body.WeightGrams)
		require.Equal(t, "20308", body.ToWardCode)
		return jsonResponse(http.StatusOK, `{"code":200,"data":{"total":30000,"service_fee":30000}}`), nil
	})

	fee, err := client.QuoteFee(context.Background(), FeeRequest{
		ServiceID:      53320,
		FromDistrictID: 1454,
		ToDistrictID:   1442,
		ToWardCode:     "20308",
		WeightGrams:    400,
	})
	require.NoError(t, err)
	require.Equal(t, int64(30000), fee)
}

func TestQuoteFeeValidatesBeforeCalling(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	_, err := client.QuoteFee(context.Background(), FeeRequest{ServiceID: 1, ToDistrictID: 2, ToWardCode: "w"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateShipment(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		require.True(t, strings.HasSuffix(req.URL.Path, "/v2/shipping-order/create"))
		return jsonResponse(http.StatusOK, `{"code":200,"data":{"order_code":"GHN123","total_fee":30000,"expected_delivery_time":"2025-03-03T16:59:59Z"}}`), nil
	})

	shipment, err := client.CreateShipment(context.Background(), ShipmentRequest{
		ToName:       "An",
		ToPhone:      "0900000000",
		ToDistrictID: 1442,
		ToWardCode:   "20308",
		WeightGrams:  200,
		Items:        []ShipmentItem{{Name: "Tea", Quantity: 1, Price: 50000}},
	})
	require.NoError(t, err)
	require.Equal(t, "GHN123", shipment.OrderCode)
}

func TestCarrierRejectionMapsToDependency(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"code":400,"message":"order code invalid"}`), nil
	})
	err := client.CancelShipment(context.Background(), "GHN123")
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Contains(t, err.Error(), "order code invalid")
}

func TestCancelShipmentSendsCodes(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		var body map[string][]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.Equal(t, []string{"A1", "B2"}, body["order_codes"])
		return jsonResponse(http.StatusOK, `{"code":200,"data":[{"order_code":"A1","result":true}]}`), nil
	})
	require.NoError(t, client.CancelShipment(context.Background(), " A1 ", "", "B2"))
	require.Error(t, client.CancelShipment(context.Background(), " "))
}

func TestHTTPFailureIsDependency(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, "bad gateway"), nil
	})
	_, err := client.AvailableServices(context.Background(), 1, 2)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient(config.CarrierConfig{BaseURL: "http://x"})
	require.Error(t, err)
}
