package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/paymentledger"
)

const testSecret = "whsec_test"

type fakeSettler struct {
	calls   int
	last    paymentledger.Transaction
	settled bool
	err     error
}

func (f *fakeSettler) SettleTransaction(_ context.Context, txn paymentledger.Transaction) (bool, error) {
	f.calls++
	f.last = txn
	return f.settled, f.err
}

func signedRequest(t *testing.T, body []byte, signature string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(payments.SignatureHeader, signature)
	}
	return req
}

func TestPaymentWebhookSettlesSignedTransfer(t *testing.T) {
	body, err := json.Marshal(paymentledger.Transaction{
		ReferenceID: "FT25060123",
		Memo:        "SFABCDEF12 thanh toan",
		Amount:      130000,
		When:        time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	settler := &fakeSettler{settled: true}
	rec := httptest.NewRecorder()
	PaymentWebhook(settler, testSecret, nil).ServeHTTP(rec, signedRequest(t, body, payments.Sign(testSecret, body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if settler.calls != 1 || settler.last.ReferenceID != "FT25060123" || settler.last.Amount != 130000 {
		t.Fatalf("unexpected settle call %+v", settler.last)
	}
	var envelope struct {
		Data paymentWebhookResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data.Settled {
		t.Fatal("expected settled response")
	}
}

func TestPaymentWebhookRejectsBadSignatures(t *testing.T) {
	body := []byte(`{"reference_id":"FT1","memo":"x","amount":1}`)
	cases := map[string]string{
		"missing": "",
		"wrong":   payments.Sign("other", body),
		"garbage": "zz",
	}
	for name, signature := range cases {
		settler := &fakeSettler{}
		rec := httptest.NewRecorder()
		PaymentWebhook(settler, testSecret, nil).ServeHTTP(rec, signedRequest(t, body, signature))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
		if settler.calls != 0 {
			t.Fatalf("%s: settler should not run", name)
		}
	}
}

func TestPaymentWebhookRejectsMalformedJSON(t *testing.T) {
	body := []byte(`{"reference_id":`)
	rec := httptest.NewRecorder()
	PaymentWebhook(&fakeSettler{}, testSecret, nil).ServeHTTP(rec, signedRequest(t, body, payments.Sign(testSecret, body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

type fakeCarrierApplier struct {
	last  internalorders.CarrierStatusInput
	calls int
	err   error
}

func (f *fakeCarrierApplier) ApplyCarrierStatus(_ context.Context, input internalorders.CarrierStatusInput) (*models.Order, error) {
	f.calls++
	f.last = input
	if f.err != nil {
		return nil, f.err
	}
	return &models.Order{Status: input.Status}, nil
}

func carrierRequest(body, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/carrier", strings.NewReader(body))
	if token != "" {
		req.Header.Set(CarrierTokenHeader, token)
	}
	return req
}

func TestCarrierWebhookAppliesStatus(t *testing.T) {
	applier := &fakeCarrierApplier{}
	rec := httptest.NewRecorder()
	body := `{"order_code":"GHN123","status":"Delivered","time":"2025-03-02T08:00:00Z"}`
	CarrierWebhook(applier, "secret", nil).ServeHTTP(rec, carrierRequest(body, "secret"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if applier.last.CarrierOrderCode != "GHN123" || applier.last.Status != enums.OrderStatusDelivered {
		t.Fatalf("unexpected input %+v", applier.last)
	}
	if !applier.last.OccurredAt.Equal(time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected occurred at %s", applier.last.OccurredAt)
	}
}

func TestCarrierWebhookMapsCancelSpelling(t *testing.T) {
	applier := &fakeCarrierApplier{}
	rec := httptest.NewRecorder()
	CarrierWebhook(applier, "secret", nil).ServeHTTP(rec, carrierRequest(`{"order_code":"GHN123","status":"cancel"}`, "secret"))
	if rec.Code != http.StatusOK || applier.last.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %d %+v", rec.Code, applier.last)
	}
}

func TestCarrierWebhookRequiresToken(t *testing.T) {
	body := `{"order_code":"GHN123","status":"picking"}`
	for _, tc := range []struct {
		configured string
		provided   string
	}{
		{"secret", ""},
		{"secret", "wrong"},
		{"", ""},
	} {
		applier := &fakeCarrierApplier{}
		rec := httptest.NewRecorder()
		CarrierWebhook(applier, tc.configured, nil).ServeHTTP(rec, carrierRequest(body, tc.provided))
		if rec.Code != http.StatusUnauthorized || applier.calls != 0 {
			t.Fatalf("configured=%q provided=%q: expected 401, got %d", tc.configured, tc.provided, rec.Code)
		}
	}
}

func TestCarrierWebhookUnknownStatusAndOrder(t *testing.T) {
	rec := httptest.NewRecorder()
	CarrierWebhook(&fakeCarrierApplier{}, "secret", nil).ServeHTTP(rec, carrierRequest(`{"order_code":"GHN123","status":"teleported"}`, "secret"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	applier := &fakeCarrierApplier{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found for carrier code")}
	rec = httptest.NewRecorder()
	CarrierWebhook(applier, "secret", nil).ServeHTTP(rec, carrierRequest(`{"order_code":"NOPE","status":"picking"}`, "secret"))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
