package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrders struct {
	internalorders.Service
	listAllCalls int
}

func (s *stubOrders) ListAll(context.Context, internalorders.ListFilter) (*internalorders.OrderList, error) {
	s.listAllCalls++
	return &internalorders.OrderList{}, nil
}

func (s *stubOrders) ListForUser(context.Context, uuid.UUID, pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "storefront", ExpirationMinutes: 15},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
}

func bearer(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func newTestRouter(orders *stubOrders) (http.Handler, *config.Config) {
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_router_test_total", Help: "test"}))
	return NewRouter(cfg, testLogger(), Dependencies{
		DB:       stubPinger{},
		Redis:    stubPinger{},
		Gatherer: reg,
		Orders:   orders,
	}), cfg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router, _ := newTestRouter(&stubOrders{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		if resp := serve(router, httptest.NewRequest(http.MethodGet, path, nil)); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}

	resp := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "storefront_router_test_total") {
		t.Fatalf("expected metrics exposition, got %d", resp.Code)
	}
}

func TestCustomerRoutesRequireToken(t *testing.T) {
	router, cfg := newTestRouter(&stubOrders{})

	if resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.ActorRoleCustomer))
	if resp := serve(router, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminRoutesRequireOperator(t *testing.T) {
	orders := &stubOrders{}
	router, cfg := newTestRouter(orders)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.ActorRoleCustomer))
	if resp := serve(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?status=pending", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.ActorRoleOperator))
	if resp := serve(router, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for operator, got %d", resp.Code)
	}
	if orders.listAllCalls != 1 {
		t.Fatalf("expected ListAll to be called once, got %d", orders.listAllCalls)
	}
}

func TestWebhooksSkipBearerAuth(t *testing.T) {
	router, _ := newTestRouter(&stubOrders{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/carrier", strings.NewReader(`{"order_code":"X","status":"picking"}`))
	resp := serve(router, req)
	if resp.Code != http.StatusUnauthorized || !strings.Contains(resp.Body.String(), "invalid carrier token") {
		t.Fatalf("expected carrier token rejection, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestUnwiredServicesAnswerInternalError(t *testing.T) {
	router, cfg := newTestRouter(&stubOrders{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.ActorRoleCustomer))
	if resp := serve(router, req); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}

	if resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
