package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubOrders struct {
	internalorders.Service

	order      *models.Order
	list       *internalorders.OrderList
	err        error
	link       string
	lastCancel internalorders.CancelInput
	lastReject internalorders.RejectInput
	lastGet    internalorders.GetInput
	lastFilter internalorders.ListFilter
	lastParams pagination.Params
}

func (s *stubOrders) Get(_ context.Context, input internalorders.GetInput) (*models.Order, error) {
	s.lastGet = input
	return s.order, s.err
}

func (s *stubOrders) ListForUser(_ context.Context, _ uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	s.lastParams = params
	return s.list, s.err
}

func (s *stubOrders) ListAll(_ context.Context, filter internalorders.ListFilter) (*internalorders.OrderList, error) {
	s.lastFilter = filter
	return s.list, s.err
}

func (s *stubOrders) Cancel(_ context.Context, input internalorders.CancelInput) (*models.Order, error) {
	s.lastCancel = input
	return s.order, s.err
}

func (s *stubOrders) Reject(_ context.Context, input internalorders.RejectInput) (*models.Order, error) {
	s.lastReject = input
	return s.order, s.err
}

func (s *stubOrders) RefundLink(context.Context, internalorders.RefundLinkInput) (string, error) {
	return s.link, s.err
}

type stubAddresses struct {
	desc address.Description
	err  error
}

func (s stubAddresses) Describe(context.Context, int, int, string) (address.Description, error) {
	return s.desc, s.err
}

func actorRequest(method, target, body string, userID uuid.UUID, role enums.ActorRole, orderID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	if orderID != "" {
		rc := chi.NewRouteContext()
		rc.URLParams.Add("orderId", orderID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func sampleOrder() *models.Order {
	paymentStatus := enums.PaymentStatusPending
	return &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentMethod: enums.PaymentMethodOnline,
		PaymentStatus: &paymentStatus,
		AddressLine:   "12 Ly Thuong Kiet",
		ProvinceCode:  201,
		DistrictCode:  1442,
		WardCode:      "20308",
		ShippingFee:   30000,
		TotalPrice:    130000,
		Items: []models.OrderItem{
			{ID: uuid.New(), VariantID: uuid.New(), Quantity: 2, UnitPrice: 50000},
		},
	}
}

func decodeOrder(t *testing.T, resp *httptest.ResponseRecorder) OrderResponse {
	t.Helper()
	var envelope struct {
		Data OrderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func TestDetailEnrichesAddressNames(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrders{order: order}
	addresses := stubAddresses{desc: address.Description{ProvinceName: "Ha Noi", DistrictName: "Hoan Kiem", WardName: "Trang Tien"}}
	handler := Detail(svc, addresses, nil)

	userID := order.UserID
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, actorRequest(http.MethodGet, "/api/v1/orders/"+order.ID.String(), "", userID, enums.ActorRoleCustomer, order.ID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	body := decodeOrder(t, resp)
	if body.Destination.Formatted != "12 Ly Thuong Kiet, Trang Tien, Hoan Kiem, Ha Noi" {
		t.Fatalf("unexpected formatted address %q", body.Destination.Formatted)
	}
	if body.Subtotal != 100000 || body.Items[0].LineTotal != 100000 {
		t.Fatalf("unexpected totals %+v", body)
	}
	if svc.lastGet.ActorUserID != userID || svc.lastGet.ActorRole != enums.ActorRoleCustomer {
		t.Fatalf("actor not forwarded: %+v", svc.lastGet)
	}
}

func TestDetailSurvivesDirectoryOutage(t *testing.T) {
	order := sampleOrder()
	handler := Detail(&stubOrders{order: order}, stubAddresses{err: errors.New("directory down")}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, actorRequest(http.MethodGet, "/", "", order.UserID, enums.ActorRoleCustomer, order.ID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if body := decodeOrder(t, resp); body.Destination.Names != nil {
		t.Fatalf("expected no names, got %+v", body.Destination.Names)
	}
}

func TestDetailForeignOrderIsForbidden(t *testing.T) {
	handler := Detail(&stubOrders{err: pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")}, nil, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, actorRequest(http.MethodGet, "/", "", uuid.New(), enums.ActorRoleCustomer, uuid.NewString()))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestListForwardsPagination(t *testing.T) {
	svc := &stubOrders{list: &internalorders.OrderList{Orders: []models.Order{*sampleOrder()}, NextCursor: "abc"}}
	handler := List(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, actorRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=xyz", "", uuid.New(), enums.ActorRoleCustomer, ""))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastParams.Limit != 5 || svc.lastParams.Cursor != "xyz" {
		t.Fatalf("unexpected params %+v", svc.lastParams)
	}
	var envelope struct {
		Data listResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.NextCursor != "abc" {
		t.Fatalf("unexpected list %+v", envelope.Data)
	}
}

func TestListRequiresAuthentication(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubOrders{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminListParsesStatusFilter(t *testing.T) {
	svc := &stubOrders{list: &internalorders.OrderList{}}
	handler := AdminList(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, actorRequest(http.MethodGet, "/api/v1/admin/orders?status=confirmed", "", uuid.New(), enums.ActorRoleOperator, ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastFilter.Status == nil || *svc.lastFilter.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed filter, got %+v", svc.lastFilter.Status)
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, actorRequest(http.MethodGet, "/api/v1/admin/orders?status=lost", "", uuid.New(), enums.ActorRoleOperator, ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.Code)
	}
}

func TestCancelAcceptsEmptyBody(t *testing.T) {
	order := sampleOrder()
	svc := &stubOrders{order: order}
	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, actorRequest(http.MethodPost, "/", "", order.UserID, enums.ActorRoleCustomer, order.ID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastCancel.OrderID != order.ID || svc.lastCancel.Reason != "" {
		t.Fatalf("unexpected cancel input %+v", svc.lastCancel)
	}
}

func TestCancelStateConflictMapsTo422(t *testing.T) {
	svc := &stubOrders{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be canceled")}
	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, actorRequest(http.MethodPost, "/", `{"reason":"  changed my mind  "}`, uuid.New(), enums.ActorRoleCustomer, uuid.NewString()))

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if svc.lastCancel.Reason != "changed my mind" {
		t.Fatalf("expected trimmed reason, got %q", svc.lastCancel.Reason)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc := &stubOrders{order: sampleOrder()}
	resp := httptest.NewRecorder()
	Reject(svc, nil).ServeHTTP(resp, actorRequest(http.MethodPost, "/", `{}`, uuid.New(), enums.ActorRoleOperator, uuid.NewString()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	Reject(svc, nil).ServeHTTP(resp, actorRequest(http.MethodPost, "/", `{"reason":"out of stock"}`, uuid.New(), enums.ActorRoleOperator, uuid.NewString()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.lastReject.Reason != "out of stock" || svc.lastReject.ActorRole != enums.ActorRoleOperator {
		t.Fatalf("unexpected reject input %+v", svc.lastReject)
	}
}

func TestRefundLinkReturnsURL(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrders{link: "https://img.vietqr.io/image/970422-0123-compact2.png?amount=130000"}
	resp := httptest.NewRecorder()
	RefundLink(svc, nil).ServeHTTP(resp, actorRequest(http.MethodPost, "/", "", uuid.New(), enums.ActorRoleOperator, orderID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data refundLinkResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.OrderID != orderID || envelope.Data.URL != svc.link {
		t.Fatalf("unexpected body %+v", envelope.Data)
	}
}
