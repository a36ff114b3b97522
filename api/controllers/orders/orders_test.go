package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestlink/market-backend/api/middleware"
	internalorders "github.com/harvestlink/market-backend/internal/orders"
	"github.com/harvestlink/market-backend/pkg/enums"
	pkgerrors "github.com/harvestlink/market-backend/pkg/errors"
	"github.com/harvestlink/market-backend/pkg/logger"
)

type stubService struct {
	created  *internalorders.CreateOrderInput
	updated  *internalorders.UpdateOrderInput
	action   *internalorders.OrderActionInput
	refund   *internalorders.ApplyRefundInput
	listed   *internalorders.ListOrdersInput
	farmer   bool
	err      error
	response *internalorders.OrderView
}

func (s *stubService) CreateOrder(_ context.Context, input internalorders.CreateOrderInput) (*internalorders.OrderView, error) {
	s.created = &input
	return s.response, s.err
}

func (s *stubService) UpdateOrder(_ context.Context, input internalorders.UpdateOrderInput) (*internalorders.OrderView, error) {
	s.updated = &input
	return s.response, s.err
}

func (s *stubService) GetOrderDetail(_ context.Context, input internalorders.OrderActionInput) (*internalorders.OrderView, error) {
	s.action = &input
	return s.response, s.err
}

func (s *stubService) GetFarmerOrderDetail(_ context.Context, input internalorders.OrderActionInput) (*internalorders.OrderView, error) {
	s.action = &input
	s.farmer = true
	return s.response, s.err
}

func (s *stubService) ListOrders(_ context.Context, input internalorders.ListOrdersInput) (*internalorders.OrderList, error) {
	s.listed = &input
	return &internalorders.OrderList{Orders: []internalorders.OrderView{}}, s.err
}

func (s *stubService) ListFarmerOrders(_ context.Context, input internalorders.ListOrdersInput) (*internalorders.OrderList, error) {
	s.listed = &input
	s.farmer = true
	return &internalorders.OrderList{Orders: []internalorders.OrderView{}}, s.err
}

func (s *stubService) ConfirmReceipt(_ context.Context, input internalorders.OrderActionInput) (*internalorders.OrderView, error) {
	s.action = &input
	return s.response, s.err
}

func (s *stubService) ApplyRefund(_ context.Context, input internalorders.ApplyRefundInput) (*internalorders.OrderView, error) {
	s.refund = &input
	return s.response, s.err
}

func (s *stubService) CancelOrder(_ context.Context, input internalorders.OrderActionInput) (*internalorders.OrderView, error) {
	s.action = &input
	return s.response, s.err
}

const buyerPhone = "13800000001"

func testRouter(svc internalorders.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "orders-controller-test", Output: io.Discard})
	r := chi.NewRouter()
	r.Use(middleware.ActorPhone(logg))
	r.Post("/orders", Create(svc, logg))
	r.Get("/orders", List(svc, logg))
	r.Get("/orders/{orderId}", Detail(svc, logg))
	r.Patch("/orders/{orderId}", Update(svc, logg))
	r.Post("/orders/{orderId}/confirm-receipt", ConfirmReceipt(svc, logg))
	r.Post("/orders/{orderId}/refund", Refund(svc, logg))
	r.Post("/orders/{orderId}/cancel", Cancel(svc, logg))
	r.Get("/farmer/orders", FarmerList(svc, logg))
	r.Get("/farmer/orders/{orderId}", FarmerDetail(svc, logg))
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("X-Actor-Phone", buyerPhone)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateAnswersCreatedWithActorPhone(t *testing.T) {
	svc := &stubService{response: &internalorders.OrderView{OrderID: "o-1", TotalAmount: "20.00"}}

	rec := do(testRouter(svc), http.MethodPost, "/orders", `{"product_id":7,"quantity":2,"buyer_name":"Li","buyer_address":"1 Farm Road","buyer_phone":"13900000009"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, buyerPhone, svc.created.Phone)
	assert.Equal(t, int64(7), svc.created.ProductID)
	assert.Equal(t, 2, svc.created.Quantity)

	var body struct {
		Data internalorders.OrderView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "20.00", body.Data.TotalAmount)
}

func TestCreateRejectsClientSuppliedPrice(t *testing.T) {
	svc := &stubService{}

	rec := do(testRouter(svc), http.MethodPost, "/orders", `{"product_id":7,"quantity":2,"price":"0.01"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.created)
}

func TestActionRoutesParseOrderID(t *testing.T) {
	orderID := uuid.New()
	paths := []string{
		"/orders/" + orderID.String(),
		"/orders/" + orderID.String() + "/confirm-receipt",
		"/orders/" + orderID.String() + "/cancel",
	}
	for _, path := range paths {
		svc := &stubService{response: &internalorders.OrderView{}}
		method := http.MethodPost
		if !strings.Contains(path, "-receipt") && !strings.HasSuffix(path, "/cancel") {
			method = http.MethodGet
		}
		rec := do(testRouter(svc), method, path, "")

		require.Equal(t, http.StatusOK, rec.Code, path)
		require.NotNil(t, svc.action, path)
		assert.Equal(t, orderID, svc.action.OrderID, path)
		assert.Equal(t, buyerPhone, svc.action.Phone, path)
	}
}

func TestActionRejectsMalformedOrderID(t *testing.T) {
	svc := &stubService{}

	rec := do(testRouter(svc), http.MethodGet, "/orders/not-a-uuid", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.action)
}

func TestRefundPassesReasonAndType(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{response: &internalorders.OrderView{}}

	rec := do(testRouter(svc), http.MethodPost, "/orders/"+orderID.String()+"/refund", `{"reason":"damaged","type":"return_and_refund"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.refund)
	assert.Equal(t, "damaged", svc.refund.Reason)
	assert.Equal(t, enums.RefundTypeReturnAndRefund, svc.refund.Type)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeConflict, "cannot refund twice")}

	rec := do(testRouter(svc), http.MethodPost, "/orders/"+orderID.String()+"/refund", `{"reason":"late","type":"return_and_refund"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot refund twice")
}

func TestUpdatePassesOptionalFields(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{response: &internalorders.OrderView{}}

	rec := do(testRouter(svc), http.MethodPatch, "/orders/"+orderID.String(), `{"buyer_address":"2 Orchard Lane"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated)
	assert.Equal(t, orderID, svc.updated.OrderID)
	require.NotNil(t, svc.updated.BuyerAddress)
	assert.Equal(t, "2 Orchard Lane", *svc.updated.BuyerAddress)
	assert.Nil(t, svc.updated.BuyerName)
}

func TestListParsesQuery(t *testing.T) {
	svc := &stubService{}

	rec := do(testRouter(svc), http.MethodGet, "/orders?status=shipped&title=apple&limit=5&cursor=abc", "")

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listed)
	require.NotNil(t, svc.listed.Status)
	assert.Equal(t, enums.OrderStatusShipped, *svc.listed.Status)
	assert.Equal(t, "apple", svc.listed.Title)
	assert.Equal(t, 5, svc.listed.Limit)
	assert.Equal(t, "abc", svc.listed.Cursor)
	assert.False(t, svc.farmer)
}

func TestListRejectsOversizedLimit(t *testing.T) {
	svc := &stubService{}

	rec := do(testRouter(svc), http.MethodGet, "/orders?limit=1000", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.listed)
}

func TestFarmerRoutesUseFarmerOperations(t *testing.T) {
	svc := &stubService{response: &internalorders.OrderView{}}
	h := testRouter(svc)

	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/farmer/orders", "").Code)
	assert.True(t, svc.farmer)

	svc.farmer = false
	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/farmer/orders/"+uuid.NewString(), "").Code)
	assert.True(t, svc.farmer)
}
