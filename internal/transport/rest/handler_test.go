package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ordererrors "github.com/abgdnv/orders/internal/errors"
	"github.com/abgdnv/orders/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockOrderService is a mock implementation of the OrderService interface
type mockOrderService struct {
	order      *service.OrderDto
	orders     []service.OrderDto
	page       *service.OrderListDto
	stocks     []service.StockDto
	count      int64
	error      error
	credential string
}

func (m *mockOrderService) Create(_ context.Context, credential string, _ service.OrderCreateDto) (*service.OrderDto, []service.StockDto, error) {
	m.credential = credential
	if m.error != nil {
		return nil, nil, m.error
	}
	return m.order, m.stocks, nil
}

func (m *mockOrderService) FindByID(_ context.Context, _ uuid.UUID) (*service.OrderDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.order, nil
}

func (m *mockOrderService) Update(_ context.Context, credential string, _ uuid.UUID, _ service.OrderUpdateDto) (*service.OrderDto, []service.StockDto, error) {
	m.credential = credential
	if m.error != nil {
		return nil, nil, m.error
	}
	return m.order, m.stocks, nil
}

func (m *mockOrderService) Delete(_ context.Context, _ uuid.UUID) (*service.OrderDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.order, nil
}

func (m *mockOrderService) List(_ context.Context, _, _ int32) (*service.OrderListDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.page, nil
}

func (m *mockOrderService) FindByClient(_ context.Context, _ uuid.UUID) ([]service.OrderDto, error) {
	if m.error != nil {
		return nil, m.error
	}
	return m.orders, nil
}

func (m *mockOrderService) Count(_ context.Context) (int64, error) {
	if m.error != nil {
		return 0, m.error
	}
	return m.count, nil
}

func newTestRouter(svc service.OrderService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := chi.NewRouter()
	NewHandler(svc, logger).RegisterRoutes(mux)
	return mux
}

func doRequest(t *testing.T, handler http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func Test_Handler_RequiresBearerCredential(t *testing.T) {
	handler := newTestRouter(&mockOrderService{})

	tests := []struct {
		name string
		auth string
	}{
		{name: "missing header"},
		{name: "not a bearer token", auth: "Basic dXNlcjpwYXNz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodGet, "/api/v1/orders/count", tc.auth, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func Test_Handler_HealthNeedsNoCredential(t *testing.T) {
	handler := newTestRouter(&mockOrderService{})
	rec := doRequest(t, handler, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_Handler_Create(t *testing.T) {
	clientID := uuid.New()
	productID := uuid.New()
	orderID := uuid.New()
	remaining := int32(8)

	t.Run("returns 201 with the order and stock results", func(t *testing.T) {
		svc := &mockOrderService{
			order: &service.OrderDto{ID: orderID, Number: "1", Status: "confirmed", Total: 10},
			stocks: []service.StockDto{
				{Kind: "product", ReferenceID: productID, Quantity: 2, Remaining: &remaining},
			},
		}
		handler := newTestRouter(svc)

		body := `{"client_id":"` + clientID.String() + `","payment_type":"card","items":[{"product_id":"` + productID.String() + `","quantity":2}]}`
		rec := doRequest(t, handler, http.MethodPost, "/api/v1/orders", "Bearer token-1", body)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Bearer token-1", svc.credential)

		var response struct {
			Order  service.OrderDto   `json:"order"`
			Stocks []service.StockDto `json:"stocks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, orderID, response.Order.ID)
		require.Len(t, response.Stocks, 1)
		require.NotNil(t, response.Stocks[0].Remaining)
		assert.Equal(t, int32(8), *response.Stocks[0].Remaining)
	})

	t.Run("missing payment type fails validation", func(t *testing.T) {
		handler := newTestRouter(&mockOrderService{})
		body := `{"client_id":"` + clientID.String() + `","items":[{"product_id":"` + productID.String() + `","quantity":1}]}`
		rec := doRequest(t, handler, http.MethodPost, "/api/v1/orders", "Bearer t", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var response struct {
			ValidationErrors map[string]string `json:"validation_errors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Contains(t, response.ValidationErrors, "PaymentType")
	})

	t.Run("empty item list fails validation", func(t *testing.T) {
		handler := newTestRouter(&mockOrderService{})
		body := `{"client_id":"` + clientID.String() + `","payment_type":"card","items":[]}`
		rec := doRequest(t, handler, http.MethodPost, "/api/v1/orders", "Bearer t", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		handler := newTestRouter(&mockOrderService{})
		rec := doRequest(t, handler, http.MethodPost, "/api/v1/orders", "Bearer t", "{not json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_Handler_Create_ErrorMapping(t *testing.T) {
	clientID := uuid.New()
	productID := uuid.New()
	body := `{"client_id":"` + clientID.String() + `","payment_type":"card","items":[{"product_id":"` + productID.String() + `","quantity":1}]}`

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "unknown product", err: ordererrors.ErrProductNotFound, wantCode: http.StatusNotFound},
		{name: "unknown client", err: ordererrors.ErrClientNotFound, wantCode: http.StatusNotFound},
		{name: "insufficient stock", err: ordererrors.ErrInsufficientStock, wantCode: http.StatusBadRequest},
		{name: "invalid upstream price", err: ordererrors.ErrInvalidPrice, wantCode: http.StatusInternalServerError},
		{name: "upstream failure", err: ordererrors.ErrUpstream, wantCode: http.StatusInternalServerError},
		{name: "reconciliation failure", err: ordererrors.ErrStockReconcile, wantCode: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(&mockOrderService{error: tc.err})
			rec := doRequest(t, handler, http.MethodPost, "/api/v1/orders", "Bearer t", body)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func Test_Handler_List(t *testing.T) {
	t.Run("returns one page", func(t *testing.T) {
		svc := &mockOrderService{
			page: &service.OrderListDto{
				Orders: []service.OrderDto{{ID: uuid.New(), Number: "1"}},
				Pagination: service.PageDto{
					CurrentPage: 1, TotalPages: 1, TotalOrders: 1,
				},
			},
		}
		handler := newTestRouter(svc)
		rec := doRequest(t, handler, http.MethodGet, "/api/v1/orders?page=1&limit=10", "Bearer t", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var response service.OrderListDto
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Len(t, response.Orders, 1)
		assert.Equal(t, int64(1), response.Pagination.TotalOrders)
	})

	tests := []struct {
		name  string
		query string
	}{
		{name: "missing page", query: "?limit=10"},
		{name: "page below one", query: "?page=0&limit=10"},
		{name: "limit below one", query: "?page=1&limit=0"},
		{name: "limit above the cap is rejected, not truncated", query: "?page=1&limit=150"},
		{name: "non-numeric page", query: "?page=abc&limit=10"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := newTestRouter(&mockOrderService{})
			rec := doRequest(t, handler, http.MethodGet, "/api/v1/orders"+tc.query, "Bearer t", "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func Test_Handler_Count(t *testing.T) {
	handler := newTestRouter(&mockOrderService{count: 42})
	rec := doRequest(t, handler, http.MethodGet, "/api/v1/orders/count", "Bearer t", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, int64(42), response["total_orders"])
}

func Test_Handler_FindByID(t *testing.T) {
	orderID := uuid.New()

	t.Run("returns the order", func(t *testing.T) {
		svc := &mockOrderService{order: &service.OrderDto{ID: orderID, Number: "7"}}
		handler := newTestRouter(svc)
		rec := doRequest(t, handler, http.MethodGet, "/api/v1/orders/"+orderID.String(), "Bearer t", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var response service.OrderDto
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, orderID, response.ID)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		handler := newTestRouter(&mockOrderService{error: ordererrors.ErrOrderNotFound})
		rec := doRequest(t, handler, http.MethodGet, "/api/v1/orders/"+orderID.String(), "Bearer t", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		handler := newTestRouter(&mockOrderService{})
		rec := doRequest(t, handler, http.MethodGet, "/api/v1/orders/not-a-uuid", "Bearer t", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_Handler_Update(t *testing.T) {
	orderID := uuid.New()
	productID := uuid.New()
	body := `{"items":[{"product_id":"` + productID.String() + `","quantity":3}]}`

	t.Run("returns the updated order with stock results", func(t *testing.T) {
		svc := &mockOrderService{
			order:  &service.OrderDto{ID: orderID, Number: "7", Total: 21},
			stocks: []service.StockDto{{Kind: "product", ReferenceID: productID, Quantity: 3}},
		}
		handler := newTestRouter(svc)
		rec := doRequest(t, handler, http.MethodPut, "/api/v1/orders/"+orderID.String(), "Bearer t", body)
		require.Equal(t, http.StatusOK, rec.Code)

		var response struct {
			Order  service.OrderDto   `json:"order"`
			Stocks []service.StockDto `json:"stocks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, int64(21), response.Order.Total)
		assert.Len(t, response.Stocks, 1)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		handler := newTestRouter(&mockOrderService{error: ordererrors.ErrOrderNotFound})
		rec := doRequest(t, handler, http.MethodPut, "/api/v1/orders/"+orderID.String(), "Bearer t", body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("empty item list fails validation", func(t *testing.T) {
		handler := newTestRouter(&mockOrderService{})
		rec := doRequest(t, handler, http.MethodPut, "/api/v1/orders/"+orderID.String(), "Bearer t", `{"items":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_Handler_Delete(t *testing.T) {
	orderID := uuid.New()

	t.Run("returns the removed order", func(t *testing.T) {
		svc := &mockOrderService{order: &service.OrderDto{ID: orderID, Number: "7"}}
		handler := newTestRouter(svc)
		rec := doRequest(t, handler, http.MethodDelete, "/api/v1/orders/"+orderID.String(), "Bearer t", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var response service.OrderDto
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
		assert.Equal(t, orderID, response.ID)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		handler := newTestRouter(&mockOrderService{error: ordererrors.ErrOrderNotFound})
		rec := doRequest(t, handler, http.MethodDelete, "/api/v1/orders/"+orderID.String(), "Bearer t", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_Handler_ListByClient(t *testing.T) {
	clientID := uuid.New()

	svc := &mockOrderService{orders: []service.OrderDto{{ID: uuid.New()}, {ID: uuid.New()}}}
	handler := newTestRouter(svc)
	rec := doRequest(t, handler, http.MethodGet, "/api/v1/orders/client/"+clientID.String(), "Bearer t", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Orders []service.OrderDto `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Len(t, response.Orders, 2)
}
