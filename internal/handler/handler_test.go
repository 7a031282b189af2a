package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vpopov/shipman/internal/model"
	"github.com/vpopov/shipman/internal/notify"
	notifyConfig "github.com/vpopov/shipman/internal/notify/config"
	"github.com/vpopov/shipman/internal/repository"
)

type memStore struct {
	orders []model.OrderRecord
}

func (m *memStore) Load(_ context.Context) ([]model.OrderRecord, error) {
	return m.orders, nil
}

func (m *memStore) Save(_ context.Context, orders []model.OrderRecord) error {
	m.orders = orders
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestRouter(t *testing.T) *http.ServeMux {
	t.Helper()
	repo, err := repository.NewRepository(context.Background(), &memStore{})
	require.NoError(t, err)
	notifier := notify.NewNotifier(notifyConfig.Config{BaseURL: "http://host/"})
	h := newHandler(repo, notifier, zap.NewNop())
	return h.newRouter()
}

func doJSON(t *testing.T, router *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	r := httptest.NewRequest(method, target, &reqBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func createOrder(t *testing.T, router *http.ServeMux, orderNumber, customerName string) OrderJSONResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/orders", CreateOrderJSONRequest{
		OrderContent: "widgets",
		OrderNumber:  orderNumber,
		ShippingDate: "2024-06-01",
		CustomerName: customerName,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var order OrderJSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	return order
}

func TestCreateOrderHandler(t *testing.T) {
	router := newTestRouter(t)

	order := createOrder(t, router, "A-100", "Acme")
	require.Equal(t, model.OrderStatusPending, order.Status)
	require.Equal(t, "awaiting shipment", order.StatusLabel)
	require.Equal(t, fmt.Sprintf("A-100-%d", order.ID), order.ManagementNumber)

	// Дубликат номера заказа
	w := doJSON(t, router, http.MethodPost, "/api/orders", CreateOrderJSONRequest{
		OrderContent: "bolts",
		OrderNumber:  "A-100",
		ShippingDate: "2024-06-02",
		CustomerName: "Globex",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	// Пустое обязательное поле
	w = doJSON(t, router, http.MethodPost, "/api/orders", CreateOrderJSONRequest{
		OrderNumber:  "B-200",
		ShippingDate: "2024-06-02",
		CustomerName: "Globex",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrdersHandler(t *testing.T) {
	router := newTestRouter(t)

	// Пустая коллекция
	w := doJSON(t, router, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	createOrder(t, router, "A-100", "Acme Corp")
	createOrder(t, router, "B-200", "Globex")

	// Полный список, новые в начале
	w = doJSON(t, router, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []OrderJSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	require.Equal(t, "B-200", orders[0].OrderNumber)

	// Поиск без учета регистра
	w = doJSON(t, router, http.MethodGet, "/api/orders?q=ACME", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Equal(t, "Acme Corp", orders[0].CustomerName)

	// Фильтр по статусу
	w = doJSON(t, router, http.MethodGet, "/api/orders?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 2)

	w = doJSON(t, router, http.MethodGet, "/api/orders?status=shipped", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestGetOrderHandler(t *testing.T) {
	router := newTestRouter(t)

	order := createOrder(t, router, "A-100", "Acme")

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got OrderJSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, order.ManagementNumber, got.ManagementNumber)

	// Поиск по управляющему номеру
	w = doJSON(t, router, http.MethodGet, "/api/detail/"+order.ManagementNumber, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/orders/404", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/detail/A-100-0", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditOrderHandler(t *testing.T) {
	router := newTestRouter(t)

	order := createOrder(t, router, "A-100", "Acme")
	createOrder(t, router, "B-200", "Globex")

	tracking := "TRK1"
	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/orders/%d", order.ID), EditOrderJSONRequest{
		TrackingNumber: &tracking,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got OrderJSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "TRK1", got.TrackingNumber)
	require.Equal(t, model.OrderStatusPending, got.Status)

	// Чужой номер заказа занят
	taken := "B-200"
	w = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/orders/%d", order.ID), EditOrderJSONRequest{
		OrderNumber: &taken,
	})
	require.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/orders/404", EditOrderJSONRequest{TrackingNumber: &tracking})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdvanceOrderStatusHandler(t *testing.T) {
	router := newTestRouter(t)

	order := createOrder(t, router, "A-100", "Acme")
	target := fmt.Sprintf("/api/orders/%d/status", order.ID)

	var resp AdvanceStatusJSONResponse

	w := doJSON(t, router, http.MethodPost, target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Transitioned)
	require.Equal(t, model.OrderStatusShipped, resp.Order.Status)
	require.NotEmpty(t, resp.Order.ActualShippingDate)

	w = doJSON(t, router, http.MethodPost, target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Transitioned)
	require.Equal(t, model.OrderStatusDelivered, resp.Order.Status)

	// Конечный статус - сообщается без изменения
	w = doJSON(t, router, http.MethodPost, target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Transitioned)
	require.Equal(t, model.OrderStatusDelivered, resp.Order.Status)

	w = doJSON(t, router, http.MethodPost, "/api/orders/404/status", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOrderHandler(t *testing.T) {
	router := newTestRouter(t)

	order := createOrder(t, router, "A-100", "Acme")
	target := fmt.Sprintf("/api/orders/%d", order.ID)

	w := doJSON(t, router, http.MethodDelete, target, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, target, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, target, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderNotificationHandler(t *testing.T) {
	router := newTestRouter(t)

	order := createOrder(t, router, "A-100", "Acme")

	w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/orders/%d/notification", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload notify.Payload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, order.ManagementNumber, payload.ManagementNumber)
	require.Contains(t, payload.Message, "Order number: A-100")
	require.Contains(t, payload.DetailURL, "#detail/"+order.ManagementNumber)

	// Webhook не настроен
	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/orders/%d/notify", order.ID), nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
