package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/vpopov/shipman/internal/gzip"
	"github.com/vpopov/shipman/internal/handler/config"
	"github.com/vpopov/shipman/internal/logger"
	"github.com/vpopov/shipman/internal/model"
	"github.com/vpopov/shipman/internal/notify"
	"github.com/vpopov/shipman/internal/repository"
)

func Serve(cfg config.Config, repo repository.Repository, notifier notify.Notifier, zaplog *zap.Logger) error {
	h := newHandler(repo, notifier, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	return srv.ListenAndServe()
}

type handler struct {
	repo     repository.Repository
	notifier notify.Notifier
	zaplog   *zap.Logger
}

func newHandler(repo repository.Repository, notifier notify.Notifier, zaplog *zap.Logger) *handler {
	return &handler{
		repo:     repo,
		notifier: notifier,
		zaplog:   zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", gzip.GzipMiddleware(logger.RequestLogMdlw(h.CreateOrder, h.zaplog)))
	mux.HandleFunc("GET /api/orders", gzip.GzipMiddleware(logger.RequestLogMdlw(h.GetOrders, h.zaplog)))
	mux.HandleFunc("GET /api/orders/{id}", gzip.GzipMiddleware(logger.RequestLogMdlw(h.GetOrder, h.zaplog)))
	mux.HandleFunc("GET /api/detail/{managementNumber}", gzip.GzipMiddleware(logger.RequestLogMdlw(h.GetOrderByManagementNumber, h.zaplog)))
	mux.HandleFunc("PUT /api/orders/{id}", gzip.GzipMiddleware(logger.RequestLogMdlw(h.EditOrder, h.zaplog)))
	mux.HandleFunc("POST /api/orders/{id}/status", gzip.GzipMiddleware(logger.RequestLogMdlw(h.AdvanceOrderStatus, h.zaplog)))
	mux.HandleFunc("DELETE /api/orders/{id}", gzip.GzipMiddleware(logger.RequestLogMdlw(h.DeleteOrder, h.zaplog)))
	mux.HandleFunc("GET /api/orders/{id}/notification", gzip.GzipMiddleware(logger.RequestLogMdlw(h.GetOrderNotification, h.zaplog)))
	mux.HandleFunc("POST /api/orders/{id}/notify", gzip.GzipMiddleware(logger.RequestLogMdlw(h.PushOrderNotification, h.zaplog)))

	return mux
}

type OrderJSONResponse struct {
	ID                 int64     `json:"id"`
	ManagementNumber   string    `json:"managementNumber"`
	OrderNumber        string    `json:"orderNumber"`
	OrderContent       string    `json:"orderContent"`
	ShippingDate       string    `json:"shippingDate"`
	CustomerName       string    `json:"customerName"`
	Status             string    `json:"status"`
	StatusLabel        string    `json:"statusLabel"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	TrackingNumber     string    `json:"trackingNumber,omitempty"`
	ActualShippingDate string    `json:"actualShippingDate,omitempty"`
	Notes              string    `json:"notes,omitempty"`
}

func orderJSON(order model.OrderRecord) OrderJSONResponse {
	return OrderJSONResponse{
		ID:                 order.ID,
		ManagementNumber:   order.ManagementNumber,
		OrderNumber:        order.OrderNumber,
		OrderContent:       order.OrderContent,
		ShippingDate:       order.ShippingDate,
		CustomerName:       order.CustomerName,
		Status:             order.Status,
		StatusLabel:        model.StatusLabel(order.Status),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
		TrackingNumber:     order.TrackingNumber,
		ActualShippingDate: order.ActualShippingDate,
		Notes:              order.Notes,
	}
}

type CreateOrderJSONRequest struct {
	OrderContent string `json:"orderContent"`
	OrderNumber  string `json:"orderNumber"`
	ShippingDate string `json:"shippingDate"`
	CustomerName string `json:"customerName"`
}

func (h *handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.repo.Create(r.Context(), req.OrderContent, req.OrderNumber, req.ShippingDate, req.CustomerName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, orderJSON(order))
}

func (h *handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	// Поиск и фильтр не совмещаются: либо q, либо status
	var orders []model.OrderRecord
	if term := r.URL.Query().Get("q"); term != "" {
		orders = h.repo.Search(term)
	} else if status := r.URL.Query().Get("status"); status != "" {
		orders = h.repo.FilterByStatus(status)
	} else {
		orders = h.repo.List()
	}

	if len(orders) == 0 {
		http.Error(w, "", http.StatusNoContent)
		return
	}

	ordersJSON := make([]OrderJSONResponse, 0, len(orders))
	for _, order := range orders {
		ordersJSON = append(ordersJSON, orderJSON(order))
	}
	h.writeJSON(w, http.StatusOK, ordersJSON)
}

func (h *handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, ok := h.repo.FindByID(id)
	if !ok {
		http.Error(w, repository.ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, orderJSON(order))
}

func (h *handler) GetOrderByManagementNumber(w http.ResponseWriter, r *http.Request) {
	order, ok := h.repo.FindByManagementNumber(r.PathValue("managementNumber"))
	if !ok {
		http.Error(w, repository.ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, orderJSON(order))
}

type EditOrderJSONRequest struct {
	OrderContent       *string `json:"orderContent"`
	OrderNumber        *string `json:"orderNumber"`
	ShippingDate       *string `json:"shippingDate"`
	CustomerName       *string `json:"customerName"`
	TrackingNumber     *string `json:"trackingNumber"`
	ActualShippingDate *string `json:"actualShippingDate"`
	Notes              *string `json:"notes"`
}

func (h *handler) EditOrder(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req EditOrderJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.repo.Edit(r.Context(), id, repository.Patch{
		OrderContent:       req.OrderContent,
		OrderNumber:        req.OrderNumber,
		ShippingDate:       req.ShippingDate,
		CustomerName:       req.CustomerName,
		TrackingNumber:     req.TrackingNumber,
		ActualShippingDate: req.ActualShippingDate,
		Notes:              req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, orderJSON(order))
}

type AdvanceStatusJSONResponse struct {
	Order        OrderJSONResponse `json:"order"`
	Transitioned bool              `json:"transitioned"`
}

func (h *handler) AdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, err := h.repo.AdvanceStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNoFurtherTransition) {
			// Конечный статус - не ошибка
			h.writeJSON(w, http.StatusOK, AdvanceStatusJSONResponse{Order: orderJSON(order), Transitioned: false})
			return
		}
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, AdvanceStatusJSONResponse{Order: orderJSON(order), Transitioned: true})
}

func (h *handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) GetOrderNotification(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, ok := h.repo.FindByID(id)
	if !ok {
		http.Error(w, repository.ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, h.notifier.Payload(order))
}

func (h *handler) PushOrderNotification(w http.ResponseWriter, r *http.Request) {
	id, err := h.orderID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	order, ok := h.repo.FindByID(id)
	if !ok {
		http.Error(w, repository.ErrNotFound.Error(), http.StatusNotFound)
		return
	}

	if err := h.notifier.Push(order); err != nil {
		if errors.Is(err, notify.ErrNoWebhook) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) orderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrDuplicateOrderNumber):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(responseJSON)
}
