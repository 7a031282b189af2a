package model

import "time"

// Заказ на отправку

type OrderRecord struct {
	ID                 int64     `json:"id"`
	ManagementNumber   string    `json:"managementNumber"`
	OrderNumber        string    `json:"orderNumber"`
	OrderContent       string    `json:"orderContent"`
	ShippingDate       string    `json:"shippingDate"` // YYYY-MM-DD
	CustomerName       string    `json:"customerName"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
	TrackingNumber     string    `json:"trackingNumber"`
	ActualShippingDate string    `json:"actualShippingDate"` // YYYY-MM-DD
	Notes              string    `json:"notes"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"

	// Специальное значение фильтра
	OrderStatusAll = "all"
)

// Таблица переходов статуса. Отсутствие ключа = конечное состояние
var statusFlow = map[string]string{
	OrderStatusPending: OrderStatusShipped,
	OrderStatusShipped: OrderStatusDelivered,
}

// NextStatus возвращает следующий статус заказа.
// ok = false для конечного или неизвестного статуса
func NextStatus(status string) (string, bool) {
	next, ok := statusFlow[status]
	return next, ok
}

// Statuses возвращает все известные статусы в порядке жизненного цикла
func Statuses() []string {
	return []string{OrderStatusPending, OrderStatusShipped, OrderStatusDelivered}
}

var statusLabels = map[string]string{
	OrderStatusPending:   "awaiting shipment",
	OrderStatusShipped:   "shipped",
	OrderStatusDelivered: "delivered",
}

// StatusLabel возвращает текст статуса для показа пользователю.
// Неизвестный статус возвращается как есть
func StatusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}
