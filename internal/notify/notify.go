package notify

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vpopov/shipman/internal/model"
	"github.com/vpopov/shipman/internal/notify/config"
)

// Адрес отправки сообщения через LINE
const lineShareURL = "https://line.me/R/msg/text/"

var ErrNoWebhook = errors.New("notification webhook is not configured")

// Payload - готовое уведомление по одному заказу
type Payload struct {
	ManagementNumber string `json:"managementNumber"`
	Message          string `json:"message"`
	DetailURL        string `json:"detailUrl"`
	LineURL          string `json:"lineUrl"`
}

type Notifier interface {
	Payload(order model.OrderRecord) Payload
	Push(order model.OrderRecord) error
}

type notifier struct {
	cfg config.Config
}

func NewNotifier(cfg config.Config) Notifier {
	return notifier{cfg: cfg}
}

func (n notifier) Payload(order model.OrderRecord) Payload {
	detailURL := fmt.Sprintf("%s#detail/%s", n.cfg.BaseURL, order.ManagementNumber)
	message := fmt.Sprintf("[Shipping Manager]\nOrder number: %s\nCustomer: %s\nPlanned shipping date: %s\nDetails: %s",
		order.OrderNumber,
		order.CustomerName,
		FormatDate(order.ShippingDate),
		detailURL)

	return Payload{
		ManagementNumber: order.ManagementNumber,
		Message:          message,
		DetailURL:        detailURL,
		LineURL:          lineShareURL + "?" + encodeComponent(message),
	}
}

// Push отправляет уведомление на настроенный webhook
func (n notifier) Push(order model.OrderRecord) error {
	if n.cfg.WebhookURL == "" {
		return ErrNoWebhook
	}

	payload := n.Payload(order)

	setreq := resty.New().R()
	setreq.Method = http.MethodPost
	setreq.URL = n.cfg.WebhookURL
	setreq.SetHeader("Content-Type", "application/json")
	setreq.SetBody(payload)
	setresp, err := setreq.Send()
	if err != nil {
		return err
	}

	switch setresp.StatusCode() {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("notify webhook status: %d", setresp.StatusCode())
	}
}

// FormatDate приводит дату YYYY-MM-DD к виду для показа.
// Нераспознанное значение возвращается как есть
func FormatDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("2006/01/02")
}

// Кодирование в строку запроса, пробел как %20
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
