package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vpopov/shipman/internal/model"
	"github.com/vpopov/shipman/internal/store"
)

type Repository interface {
	Create(ctx context.Context, orderContent, orderNumber, shippingDate, customerName string) (model.OrderRecord, error)
	Edit(ctx context.Context, id int64, patch Patch) (model.OrderRecord, error)
	AdvanceStatus(ctx context.Context, id int64) (model.OrderRecord, error)
	Delete(ctx context.Context, id int64) error
	FindByID(id int64) (model.OrderRecord, bool)
	FindByManagementNumber(managementNumber string) (model.OrderRecord, bool)
	List() []model.OrderRecord
	Search(term string) []model.OrderRecord
	FilterByStatus(status string) []model.OrderRecord
}

var (
	ErrValidation           = errors.New("required field is empty")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrNotFound             = errors.New("order not found")
	ErrNoFurtherTransition  = errors.New("no further status transition")
	ErrPersistence          = errors.New("persistence failure")
)

// Patch - частичное изменение заказа. nil = поле не меняется.
// Статус через Patch не меняется, только через AdvanceStatus
type Patch struct {
	OrderContent       *string
	OrderNumber        *string
	ShippingDate       *string
	CustomerName       *string
	TrackingNumber     *string
	ActualShippingDate *string
	Notes              *string
}

type repository struct {
	store  store.Store
	mu     sync.Mutex
	orders []model.OrderRecord
	nextID int64
}

// NewRepository загружает коллекцию из хранилища один раз при старте
func NewRepository(ctx context.Context, store store.Store) (Repository, error) {
	orders, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Счетчик идентификаторов продолжает с максимального сохраненного
	var maxID int64
	for _, order := range orders {
		if order.ID > maxID {
			maxID = order.ID
		}
	}

	return &repository{
		store:  store,
		orders: orders,
		nextID: maxID + 1,
	}, nil
}

func (r *repository) Create(ctx context.Context, orderContent, orderNumber, shippingDate, customerName string) (model.OrderRecord, error) {
	orderContent = strings.TrimSpace(orderContent)
	orderNumber = strings.TrimSpace(orderNumber)
	customerName = strings.TrimSpace(customerName)
	if orderContent == "" || orderNumber == "" || shippingDate == "" || customerName == "" {
		return model.OrderRecord{}, ErrValidation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Проверка уникальности номера заказа
	if r.indexByOrderNumber(orderNumber, 0) >= 0 {
		return model.OrderRecord{}, ErrDuplicateOrderNumber
	}

	now := time.Now()
	order := model.OrderRecord{
		ID:               r.nextID,
		ManagementNumber: fmt.Sprintf("%s-%d", orderNumber, r.nextID),
		OrderNumber:      orderNumber,
		OrderContent:     orderContent,
		ShippingDate:     shippingDate,
		CustomerName:     customerName,
		Status:           model.OrderStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	// Новые заказы в начало коллекции
	updated := make([]model.OrderRecord, 0, len(r.orders)+1)
	updated = append(updated, order)
	updated = append(updated, r.orders...)
	if err := r.persist(ctx, updated); err != nil {
		return model.OrderRecord{}, err
	}
	r.orders = updated
	r.nextID++

	return order, nil
}

func (r *repository) Edit(ctx context.Context, id int64, patch Patch) (model.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.indexByID(id)
	if pos < 0 {
		return model.OrderRecord{}, ErrNotFound
	}

	// Изменения накладываются на копию, коллекция меняется только после записи
	order := r.orders[pos]
	if patch.OrderContent != nil {
		order.OrderContent = strings.TrimSpace(*patch.OrderContent)
	}
	if patch.OrderNumber != nil {
		order.OrderNumber = strings.TrimSpace(*patch.OrderNumber)
	}
	if patch.ShippingDate != nil {
		order.ShippingDate = *patch.ShippingDate
	}
	if patch.CustomerName != nil {
		order.CustomerName = strings.TrimSpace(*patch.CustomerName)
	}
	if patch.TrackingNumber != nil {
		order.TrackingNumber = *patch.TrackingNumber
	}
	if patch.ActualShippingDate != nil {
		order.ActualShippingDate = *patch.ActualShippingDate
	}
	if patch.Notes != nil {
		order.Notes = *patch.Notes
	}

	if order.OrderContent == "" || order.OrderNumber == "" || order.ShippingDate == "" || order.CustomerName == "" {
		return model.OrderRecord{}, ErrValidation
	}
	// Номер заказа не должен совпадать с другим заказом
	if r.indexByOrderNumber(order.OrderNumber, order.ID) >= 0 {
		return model.OrderRecord{}, ErrDuplicateOrderNumber
	}

	order.UpdatedAt = time.Now()

	updated := r.snapshot()
	updated[pos] = order
	if err := r.persist(ctx, updated); err != nil {
		return model.OrderRecord{}, err
	}
	r.orders = updated

	return order, nil
}

func (r *repository) AdvanceStatus(ctx context.Context, id int64) (model.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.indexByID(id)
	if pos < 0 {
		return model.OrderRecord{}, ErrNotFound
	}

	order := r.orders[pos]
	next, ok := model.NextStatus(order.Status)
	if !ok {
		// Конечный или неизвестный статус - сообщаем без изменения
		return order, ErrNoFurtherTransition
	}

	order.Status = next
	order.UpdatedAt = time.Now()
	if next == model.OrderStatusShipped {
		// Фактическая дата отправки = сегодня, только дата без времени
		order.ActualShippingDate = time.Now().Format("2006-01-02")
	}

	updated := r.snapshot()
	updated[pos] = order
	if err := r.persist(ctx, updated); err != nil {
		return model.OrderRecord{}, err
	}
	r.orders = updated

	return order, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.indexByID(id)
	if pos < 0 {
		return ErrNotFound
	}

	updated := make([]model.OrderRecord, 0, len(r.orders)-1)
	updated = append(updated, r.orders[:pos]...)
	updated = append(updated, r.orders[pos+1:]...)
	if err := r.persist(ctx, updated); err != nil {
		return err
	}
	r.orders = updated

	return nil
}

func (r *repository) FindByID(id int64) (model.OrderRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos := r.indexByID(id)
	if pos < 0 {
		return model.OrderRecord{}, false
	}
	return r.orders[pos], true
}

func (r *repository) FindByManagementNumber(managementNumber string) (model.OrderRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range r.orders {
		if order.ManagementNumber == managementNumber {
			return order, true
		}
	}
	return model.OrderRecord{}, false
}

func (r *repository) List() []model.OrderRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshot()
}

func (r *repository) Search(term string) []model.OrderRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Пустой запрос возвращает всю коллекцию
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return r.snapshot()
	}

	var found []model.OrderRecord
	for _, order := range r.orders {
		if strings.Contains(strings.ToLower(order.OrderNumber), term) ||
			strings.Contains(strings.ToLower(order.CustomerName), term) ||
			strings.Contains(strings.ToLower(order.OrderContent), term) {
			found = append(found, order)
		}
	}
	return found
}

func (r *repository) FilterByStatus(status string) []model.OrderRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	if status == model.OrderStatusAll {
		return r.snapshot()
	}

	var found []model.OrderRecord
	for _, order := range r.orders {
		if order.Status == status {
			found = append(found, order)
		}
	}
	return found
}

// persist записывает новую коллекцию в хранилище, не трогая память
func (r *repository) persist(ctx context.Context, orders []model.OrderRecord) error {
	if err := r.store.Save(ctx, orders); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (r *repository) snapshot() []model.OrderRecord {
	out := make([]model.OrderRecord, len(r.orders))
	copy(out, r.orders)
	return out
}

func (r *repository) indexByID(id int64) int {
	for i, order := range r.orders {
		if order.ID == id {
			return i
		}
	}
	return -1
}

// indexByOrderNumber ищет заказ с таким номером, кроме excludeID
func (r *repository) indexByOrderNumber(number string, excludeID int64) int {
	for i, order := range r.orders {
		if order.OrderNumber == number && order.ID != excludeID {
			return i
		}
	}
	return -1
}
