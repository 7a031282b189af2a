package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vpopov/shipman/internal/model"
	"github.com/vpopov/shipman/internal/store/config"
)

// Ключ, под которым хранится вся коллекция заказов
const ordersKey = "shippingOrders"

type Store interface {
	Load(ctx context.Context) ([]model.OrderRecord, error)
	Save(ctx context.Context, orders []model.OrderRecord) error
	Close() error
}

type store struct {
	database *sqlx.DB
}

func NewStore(cfg config.Config) (Store, error) {
	db, err := sqlx.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Таблица ключ-значение
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS shipping_state (" +
			" key VARCHAR (50) PRIMARY KEY," +
			" value TEXT NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	return &store{database: db}, nil
}

func (store *store) Load(ctx context.Context) ([]model.OrderRecord, error) {
	// Чтение сохраненной коллекции
	row := store.database.QueryRowContext(ctx,
		"SELECT value FROM shipping_state"+
			" WHERE key = $1",
		ordersKey)
	var value string
	err := row.Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return []model.OrderRecord{}, nil
		}
		return nil, err
	}

	var orders []model.OrderRecord
	if err := json.Unmarshal([]byte(value), &orders); err != nil {
		// Поврежденные данные читаем как пустую коллекцию
		return []model.OrderRecord{}, nil
	}
	if orders == nil {
		orders = []model.OrderRecord{}
	}
	return orders, nil
}

func (store *store) Save(ctx context.Context, orders []model.OrderRecord) error {
	if orders == nil {
		orders = []model.OrderRecord{}
	}
	value, err := json.Marshal(orders)
	if err != nil {
		return err
	}

	// Полная перезапись коллекции
	_, err = store.database.ExecContext(ctx,
		"INSERT INTO shipping_state (key, value)"+
			" VALUES ($1, $2)"+
			" ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		ordersKey,
		string(value))
	return err
}

func (store *store) Close() error {
	return store.database.Close()
}
