package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"goflare.io/shopcart/driver"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS cart_storage (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	selectValueSQL = `SELECT value FROM cart_storage WHERE key = $1`

	upsertValueSQL = `INSERT INTO cart_storage (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

var _ KeyValue = (*Postgres)(nil)

// Postgres stores values in the cart_storage table, one row per key.
type Postgres struct {
	conn               driver.PostgresPool
	transactionManager *driver.TransactionManager
	logger             *zap.Logger
}

func NewPostgres(conn driver.PostgresPool, tm *driver.TransactionManager, logger *zap.Logger) *Postgres {
	return &Postgres{
		conn:               conn,
		transactionManager: tm,
		logger:             logger,
	}
}

// Migrate creates the backing table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.conn.Exec(ctx, createTableSQL); err != nil {
		p.logger.Error("Failed to create cart_storage table", zap.Error(err))
		return fmt.Errorf("create cart_storage: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.conn.QueryRow(ctx, selectValueSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		p.logger.Error("Failed to get value", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("select cart_storage: %w", err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	return p.transactionManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertValueSQL, key, value); err != nil {
			p.logger.Error("Failed to set value", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("upsert cart_storage: %w", err)
		}
		return nil
	})
}
