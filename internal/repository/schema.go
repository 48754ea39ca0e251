package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Схема журнала ликвидаций
//
// Журнал только дописывается. Решения агента не зависят от его содержимого,
// поэтому миграции идемпотентны и выполняются при каждом старте.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS liquidations (
		id SERIAL PRIMARY KEY,
		cycle BIGINT NOT NULL,
		account VARCHAR(64) NOT NULL,
		owner VARCHAR(64) NOT NULL DEFAULT '',
		phase VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL,
		assets_value NUMERIC(38, 12) NOT NULL DEFAULT 0,
		liabilities_value NUMERIC(38, 12) NOT NULL DEFAULT 0,
		collateral_ratio NUMERIC(38, 12) NOT NULL DEFAULT 0,
		deficit NUMERIC(38, 12) NOT NULL DEFAULT 0,
		seize_amount NUMERIC(38, 12) NOT NULL DEFAULT 0,
		undercollateralized BOOLEAN NOT NULL DEFAULT FALSE,
		error_message TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidations_account ON liquidations(account)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidations_started_at ON liquidations(started_at)`,
	`CREATE TABLE IF NOT EXISTS liquidation_orders (
		id SERIAL PRIMARY KEY,
		liquidation_id INTEGER NOT NULL REFERENCES liquidations(id) ON DELETE CASCADE,
		market VARCHAR(64) NOT NULL,
		token_index INTEGER NOT NULL,
		side VARCHAR(10) NOT NULL,
		type VARCHAR(10) NOT NULL,
		price NUMERIC(38, 12) NOT NULL,
		size NUMERIC(38, 12) NOT NULL,
		net_value NUMERIC(38, 12) NOT NULL DEFAULT 0,
		venue_order_id VARCHAR(128) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidation_orders_liquidation ON liquidation_orders(liquidation_id)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		type VARCHAR(32) NOT NULL,
		severity VARCHAR(10) NOT NULL,
		account VARCHAR(64),
		message TEXT NOT NULL,
		meta JSONB
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications(timestamp)`,
}

// Migrate создаёт таблицы журнала, если их нет
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

// Open подключается к PostgreSQL и проверяет соединение
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
