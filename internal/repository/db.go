package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB 数据库连接池封装
type DB struct {
	Pool *pgxpool.Pool
}

// New 创建数据库连接
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// 连接池配置
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// 测试连接
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close 关闭连接池
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate 执行数据库迁移
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateChargers,
		migrationCreateConnectors,
		migrationCreateTransactions,
		migrationCreateMeterValues,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// 数据库迁移 SQL
const migrationCreateChargers = `
CREATE TABLE IF NOT EXISTS chargers (
    id VARCHAR(100) PRIMARY KEY,
    status VARCHAR(10) NOT NULL DEFAULT 'offline',
    last_heartbeat TIMESTAMP WITH TIME ZONE,
    configuration JSONB NOT NULL DEFAULT '{}',
    connected_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_chargers_status ON chargers(status);
CREATE INDEX IF NOT EXISTS idx_chargers_last_heartbeat ON chargers(last_heartbeat);
`

const migrationCreateConnectors = `
CREATE TABLE IF NOT EXISTS connectors (
    id BIGSERIAL PRIMARY KEY,
    charger_id VARCHAR(100) NOT NULL REFERENCES chargers(id),
    connector_id INT NOT NULL,
    status VARCHAR(20) NOT NULL,
    error_code VARCHAR(50) NOT NULL DEFAULT 'NoError',
    info TEXT NOT NULL DEFAULT '',
    last_status_update TIMESTAMP WITH TIME ZONE NOT NULL,
    UNIQUE (charger_id, connector_id)
);
CREATE INDEX IF NOT EXISTS idx_connectors_charger_id ON connectors(charger_id);
`

const migrationCreateTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id INT PRIMARY KEY,
    charger_id VARCHAR(100) NOT NULL,
    connector_id INT NOT NULL,
    id_tag VARCHAR(50) NOT NULL,
    meter_start INT NOT NULL,
    meter_stop INT,
    start_time TIMESTAMP WITH TIME ZONE NOT NULL,
    stop_time TIMESTAMP WITH TIME ZONE,
    stop_reason VARCHAR(20) NOT NULL DEFAULT '',
    status VARCHAR(10) NOT NULL DEFAULT 'active',
    energy_consumed DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_transactions_charger_id ON transactions(charger_id);
CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
CREATE INDEX IF NOT EXISTS idx_transactions_charger_connector_status ON transactions(charger_id, connector_id, status);
CREATE INDEX IF NOT EXISTS idx_transactions_start_time ON transactions(start_time);
`

const migrationCreateMeterValues = `
CREATE TABLE IF NOT EXISTS meter_values (
    id BIGSERIAL PRIMARY KEY,
    transaction_id INT NOT NULL,
    connector_id INT NOT NULL,
    timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
    sampled_values JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_meter_values_transaction_id ON meter_values(transaction_id, timestamp);
`
