package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/chargegate/internal/models"
)

// TransactionRepository 充电事务与电表数据仓库
type TransactionRepository struct {
	db *DB
}

// NewTransactionRepository 创建事务仓库
func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateTransaction 创建充电事务
func (r *TransactionRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, charger_id, connector_id, id_tag, meter_start, start_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		tx.ID,
		tx.ChargerID,
		tx.ConnectorID,
		tx.IDTag,
		tx.MeterStart,
		tx.StartTime,
		tx.Status,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetTransaction 按 ID 查找事务
func (r *TransactionRepository) GetTransaction(ctx context.Context, id int) (*models.Transaction, error) {
	query := transactionSelect + ` WHERE id = $1`
	tx := &models.Transaction{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(transactionFields(tx)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// FinishTransaction 写入终态（meterStop、停止时间、原因、能耗）
func (r *TransactionRepository) FinishTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		UPDATE transactions SET
			meter_stop = $2,
			stop_time = $3,
			stop_reason = $4,
			status = $5,
			energy_consumed = $6
		WHERE id = $1
	`
	_, err := r.db.Pool.Exec(ctx, query,
		tx.ID,
		tx.MeterStop,
		tx.StopTime,
		tx.StopReason,
		tx.Status,
		tx.EnergyConsumed,
	)
	if err != nil {
		return fmt.Errorf("finish transaction: %w", err)
	}
	return nil
}

// UpdateEnergy 刷新进行中事务的能耗
func (r *TransactionRepository) UpdateEnergy(ctx context.Context, id int, energyKWh float64) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE transactions SET energy_consumed = $2 WHERE id = $1`,
		id, energyKWh,
	)
	if err != nil {
		return fmt.Errorf("update energy: %w", err)
	}
	return nil
}

// GetActiveTransaction 查找指定充电枪上进行中的事务
func (r *TransactionRepository) GetActiveTransaction(ctx context.Context, chargerID string, connectorID int) (*models.Transaction, error) {
	query := transactionSelect + `
		WHERE charger_id = $1 AND connector_id = $2 AND status = 'active'
		ORDER BY start_time DESC LIMIT 1
	`
	tx := &models.Transaction{}
	err := r.db.Pool.QueryRow(ctx, query, chargerID, connectorID).Scan(transactionFields(tx)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions 获取全部事务
func (r *TransactionRepository) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return r.queryTransactions(ctx, transactionSelect+` ORDER BY start_time DESC`)
}

// ListTransactionsByCharger 获取指定充电桩的事务
func (r *TransactionRepository) ListTransactionsByCharger(ctx context.Context, chargerID string) ([]*models.Transaction, error) {
	return r.queryTransactions(ctx, transactionSelect+` WHERE charger_id = $1 ORDER BY start_time DESC`, chargerID)
}

// AppendMeterValue 追加电表采样
func (r *TransactionRepository) AppendMeterValue(ctx context.Context, mv *models.MeterValue) error {
	query := `
		INSERT INTO meter_values (transaction_id, connector_id, timestamp, sampled_values)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.Pool.QueryRow(ctx, query,
		mv.TransactionID,
		mv.ConnectorID,
		mv.Timestamp,
		mv.SampledValues,
	).Scan(&mv.ID)
	if err != nil {
		return fmt.Errorf("insert meter value: %w", err)
	}
	return nil
}

// ListMeterValues 获取事务的电表采样，按时间排序
func (r *TransactionRepository) ListMeterValues(ctx context.Context, transactionID int) ([]*models.MeterValue, error) {
	query := `
		SELECT id, transaction_id, connector_id, timestamp, sampled_values
		FROM meter_values WHERE transaction_id = $1 ORDER BY timestamp
	`
	rows, err := r.db.Pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list meter values: %w", err)
	}
	defer rows.Close()

	var values []*models.MeterValue
	for rows.Next() {
		mv := &models.MeterValue{}
		err := rows.Scan(
			&mv.ID,
			&mv.TransactionID,
			&mv.ConnectorID,
			&mv.Timestamp,
			&mv.SampledValues,
		)
		if err != nil {
			return nil, fmt.Errorf("scan meter value: %w", err)
		}
		values = append(values, mv)
	}

	return values, nil
}

// MaxTransactionID 持久化过的最大事务 ID
func (r *TransactionRepository) MaxTransactionID(ctx context.Context) (int, error) {
	var maxID int
	err := r.db.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM transactions`).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("max transaction id: %w", err)
	}
	return maxID, nil
}

const transactionSelect = `
	SELECT id, charger_id, connector_id, id_tag, meter_start, meter_stop,
		start_time, stop_time, stop_reason, status, energy_consumed
	FROM transactions
`

func transactionFields(tx *models.Transaction) []interface{} {
	return []interface{}{
		&tx.ID,
		&tx.ChargerID,
		&tx.ConnectorID,
		&tx.IDTag,
		&tx.MeterStart,
		&tx.MeterStop,
		&tx.StartTime,
		&tx.StopTime,
		&tx.StopReason,
		&tx.Status,
		&tx.EnergyConsumed,
	}
}

func (r *TransactionRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]*models.Transaction, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx := &models.Transaction{}
		if err := rows.Scan(transactionFields(tx)...); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	return transactions, nil
}
