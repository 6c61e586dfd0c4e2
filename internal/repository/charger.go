package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/chargegate/internal/models"
)

// ChargerRepository 充电桩与充电枪仓库
type ChargerRepository struct {
	db *DB
}

// NewChargerRepository 创建充电桩仓库
func NewChargerRepository(db *DB) *ChargerRepository {
	return &ChargerRepository{db: db}
}

// GetCharger 按 ID 查找充电桩
func (r *ChargerRepository) GetCharger(ctx context.Context, id string) (*models.Charger, error) {
	query := `
		SELECT id, status, last_heartbeat, configuration, connected_at, created_at, updated_at
		FROM chargers WHERE id = $1
	`
	c := &models.Charger{}
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Status,
		&c.LastHeartbeat,
		&c.Configuration,
		&c.ConnectedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get charger: %w", err)
	}
	return c, nil
}

// CreateCharger 创建充电桩记录
func (r *ChargerRepository) CreateCharger(ctx context.Context, c *models.Charger) error {
	if c.Configuration == nil {
		c.Configuration = map[string]string{}
	}
	query := `
		INSERT INTO chargers (id, status, last_heartbeat, configuration, connected_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Pool.Exec(ctx, query,
		c.ID,
		c.Status,
		c.LastHeartbeat,
		c.Configuration,
		c.ConnectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert charger: %w", err)
	}
	return nil
}

// ListChargers 获取全部充电桩
func (r *ChargerRepository) ListChargers(ctx context.Context) ([]*models.Charger, error) {
	query := `
		SELECT id, status, last_heartbeat, configuration, connected_at, created_at, updated_at
		FROM chargers ORDER BY id
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list chargers: %w", err)
	}
	defer rows.Close()

	var chargers []*models.Charger
	for rows.Next() {
		c := &models.Charger{}
		err := rows.Scan(
			&c.ID,
			&c.Status,
			&c.LastHeartbeat,
			&c.Configuration,
			&c.ConnectedAt,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan charger: %w", err)
		}
		chargers = append(chargers, c)
	}

	return chargers, nil
}

// UpdateChargerStatus 更新在线状态
// 离线时所有充电枪置为 Unavailable，恢复在线置回 Available
func (r *ChargerRepository) UpdateChargerStatus(ctx context.Context, id string, status models.ChargerStatus) error {
	query := `
		UPDATE chargers SET
			status = $2,
			last_heartbeat = CASE WHEN $2 = 'online' THEN NOW() ELSE last_heartbeat END,
			connected_at = CASE WHEN $2 = 'online' THEN NOW() ELSE connected_at END,
			updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update charger status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	connectorStatus := models.ConnectorAvailable
	if status == models.ChargerOffline {
		connectorStatus = models.ConnectorUnavailable
	}
	_, err = r.db.Pool.Exec(ctx,
		`UPDATE connectors SET status = $2, last_status_update = NOW() WHERE charger_id = $1`,
		id, connectorStatus,
	)
	if err != nil {
		return fmt.Errorf("update connector statuses: %w", err)
	}
	return nil
}

// UpdateHeartbeat 刷新心跳时间并强制在线
func (r *ChargerRepository) UpdateHeartbeat(ctx context.Context, id string) error {
	query := `
		UPDATE chargers SET last_heartbeat = NOW(), status = 'online', updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetConfiguration 合并配置键值
func (r *ChargerRepository) SetConfiguration(ctx context.Context, id string, configuration map[string]string) error {
	query := `
		UPDATE chargers SET configuration = configuration || $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Pool.Exec(ctx, query, id, configuration)
	if err != nil {
		return fmt.Errorf("set configuration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpsertConnector 按 (charger_id, connector_id) 整体覆盖
func (r *ChargerRepository) UpsertConnector(ctx context.Context, c *models.Connector) (bool, error) {
	query := `
		INSERT INTO connectors (charger_id, connector_id, status, error_code, info, last_status_update)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (charger_id, connector_id) DO UPDATE SET
			status = EXCLUDED.status,
			error_code = EXCLUDED.error_code,
			info = EXCLUDED.info,
			last_status_update = EXCLUDED.last_status_update
		RETURNING id, (xmax = 0) AS inserted
	`
	var inserted bool
	err := r.db.Pool.QueryRow(ctx, query,
		c.ChargerID,
		c.ConnectorID,
		c.Status,
		c.ErrorCode,
		c.Info,
		c.LastStatusUpdate,
	).Scan(&c.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert connector: %w", err)
	}
	return inserted, nil
}

// GetConnector 查找单个充电枪
func (r *ChargerRepository) GetConnector(ctx context.Context, chargerID string, connectorID int) (*models.Connector, error) {
	query := `
		SELECT id, charger_id, connector_id, status, error_code, info, last_status_update
		FROM connectors WHERE charger_id = $1 AND connector_id = $2
	`
	c := &models.Connector{}
	err := r.db.Pool.QueryRow(ctx, query, chargerID, connectorID).Scan(
		&c.ID,
		&c.ChargerID,
		&c.ConnectorID,
		&c.Status,
		&c.ErrorCode,
		&c.Info,
		&c.LastStatusUpdate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connector: %w", err)
	}
	return c, nil
}

// ListConnectors 获取充电桩的全部充电枪
func (r *ChargerRepository) ListConnectors(ctx context.Context, chargerID string) ([]*models.Connector, error) {
	query := `
		SELECT id, charger_id, connector_id, status, error_code, info, last_status_update
		FROM connectors WHERE charger_id = $1 ORDER BY connector_id
	`
	rows, err := r.db.Pool.Query(ctx, query, chargerID)
	if err != nil {
		return nil, fmt.Errorf("list connectors: %w", err)
	}
	defer rows.Close()

	var connectors []*models.Connector
	for rows.Next() {
		c := &models.Connector{}
		err := rows.Scan(
			&c.ID,
			&c.ChargerID,
			&c.ConnectorID,
			&c.Status,
			&c.ErrorCode,
			&c.Info,
			&c.LastStatusUpdate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan connector: %w", err)
		}
		connectors = append(connectors, c)
	}

	return connectors, nil
}
