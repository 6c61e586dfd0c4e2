package service

import (
	"context"

	"github.com/langchou/chargegate/internal/models"
)

// ChargerStore 充电桩与充电枪的持久化端口
// 网关只依赖这组接口，具体实现见 repository 包
type ChargerStore interface {
	GetCharger(ctx context.Context, id string) (*models.Charger, error)
	CreateCharger(ctx context.Context, charger *models.Charger) error
	ListChargers(ctx context.Context) ([]*models.Charger, error)
	UpdateChargerStatus(ctx context.Context, id string, status models.ChargerStatus) error

	// UpdateHeartbeat 刷新心跳时间并强制在线：心跳是在线的充分证据，
	// 即使之前被标记离线也要翻回 online
	UpdateHeartbeat(ctx context.Context, id string) error
	SetConfiguration(ctx context.Context, id string, configuration map[string]string) error

	// UpsertConnector 按 (charger_id, connector_id) 整体覆盖，返回是否新建
	UpsertConnector(ctx context.Context, connector *models.Connector) (created bool, err error)
	GetConnector(ctx context.Context, chargerID string, connectorID int) (*models.Connector, error)
	ListConnectors(ctx context.Context, chargerID string) ([]*models.Connector, error)
}

// TransactionStore 充电事务与电表数据的持久化端口
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id int) (*models.Transaction, error)
	FinishTransaction(ctx context.Context, tx *models.Transaction) error
	UpdateEnergy(ctx context.Context, id int, energyKWh float64) error
	GetActiveTransaction(ctx context.Context, chargerID string, connectorID int) (*models.Transaction, error)
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	ListTransactionsByCharger(ctx context.Context, chargerID string) ([]*models.Transaction, error)

	AppendMeterValue(ctx context.Context, mv *models.MeterValue) error
	ListMeterValues(ctx context.Context, transactionID int) ([]*models.MeterValue, error)

	// MaxTransactionID 持久化过的最大事务 ID，无记录时返回 0
	MaxTransactionID(ctx context.Context) (int, error)
}
