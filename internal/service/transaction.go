package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/models"
	"github.com/langchou/chargegate/internal/ocpp"
	"github.com/langchou/chargegate/internal/state"
)

// TransactionService 充电事务引擎
// 事务 ID 单调递增，能耗计算集中在这里：(meterWh - meterStartWh) / 1000
type TransactionService struct {
	logger   *zap.Logger
	store    TransactionStore
	sessions *state.Manager

	mu     sync.Mutex
	nextID int
}

// NewTransactionService 创建事务引擎
func NewTransactionService(logger *zap.Logger, store TransactionStore) *TransactionService {
	return &TransactionService{
		logger:   logger,
		store:    store,
		sessions: state.NewManager(),
		nextID:   1,
	}
}

// Init 从存储恢复事务 ID 高水位，保证重启后不复用
func (s *TransactionService) Init(ctx context.Context) error {
	maxID, err := s.store.MaxTransactionID(ctx)
	if err != nil {
		return fmt.Errorf("load max transaction id: %w", err)
	}

	s.mu.Lock()
	s.nextID = maxID + 1
	s.mu.Unlock()

	s.logger.Info("Transaction ID counter initialized", zap.Int("next_id", maxID+1))
	return nil
}

// Start 创建充电事务，仅在授权通过后调用
// 同一充电枪上若还挂着旧的进行中事务（桩重启、StopTransaction 丢帧），先把它中止掉
func (s *TransactionService) Start(ctx context.Context, chargerID string, connectorID int, idTag string, meterStart int) (*models.Transaction, error) {
	if orphan, err := s.store.GetActiveTransaction(ctx, chargerID, connectorID); err == nil {
		if err := s.abort(ctx, orphan); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()

	tx := &models.Transaction{
		ID:          id,
		ChargerID:   chargerID,
		ConnectorID: connectorID,
		IDTag:       idTag,
		MeterStart:  meterStart,
		StartTime:   time.Now(),
		Status:      models.TransactionActive,
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.sessions.GetOrCreate(id, state.SessionActive)
	s.logger.Info("Transaction started",
		zap.Int("transaction_id", id),
		zap.String("charger_id", chargerID),
		zap.Int("connector_id", connectorID),
		zap.Int("meter_start", meterStart))
	return tx, nil
}

// Stop 结束充电事务并结算能耗
// 状态机保证只进入一次终态，重复的 StopTransaction 不会二次记账
func (s *TransactionService) Stop(ctx context.Context, transactionID int, meterStop int, reason string) (*models.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	session := s.sessions.GetOrCreate(transactionID, string(tx.Status))
	if err := session.Trigger(state.EventComplete); err != nil {
		s.logger.Warn("Transaction already finished, ignoring duplicate stop",
			zap.Int("transaction_id", transactionID))
		return tx, nil
	}

	now := time.Now()
	tx.MeterStop = &meterStop
	tx.StopTime = &now
	tx.StopReason = reason
	tx.Status = models.TransactionCompleted
	tx.EnergyConsumed = energyKWh(float64(meterStop), tx.MeterStart)

	if err := s.store.FinishTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("finish transaction: %w", err)
	}
	s.sessions.Remove(transactionID)

	s.logger.Info("Transaction stopped",
		zap.Int("transaction_id", transactionID),
		zap.Float64("energy_kwh", tx.EnergyConsumed),
		zap.String("reason", reason))
	return tx, nil
}

// abort 中止拿不到停表读数的孤儿事务
// 没有 MeterStop 就不结算能耗，只落终态 stopped
func (s *TransactionService) abort(ctx context.Context, tx *models.Transaction) error {
	session := s.sessions.GetOrCreate(tx.ID, string(tx.Status))
	if err := session.Trigger(state.EventStop); err != nil {
		s.sessions.Remove(tx.ID)
		return nil
	}

	now := time.Now()
	tx.StopTime = &now
	tx.StopReason = models.ReasonOther
	tx.Status = models.TransactionStopped

	if err := s.store.FinishTransaction(ctx, tx); err != nil {
		return fmt.Errorf("abort transaction: %w", err)
	}
	s.sessions.Remove(tx.ID)

	s.logger.Info("Orphaned transaction aborted",
		zap.Int("transaction_id", tx.ID),
		zap.String("charger_id", tx.ChargerID),
		zap.Int("connector_id", tx.ConnectorID))
	return nil
}

// AddMeterValue 追加电表采样，遇到累计电能读数时刷新能耗
func (s *TransactionService) AddMeterValue(ctx context.Context, mv *models.MeterValue) error {
	if err := s.store.AppendMeterValue(ctx, mv); err != nil {
		return fmt.Errorf("append meter value: %w", err)
	}

	energyWh, ok := latestEnergyReading(mv.SampledValues)
	if !ok {
		return nil
	}

	tx, err := s.store.GetTransaction(ctx, mv.TransactionID)
	if err != nil {
		return err
	}

	consumed := energyKWh(energyWh, tx.MeterStart)
	if err := s.store.UpdateEnergy(ctx, tx.ID, consumed); err != nil {
		return fmt.Errorf("update energy: %w", err)
	}
	return nil
}

// Get 查询单个事务
func (s *TransactionService) Get(ctx context.Context, transactionID int) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, transactionID)
}

// GetActive 查询指定充电枪上进行中的事务
func (s *TransactionService) GetActive(ctx context.Context, chargerID string, connectorID int) (*models.Transaction, error) {
	return s.store.GetActiveTransaction(ctx, chargerID, connectorID)
}

// List 查询全部事务
func (s *TransactionService) List(ctx context.Context) ([]*models.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

// ListByCharger 查询指定充电桩的事务
func (s *TransactionService) ListByCharger(ctx context.Context, chargerID string) ([]*models.Transaction, error) {
	return s.store.ListTransactionsByCharger(ctx, chargerID)
}

// MeterValues 查询事务的电表采样
func (s *TransactionService) MeterValues(ctx context.Context, transactionID int) ([]*models.MeterValue, error) {
	return s.store.ListMeterValues(ctx, transactionID)
}

// energyKWh Wh 读数换算为 kWh 能耗
func energyKWh(meterWh float64, meterStartWh int) float64 {
	return (meterWh - float64(meterStartWh)) / 1000
}

// latestEnergyReading 提取最后一个累计电能读数（Wh）
func latestEnergyReading(values []models.SampledValue) (float64, bool) {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i].Measurand != ocpp.MeasurandEnergyActiveImportRegister {
			continue
		}
		wh, err := strconv.ParseFloat(values[i].Value, 64)
		if err != nil {
			continue
		}
		return wh, true
	}
	return 0, false
}
