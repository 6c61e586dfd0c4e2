package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/models"
)

// ChargerService 充电桩与充电枪状态的权威记录
type ChargerService struct {
	logger *zap.Logger
	store  ChargerStore

	// StatusNotification 可能并发重复上报，按 (charger_id, connector_id) 串行化
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewChargerService 创建充电桩服务
func NewChargerService(logger *zap.Logger, store ChargerStore) *ChargerService {
	return &ChargerService{
		logger: logger,
		store:  store,
		locks:  make(map[string]*sync.Mutex),
	}
}

// HandleBoot 处理 BootNotification：首次上电创建记录，重连只更新元数据
func (s *ChargerService) HandleBoot(ctx context.Context, chargerID string, configuration map[string]string) error {
	charger, err := s.store.GetCharger(ctx, chargerID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("get charger: %w", err)
	}

	if charger == nil {
		now := time.Now()
		charger = &models.Charger{
			ID:            chargerID,
			Status:        models.ChargerOnline,
			LastHeartbeat: &now,
			Configuration: configuration,
			ConnectedAt:   &now,
		}
		if err := s.store.CreateCharger(ctx, charger); err != nil {
			return fmt.Errorf("create charger: %w", err)
		}
		s.logger.Info("Charger created on first boot", zap.String("charger_id", chargerID))
		return nil
	}

	// 已有记录，合并配置并恢复在线
	if err := s.store.SetConfiguration(ctx, chargerID, configuration); err != nil {
		return fmt.Errorf("set configuration: %w", err)
	}
	if err := s.store.UpdateChargerStatus(ctx, chargerID, models.ChargerOnline); err != nil {
		return fmt.Errorf("update charger status: %w", err)
	}
	s.logger.Info("Charger rebooted", zap.String("charger_id", chargerID))
	return nil
}

// RegisterConnection 连接建立时确保记录存在并标记在线
func (s *ChargerService) RegisterConnection(ctx context.Context, chargerID string) error {
	if err := s.ensureCharger(ctx, chargerID); err != nil {
		return err
	}
	if err := s.store.UpdateChargerStatus(ctx, chargerID, models.ChargerOnline); err != nil {
		return fmt.Errorf("update charger status: %w", err)
	}
	return nil
}

// UnregisterConnection 连接断开时标记离线
func (s *ChargerService) UnregisterConnection(ctx context.Context, chargerID string) error {
	err := s.store.UpdateChargerStatus(ctx, chargerID, models.ChargerOffline)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("update charger status: %w", err)
	}
	return nil
}

// Heartbeat 更新心跳时间并强制在线
func (s *ChargerService) Heartbeat(ctx context.Context, chargerID string) error {
	err := s.store.UpdateHeartbeat(ctx, chargerID)
	if errors.Is(err, models.ErrNotFound) {
		// 尚无记录的桩发来心跳，补建
		if err := s.ensureCharger(ctx, chargerID); err != nil {
			return err
		}
		err = s.store.UpdateHeartbeat(ctx, chargerID)
	}
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// UpdateConnectorStatus 整体覆盖充电枪状态，并发上报按枪串行
func (s *ChargerService) UpdateConnectorStatus(ctx context.Context, chargerID string, connectorID int, status models.ConnectorStatus, errorCode, info string) error {
	lock := s.connectorLock(chargerID, connectorID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.ensureCharger(ctx, chargerID); err != nil {
		return err
	}

	previous, err := s.store.GetConnector(ctx, chargerID, connectorID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("get connector: %w", err)
	}

	connector := &models.Connector{
		ChargerID:        chargerID,
		ConnectorID:      connectorID,
		Status:           status,
		ErrorCode:        errorCode,
		Info:             info,
		LastStatusUpdate: time.Now(),
	}
	created, err := s.store.UpsertConnector(ctx, connector)
	if err != nil {
		return fmt.Errorf("upsert connector: %w", err)
	}

	if created {
		s.logger.Info("Connector registered",
			zap.String("charger_id", chargerID),
			zap.Int("connector_id", connectorID),
			zap.String("status", string(status)))
	} else if previous != nil && previous.Status == models.ConnectorFaulted && status == models.ConnectorAvailable {
		s.logger.Info("Connector recovered",
			zap.String("charger_id", chargerID),
			zap.Int("connector_id", connectorID))
	}
	return nil
}

// GetCharger 获取充电桩及其充电枪列表
func (s *ChargerService) GetCharger(ctx context.Context, chargerID string) (*models.Charger, error) {
	charger, err := s.store.GetCharger(ctx, chargerID)
	if err != nil {
		return nil, err
	}
	connectors, err := s.store.ListConnectors(ctx, chargerID)
	if err != nil {
		return nil, fmt.Errorf("list connectors: %w", err)
	}
	charger.Connectors = connectors
	return charger, nil
}

// ListChargers 获取所有充电桩及其充电枪列表
func (s *ChargerService) ListChargers(ctx context.Context) ([]*models.Charger, error) {
	chargers, err := s.store.ListChargers(ctx)
	if err != nil {
		return nil, err
	}
	for _, charger := range chargers {
		connectors, err := s.store.ListConnectors(ctx, charger.ID)
		if err != nil {
			return nil, fmt.Errorf("list connectors: %w", err)
		}
		charger.Connectors = connectors
	}
	return chargers, nil
}

// SetConfiguration 合并写入充电桩配置
func (s *ChargerService) SetConfiguration(ctx context.Context, chargerID string, configuration map[string]string) error {
	if err := s.store.SetConfiguration(ctx, chargerID, configuration); err != nil {
		return fmt.Errorf("set configuration: %w", err)
	}
	return nil
}

// GetConnector 获取单个充电枪
func (s *ChargerService) GetConnector(ctx context.Context, chargerID string, connectorID int) (*models.Connector, error) {
	return s.store.GetConnector(ctx, chargerID, connectorID)
}

// ensureCharger 消息先于 BootNotification 到达时补建记录
func (s *ChargerService) ensureCharger(ctx context.Context, chargerID string) error {
	_, err := s.store.GetCharger(ctx, chargerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("get charger: %w", err)
	}

	now := time.Now()
	charger := &models.Charger{
		ID:            chargerID,
		Status:        models.ChargerOnline,
		Configuration: map[string]string{},
		ConnectedAt:   &now,
	}
	if err := s.store.CreateCharger(ctx, charger); err != nil {
		return fmt.Errorf("create charger: %w", err)
	}
	s.logger.Info("Charger created before boot notification", zap.String("charger_id", chargerID))
	return nil
}

// connectorLock 获取按 (charger_id, connector_id) 的互斥锁
func (s *ChargerService) connectorLock(chargerID string, connectorID int) *sync.Mutex {
	key := fmt.Sprintf("%s:%d", chargerID, connectorID)

	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
