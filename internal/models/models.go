package models

import (
	"errors"
	"time"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// ChargerStatus 充电桩在线状态
type ChargerStatus string

const (
	ChargerOnline  ChargerStatus = "online"
	ChargerOffline ChargerStatus = "offline"
)

// ConnectorStatus 充电枪状态（OCPP 1.6 StatusNotification）
type ConnectorStatus string

const (
	ConnectorAvailable     ConnectorStatus = "Available"
	ConnectorPreparing     ConnectorStatus = "Preparing"
	ConnectorCharging      ConnectorStatus = "Charging"
	ConnectorSuspendedEVSE ConnectorStatus = "SuspendedEVSE"
	ConnectorSuspendedEV   ConnectorStatus = "SuspendedEV"
	ConnectorFinishing     ConnectorStatus = "Finishing"
	ConnectorReserved      ConnectorStatus = "Reserved"
	ConnectorUnavailable   ConnectorStatus = "Unavailable"
	ConnectorFaulted       ConnectorStatus = "Faulted"
)

// TransactionStatus 充电事务状态
type TransactionStatus string

const (
	TransactionActive    TransactionStatus = "active"
	TransactionCompleted TransactionStatus = "completed"
	TransactionStopped   TransactionStatus = "stopped"
)

// 充电事务停止原因（OCPP 1.6 Reason）
const (
	ReasonDeAuthorized   = "DeAuthorized"
	ReasonEmergencyStop  = "EmergencyStop"
	ReasonEVDisconnected = "EVDisconnected"
	ReasonHardReset      = "HardReset"
	ReasonLocal          = "Local"
	ReasonOther          = "Other"
	ReasonPowerLoss      = "PowerLoss"
	ReasonReboot         = "Reboot"
	ReasonRemote         = "Remote"
	ReasonSoftReset      = "SoftReset"
	ReasonUnlockCommand  = "UnlockCommand"
)

// Charger 充电桩
type Charger struct {
	ID            string            `json:"id" db:"id"`
	Status        ChargerStatus     `json:"status" db:"status"`
	LastHeartbeat *time.Time        `json:"last_heartbeat,omitempty" db:"last_heartbeat"`
	Configuration map[string]string `json:"configuration" db:"configuration"`
	Connectors    []*Connector      `json:"connectors,omitempty"`
	ConnectedAt   *time.Time        `json:"connected_at,omitempty" db:"connected_at"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// Connector 充电枪，归属于一个充电桩
type Connector struct {
	ID               int64           `json:"-" db:"id"`
	ChargerID        string          `json:"charger_id" db:"charger_id"`
	ConnectorID      int             `json:"connector_id" db:"connector_id"`
	Status           ConnectorStatus `json:"status" db:"status"`
	ErrorCode        string          `json:"error_code" db:"error_code"`
	Info             string          `json:"info,omitempty" db:"info"`
	LastStatusUpdate time.Time       `json:"last_status_update" db:"last_status_update"`
}

// Transaction 充电事务，从 StartTransaction 到 StopTransaction
type Transaction struct {
	ID             int               `json:"id" db:"id"`
	ChargerID      string            `json:"charger_id" db:"charger_id"`
	ConnectorID    int               `json:"connector_id" db:"connector_id"`
	IDTag          string            `json:"id_tag" db:"id_tag"`
	MeterStart     int               `json:"meter_start" db:"meter_start"` // Wh
	MeterStop      *int              `json:"meter_stop,omitempty" db:"meter_stop"`
	StartTime      time.Time         `json:"start_time" db:"start_time"`
	StopTime       *time.Time        `json:"stop_time,omitempty" db:"stop_time"`
	StopReason     string            `json:"stop_reason,omitempty" db:"stop_reason"`
	Status         TransactionStatus `json:"status" db:"status"`
	EnergyConsumed float64           `json:"energy_consumed" db:"energy_consumed"` // kWh
}

// SampledValue 单个采样读数
type SampledValue struct {
	Value     string `json:"value"`
	Measurand string `json:"measurand,omitempty"`
	Unit      string `json:"unit,omitempty"`
	Context   string `json:"context,omitempty"`
}

// MeterValue 一次电表上报，归属于一个事务，只追加不修改
type MeterValue struct {
	ID            int64          `json:"id" db:"id"`
	TransactionID int            `json:"transaction_id" db:"transaction_id"`
	ConnectorID   int            `json:"connector_id" db:"connector_id"`
	Timestamp     time.Time      `json:"timestamp" db:"timestamp"`
	SampledValues []SampledValue `json:"sampled_values" db:"sampled_values"`
}
