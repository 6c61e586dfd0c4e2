package ocpp

// BootNotificationRequest 充电桩上电注册
type BootNotificationRequest struct {
	ChargePointVendor       string `json:"chargePointVendor"`
	ChargePointModel        string `json:"chargePointModel"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	Iccid                   string `json:"iccid,omitempty"`
	Imsi                    string `json:"imsi,omitempty"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
}

// BootNotificationResponse 注册回执，interval 为心跳间隔（秒）
type BootNotificationResponse struct {
	Status      string `json:"status"`
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
}

// AuthorizeRequest 授权请求
type AuthorizeRequest struct {
	IdTag string `json:"idTag"`
}

// AuthorizeResponse 授权回执
type AuthorizeResponse struct {
	IdTagInfo IdTagInfo `json:"idTagInfo"`
}

// StartTransactionRequest 开始充电事务
type StartTransactionRequest struct {
	ConnectorID   int    `json:"connectorId"`
	IdTag         string `json:"idTag"`
	MeterStart    int    `json:"meterStart"`
	Timestamp     string `json:"timestamp"`
	ReservationID *int   `json:"reservationId,omitempty"`
}

// StartTransactionResponse 事务创建回执
type StartTransactionResponse struct {
	TransactionID int       `json:"transactionId"`
	IdTagInfo     IdTagInfo `json:"idTagInfo"`
}

// StopTransactionRequest 结束充电事务
type StopTransactionRequest struct {
	TransactionID int    `json:"transactionId"`
	IdTag         string `json:"idTag,omitempty"`
	MeterStop     int    `json:"meterStop"`
	Timestamp     string `json:"timestamp"`
	Reason        string `json:"reason,omitempty"`
}

// StopTransactionResponse 事务结束回执
type StopTransactionResponse struct {
	IdTagInfo IdTagInfo `json:"idTagInfo"`
}

// StatusNotificationRequest 充电枪状态上报
type StatusNotificationRequest struct {
	ConnectorID     int    `json:"connectorId"`
	Status          string `json:"status"`
	ErrorCode       string `json:"errorCode"`
	Info            string `json:"info,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`
	VendorID        string `json:"vendorId,omitempty"`
	VendorErrorCode string `json:"vendorErrorCode,omitempty"`
}

// SampledValue 采样读数
type SampledValue struct {
	Value     string `json:"value"`
	Context   string `json:"context,omitempty"`
	Format    string `json:"format,omitempty"`
	Measurand string `json:"measurand,omitempty"`
	Location  string `json:"location,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

// 累计电能测量项，用于能耗计算
const MeasurandEnergyActiveImportRegister = "Energy.Active.Import.Register"

// MeterValueEntry 一组带时间戳的采样
type MeterValueEntry struct {
	Timestamp    string         `json:"timestamp"`
	SampledValue []SampledValue `json:"sampledValue"`
}

// MeterValuesRequest 电表数据上报
type MeterValuesRequest struct {
	ConnectorID   int               `json:"connectorId"`
	TransactionID *int              `json:"transactionId,omitempty"`
	MeterValue    []MeterValueEntry `json:"meterValue"`
}

// HeartbeatResponse 心跳回执
type HeartbeatResponse struct {
	CurrentTime string `json:"currentTime"`
}

// RemoteStartTransactionRequest 远程启动充电
type RemoteStartTransactionRequest struct {
	ConnectorID *int   `json:"connectorId,omitempty"`
	IdTag       string `json:"idTag"`
}

// RemoteStopTransactionRequest 远程停止充电
type RemoteStopTransactionRequest struct {
	TransactionID int `json:"transactionId"`
}

// ResetRequest 重启充电桩，type 为 Hard 或 Soft
type ResetRequest struct {
	Type string `json:"type"`
}

// UnlockConnectorRequest 解锁充电枪
type UnlockConnectorRequest struct {
	ConnectorID int `json:"connectorId"`
}

// ChangeConfigurationRequest 修改充电桩配置
type ChangeConfigurationRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ChangeConfigurationResponse 配置修改应答
// Status 取值 Accepted / Rejected / RebootRequired / NotSupported
type ChangeConfigurationResponse struct {
	Status string `json:"status"`
}
