package ocpp

// MessageType OCPP-J 消息类型（数组第一个元素）
type MessageType int

const (
	Call       MessageType = 2
	CallResult MessageType = 3
	CallError  MessageType = 4
)

// Action OCPP 1.6 动作名
type Action string

// 充电桩发起的动作
const (
	ActionBootNotification   Action = "BootNotification"
	ActionAuthorize          Action = "Authorize"
	ActionStartTransaction   Action = "StartTransaction"
	ActionStopTransaction    Action = "StopTransaction"
	ActionStatusNotification Action = "StatusNotification"
	ActionMeterValues        Action = "MeterValues"
	ActionHeartbeat          Action = "Heartbeat"
)

// 中心系统发起的动作
const (
	ActionRemoteStartTransaction Action = "RemoteStartTransaction"
	ActionRemoteStopTransaction  Action = "RemoteStopTransaction"
	ActionReset                  Action = "Reset"
	ActionUnlockConnector        Action = "UnlockConnector"
	ActionChangeConfiguration    Action = "ChangeConfiguration"
)

// inboundActions 网关接受的入站动作集合，不在集合内的动作回复 NotImplemented
var inboundActions = map[Action]bool{
	ActionBootNotification:   true,
	ActionAuthorize:          true,
	ActionStartTransaction:   true,
	ActionStopTransaction:    true,
	ActionStatusNotification: true,
	ActionMeterValues:        true,
	ActionHeartbeat:          true,
}

// IsInboundAction 判断动作是否为已知的入站动作
func IsInboundAction(a Action) bool {
	return inboundActions[a]
}

// ErrorCode OCPP-J 协议错误码
type ErrorCode string

const (
	ErrNotImplemented                ErrorCode = "NotImplemented"
	ErrNotSupported                  ErrorCode = "NotSupported"
	ErrInternalError                 ErrorCode = "InternalError"
	ErrProtocolError                 ErrorCode = "ProtocolError"
	ErrSecurityError                 ErrorCode = "SecurityError"
	ErrFormationViolation            ErrorCode = "FormationViolation"
	ErrPropertyConstraintViolation   ErrorCode = "PropertyConstraintViolation"
	ErrOccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	ErrTypeConstraintViolation       ErrorCode = "TypeConstraintViolation"
	ErrGenericError                  ErrorCode = "GenericError"
)

// AuthorizationStatus idTag 授权结果
type AuthorizationStatus string

const (
	AuthAccepted     AuthorizationStatus = "Accepted"
	AuthBlocked      AuthorizationStatus = "Blocked"
	AuthExpired      AuthorizationStatus = "Expired"
	AuthInvalid      AuthorizationStatus = "Invalid"
	AuthConcurrentTx AuthorizationStatus = "ConcurrentTx"
)

// IdTagInfo 授权回执
type IdTagInfo struct {
	Status      AuthorizationStatus `json:"status"`
	ExpiryDate  string              `json:"expiryDate,omitempty"`
	ParentIdTag string              `json:"parentIdTag,omitempty"`
}
