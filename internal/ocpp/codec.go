package ocpp

import (
	"encoding/json"
	"fmt"
)

// Message 解析后的 OCPP-J 消息
type Message struct {
	Type    MessageType
	ID      string
	Action  Action          // 仅 CALL
	Payload json.RawMessage // CALL / CALLRESULT 的载荷
	Error   *ErrorPayload   // 仅 CALLERROR
}

// ErrorPayload CALLERROR 的错误体
type ErrorPayload struct {
	ErrorCode        ErrorCode       `json:"errorCode"`
	ErrorDescription string          `json:"errorDescription"`
	ErrorDetails     json.RawMessage `json:"errorDetails,omitempty"`
}

func (e *ErrorPayload) Error() string {
	return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorDescription)
}

var emptyPayload = json.RawMessage("{}")

// ParseMessage 解析原始帧为 OCPP 消息
// 线格式为 JSON 数组：[2, id, action, payload] / [3, id, payload] / [4, id, errorBody]
func ParseMessage(data []byte) (*Message, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("frame is not a JSON array: %w", err)
	}
	if len(elements) < 3 {
		return nil, fmt.Errorf("frame has %d elements, need at least 3", len(elements))
	}

	var msgType int
	if err := json.Unmarshal(elements[0], &msgType); err != nil {
		return nil, fmt.Errorf("invalid message type: %w", err)
	}

	msg := &Message{Type: MessageType(msgType)}
	if err := json.Unmarshal(elements[1], &msg.ID); err != nil {
		return nil, fmt.Errorf("invalid message id: %w", err)
	}

	switch msg.Type {
	case Call:
		if err := json.Unmarshal(elements[2], &msg.Action); err != nil {
			return nil, fmt.Errorf("invalid action: %w", err)
		}
		// 部分桩省略空载荷
		if len(elements) >= 4 {
			msg.Payload = elements[3]
		} else {
			msg.Payload = emptyPayload
		}
	case CallResult:
		msg.Payload = elements[2]
	case CallError:
		msg.Error = &ErrorPayload{}
		if err := json.Unmarshal(elements[2], msg.Error); err != nil {
			return nil, fmt.Errorf("invalid error payload: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown message type %d", msgType)
	}

	return msg, nil
}

// MarshalCall 序列化 CALL 帧
func MarshalCall(id string, action Action, payload interface{}) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	return json.Marshal([]interface{}{Call, id, action, payload})
}

// MarshalCallResult 序列化 CALLRESULT 帧
func MarshalCallResult(id string, payload interface{}) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	return json.Marshal([]interface{}{CallResult, id, payload})
}

// MarshalCallError 序列化 CALLERROR 帧
func MarshalCallError(id string, code ErrorCode, description string, details interface{}) ([]byte, error) {
	body := map[string]interface{}{
		"errorCode":        code,
		"errorDescription": description,
	}
	if details != nil {
		body["errorDetails"] = details
	}
	return json.Marshal([]interface{}{CallError, id, body})
}
