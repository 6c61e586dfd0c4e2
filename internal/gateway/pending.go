package gateway

import (
	"encoding/json"
	"sync"
)

// Outcome 一次远程调用的结果，payload 与 err 二选一
type Outcome struct {
	Payload json.RawMessage
	Err     error
}

type pendingCall struct {
	chargerID string
	ch        chan Outcome
}

// Correlator 在途调用表，按消息 ID 关联 CALLRESULT / CALLERROR
// 每个消息 ID 至多结算一次：先删后发，晚到的结果匹配不到条目
type Correlator struct {
	mu    sync.Mutex
	calls map[string]*pendingCall
}

// NewCorrelator 创建在途调用表
func NewCorrelator() *Correlator {
	return &Correlator{
		calls: make(map[string]*pendingCall),
	}
}

// Add 登记一次在途调用，返回等待结果的通道
func (c *Correlator) Add(messageID, chargerID string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	c.mu.Lock()
	c.calls[messageID] = &pendingCall{chargerID: chargerID, ch: ch}
	c.mu.Unlock()
	return ch
}

// Resolve 以 CALLRESULT 结算，返回是否命中在途条目
func (c *Correlator) Resolve(messageID string, payload json.RawMessage) bool {
	call := c.take(messageID)
	if call == nil {
		return false
	}
	call.ch <- Outcome{Payload: payload}
	return true
}

// Reject 以错误结算（CALLERROR、超时、断线），返回是否命中
func (c *Correlator) Reject(messageID string, err error) bool {
	call := c.take(messageID)
	if call == nil {
		return false
	}
	call.ch <- Outcome{Err: err}
	return true
}

// Remove 丢弃在途条目，不结算
func (c *Correlator) Remove(messageID string) {
	c.mu.Lock()
	delete(c.calls, messageID)
	c.mu.Unlock()
}

// FailAllForCharger 断线时立即失败该桩的全部在途调用，返回失败条数
func (c *Correlator) FailAllForCharger(chargerID string, err error) int {
	c.mu.Lock()
	var failed []*pendingCall
	for id, call := range c.calls {
		if call.chargerID == chargerID {
			failed = append(failed, call)
			delete(c.calls, id)
		}
	}
	c.mu.Unlock()

	for _, call := range failed {
		call.ch <- Outcome{Err: err}
	}
	return len(failed)
}

// Count 当前在途调用数
func (c *Correlator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// take 原子地取出并删除条目
func (c *Correlator) take(messageID string) *pendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	call, ok := c.calls[messageID]
	if !ok {
		return nil
	}
	delete(c.calls, messageID)
	return call
}
