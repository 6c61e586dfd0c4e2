package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
)

// 充电会话状态常量
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionStopped   = "stopped"
)

// 事件常量
const (
	EventComplete = "complete" // 正常结束（收到 StopTransaction）
	EventStop     = "stop"     // 异常中止（远程终止、桩离线清理）
)

// Session 单个充电会话的状态机
// 保证 active 只会进入一次终态，重复的 StopTransaction 不会二次记账
type Session struct {
	mu    sync.RWMutex
	txID  int
	fsm   *fsm.FSM
	since time.Time
}

// NewSession 创建会话状态机
func NewSession(txID int, initialState string) *Session {
	if initialState == "" {
		initialState = SessionActive
	}

	s := &Session{
		txID:  txID,
		since: time.Now(),
	}

	s.fsm = fsm.NewFSM(
		initialState,
		fsm.Events{
			{Name: EventComplete, Src: []string{SessionActive}, Dst: SessionCompleted},
			{Name: EventStop, Src: []string{SessionActive}, Dst: SessionStopped},
		},
		fsm.Callbacks{},
	)

	return s
}

// Current 获取当前状态
func (s *Session) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fsm.Current()
}

// Trigger 触发事件
func (s *Session) Trigger(event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("trigger event %s: %w", event, err)
	}

	s.since = time.Now()
	return nil
}

// CanTransition 检查是否可以转换
func (s *Session) CanTransition(event string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fsm.Can(event)
}

// Manager 会话状态机管理器，按事务 ID 索引
type Manager struct {
	mu       sync.RWMutex
	sessions map[int]*Session
}

// NewManager 创建管理器
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int]*Session),
	}
}

// GetOrCreate 获取或创建会话
func (m *Manager) GetOrCreate(txID int, initialState string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[txID]; ok {
		return s
	}

	s := NewSession(txID, initialState)
	m.sessions[txID] = s
	return s
}

// Get 获取会话
func (m *Manager) Get(txID int) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[txID]
	return s, ok
}

// Remove 移除已终结的会话
func (m *Manager) Remove(txID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, txID)
}

// Count 当前跟踪的会话数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
