package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn Connection 需要的最小 socket 能力，*websocket.Conn 满足
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Connection 一个在线充电桩的 socket 句柄
type Connection struct {
	chargerID   string
	connectedAt time.Time

	writeMu sync.Mutex // gorilla 的连接只允许一个并发写
	sock    wsConn

	aliveMu sync.Mutex
	alive   bool
}

// NewConnection 包装一条已升级的 WebSocket 连接
func NewConnection(chargerID string, sock wsConn) *Connection {
	return &Connection{
		chargerID:   chargerID,
		connectedAt: time.Now(),
		sock:        sock,
		alive:       true,
	}
}

// ChargerID 连接归属的充电桩
func (c *Connection) ChargerID() string {
	return c.chargerID
}

// ConnectedAt 连接建立时间
func (c *Connection) ConnectedAt() time.Time {
	return c.connectedAt
}

// WriteText 发送一个文本帧
func (c *Connection) WriteText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

// Ping 发送 ping 控制帧
func (c *Connection) Ping(timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.sock.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

// Close 关闭底层连接
func (c *Connection) Close() error {
	return c.sock.Close()
}

// SetAlive 标记存活状态，由 pong 回调与探活扫描维护
func (c *Connection) SetAlive(alive bool) {
	c.aliveMu.Lock()
	c.alive = alive
	c.aliveMu.Unlock()
}

// Alive 上个探活周期内是否收到过 pong
func (c *Connection) Alive() bool {
	c.aliveMu.Lock()
	defer c.aliveMu.Unlock()
	return c.alive
}

// Registry 在线连接表，充电桩 ID 到 socket 的唯一映射
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistry 创建连接表
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
	}
}

// Register 登记连接，同 ID 的旧连接被顶替并返回（由调用方关闭）
func (r *Registry) Register(conn *Connection) (superseded *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	superseded = r.conns[conn.chargerID]
	r.conns[conn.chargerID] = conn
	return superseded
}

// Unregister 移除连接，只在表内仍是这条连接时生效
// 重连顶替后旧连接的清理不能误删新连接
func (r *Registry) Unregister(conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.conns[conn.chargerID]
	if !ok || current != conn {
		return false
	}
	delete(r.conns, conn.chargerID)
	return true
}

// Get 查找在线连接
func (r *Registry) Get(chargerID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[chargerID]
	return conn, ok
}

// ForEach 遍历当前所有连接的快照
func (r *Registry) ForEach(fn func(conn *Connection)) {
	r.mu.RLock()
	snapshot := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		snapshot = append(snapshot, conn)
	}
	r.mu.RUnlock()

	for _, conn := range snapshot {
		fn(conn)
	}
}

// Count 在线连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
