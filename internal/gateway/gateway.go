package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/config"
	"github.com/langchou/chargegate/internal/ocpp"
	"github.com/langchou/chargegate/internal/service"
	"github.com/langchou/chargegate/pkg/ws"
)

var (
	// ErrNotConnected 目标充电桩没有在线连接
	ErrNotConnected = errors.New("charger not connected")
	// ErrCommandTimeout 远程命令在超时窗口内没有收到回执
	ErrCommandTimeout = errors.New("command timed out")
	// ErrDisconnected 等待回执期间连接断开
	ErrDisconnected = errors.New("charger disconnected")
)

// Gateway OCPP 1.6J 协议网关
// 每条连接一个读协程，注册表与在途调用表为共享结构
type Gateway struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *Registry
	correlator *Correlator
	chargerSvc *service.ChargerService
	txSvc      *service.TransactionService
	authSvc    *service.AuthService
	hub        *ws.Hub

	upgrader websocket.Upgrader
	ctx      context.Context
	cancel   context.CancelFunc
}

// New 创建网关
func New(
	cfg *config.Config,
	logger *zap.Logger,
	chargerSvc *service.ChargerService,
	txSvc *service.TransactionService,
	authSvc *service.AuthService,
	hub *ws.Hub,
) *Gateway {
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		cfg:        cfg,
		logger:     logger,
		registry:   NewRegistry(),
		correlator: NewCorrelator(),
		chargerSvc: chargerSvc,
		txSvc:      txSvc,
		authSvc:    authSvc,
		hub:        hub,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{"ocpp1.6"},
			CheckOrigin: func(r *http.Request) bool {
				return true // 充电桩直连，不做同源限制
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动探活扫描
func (g *Gateway) Start() {
	go g.livenessLoop()
}

// Stop 停止网关，关闭全部连接
func (g *Gateway) Stop() {
	g.cancel()
	g.registry.ForEach(func(conn *Connection) {
		conn.Close()
	})
	g.logger.Info("Gateway stopped")
}

// HandleUpgrade 处理 /ocpp/{chargerId} 的 WebSocket 升级
func (g *Gateway) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	chargerID := resolveChargerID(r)
	if chargerID == "" {
		if g.cfg.RequireChargerID {
			g.logger.Warn("Rejecting connection without charger id", zap.String("url", r.URL.String()))
			http.Error(w, "charger id required", http.StatusBadRequest)
			return
		}
		chargerID = "charger-" + uuid.NewString()[:8]
		g.logger.Warn("No charger id provided, generated one", zap.String("charger_id", chargerID))
	}

	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	conn := NewConnection(chargerID, sock)
	sock.SetPongHandler(func(string) error {
		conn.SetAlive(true)
		return nil
	})

	if old := g.registry.Register(conn); old != nil {
		// 同 ID 重连，顶替旧连接
		g.logger.Info("Connection superseded", zap.String("charger_id", chargerID))
		old.Close()
	}

	if err := g.chargerSvc.RegisterConnection(g.ctx, chargerID); err != nil {
		g.logger.Error("Failed to register connection", zap.String("charger_id", chargerID), zap.Error(err))
	}

	g.logger.Info("Charger connected", zap.String("charger_id", chargerID))
	g.broadcast("charger_connected", map[string]interface{}{"charger_id": chargerID})

	go g.readLoop(conn, sock)
}

// readLoop 单连接的入站处理循环，消息按接收顺序处理
func (g *Gateway) readLoop(conn *Connection, sock *websocket.Conn) {
	defer g.closeConnection(conn)

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Warn("Read error", zap.String("charger_id", conn.ChargerID()), zap.Error(err))
			}
			return
		}
		g.handleFrame(conn, data)
	}
}

// closeConnection 连接退出时的清理：移除注册、标记离线、失败在途调用
func (g *Gateway) closeConnection(conn *Connection) {
	conn.Close()
	if !g.registry.Unregister(conn) {
		// 已被重连顶替，状态归新连接管
		return
	}

	chargerID := conn.ChargerID()
	if n := g.correlator.FailAllForCharger(chargerID, ErrDisconnected); n > 0 {
		g.logger.Warn("Failed pending calls on disconnect",
			zap.String("charger_id", chargerID), zap.Int("count", n))
	}
	if err := g.chargerSvc.UnregisterConnection(g.ctx, chargerID); err != nil {
		g.logger.Error("Failed to mark charger offline", zap.String("charger_id", chargerID), zap.Error(err))
	}

	g.logger.Info("Charger disconnected", zap.String("charger_id", chargerID))
	g.broadcast("charger_disconnected", map[string]interface{}{"charger_id": chargerID})
}

// handleFrame 解析并分发一个入站帧
func (g *Gateway) handleFrame(conn *Connection, data []byte) {
	msg, err := ocpp.ParseMessage(data)
	if err != nil {
		// 传输层错误：丢弃不回，消息 ID 可能已不可恢复
		g.logger.Warn("Dropping malformed frame",
			zap.String("charger_id", conn.ChargerID()), zap.Error(err))
		return
	}

	switch msg.Type {
	case ocpp.Call:
		g.dispatchCall(conn, msg)
	case ocpp.CallResult:
		if !g.correlator.Resolve(msg.ID, msg.Payload) {
			g.logger.Warn("Unmatched call result dropped",
				zap.String("charger_id", conn.ChargerID()), zap.String("message_id", msg.ID))
		}
	case ocpp.CallError:
		if !g.correlator.Reject(msg.ID, msg.Error) {
			g.logger.Warn("Unmatched call error dropped",
				zap.String("charger_id", conn.ChargerID()), zap.String("message_id", msg.ID))
		}
	}
}

// SendCommand 向充电桩下发远程命令并等待回执载荷
func (g *Gateway) SendCommand(ctx context.Context, chargerID string, action ocpp.Action, payload interface{}) (json.RawMessage, error) {
	conn, ok := g.registry.Get(chargerID)
	if !ok {
		return nil, fmt.Errorf("charger %s: %w", chargerID, ErrNotConnected)
	}

	messageID := uuid.NewString()
	frame, err := ocpp.MarshalCall(messageID, action, payload)
	if err != nil {
		return nil, fmt.Errorf("marshal call: %w", err)
	}

	ch := g.correlator.Add(messageID, chargerID)
	if err := conn.WriteText(frame); err != nil {
		g.correlator.Remove(messageID)
		return nil, fmt.Errorf("write call: %w", err)
	}

	g.logger.Debug("Command sent",
		zap.String("charger_id", chargerID),
		zap.String("action", string(action)),
		zap.String("message_id", messageID))

	timer := time.NewTimer(g.cfg.CommandTimeout)
	defer timer.Stop()

	select {
	case outcome := <-ch:
		return outcome.Payload, outcome.Err
	case <-timer.C:
		g.correlator.Remove(messageID)
		return nil, fmt.Errorf("%s to %s: %w", action, chargerID, ErrCommandTimeout)
	case <-ctx.Done():
		g.correlator.Remove(messageID)
		return nil, ctx.Err()
	}
}

// livenessLoop 周期探活：上个周期没有 pong 的连接被强制关闭
func (g *Gateway) livenessLoop() {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

// sweep 一轮探活扫描
func (g *Gateway) sweep() {
	g.registry.ForEach(func(conn *Connection) {
		if !conn.Alive() {
			g.logger.Warn("Charger connection dead, terminating",
				zap.String("charger_id", conn.ChargerID()))
			// 关闭触发 readLoop 退出并完成清理
			conn.Close()
			return
		}
		conn.SetAlive(false)
		if err := conn.Ping(g.cfg.PingInterval / 2); err != nil {
			g.logger.Warn("Ping failed", zap.String("charger_id", conn.ChargerID()), zap.Error(err))
		}
	})
}

// ConnectedCount 当前在线充电桩数
func (g *Gateway) ConnectedCount() int {
	return g.registry.Count()
}

// IsConnected 指定充电桩是否在线
func (g *Gateway) IsConnected(chargerID string) bool {
	_, ok := g.registry.Get(chargerID)
	return ok
}

// broadcast 向观察端广播状态变化
func (g *Gateway) broadcast(event string, data map[string]interface{}) {
	if g.hub == nil {
		return
	}
	data["event"] = event
	g.hub.BroadcastStateUpdate(data)
}

// resolveChargerID 依次从路径、查询参数、自定义请求头解析充电桩 ID
func resolveChargerID(r *http.Request) string {
	path := strings.Trim(r.URL.Path, "/")
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "ocpp" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1]
		}
	}

	if id := r.URL.Query().Get("chargerId"); id != "" {
		return id
	}

	return r.Header.Get("X-Charger-Id")
}
