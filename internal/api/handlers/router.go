package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/chargegate/pkg/ws"
)

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// API 路由
	api := r.Group("/api")
	{
		// 充电桩
		api.GET("/chargers", h.ListChargers)
		api.GET("/chargers/:id", h.GetCharger)
		api.GET("/chargers/:id/connectors", h.ListConnectors)
		api.GET("/chargers/:id/connectors/:cid", h.GetConnector)
		api.GET("/chargers/:id/transactions", h.ListChargerTransactions)

		// 远程命令
		api.POST("/chargers/:id/connectors/:cid/start", h.RemoteStart)
		api.POST("/chargers/:id/connectors/:cid/stop", h.RemoteStop)
		api.POST("/chargers/:id/reset", h.ResetCharger)
		api.POST("/chargers/:id/unlock/:cid", h.UnlockConnector)
		api.POST("/chargers/:id/configuration", h.ChangeConfiguration)

		// 事务
		api.GET("/transactions", h.ListTransactions)
		api.GET("/transactions/:id", h.GetTransaction)
		api.GET("/transactions/:id/meter-values", h.GetMeterValues)
	}

	// 充电桩 OCPP 接入点
	r.GET("/ocpp/*path", func(c *gin.Context) {
		h.gw.HandleUpgrade(c.Writer, c.Request)
	})

	// 观察端 WebSocket
	r.GET("/client", h.HandleObserverWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// HandleObserverWebSocket 观察端（运营后台）WebSocket 接入
func (h *Handler) HandleObserverWebSocket(c *gin.Context) {
	clientID := c.Query("id")
	if clientID == "" {
		clientID = "client-" + uuid.NewString()[:8]
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade observer websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(clientID, h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"connected_chargers": h.gw.ConnectedCount(),
		"ws_clients":         h.wsHub.ClientCount(),
	})
}
