package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/gateway"
	"github.com/langchou/chargegate/internal/service"
	"github.com/langchou/chargegate/pkg/ws"
)

// Handler HTTP 处理器
type Handler struct {
	logger     *zap.Logger
	chargerSvc *service.ChargerService
	txSvc      *service.TransactionService
	gw         *gateway.Gateway
	wsHub      *ws.Hub
	upgrader   websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	chargerSvc *service.ChargerService,
	txSvc *service.TransactionService,
	gw *gateway.Gateway,
	wsHub *ws.Hub,
) *Handler {
	return &Handler{
		logger:     logger,
		chargerSvc: chargerSvc,
		txSvc:      txSvc,
		gw:         gw,
		wsHub:      wsHub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 观察端允许所有来源
			},
		},
	}
}
