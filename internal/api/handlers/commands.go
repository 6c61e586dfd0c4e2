package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/gateway"
	"github.com/langchou/chargegate/internal/models"
	"github.com/langchou/chargegate/internal/ocpp"
)

type remoteStartBody struct {
	IdTag string `json:"idTag" binding:"required"`
}

type resetBody struct {
	Type string `json:"type"`
}

type configurationBody struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// RemoteStart 远程启动充电
func (h *Handler) RemoteStart(c *gin.Context) {
	chargerID := c.Param("id")
	connectorID, err := strconv.Atoi(c.Param("cid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connector id"})
		return
	}

	var body remoteStartBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idTag is required"})
		return
	}

	if !h.ensureCharger(c, chargerID) {
		return
	}

	result, err := h.gw.SendCommand(c.Request.Context(), chargerID, ocpp.ActionRemoteStartTransaction, ocpp.RemoteStartTransactionRequest{
		ConnectorID: &connectorID,
		IdTag:       body.IdTag,
	})
	if err != nil {
		h.commandError(c, chargerID, "RemoteStartTransaction", err)
		return
	}
	h.commandResult(c, result)
}

// RemoteStop 远程停止充电，通过活跃订单反查 transactionId
func (h *Handler) RemoteStop(c *gin.Context) {
	chargerID := c.Param("id")
	connectorID, err := strconv.Atoi(c.Param("cid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connector id"})
		return
	}

	if !h.ensureCharger(c, chargerID) {
		return
	}

	tx, err := h.txSvc.GetActive(c.Request.Context(), chargerID, connectorID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active transaction on connector"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get active transaction", zap.String("charger_id", chargerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get active transaction"})
		return
	}

	result, err := h.gw.SendCommand(c.Request.Context(), chargerID, ocpp.ActionRemoteStopTransaction, ocpp.RemoteStopTransactionRequest{
		TransactionID: tx.ID,
	})
	if err != nil {
		h.commandError(c, chargerID, "RemoteStopTransaction", err)
		return
	}
	h.commandResult(c, result)
}

// ResetCharger 重启充电桩，type 缺省为 Hard
func (h *Handler) ResetCharger(c *gin.Context) {
	chargerID := c.Param("id")

	var body resetBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Type == "" {
		body.Type = "Hard"
	}
	if body.Type != "Hard" && body.Type != "Soft" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reset type must be Hard or Soft"})
		return
	}

	if !h.ensureCharger(c, chargerID) {
		return
	}

	result, err := h.gw.SendCommand(c.Request.Context(), chargerID, ocpp.ActionReset, ocpp.ResetRequest{Type: body.Type})
	if err != nil {
		h.commandError(c, chargerID, "Reset", err)
		return
	}
	h.commandResult(c, result)
}

// UnlockConnector 解锁充电枪
func (h *Handler) UnlockConnector(c *gin.Context) {
	chargerID := c.Param("id")
	connectorID, err := strconv.Atoi(c.Param("cid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connector id"})
		return
	}

	if !h.ensureCharger(c, chargerID) {
		return
	}

	result, err := h.gw.SendCommand(c.Request.Context(), chargerID, ocpp.ActionUnlockConnector, ocpp.UnlockConnectorRequest{ConnectorID: connectorID})
	if err != nil {
		h.commandError(c, chargerID, "UnlockConnector", err)
		return
	}
	h.commandResult(c, result)
}

// ChangeConfiguration 下发配置项
func (h *Handler) ChangeConfiguration(c *gin.Context) {
	chargerID := c.Param("id")

	var body configurationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key and value are required"})
		return
	}

	if !h.ensureCharger(c, chargerID) {
		return
	}

	result, err := h.gw.SendCommand(c.Request.Context(), chargerID, ocpp.ActionChangeConfiguration, ocpp.ChangeConfigurationRequest{
		Key:   body.Key,
		Value: body.Value,
	})
	if err != nil {
		h.commandError(c, chargerID, "ChangeConfiguration", err)
		return
	}

	// 桩回了 Rejected/NotSupported 就不能记账，只有生效的配置才落库
	if configurationApplied(result) {
		if err := h.chargerSvc.SetConfiguration(c.Request.Context(), chargerID, map[string]string{body.Key: body.Value}); err != nil {
			h.logger.Warn("Failed to record configuration change", zap.String("charger_id", chargerID), zap.Error(err))
		}
	}
	h.commandResult(c, result)
}

// configurationApplied 判断 ChangeConfiguration 应答是否代表配置已生效
// RebootRequired 表示重启后生效，同样算已接受
func configurationApplied(payload json.RawMessage) bool {
	var resp ocpp.ChangeConfigurationResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return false
	}
	return resp.Status == "Accepted" || resp.Status == "RebootRequired"
}

// ensureCharger 校验充电桩存在，不存在时直接写出 404
func (h *Handler) ensureCharger(c *gin.Context, chargerID string) bool {
	_, err := h.chargerSvc.GetCharger(c.Request.Context(), chargerID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Charger not found"})
		return false
	}
	if err != nil {
		h.logger.Error("Failed to get charger", zap.String("charger_id", chargerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get charger"})
		return false
	}
	return true
}

func (h *Handler) commandResult(c *gin.Context, payload json.RawMessage) {
	c.Data(http.StatusOK, "application/json", payload)
}

// commandError 将网关错误映射为对应的 HTTP 状态码
func (h *Handler) commandError(c *gin.Context, chargerID, action string, err error) {
	var ocppErr *ocpp.ErrorPayload
	switch {
	case errors.Is(err, gateway.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": "Charger is not connected"})
	case errors.Is(err, gateway.ErrCommandTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Charger did not respond in time"})
	case errors.Is(err, gateway.ErrDisconnected):
		c.JSON(http.StatusConflict, gin.H{"error": "Charger disconnected before responding"})
	case errors.As(err, &ocppErr):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":       "Charger rejected the command",
			"code":        ocppErr.ErrorCode,
			"description": ocppErr.ErrorDescription,
		})
	default:
		h.logger.Error("Command failed", zap.String("charger_id", chargerID), zap.String("action", action), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Command failed"})
	}
}
