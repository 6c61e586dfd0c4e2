package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/models"
)

// ListChargers 充电桩列表
func (h *Handler) ListChargers(c *gin.Context) {
	chargers, err := h.chargerSvc.ListChargers(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list chargers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list chargers"})
		return
	}
	c.JSON(http.StatusOK, chargers)
}

// GetCharger 充电桩详情（含在线标记）
func (h *Handler) GetCharger(c *gin.Context) {
	chargerID := c.Param("id")
	charger, err := h.chargerSvc.GetCharger(c.Request.Context(), chargerID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Charger not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get charger", zap.String("charger_id", chargerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get charger"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"charger":   charger,
		"connected": h.gw.IsConnected(chargerID),
	})
}

// ListConnectors 充电枪列表
func (h *Handler) ListConnectors(c *gin.Context) {
	chargerID := c.Param("id")
	charger, err := h.chargerSvc.GetCharger(c.Request.Context(), chargerID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Charger not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to list connectors", zap.String("charger_id", chargerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list connectors"})
		return
	}
	c.JSON(http.StatusOK, charger.Connectors)
}

// GetConnector 充电枪详情
func (h *Handler) GetConnector(c *gin.Context) {
	chargerID := c.Param("id")
	connectorID, err := strconv.Atoi(c.Param("cid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid connector id"})
		return
	}

	connector, err := h.chargerSvc.GetConnector(c.Request.Context(), chargerID, connectorID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Connector not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get connector", zap.String("charger_id", chargerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get connector"})
		return
	}
	c.JSON(http.StatusOK, connector)
}
