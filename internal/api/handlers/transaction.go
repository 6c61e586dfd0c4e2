package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/models"
)

// ListTransactions 充电订单列表
func (h *Handler) ListTransactions(c *gin.Context) {
	transactions, err := h.txSvc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, transactions)
}

// ListChargerTransactions 指定充电桩的订单列表
func (h *Handler) ListChargerTransactions(c *gin.Context) {
	chargerID := c.Param("id")
	if _, err := h.chargerSvc.GetCharger(c.Request.Context(), chargerID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Charger not found"})
			return
		}
		h.logger.Error("Failed to get charger", zap.String("charger_id", chargerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get charger"})
		return
	}

	transactions, err := h.txSvc.ListByCharger(c.Request.Context(), chargerID)
	if err != nil {
		h.logger.Error("Failed to list transactions", zap.String("charger_id", chargerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}
	c.JSON(http.StatusOK, transactions)
}

// GetTransaction 订单详情
func (h *Handler) GetTransaction(c *gin.Context) {
	transactionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	tx, err := h.txSvc.Get(c.Request.Context(), transactionID)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get transaction", zap.Int("transaction_id", transactionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get transaction"})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GetMeterValues 订单电表读数
func (h *Handler) GetMeterValues(c *gin.Context) {
	transactionID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	values, err := h.txSvc.MeterValues(c.Request.Context(), transactionID)
	if err != nil {
		h.logger.Error("Failed to list meter values", zap.Int("transaction_id", transactionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list meter values"})
		return
	}
	c.JSON(http.StatusOK, values)
}
