package gateway

import (
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/models"
	"github.com/langchou/chargegate/internal/ocpp"
)

// dispatchCall 路由入站 CALL 到对应的动作处理器
// 每个合法 CALL 恰好产生一个同 ID 的回复帧；处理器崩溃转为 InternalError，不影响连接
func (g *Gateway) dispatchCall(conn *Connection, msg *ocpp.Message) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Handler panic",
				zap.String("charger_id", conn.ChargerID()),
				zap.String("action", string(msg.Action)),
				zap.Any("panic", r))
			g.sendError(conn, msg.ID, ocpp.ErrInternalError, "internal error")
		}
	}()

	if !ocpp.IsInboundAction(msg.Action) {
		g.sendError(conn, msg.ID, ocpp.ErrNotImplemented, "action "+string(msg.Action)+" not implemented")
		return
	}

	g.logger.Debug("Received call",
		zap.String("charger_id", conn.ChargerID()),
		zap.String("action", string(msg.Action)),
		zap.String("message_id", msg.ID))

	switch msg.Action {
	case ocpp.ActionBootNotification:
		g.handleBootNotification(conn, msg)
	case ocpp.ActionAuthorize:
		g.handleAuthorize(conn, msg)
	case ocpp.ActionStartTransaction:
		g.handleStartTransaction(conn, msg)
	case ocpp.ActionStopTransaction:
		g.handleStopTransaction(conn, msg)
	case ocpp.ActionStatusNotification:
		g.handleStatusNotification(conn, msg)
	case ocpp.ActionMeterValues:
		g.handleMeterValues(conn, msg)
	case ocpp.ActionHeartbeat:
		g.handleHeartbeat(conn, msg)
	}
}

func (g *Gateway) handleBootNotification(conn *Connection, msg *ocpp.Message) {
	var req ocpp.BootNotificationRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		g.sendError(conn, msg.ID, ocpp.ErrFormationViolation, "invalid BootNotification payload")
		return
	}

	configuration := bootConfiguration(&req)
	if err := g.chargerSvc.HandleBoot(g.ctx, conn.ChargerID(), configuration); err != nil {
		g.logger.Error("Boot handling failed", zap.String("charger_id", conn.ChargerID()), zap.Error(err))
		g.sendError(conn, msg.ID, ocpp.ErrInternalError, "boot handling failed")
		return
	}

	g.sendResult(conn, msg.ID, ocpp.BootNotificationResponse{
		Status:      "Accepted",
		CurrentTime: now(),
		Interval:    int(g.cfg.HeartbeatInterval.Seconds()),
	})
	g.broadcast("boot_notification", map[string]interface{}{
		"charger_id": conn.ChargerID(),
		"vendor":     req.ChargePointVendor,
		"model":      req.ChargePointModel,
	})
}

func (g *Gateway) handleAuthorize(conn *Connection, msg *ocpp.Message) {
	var req ocpp.AuthorizeRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil || req.IdTag == "" {
		g.sendError(conn, msg.ID, ocpp.ErrFormationViolation, "missing required idTag")
		return
	}

	info := g.authSvc.Authorize(req.IdTag)
	g.sendResult(conn, msg.ID, ocpp.AuthorizeResponse{IdTagInfo: info})
}

func (g *Gateway) handleStartTransaction(conn *Connection, msg *ocpp.Message) {
	var req ocpp.StartTransactionRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		g.sendError(conn, msg.ID, ocpp.ErrFormationViolation, "invalid StartTransaction payload")
		return
	}

	// 再次授权：拒绝的标签不会产生可计费会话
	info := g.authSvc.Authorize(req.IdTag)
	if info.Status != ocpp.AuthAccepted {
		g.logger.Warn("Start transaction rejected",
			zap.String("charger_id", conn.ChargerID()),
			zap.String("id_tag", req.IdTag),
			zap.String("status", string(info.Status)))
		g.sendResult(conn, msg.ID, ocpp.StartTransactionResponse{TransactionID: 0, IdTagInfo: info})
		return
	}

	tx, err := g.txSvc.Start(g.ctx, conn.ChargerID(), req.ConnectorID, req.IdTag, req.MeterStart)
	if err != nil {
		g.logger.Error("Failed to start transaction", zap.String("charger_id", conn.ChargerID()), zap.Error(err))
		g.sendError(conn, msg.ID, ocpp.ErrInternalError, "failed to start transaction")
		return
	}

	g.sendResult(conn, msg.ID, ocpp.StartTransactionResponse{TransactionID: tx.ID, IdTagInfo: info})
	g.broadcast("transaction_started", map[string]interface{}{
		"charger_id":     conn.ChargerID(),
		"connector_id":   req.ConnectorID,
		"transaction_id": tx.ID,
	})
}

func (g *Gateway) handleStopTransaction(conn *Connection, msg *ocpp.Message) {
	var req ocpp.StopTransactionRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		g.sendError(conn, msg.ID, ocpp.ErrFormationViolation, "invalid StopTransaction payload")
		return
	}

	tx, err := g.txSvc.Stop(g.ctx, req.TransactionID, req.MeterStop, req.Reason)
	switch {
	case errors.Is(err, models.ErrNotFound):
		// 找不到事务不阻塞充电桩，回 Accepted 并留痕
		g.logger.Warn("Stop for unknown transaction",
			zap.String("charger_id", conn.ChargerID()),
			zap.Int("transaction_id", req.TransactionID))
	case err != nil:
		g.logger.Error("Failed to stop transaction", zap.String("charger_id", conn.ChargerID()), zap.Error(err))
		g.sendError(conn, msg.ID, ocpp.ErrInternalError, "failed to stop transaction")
		return
	}

	g.sendResult(conn, msg.ID, ocpp.StopTransactionResponse{
		IdTagInfo: ocpp.IdTagInfo{Status: ocpp.AuthAccepted},
	})
	if tx != nil {
		g.broadcast("transaction_stopped", map[string]interface{}{
			"charger_id":     conn.ChargerID(),
			"transaction_id": tx.ID,
			"energy_kwh":     tx.EnergyConsumed,
		})
	}
}

func (g *Gateway) handleStatusNotification(conn *Connection, msg *ocpp.Message) {
	var req ocpp.StatusNotificationRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		g.sendError(conn, msg.ID, ocpp.ErrFormationViolation, "invalid StatusNotification payload")
		return
	}

	err := g.chargerSvc.UpdateConnectorStatus(g.ctx, conn.ChargerID(), req.ConnectorID,
		models.ConnectorStatus(req.Status), req.ErrorCode, req.Info)
	if err != nil {
		g.logger.Error("Failed to update connector status", zap.String("charger_id", conn.ChargerID()), zap.Error(err))
		g.sendError(conn, msg.ID, ocpp.ErrInternalError, "failed to update connector status")
		return
	}

	g.sendResult(conn, msg.ID, nil)
	g.broadcast("status_notification", map[string]interface{}{
		"charger_id":   conn.ChargerID(),
		"connector_id": req.ConnectorID,
		"status":       req.Status,
		"error_code":   req.ErrorCode,
	})
}

func (g *Gateway) handleMeterValues(conn *Connection, msg *ocpp.Message) {
	var req ocpp.MeterValuesRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		g.sendError(conn, msg.ID, ocpp.ErrFormationViolation, "invalid MeterValues payload")
		return
	}

	if req.TransactionID == nil {
		// 没有事务上下文的采样无法归账，按协议丢弃
		g.logger.Debug("Meter values without transaction discarded",
			zap.String("charger_id", conn.ChargerID()),
			zap.Int("connector_id", req.ConnectorID))
		g.sendResult(conn, msg.ID, nil)
		return
	}

	for _, entry := range req.MeterValue {
		mv := &models.MeterValue{
			TransactionID: *req.TransactionID,
			ConnectorID:   req.ConnectorID,
			Timestamp:     parseTimestamp(entry.Timestamp),
			SampledValues: convertSamples(entry.SampledValue),
		}
		if err := g.txSvc.AddMeterValue(g.ctx, mv); err != nil {
			g.logger.Error("Failed to record meter value",
				zap.String("charger_id", conn.ChargerID()),
				zap.Int("transaction_id", *req.TransactionID),
				zap.Error(err))
		}
	}

	g.sendResult(conn, msg.ID, nil)
}

func (g *Gateway) handleHeartbeat(conn *Connection, msg *ocpp.Message) {
	if err := g.chargerSvc.Heartbeat(g.ctx, conn.ChargerID()); err != nil {
		g.logger.Error("Heartbeat handling failed", zap.String("charger_id", conn.ChargerID()), zap.Error(err))
	}
	// 心跳永远回当前时间，记录失败不阻塞充电桩
	g.sendResult(conn, msg.ID, ocpp.HeartbeatResponse{CurrentTime: now()})
	g.broadcast("heartbeat", map[string]interface{}{
		"charger_id": conn.ChargerID(),
		"timestamp":  now(),
	})
}

// sendResult 回复 CALLRESULT
func (g *Gateway) sendResult(conn *Connection, messageID string, payload interface{}) {
	frame, err := ocpp.MarshalCallResult(messageID, payload)
	if err != nil {
		g.logger.Error("Failed to marshal call result", zap.Error(err))
		return
	}
	if err := conn.WriteText(frame); err != nil {
		g.logger.Warn("Failed to write call result",
			zap.String("charger_id", conn.ChargerID()), zap.Error(err))
	}
}

// sendError 回复 CALLERROR
func (g *Gateway) sendError(conn *Connection, messageID string, code ocpp.ErrorCode, description string) {
	frame, err := ocpp.MarshalCallError(messageID, code, description, nil)
	if err != nil {
		g.logger.Error("Failed to marshal call error", zap.Error(err))
		return
	}
	if err := conn.WriteText(frame); err != nil {
		g.logger.Warn("Failed to write call error",
			zap.String("charger_id", conn.ChargerID()), zap.Error(err))
	}
}

// bootConfiguration BootNotification 元数据整理为配置键值
func bootConfiguration(req *ocpp.BootNotificationRequest) map[string]string {
	configuration := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			configuration[key] = value
		}
	}
	set("chargePointVendor", req.ChargePointVendor)
	set("chargePointModel", req.ChargePointModel)
	set("chargePointSerialNumber", req.ChargePointSerialNumber)
	set("chargeBoxSerialNumber", req.ChargeBoxSerialNumber)
	set("firmwareVersion", req.FirmwareVersion)
	set("iccid", req.Iccid)
	set("imsi", req.Imsi)
	set("meterSerialNumber", req.MeterSerialNumber)
	set("meterType", req.MeterType)
	return configuration
}

func convertSamples(values []ocpp.SampledValue) []models.SampledValue {
	samples := make([]models.SampledValue, 0, len(values))
	for _, v := range values {
		samples = append(samples, models.SampledValue{
			Value:     v.Value,
			Measurand: v.Measurand,
			Unit:      v.Unit,
			Context:   v.Context,
		})
	}
	return samples
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Now()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
