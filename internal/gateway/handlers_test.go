package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/chargegate/internal/config"
	"github.com/langchou/chargegate/internal/models"
	"github.com/langchou/chargegate/internal/ocpp"
	"github.com/langchou/chargegate/internal/service"
)

// stubChargerStore 内存版 ChargerStore
type stubChargerStore struct {
	mu         sync.Mutex
	chargers   map[string]*models.Charger
	connectors map[string]*models.Connector
}

func newStubChargerStore() *stubChargerStore {
	return &stubChargerStore{
		chargers:   make(map[string]*models.Charger),
		connectors: make(map[string]*models.Connector),
	}
}

func (s *stubChargerStore) GetCharger(ctx context.Context, id string) (*models.Charger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	charger, ok := s.chargers[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *charger
	return &copied, nil
}

func (s *stubChargerStore) CreateCharger(ctx context.Context, charger *models.Charger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chargers[charger.ID]; ok {
		return nil
	}
	copied := *charger
	s.chargers[charger.ID] = &copied
	return nil
}

func (s *stubChargerStore) ListChargers(ctx context.Context) ([]*models.Charger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chargers := make([]*models.Charger, 0, len(s.chargers))
	for _, charger := range s.chargers {
		copied := *charger
		chargers = append(chargers, &copied)
	}
	return chargers, nil
}

func (s *stubChargerStore) UpdateChargerStatus(ctx context.Context, id string, status models.ChargerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	charger, ok := s.chargers[id]
	if !ok {
		return models.ErrNotFound
	}
	charger.Status = status
	return nil
}

func (s *stubChargerStore) UpdateHeartbeat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	charger, ok := s.chargers[id]
	if !ok {
		return models.ErrNotFound
	}
	now := time.Now()
	charger.LastHeartbeat = &now
	charger.Status = models.ChargerOnline
	return nil
}

func (s *stubChargerStore) SetConfiguration(ctx context.Context, id string, configuration map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	charger, ok := s.chargers[id]
	if !ok {
		return models.ErrNotFound
	}
	if charger.Configuration == nil {
		charger.Configuration = map[string]string{}
	}
	for k, v := range configuration {
		charger.Configuration[k] = v
	}
	return nil
}

func (s *stubChargerStore) UpsertConnector(ctx context.Context, connector *models.Connector) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%d", connector.ChargerID, connector.ConnectorID)
	_, existed := s.connectors[key]
	copied := *connector
	s.connectors[key] = &copied
	return !existed, nil
}

func (s *stubChargerStore) GetConnector(ctx context.Context, chargerID string, connectorID int) (*models.Connector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	connector, ok := s.connectors[fmt.Sprintf("%s:%d", chargerID, connectorID)]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *connector
	return &copied, nil
}

func (s *stubChargerStore) ListConnectors(ctx context.Context, chargerID string) ([]*models.Connector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var connectors []*models.Connector
	for _, connector := range s.connectors {
		if connector.ChargerID == chargerID {
			copied := *connector
			connectors = append(connectors, &copied)
		}
	}
	return connectors, nil
}

// stubTxStore 内存版 TransactionStore
type stubTxStore struct {
	mu          sync.Mutex
	txs         map[int]*models.Transaction
	meterValues map[int][]*models.MeterValue
}

func newStubTxStore() *stubTxStore {
	return &stubTxStore{
		txs:         make(map[int]*models.Transaction),
		meterValues: make(map[int][]*models.MeterValue),
	}
}

func (s *stubTxStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *tx
	s.txs[tx.ID] = &copied
	return nil
}

func (s *stubTxStore) GetTransaction(ctx context.Context, id int) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *tx
	return &copied, nil
}

func (s *stubTxStore) FinishTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[tx.ID]; !ok {
		return models.ErrNotFound
	}
	copied := *tx
	s.txs[tx.ID] = &copied
	return nil
}

func (s *stubTxStore) UpdateEnergy(ctx context.Context, id int, energyKWh float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return models.ErrNotFound
	}
	tx.EnergyConsumed = energyKWh
	return nil
}

func (s *stubTxStore) GetActiveTransaction(ctx context.Context, chargerID string, connectorID int) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ChargerID == chargerID && tx.ConnectorID == connectorID && tx.Status == models.TransactionActive {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *stubTxStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := make([]*models.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		copied := *tx
		txs = append(txs, &copied)
	}
	return txs, nil
}

func (s *stubTxStore) ListTransactionsByCharger(ctx context.Context, chargerID string) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txs []*models.Transaction
	for _, tx := range s.txs {
		if tx.ChargerID == chargerID {
			copied := *tx
			txs = append(txs, &copied)
		}
	}
	return txs, nil
}

func (s *stubTxStore) AppendMeterValue(ctx context.Context, mv *models.MeterValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *mv
	s.meterValues[mv.TransactionID] = append(s.meterValues[mv.TransactionID], &copied)
	return nil
}

func (s *stubTxStore) ListMeterValues(ctx context.Context, transactionID int) ([]*models.MeterValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.MeterValue(nil), s.meterValues[transactionID]...), nil
}

func (s *stubTxStore) MaxTransactionID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maxID := 0
	for id := range s.txs {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

type testEnv struct {
	gateway      *Gateway
	chargerStore *stubChargerStore
	txStore      *stubTxStore
}

func testConfig() *config.Config {
	return &config.Config{
		HeartbeatInterval: 300 * time.Second,
		PingInterval:      30 * time.Second,
		CommandTimeout:    time.Second,
		AcceptAllTags:     true,
		TagExpiry:         24 * time.Hour,
	}
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	logger := zap.NewNop()
	chargerStore := newStubChargerStore()
	txStore := newStubTxStore()

	chargerSvc := service.NewChargerService(logger, chargerStore)
	txSvc := service.NewTransactionService(logger, txStore)
	authSvc := service.NewAuthService(cfg, logger)

	return &testEnv{
		gateway:      New(cfg, logger, chargerSvc, txSvc, authSvc, nil),
		chargerStore: chargerStore,
		txStore:      txStore,
	}
}

// dispatch 投递一个入站帧并返回回复帧
func dispatch(t *testing.T, g *Gateway, sock *fakeSock, conn *Connection, frame string) []byte {
	t.Helper()
	before := len(sock.sentFrames())
	g.handleFrame(conn, []byte(frame))
	frames := sock.sentFrames()
	if len(frames) != before+1 {
		t.Fatalf("expected exactly one reply frame, got=%d", len(frames)-before)
	}
	return frames[len(frames)-1]
}

func parseReply(t *testing.T, frame []byte) *ocpp.Message {
	t.Helper()
	msg, err := ocpp.ParseMessage(frame)
	if err != nil {
		t.Fatalf("reply is not a valid frame: %v", err)
	}
	return msg
}

func TestHandleBootNotification(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "boot-1", "BootNotification", {"chargePointVendor": "Acme", "chargePointModel": "X1", "firmwareVersion": "1.2.3"}]`))

	if reply.Type != ocpp.CallResult || reply.ID != "boot-1" {
		t.Fatalf("envelope mismatch: type=%d id=%s", reply.Type, reply.ID)
	}

	var resp ocpp.BootNotificationResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "Accepted" {
		t.Fatalf("status mismatch: got=%s", resp.Status)
	}
	if resp.Interval != 300 {
		t.Fatalf("interval mismatch: got=%d want=300", resp.Interval)
	}
	if _, err := time.Parse(time.RFC3339, resp.CurrentTime); err != nil {
		t.Fatalf("currentTime not RFC3339: %v", err)
	}

	charger, err := env.chargerStore.GetCharger(context.Background(), "CP001")
	if err != nil {
		t.Fatalf("charger not created: %v", err)
	}
	if charger.Configuration["chargePointVendor"] != "Acme" {
		t.Fatalf("boot metadata not recorded: %v", charger.Configuration)
	}
	if charger.Configuration["firmwareVersion"] != "1.2.3" {
		t.Fatalf("firmware version not recorded: %v", charger.Configuration)
	}
}

func TestHandleBootNotification_RebootKeepsRecord(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	dispatch(t, env.gateway, sock, conn,
		`[2, "boot-1", "BootNotification", {"chargePointVendor": "Acme", "chargePointModel": "X1"}]`)
	dispatch(t, env.gateway, sock, conn,
		`[2, "boot-2", "BootNotification", {"chargePointVendor": "Acme", "chargePointModel": "X1", "firmwareVersion": "2.0"}]`)

	chargers, _ := env.chargerStore.ListChargers(context.Background())
	if len(chargers) != 1 {
		t.Fatalf("reboot should not duplicate charger: got=%d", len(chargers))
	}
	if chargers[0].Configuration["firmwareVersion"] != "2.0" {
		t.Fatalf("reboot should merge new metadata: %v", chargers[0].Configuration)
	}
}

func TestDispatch_UnknownAction(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "msg-1", "DataTransfer", {"vendorId": "x"}]`))

	if reply.Type != ocpp.CallError {
		t.Fatalf("expected call error, got type=%d", reply.Type)
	}
	if reply.ID != "msg-1" {
		t.Fatalf("error must echo the request id: got=%s", reply.ID)
	}
	if reply.Error.ErrorCode != ocpp.ErrNotImplemented {
		t.Fatalf("error code mismatch: got=%s", reply.Error.ErrorCode)
	}
}

func TestHandleFrame_MalformedDropped(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	env.gateway.handleFrame(conn, []byte(`this is not json`))
	env.gateway.handleFrame(conn, []byte(`{"not": "an array"}`))

	if n := len(sock.sentFrames()); n != 0 {
		t.Fatalf("malformed frames must not produce replies, got=%d", n)
	}
}

func TestHandleAuthorize(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "auth-1", "Authorize", {"idTag": "TAG001"}]`))

	var resp ocpp.AuthorizeResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.IdTagInfo.Status != ocpp.AuthAccepted {
		t.Fatalf("status mismatch: got=%s", resp.IdTagInfo.Status)
	}
}

func TestHandleAuthorize_MissingIdTag(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "auth-1", "Authorize", {}]`))

	if reply.Type != ocpp.CallError {
		t.Fatalf("expected call error, got type=%d", reply.Type)
	}
	if reply.Error.ErrorCode != ocpp.ErrFormationViolation {
		t.Fatalf("error code mismatch: got=%s", reply.Error.ErrorCode)
	}
}

func TestHandleStartTransaction(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "start-1", "StartTransaction", {"connectorId": 1, "idTag": "TAG001", "meterStart": 1000, "timestamp": "2026-08-31T10:00:00Z"}]`))

	var resp ocpp.StartTransactionResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.TransactionID != 1 {
		t.Fatalf("transaction id mismatch: got=%d want=1", resp.TransactionID)
	}
	if resp.IdTagInfo.Status != ocpp.AuthAccepted {
		t.Fatalf("status mismatch: got=%s", resp.IdTagInfo.Status)
	}

	tx, err := env.txStore.GetTransaction(context.Background(), 1)
	if err != nil {
		t.Fatalf("transaction not persisted: %v", err)
	}
	if tx.MeterStart != 1000 || tx.Status != models.TransactionActive {
		t.Fatalf("transaction mismatch: %+v", tx)
	}
}

func TestHandleStartTransaction_RejectedTag(t *testing.T) {
	cfg := &config.Config{
		HeartbeatInterval: 300 * time.Second,
		CommandTimeout:    time.Second,
		AcceptAllTags:     false,
		TagExpiry:         24 * time.Hour,
	}
	env := newTestEnv(t, cfg)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "start-1", "StartTransaction", {"connectorId": 1, "idTag": "UNKNOWN", "meterStart": 0, "timestamp": "2026-08-31T10:00:00Z"}]`))

	var resp ocpp.StartTransactionResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.TransactionID != 0 {
		t.Fatalf("rejected start must not allocate a transaction id: got=%d", resp.TransactionID)
	}
	if resp.IdTagInfo.Status != ocpp.AuthInvalid {
		t.Fatalf("status mismatch: got=%s", resp.IdTagInfo.Status)
	}

	txs, _ := env.txStore.ListTransactions(context.Background())
	if len(txs) != 0 {
		t.Fatalf("rejected start must not persist a transaction: got=%d", len(txs))
	}
}

func TestHandleStopTransaction(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	dispatch(t, env.gateway, sock, conn,
		`[2, "start-1", "StartTransaction", {"connectorId": 1, "idTag": "TAG001", "meterStart": 1000, "timestamp": "2026-08-31T10:00:00Z"}]`)
	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "stop-1", "StopTransaction", {"transactionId": 1, "meterStop": 4500, "timestamp": "2026-08-31T11:00:00Z", "reason": "Local"}]`))

	var resp ocpp.StopTransactionResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.IdTagInfo.Status != ocpp.AuthAccepted {
		t.Fatalf("status mismatch: got=%s", resp.IdTagInfo.Status)
	}

	tx, _ := env.txStore.GetTransaction(context.Background(), 1)
	if tx.Status != models.TransactionCompleted {
		t.Fatalf("status mismatch: got=%s", tx.Status)
	}
	if tx.EnergyConsumed != 3.5 {
		t.Fatalf("energy mismatch: got=%v want=3.5", tx.EnergyConsumed)
	}
	if tx.StopReason != models.ReasonLocal {
		t.Fatalf("reason mismatch: got=%s", tx.StopReason)
	}
}

func TestHandleStopTransaction_UnknownStillAccepted(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "stop-1", "StopTransaction", {"transactionId": 999, "meterStop": 100, "timestamp": "2026-08-31T11:00:00Z"}]`))

	// 未知事务不阻塞充电桩
	if reply.Type != ocpp.CallResult {
		t.Fatalf("expected call result, got type=%d", reply.Type)
	}
	var resp ocpp.StopTransactionResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.IdTagInfo.Status != ocpp.AuthAccepted {
		t.Fatalf("status mismatch: got=%s", resp.IdTagInfo.Status)
	}
}

func TestHandleStatusNotification(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "status-1", "StatusNotification", {"connectorId": 1, "status": "Charging", "errorCode": "NoError"}]`))

	if reply.Type != ocpp.CallResult {
		t.Fatalf("expected call result, got type=%d", reply.Type)
	}

	connector, err := env.chargerStore.GetConnector(context.Background(), "CP001", 1)
	if err != nil {
		t.Fatalf("connector not created: %v", err)
	}
	if connector.Status != models.ConnectorCharging {
		t.Fatalf("status mismatch: got=%s", connector.Status)
	}
	if connector.ErrorCode != "NoError" {
		t.Fatalf("error code mismatch: got=%s", connector.ErrorCode)
	}

	// 同一把枪的后续上报整体覆盖
	dispatch(t, env.gateway, sock, conn,
		`[2, "status-2", "StatusNotification", {"connectorId": 1, "status": "Available", "errorCode": "NoError"}]`)
	connector, _ = env.chargerStore.GetConnector(context.Background(), "CP001", 1)
	if connector.Status != models.ConnectorAvailable {
		t.Fatalf("status should be overwritten: got=%s", connector.Status)
	}
}

func TestHandleStatusNotification_BeforeBoot(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP002", sock)

	dispatch(t, env.gateway, sock, conn,
		`[2, "status-1", "StatusNotification", {"connectorId": 2, "status": "Faulted", "errorCode": "GroundFailure"}]`)

	// 桩记录应被补建
	if _, err := env.chargerStore.GetCharger(context.Background(), "CP002"); err != nil {
		t.Fatalf("charger should be created on first status: %v", err)
	}
}

func TestHandleMeterValues(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	dispatch(t, env.gateway, sock, conn,
		`[2, "start-1", "StartTransaction", {"connectorId": 1, "idTag": "TAG001", "meterStart": 1000, "timestamp": "2026-08-31T10:00:00Z"}]`)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "meter-1", "MeterValues", {"connectorId": 1, "transactionId": 1, "meterValue": [{"timestamp": "2026-08-31T10:30:00Z", "sampledValue": [{"value": "2500", "measurand": "Energy.Active.Import.Register", "unit": "Wh"}]}]}]`))

	if reply.Type != ocpp.CallResult {
		t.Fatalf("expected call result, got type=%d", reply.Type)
	}

	values, _ := env.txStore.ListMeterValues(context.Background(), 1)
	if len(values) != 1 {
		t.Fatalf("meter value count mismatch: got=%d want=1", len(values))
	}
	if values[0].SampledValues[0].Value != "2500" {
		t.Fatalf("sampled value mismatch: %+v", values[0].SampledValues)
	}

	// 累计电能读数刷新在途能耗
	tx, _ := env.txStore.GetTransaction(context.Background(), 1)
	if tx.EnergyConsumed != 1.5 {
		t.Fatalf("running energy mismatch: got=%v want=1.5", tx.EnergyConsumed)
	}
}

func TestHandleMeterValues_WithoutTransactionDiscarded(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn,
		`[2, "meter-1", "MeterValues", {"connectorId": 1, "meterValue": [{"timestamp": "2026-08-31T10:30:00Z", "sampledValue": [{"value": "42"}]}]}]`))

	if reply.Type != ocpp.CallResult {
		t.Fatalf("discard must still acknowledge, got type=%d", reply.Type)
	}
	txs, _ := env.txStore.ListTransactions(context.Background())
	if len(txs) != 0 {
		t.Fatalf("nothing should be persisted, got=%d", len(txs))
	}
}

func TestHandleHeartbeat(t *testing.T) {
	env := newTestEnv(t, nil)
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	reply := parseReply(t, dispatch(t, env.gateway, sock, conn, `[2, "hb-1", "Heartbeat", {}]`))

	var resp ocpp.HeartbeatResponse
	if err := json.Unmarshal(reply.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, resp.CurrentTime); err != nil {
		t.Fatalf("currentTime not RFC3339: %v", err)
	}

	// 心跳前没有记录的桩被补建
	charger, err := env.chargerStore.GetCharger(context.Background(), "CP001")
	if err != nil {
		t.Fatalf("charger should be created on heartbeat: %v", err)
	}
	if charger.LastHeartbeat == nil {
		t.Fatalf("heartbeat timestamp should be recorded")
	}
}

func TestHandleHeartbeat_RevivesOfflineCharger(t *testing.T) {
	env := newTestEnv(t, nil)
	env.chargerStore.CreateCharger(context.Background(), &models.Charger{
		ID:     "CP001",
		Status: models.ChargerOffline,
	})
	sock := &fakeSock{}
	conn := NewConnection("CP001", sock)

	dispatch(t, env.gateway, sock, conn, `[2, "hb-1", "Heartbeat", {}]`)

	charger, err := env.chargerStore.GetCharger(context.Background(), "CP001")
	if err != nil {
		t.Fatalf("get charger: %v", err)
	}
	if charger.Status != models.ChargerOnline {
		t.Fatalf("heartbeat must force status online, got=%s", charger.Status)
	}
}
