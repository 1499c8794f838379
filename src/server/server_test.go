package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/metrics"
	"terminal-bridge/src/models"
	"terminal-bridge/src/reconcile"

	"github.com/gorilla/websocket"
)

var _ interfaces.IDistributor = (*FastAPIServer)(nil)

// fakeBridge acknowledges connections through the server it is attached to.
type fakeBridge struct {
	mu           sync.Mutex
	srv          *FastAPIServer
	commands     []string
	disconnected []string
	executions   []models.MExecutionReport
}

func (b *fakeBridge) OnConnect(clientID, timeframe string) {
	b.srv.EmitTo(clientID, models.EventConnectionAck, models.MConnectionAck{Status: "connected", ClientID: clientID, Timeframe: timeframe})
}

func (b *fakeBridge) OnCommand(clientID, event, timeframe string) {
	b.mu.Lock()
	b.commands = append(b.commands, event+":"+timeframe)
	b.mu.Unlock()
	if event == models.CommandPing {
		b.srv.EmitTo(clientID, models.EventPong, models.MPong{Timestamp: 1})
	}
}

func (b *fakeBridge) OnDisconnect(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, clientID)
}

func (b *fakeBridge) Connected(ctx context.Context) bool { return true }
func (b *fakeBridge) LastPriceUpdate() time.Time         { return time.Unix(1700000000, 0) }

func (b *fakeBridge) Account(ctx context.Context) (models.MAccountUpdate, error) {
	return models.MAccountUpdate{}, errors.New("terminal unavailable")
}

func (b *fakeBridge) RecordExecution(ctx context.Context, report models.MExecutionReport) error {
	if report.Ticket < 0 {
		return helpers.NewValidationError("bad ticket")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executions = append(b.executions, report)
	return nil
}

// memStore keeps trade records in memory.
type memStore struct {
	records map[int64]models.MTradeRecord
}

func (m *memStore) Initialize() error { return nil }
func (m *memStore) Close() error      { return nil }

func (m *memStore) UpsertTradeRecord(ctx context.Context, rec models.MTradeRecord) (bool, error) {
	if _, ok := m.records[rec.Ticket]; ok {
		return false, nil
	}
	m.records[rec.Ticket] = rec
	return true, nil
}

func (m *memStore) UpsertTradeConfigSnapshot(ctx context.Context, ticket int64, meta models.MBotMeta, snap models.MTradeConfigSnapshot) error {
	return nil
}

func (m *memStore) GetTradeRecord(ctx context.Context, ticket int64) (*models.MTradeRecord, error) {
	rec, ok := m.records[ticket]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) ListTradeRecords(ctx context.Context, limit int) ([]models.MTradeRecord, error) {
	var out []models.MTradeRecord
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) GetTradeConfigSnapshot(ctx context.Context, ticket int64) (*models.MTradeConfigRecord, error) {
	return nil, nil
}

// -----------------------------------------------------------------------------

func newTestServer(t *testing.T) (*FastAPIServer, *fakeBridge, *httptest.Server) {
	t.Helper()
	cfg := &models.MConfig{Symbol: "XAUUSD", Timeframes: []string{"1m", "5m"}, MetricsEnabled: true}
	bridge := &fakeBridge{}
	store := &memStore{records: map[int64]models.MTradeRecord{
		555: {Ticket: 555, Symbol: "XAUUSD", ProfitLoss: 12.5},
	}}
	srv := NewFastAPIServer(cfg, bridge, store, reconcile.NewBotRegistry(234000, 300000), metrics.NewMetrics(), logger.NewLoggerTo(io.Discard, nil, "test"))
	bridge.srv = srv

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return srv, bridge, ts
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

// -----------------------------------------------------------------------------

func TestHealthAndConfig(t *testing.T) {
	_, _, ts := newTestServer(t)

	var health map[string]interface{}
	if code := getJSON(t, ts.URL+"/api/health", &health); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if health["status"] != "ok" || health["terminal_connected"] != true || health["latest_update"] != float64(1700000000) {
		t.Fatalf("unexpected health %v", health)
	}

	var cfg map[string]interface{}
	getJSON(t, ts.URL+"/api/config", &cfg)
	if cfg["symbol"] != "XAUUSD" {
		t.Fatalf("expected symbol in config, got %v", cfg)
	}
}

func TestAccountUnavailable(t *testing.T) {
	_, _, ts := newTestServer(t)
	if code := getJSON(t, ts.URL+"/api/account", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

func TestTradesRoutes(t *testing.T) {
	_, _, ts := newTestServer(t)

	var list struct {
		Trades []models.MTradeRecord `json:"trades"`
		Count  int                   `json:"count"`
	}
	if code := getJSON(t, ts.URL+"/api/trades?limit=10", &list); code != http.StatusOK || list.Count != 1 {
		t.Fatalf("expected one trade, got %d / %+v", code, list)
	}
	if code := getJSON(t, ts.URL+"/api/trades?limit=0", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", code)
	}

	var one struct {
		Trade models.MTradeRecord `json:"trade"`
	}
	if code := getJSON(t, ts.URL+"/api/trades/555", &one); code != http.StatusOK || one.Trade.ProfitLoss != 12.5 {
		t.Fatalf("expected trade 555, got %d / %+v", code, one)
	}
	if code := getJSON(t, ts.URL+"/api/trades/556", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/trades/abc", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestBotRoutes(t *testing.T) {
	_, _, ts := newTestServer(t)

	body := `{"bot_id": "bot_7", "name": "Scalper", "strategy": "rsi"}`
	resp, err := http.Post(ts.URL+"/api/bots", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST bots: %v", err)
	}
	var info models.MBotInfo
	json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated || info.MagicNumber < 234000 || info.MagicNumber >= 300000 {
		t.Fatalf("expected created bot with magic in range, got %d / %+v", resp.StatusCode, info)
	}

	var list struct {
		Bots []models.MBotInfo `json:"bots"`
	}
	getJSON(t, ts.URL+"/api/bots", &list)
	if len(list.Bots) != 1 || list.Bots[0].BotID != "bot_7" {
		t.Fatalf("expected bot_7 listed, got %+v", list.Bots)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/bots/bot_7", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE bot: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.StatusCode)
	}

	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestExecutionRoute(t *testing.T) {
	_, bridge, ts := newTestServer(t)

	post := func(body string) int {
		resp, err := http.Post(ts.URL+"/api/executions", "application/json", bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("POST executions: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := post(`{"ticket": 555, "bot": {"bot_id": "bot_7"}, "config": {"leverage": 10}}`); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := post(`{"bot": {"bot_id": "bot_7"}}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing ticket, got %d", code)
	}
	if code := post(`{"ticket": -1}`); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for validation error, got %d", code)
	}

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	if len(bridge.executions) != 1 || *bridge.executions[0].Config.Leverage != 10 {
		t.Fatalf("expected one recorded execution with leverage 10, got %+v", bridge.executions)
	}
}

func TestMetricsMounted(t *testing.T) {
	_, _, ts := newTestServer(t)
	if code := getJSON(t, ts.URL+"/metrics", nil); code != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", code)
	}
}

// -----------------------------------------------------------------------------

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env map[string]json.RawMessage
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestWebsocketLifecycle(t *testing.T) {
	srv, bridge, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?timeframe=5m"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	env := readEnvelope(t, conn)
	if string(env["event"]) != `"connection_ack"` {
		t.Fatalf("expected connection_ack first, got %s", env["event"])
	}
	var ack models.MConnectionAck
	json.Unmarshal(env["data"], &ack)
	if ack.Timeframe != "5m" || ack.ClientID == "" {
		t.Fatalf("unexpected ack %+v", ack)
	}

	conn.WriteJSON(map[string]interface{}{"event": "ping"})
	if env := readEnvelope(t, conn); string(env["event"]) != `"pong_client"` {
		t.Fatalf("expected pong_client, got %s", env["event"])
	}

	srv.Broadcast(models.EventAccountUpdate, models.MAccountUpdate{Balance: 1000})
	if env := readEnvelope(t, conn); string(env["event"]) != `"account_update"` {
		t.Fatalf("expected broadcast account_update, got %s", env["event"])
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		bridge.mu.Lock()
		n := len(bridge.disconnected)
		bridge.mu.Unlock()
		if n == 1 && srv.ClientCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected disconnect to be reported")
}

func TestEmitToUnknownClient(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if srv.EmitTo("missing", models.EventPong, models.MPong{}) {
		t.Fatalf("expected emit to unknown client to fail")
	}
}
