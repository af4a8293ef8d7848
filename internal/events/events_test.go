package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/merge"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
	fpsync "github.com/niko-chaffinchicas/fair-play/internal/sync"
)

func startTestServer(t *testing.T, status func() (any, error)) *Server {
	t.Helper()

	server := NewServer(&Config{
		Addr:   "127.0.0.1:0", // random available port
		Status: status,
		Logger: log.New(os.Stderr, "[test] ", log.LstdFlags),
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() {
		if err := server.Stop(); err != nil {
			t.Errorf("Failed to stop server: %v", err)
		}
	})

	// Give server time to start
	time.Sleep(100 * time.Millisecond)
	return server
}

func dialTestClient(t *testing.T, ctx context.Context, server *Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws://" + server.GetAddr() + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	// Read welcome message
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read welcome message: %v", err)
	}
	var welcome Message
	if err := json.Unmarshal(data, &welcome); err != nil {
		t.Fatalf("Failed to unmarshal welcome: %v", err)
	}
	if welcome.Type != MessageTypeStats {
		t.Fatalf("Expected welcome message type %s, got %s", MessageTypeStats, welcome.Type)
	}

	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func TestServerStartStop(t *testing.T) {
	server := startTestServer(t, nil)

	if addr := server.GetAddr(); addr == "" {
		t.Fatal("Server address is empty")
	}
}

func TestWebSocketConnection(t *testing.T) {
	server := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialTestClient(t, ctx, server)

	if count := server.ClientCount(); count != 1 {
		t.Errorf("Expected 1 client, got %d", count)
	}
}

func TestMultipleClients(t *testing.T) {
	server := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	numClients := 3
	for i := 0; i < numClients; i++ {
		dialTestClient(t, ctx, server)
	}

	if count := server.ClientCount(); count != numClients {
		t.Errorf("Expected %d clients, got %d", numClients, count)
	}
}

func TestMessageBroadcast(t *testing.T) {
	server := startTestServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)

	testData := SyncCompleteData{
		Strategy: "newer-wins",
		Pulled:   12,
		Merged:   14,
		Pushed:   14,
		Duration: 2 * time.Second,
	}
	dataJSON, _ := json.Marshal(testData)
	server.Broadcast(Message{
		Type:      MessageTypeSyncComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	received := readMessage(t, ctx, conn)
	if received.Type != MessageTypeSyncComplete {
		t.Errorf("Expected message type %s, got %s", MessageTypeSyncComplete, received.Type)
	}

	var receivedData SyncCompleteData
	if err := json.Unmarshal(received.Data, &receivedData); err != nil {
		t.Fatalf("Failed to unmarshal sync data: %v", err)
	}
	if receivedData.Pulled != testData.Pulled || receivedData.Pushed != testData.Pushed {
		t.Errorf("Sync data mismatch: got %+v, want %+v", receivedData, testData)
	}
}

func TestHandlerSyncLifecycle(t *testing.T) {
	server := startTestServer(t, nil)
	handler := NewHandler(server, log.New(os.Stderr, "[test-handler] ", log.LstdFlags))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)

	handler.SyncStarted("https://sheet.example/macros/exec")
	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncStarted {
		t.Errorf("Expected message type %s, got %s", MessageTypeSyncStarted, msg.Type)
	}
	var started SyncStartedData
	if err := json.Unmarshal(msg.Data, &started); err != nil {
		t.Fatalf("Failed to unmarshal started data: %v", err)
	}
	if started.Endpoint != "https://sheet.example/macros/exec" {
		t.Errorf("Expected endpoint in started data, got %q", started.Endpoint)
	}

	handler.SyncCompleted(fpsync.Result{
		Strategy: merge.StrategyNewerWins,
		Pulled:   4,
		Merged:   5,
		Pushed:   5,
		Duration: 120 * time.Millisecond,
	})
	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Errorf("Expected message type %s, got %s", MessageTypeSyncComplete, msg.Type)
	}
	var complete SyncCompleteData
	if err := json.Unmarshal(msg.Data, &complete); err != nil {
		t.Fatalf("Failed to unmarshal complete data: %v", err)
	}
	if complete.Strategy != "newer-wins" || complete.Merged != 5 {
		t.Errorf("Unexpected complete data: %+v", complete)
	}

	handler.SyncFailed(errors.New("endpoint returned HTML instead of JSON"))
	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeSyncFailed {
		t.Errorf("Expected message type %s, got %s", MessageTypeSyncFailed, msg.Type)
	}
	var failed SyncFailedData
	if err := json.Unmarshal(msg.Data, &failed); err != nil {
		t.Fatalf("Failed to unmarshal failure data: %v", err)
	}
	if failed.Error == "" {
		t.Error("Expected failure message in data")
	}

	handler.PushCompleted(7)
	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypePushComplete {
		t.Errorf("Expected message type %s, got %s", MessageTypePushComplete, msg.Type)
	}
	var push PushCompleteData
	if err := json.Unmarshal(msg.Data, &push); err != nil {
		t.Fatalf("Failed to unmarshal push data: %v", err)
	}
	if push.Rows != 7 {
		t.Errorf("Expected 7 rows, got %d", push.Rows)
	}
}

func TestHandlerCardEventsAndStats(t *testing.T) {
	server := startTestServer(t, nil)
	handler := NewHandler(server, log.New(os.Stderr, "[test-handler] ", log.LstdFlags))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialTestClient(t, ctx, server)

	handler.OnCardsChanged("local_edit")
	msg := readMessage(t, ctx, conn)
	if msg.Type != MessageTypeCardUpdate {
		t.Errorf("Expected message type %s, got %s", MessageTypeCardUpdate, msg.Type)
	}
	var update CardUpdateData
	if err := json.Unmarshal(msg.Data, &update); err != nil {
		t.Fatalf("Failed to unmarshal card data: %v", err)
	}
	if update.Source != "local_edit" {
		t.Errorf("Expected source local_edit, got %q", update.Source)
	}

	handler.UpdateStats([]store.CardState{
		{Name: "Dishes", Assignment: deck.PlayerOne},
		{Name: "Laundry", Assignment: deck.PlayerTwo, Trimmed: true},
		{Name: "Garbage", Assignment: deck.PlayerOne},
		{Name: "Guests", Assignment: deck.Unassigned},
	})

	msg = readMessage(t, ctx, conn)
	if msg.Type != MessageTypeStats {
		t.Errorf("Expected message type %s, got %s", MessageTypeStats, msg.Type)
	}
	var stats StatsData
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("Failed to unmarshal stats: %v", err)
	}
	if stats.Total != 4 || stats.PlayerOne != 2 || stats.PlayerTwo != 1 || stats.Unassigned != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Trimmed != 1 {
		t.Errorf("Expected 1 trimmed, got %d", stats.Trimmed)
	}

	if got := handler.Stats(); got.Total != 4 {
		t.Errorf("Expected cached stats, got %+v", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := startTestServer(t, nil)

	resp, err := http.Get("http://" + server.GetAddr() + "/health")
	if err != nil {
		t.Fatalf("Failed to GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var health struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("Expected status ok, got %q", health.Status)
	}
	if health.Clients != 0 {
		t.Errorf("Expected 0 clients, got %d", health.Clients)
	}
}

func TestStatusEndpoint(t *testing.T) {
	server := startTestServer(t, func() (any, error) {
		return map[string]any{
			"endpoint": "https://sheet.example/macros/exec",
			"total":    12,
		}, nil
	})

	resp, err := http.Get("http://" + server.GetAddr() + "/status")
	if err != nil {
		t.Fatalf("Failed to GET /status: %v", err)
	}
	defer resp.Body.Close()

	var status struct {
		Endpoint string `json:"endpoint"`
		Total    int    `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode status response: %v", err)
	}
	if status.Endpoint != "https://sheet.example/macros/exec" || status.Total != 12 {
		t.Errorf("Unexpected status payload: %+v", status)
	}
}
