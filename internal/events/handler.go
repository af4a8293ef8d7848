package events

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/niko-chaffinchicas/fair-play/internal/deck"
	"github.com/niko-chaffinchicas/fair-play/internal/store"
	fpsync "github.com/niko-chaffinchicas/fair-play/internal/sync"
)

// Handler bridges syncer and watcher events onto the WebSocket feed.
// It implements the syncer's Notifier interface and keeps the running
// deck statistics.
type Handler struct {
	server *Server
	logger *log.Logger

	// Notifier methods arrive from sync goroutines while the watcher
	// refreshes stats from its own, so the cache takes a lock.
	mu    sync.Mutex
	stats StatsData
}

// NewHandler creates a new event handler connected to an events server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
	}
}

// SyncStarted handles the start of a full sync
func (h *Handler) SyncStarted(endpoint string) {
	h.logger.Printf("Sync started: %s", endpoint)

	data := SyncStartedData{Endpoint: endpoint}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal sync data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncStarted,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// SyncCompleted handles full sync completion
func (h *Handler) SyncCompleted(result fpsync.Result) {
	h.logger.Printf("Sync complete: pulled=%d merged=%d pushed=%d in %v",
		result.Pulled, result.Merged, result.Pushed, result.Duration)

	data := SyncCompleteData{
		Strategy: string(result.Strategy),
		Pulled:   result.Pulled,
		Merged:   result.Merged,
		Pushed:   result.Pushed,
		Duration: result.Duration,
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal sync data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// SyncFailed handles sync and push failures
func (h *Handler) SyncFailed(err error) {
	h.logger.Printf("Sync failed: %v", err)

	data := SyncFailedData{Error: err.Error()}
	dataJSON, marshalErr := json.Marshal(data)
	if marshalErr != nil {
		h.logger.Printf("Failed to marshal failure data: %v", marshalErr)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncFailed,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// PushCompleted handles auto-push completion
func (h *Handler) PushCompleted(rows int) {
	h.logger.Printf("Push complete: %d rows", rows)

	data := PushCompleteData{Rows: rows}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal push data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypePushComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// OnCardsChanged handles card changes detected outside a sync, such as
// a CLI edit from another process.
func (h *Handler) OnCardsChanged(source string) {
	h.logger.Printf("Cards changed: %s", source)

	data := CardUpdateData{Source: source}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal card data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeCardUpdate,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// UpdateStats recomputes deck statistics from a full state list and
// broadcasts them. Useful on startup and after any detected change.
func (h *Handler) UpdateStats(states []store.CardState) {
	stats := StatsData{Total: len(states)}
	for _, st := range states {
		switch st.Assignment {
		case deck.PlayerOne:
			stats.PlayerOne++
		case deck.PlayerTwo:
			stats.PlayerTwo++
		case deck.SharedAssignment:
			stats.Shared++
		default:
			stats.Unassigned++
		}
		if st.Trimmed {
			stats.Trimmed++
		}
	}

	h.mu.Lock()
	h.stats = stats
	h.mu.Unlock()

	h.broadcastStats(stats)
}

// Stats returns the current statistics
func (h *Handler) Stats() StatsData {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// broadcastStats sends statistics to all clients
func (h *Handler) broadcastStats(stats StatsData) {
	dataJSON, err := json.Marshal(stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
