package sync

import (
	"context"

	"github.com/niko-chaffinchicas/fair-play/internal/remote"
)

// Transport moves wire rows to and from the remote endpoint.
//
// The production implementation is remote.Client. The syncer constructs
// one per configured endpoint through the Config.Transport factory, so
// tests can substitute a fake without touching the network.
//
// Transport implementations are stateless with respect to the sync
// session: retries, gating, and session bookkeeping all live in the
// syncer.
type Transport interface {
	// Pull fetches the full remote row set.
	//
	// Implementations must distinguish an endpoint answering with HTML
	// (a misconfigured deployment) from a malformed JSON body, because
	// the CLI gives different advice for each.
	Pull(ctx context.Context) ([]remote.Row, error)

	// Push writes the given rows to the remote.
	//
	// Push replaces the remote values for the pushed rows; rows the
	// payload omits are left alone. An empty payload is valid.
	Push(ctx context.Context, rows []remote.Row) error
}

// Notifier receives sync lifecycle events.
//
// The serve daemon plugs its event server in here so connected clients
// see syncs as they happen. All methods are called from the syncing
// goroutine and must not block; implementations that fan out (such as a
// WebSocket broadcast) should buffer.
type Notifier interface {
	// SyncStarted fires when a full sync acquires the gate.
	SyncStarted(endpoint string)

	// SyncCompleted fires after a successful full sync.
	SyncCompleted(result Result)

	// SyncFailed fires when a full sync or auto-push aborts.
	SyncFailed(err error)

	// PushCompleted fires after a successful write-only push, with the
	// number of rows pushed.
	PushCompleted(rows int)
}
