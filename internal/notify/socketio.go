package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIOOptions configures the socket.io notifier.
type SocketIOOptions struct {
	URL                string // e.g. "http://localhost:3000/socket.io/"
	Namespace          string
	Event              string // event name emitted per tile, default "tile"
	InsecureSkipVerify bool
}

// SocketIO emits one event per finished tile to a socket.io server, for a
// live progress dashboard. Events emitted before the connection is up are
// buffered by the client.
type SocketIO struct {
	io        *socket.Socket
	event     string
	logger    *slog.Logger
	mu        sync.Mutex
	connected atomic.Bool
}

// NewSocketIO starts connecting to the server and returns immediately.
func NewSocketIO(ctx context.Context, opts SocketIOOptions) (*SocketIO, error) {
	logger := ctxlog.FromContext(ctx).With("notifier", "socketio", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse notifier URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("notifier URL %q must be absolute", opts.URL)
	}
	if opts.Namespace == "" {
		opts.Namespace = "/"
	}
	if opts.Event == "" {
		opts.Event = "tile"
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(opts.Namespace, sockOpts)

	n := &SocketIO{io: io, event: opts.Event, logger: logger}

	io.On(types.EventName("connect"), func(...any) {
		n.connected.Store(true)
		logger.Info("Progress notifier connected", "namespace", opts.Namespace, "sid", io.Id())
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		logger.Warn("Progress notifier connection failed", "error", errs)
	})
	io.On(types.EventName("disconnect"), func(...any) {
		n.connected.Store(false)
		logger.Debug("Progress notifier disconnected")
	})

	io.Connect()
	return n, nil
}

// Notify implements Notifier.
func (n *SocketIO) Notify(_ context.Context, e Event) {
	payload := map[string]any{
		"product":     e.Product,
		"tile_id":     e.TileID,
		"status":      string(e.Status),
		"duration_ms": e.Duration.Milliseconds(),
	}
	if e.Error != "" {
		payload["error"] = e.Error
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.io.Emit(n.event, payload)
}

// Close disconnects from the server.
func (n *SocketIO) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logger.Debug("Disconnecting progress notifier", "connected", n.connected.Load())
	n.io.Disconnect()
	return nil
}
