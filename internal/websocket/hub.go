package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/santoryu/domain"
	"github.com/satriahrh/santoryu/domain/entities"
	"github.com/satriahrh/santoryu/internal/metrics"
)

// ErrHubStopped is returned when a connection arrives after shutdown
var ErrHubStopped = errors.New("hub stopped")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// TurnProcessor turns the chunks of one turn into a reply
type TurnProcessor interface {
	Process(ctx context.Context, chunks []string) (*entities.Turn, error)
}

// FaultReplier picks the phrase spoken for a failed turn
type FaultReplier interface {
	FaultMessage(kind domain.ErrorKind) string
}

// HubConfig bounds every connection served by a Hub
type HubConfig struct {
	MaxSessionBytes int           // accumulator cap, 0 uses entities.DefaultMaxAccumulatedBytes
	TurnTimeout     time.Duration // 0 means no turn deadline
}

// Hub maintains the set of active clients.
type Hub struct {
	// Registered clients keyed by session ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed once Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	processor TurnProcessor
	replies   FaultReplier
	config    HubConfig
	metrics   *metrics.Metrics

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. m may be nil.
func NewHub(
	processor TurnProcessor,
	replies FaultReplier,
	config HubConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Hub {
	if config.MaxSessionBytes <= 0 {
		config.MaxSessionBytes = entities.DefaultMaxAccumulatedBytes
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		processor:  processor,
		replies:    replies,
		config:     config,
		metrics:    m,
		logger:     logger,
	}
}

// Run starts the hub's main loop. Cancelling ctx disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.session.ID] = client
			h.mu.Unlock()
			h.metrics.ConnectionOpened()
			h.logger.Info("Client registered",
				zap.String("sessionID", client.session.ID),
				zap.String("remoteAddr", client.session.RemoteAddr))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.session.ID]; ok {
				delete(h.clients, client.session.ID)
				client.shutdown()
				h.metrics.ConnectionClosed()
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered",
				zap.String("sessionID", client.session.ID),
				zap.Int("turns", client.session.Turns()))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				client.shutdown()
				h.metrics.ConnectionClosed()
			}
			h.mu.Unlock()
			h.logger.Info("Hub stopped")
			return
		}
	}
}

// ActiveClients returns the number of registered clients
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles websocket requests from the peer.
func HandleWebSocket(hub *Hub, c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, c.RealIP())

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.Close()
		return ErrHubStopped
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}
