package ws

import (
	"context"
	"net/http"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
	applogger "PricePulse/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	sendBuffer      = 16
	broadcastBuffer = 16
)

// Event is the frame pushed to subscribers.
type Event struct {
	Type string            `json:"type"`
	Data models.RunSummary `json:"data"`
}

const eventRunSummary = "run_summary"

// Hub fans run summaries out to connected websocket clients. A new client
// immediately receives the most recent summary. Clients that fall behind are
// dropped rather than blocking the hub.
type Hub struct {
	logger     *applogger.Logger
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	clients    map[*client]struct{}
	latest     *Event
	done       chan struct{}
}

func NewHub(logger *applogger.Logger) *Hub {
	if logger == nil {
		logger = applogger.NewNop()
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, broadcastBuffer),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.latest != nil {
				c.send <- *h.latest
			}
			h.logger.Debug("ws client connected", applogger.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			h.drop(c)

		case ev := <-h.broadcast:
			h.latest = &ev
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					h.logger.Warn("ws client too slow, disconnecting")
					h.drop(c)
				}
			}

		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// NotifyRun queues a summary for broadcast without blocking the caller.
func (h *Hub) NotifyRun(summary models.RunSummary) {
	select {
	case h.broadcast <- Event{Type: eventRunSummary, Data: summary}:
	default:
		h.logger.Warn("ws broadcast queue full, dropping run summary")
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve upgrades the request and starts the client pumps.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}
	cl := &client{hub: h, conn: conn, send: make(chan Event, sendBuffer)}
	select {
	case h.register <- cl:
	case <-h.done:
		_ = conn.Close()
		return nil
	}

	go cl.writePump()
	go cl.readPump()
	return nil
}

var _ domrepo.RunNotifier = (*Hub)(nil)
