package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/mcoot/numduel/internal/api/apierr"
	"github.com/mcoot/numduel/internal/api/middleware"
	"github.com/mcoot/numduel/internal/services/presence"
)

// Handler upgrades authenticated requests to websocket clients
type Handler struct {
	presence *presence.Registry
	router   *Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	closing bool
	pumps   sync.WaitGroup
}

// NewHandler creates a new websocket handler
func NewHandler(registry *presence.Registry, router *Router, logger *slog.Logger) *Handler {
	return &Handler{
		presence: registry,
		router:   router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeHTTP upgrades a request already authenticated by middleware.Auth and
// starts the client pumps
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	if session == nil {
		apierr.WriteError(w, apierr.NewUnauthorizedError())
		return
	}

	if h.isClosing() {
		apierr.WriteError(w, apierr.NewShuttingDownError())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	if h.closing {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.pumps.Add(2)
	h.mu.Unlock()

	client := newClient(conn, session.PlayerID, h)
	h.presence.Register(client)

	go func() {
		defer h.pumps.Done()
		client.writePump()
	}()
	go func() {
		defer h.pumps.Done()
		client.readPump()
	}()
}

func (h *Handler) isClosing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closing
}

// Shutdown refuses new upgrades, closes every client and waits for their
// pumps to exit, so no request is still touching the store afterwards.
// It is safe to call more than once.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()

	h.presence.CloseAll()

	done := make(chan struct{})
	go func() {
		h.pumps.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
