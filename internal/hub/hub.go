package hub

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub composes the realtime subsystem: the authentication gate, the sharded
// connection registry, the presence tracker, and the fan-out router. The
// router and presence tracker receive their collaborators at construction
// time; nothing in this package reaches for ambient globals.
type Hub struct {
	registry *Registry
	router   *Router
	presence *Presence
	gate     *Gate
	logger   *zap.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(verifier TokenVerifier, store PresenceStore, allowedOrigins []string, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		gate:   NewGate(verifier),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	h.registry = NewRegistry(logger)
	h.router = NewRouter(h.registry, logger)
	h.presence = NewPresence(h.registry, h.router, store, logger)

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}

// Router exposes the fan-out router for the mutation handlers.
func (h *Hub) Router() *Router {
	return h.router
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeWS authenticates and admits one WebSocket connection. A request that
// fails the gate is rejected before the upgrade; no registry entry is ever
// created for it. After Stop the hub accepts no new connections.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.ctx.Done():
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	userID, err := h.gate.Admit(r)
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := newClient(userID, conn, h)
	h.presence.Connected(c)

	h.logger.Info("client connected",
		zap.String("connection_id", c.ID),
		zap.String("user_id", userID))

	go c.writePump()
	go c.readPump()
}

// Stop closes every live connection and refuses new work.
func (h *Hub) Stop() {
	h.cancel()
	h.registry.ForEach(func(c *Client) {
		c.Close()
	})
}
