package hub

import (
	"Ripple/internal/event"

	"go.uber.org/zap"
)

// Router fans a domain event out to the live connections of an explicit
// recipient set. Delivery is at-most-once and best-effort: recipients with
// no live connection are skipped silently, a full outbound buffer drops the
// frame for that connection only, and nothing is ever queued or retried.
// Offline recipients catch up over the REST pull path.
type Router struct {
	registry *Registry
	logger   *zap.Logger
}

func NewRouter(registry *Registry, logger *zap.Logger) *Router {
	return &Router{registry: registry, logger: logger}
}

// Deliver pushes the event to every live connection of every recipient,
// including all simultaneous sessions of the user who caused the event.
func (rt *Router) Deliver(recipientIDs []string, ev event.WsEvent) {
	for _, userID := range recipientIDs {
		for _, c := range rt.registry.ConnectionsFor(userID) {
			rt.push(c, ev)
		}
	}
}

// Broadcast pushes the event to every live connection of every user.
func (rt *Router) Broadcast(ev event.WsEvent) {
	rt.registry.ForEach(func(c *Client) {
		rt.push(c, ev)
	})
}

func (rt *Router) push(c *Client, ev event.WsEvent) {
	if !c.TrySend(ev) {
		rt.logger.Warn("delivery dropped",
			zap.String("event", ev.Event),
			zap.String("connection_id", c.ID),
			zap.String("user_id", c.userID))
	}
}
