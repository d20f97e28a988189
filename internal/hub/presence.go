package hub

import (
	"context"
	"sync"
	"time"

	"Ripple/internal/event"
	"Ripple/internal/model"

	"go.uber.org/zap"
)

const presenceWriteTimeout = 5 * time.Second

// PresenceStore persists presence state on the user document. Writes are
// best-effort; a failure is logged and never retried synchronously.
type PresenceStore interface {
	SetPresence(ctx context.Context, userID string, status string, lastSeen time.Time) error
}

// Broadcaster pushes an event to every live connection.
type Broadcaster interface {
	Broadcast(ev event.WsEvent)
}

// Presence derives each user's online/offline state from registry
// transitions. A user flips online on their first connection and offline
// only when the last one closes; extra tabs and devices in between change
// nothing. Both directions run through one refcounted transition path under
// a per-user lock, so no client can observe offline-before-online for the
// same user.
type Presence struct {
	registry  *Registry
	broadcast Broadcaster
	store     PresenceStore
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-user transition locks; bounded by the user population
}

func NewPresence(registry *Registry, broadcast Broadcaster, store PresenceStore, logger *zap.Logger) *Presence {
	return &Presence{
		registry:  registry,
		broadcast: broadcast,
		store:     store,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (p *Presence) userLock(userID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[userID] = l
	}
	return l
}

// Connected admits a connection into the registry, seeds it with the current
// roster, and broadcasts the transition if the user just came online.
func (p *Presence) Connected(c *Client) {
	l := p.userLock(c.userID)
	l.Lock()
	defer l.Unlock()

	first := p.registry.Add(c.userID, c)

	if !c.TrySend(p.rosterEvent()) {
		p.logger.Warn("roster seed dropped", zap.String("connection_id", c.ID))
	}

	if !first {
		return
	}

	p.persist(c.userID, model.StatusOnline, time.Now())
	p.broadcast.Broadcast(p.rosterEvent())
	p.broadcastStatus(c.userID, model.StatusOnline, nil)
}

// Disconnected removes a connection and, when it was the user's last one,
// stamps last-seen and broadcasts the offline transition.
func (p *Presence) Disconnected(c *Client) {
	l := p.userLock(c.userID)
	l.Lock()
	defer l.Unlock()

	last := p.registry.Remove(c)
	if !last {
		return
	}

	lastSeen := time.Now()
	p.persist(c.userID, model.StatusOffline, lastSeen)
	p.broadcast.Broadcast(p.rosterEvent())
	p.broadcastStatus(c.userID, model.StatusOffline, &lastSeen)
}

// Hint applies a client-reported status ("away" / "online"). Advisory only:
// it never drives the online/offline state machine.
func (p *Presence) Hint(c *Client, status string) {
	if status != model.StatusAway && status != model.StatusOnline {
		return
	}
	p.persist(c.userID, status, time.Now())
	p.broadcastStatus(c.userID, status, nil)
}

func (p *Presence) persist(userID, status string, lastSeen time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceWriteTimeout)
	defer cancel()
	if err := p.store.SetPresence(ctx, userID, status, lastSeen); err != nil {
		p.logger.Warn("presence persist failed",
			zap.String("user_id", userID),
			zap.String("status", status),
			zap.Error(err))
	}
}

func (p *Presence) rosterEvent() event.WsEvent {
	ev, err := event.New(event.EventOnlineRoster, event.RosterPayload{
		UserIDs: p.registry.AllOnlineUserIds(),
	})
	if err != nil {
		p.logger.Error("marshal roster", zap.Error(err))
	}
	return ev
}

func (p *Presence) broadcastStatus(userID, status string, lastSeen *time.Time) {
	ev, err := event.New(event.EventPresenceChanged, event.PresencePayload{
		UserID:   userID,
		Status:   status,
		LastSeen: lastSeen,
	})
	if err != nil {
		p.logger.Error("marshal presence", zap.Error(err))
		return
	}
	p.broadcast.Broadcast(ev)
}
