package hub

import (
	"crypto/sha1"
	"encoding/binary"
	"sort"
	"sync"

	"go.uber.org/zap"
)

const shardCount = 32 // tune: 16/64/128 depending on load

type userBucket struct {
	sync.RWMutex
	conns map[string]map[string]*Client // userID -> connection ID -> client
}

// Registry is a concurrent-safe multimap from user id to live connections,
// sharded by user id so unrelated users' connect/disconnect/delivery traffic
// does not contend on one lock.
type Registry struct {
	shards [shardCount]*userBucket
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{logger: logger}
	for i := 0; i < shardCount; i++ {
		r.shards[i] = &userBucket{conns: make(map[string]map[string]*Client)}
	}
	return r
}

func getShard(userID string) uint32 {
	if userID == "" {
		return 0
	}
	h := sha1.Sum([]byte(userID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

// Add registers a connection under a user and reports whether it is the
// user's first live connection. Re-adding the same connection id is a no-op,
// so one handle can never be delivered to twice.
func (r *Registry) Add(userID string, c *Client) (first bool) {
	b := r.shards[getShard(userID)]
	b.Lock()
	defer b.Unlock()

	set, ok := b.conns[userID]
	if !ok {
		set = make(map[string]*Client)
		b.conns[userID] = set
	}
	if _, dup := set[c.ID]; dup {
		return false
	}
	first = len(set) == 0
	set[c.ID] = c
	return first
}

// Remove deregisters a connection and reports whether it was the user's last
// one. An unknown handle is a non-fatal consistency warning, never an error.
func (r *Registry) Remove(c *Client) (last bool) {
	b := r.shards[getShard(c.userID)]
	b.Lock()
	defer b.Unlock()

	set, ok := b.conns[c.userID]
	if !ok {
		r.logger.Warn("remove of unknown connection",
			zap.String("connection_id", c.ID),
			zap.String("user_id", c.userID))
		return false
	}
	if _, known := set[c.ID]; !known {
		r.logger.Warn("remove of unknown connection",
			zap.String("connection_id", c.ID),
			zap.String("user_id", c.userID))
		return false
	}
	delete(set, c.ID)
	if len(set) == 0 {
		delete(b.conns, c.userID)
		return true
	}
	return false
}

// ConnectionsFor returns a snapshot of the user's live connections.
func (r *Registry) ConnectionsFor(userID string) []*Client {
	b := r.shards[getShard(userID)]
	b.RLock()
	defer b.RUnlock()

	set := b.conns[userID]
	if len(set) == 0 {
		return nil
	}
	clients := make([]*Client, 0, len(set))
	for _, c := range set {
		clients = append(clients, c)
	}
	return clients
}

// AllOnlineUserIds returns the deduplicated, sorted set of users with at
// least one live connection.
func (r *Registry) AllOnlineUserIds() []string {
	var ids []string
	for _, b := range r.shards {
		b.RLock()
		for userID, set := range b.conns {
			if len(set) > 0 {
				ids = append(ids, userID)
			}
		}
		b.RUnlock()
	}
	sort.Strings(ids)
	return ids
}

// ForEach calls fn for every live connection. The snapshot is taken per
// shard, so fn runs without any registry lock held.
func (r *Registry) ForEach(fn func(*Client)) {
	for _, b := range r.shards {
		b.RLock()
		clients := make([]*Client, 0, len(b.conns))
		for _, set := range b.conns {
			for _, c := range set {
				clients = append(clients, c)
			}
		}
		b.RUnlock()
		for _, c := range clients {
			fn(c)
		}
	}
}
