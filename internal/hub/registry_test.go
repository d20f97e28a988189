package hub

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"Ripple/internal/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:     uuid.New().String(),
		userID: userID,
		egress: make(chan event.WsEvent, sendBufSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func TestRegistryFirstAndLast(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	a := newTestClient("alice")
	b := newTestClient("alice")

	assert.True(t, r.Add("alice", a), "first connection should report first")
	assert.False(t, r.Add("alice", b), "second connection should not report first")

	assert.False(t, r.Remove(a), "removing one of two should not report last")
	assert.True(t, r.Remove(b), "removing the final connection should report last")
}

func TestRegistryDuplicateAddIsNoop(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	c := newTestClient("alice")

	require.True(t, r.Add("alice", c))
	assert.False(t, r.Add("alice", c))
	assert.Len(t, r.ConnectionsFor("alice"), 1)
}

func TestRegistryRemoveUnknownHandle(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	assert.False(t, r.Remove(newTestClient("ghost")))

	known := newTestClient("alice")
	require.True(t, r.Add("alice", known))
	assert.False(t, r.Remove(newTestClient("alice")), "unknown handle for a known user")
	assert.Len(t, r.ConnectionsFor("alice"), 1)
}

func TestRegistryOnlineRosterDedup(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	r.Add("bob", newTestClient("bob"))
	r.Add("alice", newTestClient("alice"))
	r.Add("alice", newTestClient("alice"))

	assert.Equal(t, []string{"alice", "bob"}, r.AllOnlineUserIds())
}

func TestRegistryForEachVisitsEveryConnection(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	for i := 0; i < 10; i++ {
		user := fmt.Sprintf("user-%d", i)
		r.Add(user, newTestClient(user))
		r.Add(user, newTestClient(user))
	}

	count := 0
	r.ForEach(func(*Client) { count++ })
	assert.Equal(t, 20, count)
}

func TestRegistryConcurrentAddRemove(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", n%5)
			c := newTestClient(user)
			r.Add(user, c)
			r.ConnectionsFor(user)
			r.Remove(c)
		}(i)
	}
	wg.Wait()

	assert.Empty(t, r.AllOnlineUserIds())
}
