package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"backend/internal/app/board"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinNewBoardFixesOwner(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)
	alice := newTestClient(hub, "u-alice", "alice")

	state := joinBoard(t, alice, "b1")

	assert.Equal(t, "b1", state.BoardID)
	assert.Equal(t, "u-alice", state.OwnerID)
	assert.Equal(t, "alice", state.OwnerUsername)
	assert.Empty(t, state.Content.Stickies)
	require.Len(t, state.Roster, 1)
	assert.Equal(t, "u-alice", state.Roster[0].UserID)
}

func TestJoinHydratedBoardKeepsDurableOwner(t *testing.T) {
	store := newFakeStore()
	store.boards["b1"] = &board.Board{
		ID:        "b1",
		OwnerID:   "u-owner",
		OwnerName: "owner",
		Stickies:  []board.Sticky{{ID: "s1", Text: "persisted", Color: "#fff"}},
		Instances: []board.CanvasInstance{{ID: "i1", StickyID: "s1", X: 10, Y: 20, ZIndex: 1}},
	}
	hub := newTestHub(store, time.Second)
	mallory := newTestClient(hub, "u-mallory", "mallory")

	state := joinBoard(t, mallory, "b1")

	assert.Equal(t, "u-owner", state.OwnerID, "a joiner never becomes owner of a pre-existing board")
	require.Len(t, state.Content.Stickies, 1)
	assert.Equal(t, "persisted", state.Content.Stickies[0].Text)
	require.Len(t, state.Content.Instances, 1)
	assert.Equal(t, "i1", state.Content.Instances[0].ID)
}

func TestBroadcastReachesOthersExactlyOnceNeverSender(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)
	alice := newTestClient(hub, "u-alice", "alice")
	bob := newTestClient(hub, "u-bob", "bob")
	carol := newTestClient(hub, "u-carol", "carol")

	joinBoard(t, alice, "b1")
	joinBoard(t, bob, "b1")
	joinBoard(t, carol, "b1")
	drain(t, alice)
	drain(t, bob)
	drain(t, carol)

	emit(t, alice, EventStickyCreate, StickyCreatePayload{
		Sticky: board.Sticky{ID: "s1", Text: "Hero", Color: "#fff"},
	})

	assert.Empty(t, eventsOf(drain(t, alice), EventStickyCreated), "originator must not receive its own event")
	require.Len(t, eventsOf(drain(t, bob), EventStickyCreated), 1)
	require.Len(t, eventsOf(drain(t, carol), EventStickyCreated), 1)
}

func TestJoinNotificationsAndRoster(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)
	alice := newTestClient(hub, "u-alice", "alice")
	bob := newTestClient(hub, "u-bob", "bob")

	joinBoard(t, alice, "b1")
	drain(t, alice)

	state := joinBoard(t, bob, "b1")
	require.Len(t, state.Roster, 2)

	aliceEvents := drain(t, alice)
	joined := eventsOf(aliceEvents, EventUserJoined)
	require.Len(t, joined, 1)
	p := decodeAs[PresencePayload](t, joined[0])
	assert.Equal(t, "u-bob", p.UserID)
	assert.Equal(t, 2, p.TotalUsers)

	rosters := eventsOf(aliceEvents, EventRosterUpdated)
	require.Len(t, rosters, 1)
	r := decodeAs[RosterUpdatedPayload](t, rosters[0])
	assert.Len(t, r.Roster, 2)
}

func TestLeaveNotifiesAndEvictsWhenEmpty(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)
	alice := newTestClient(hub, "u-alice", "alice")
	bob := newTestClient(hub, "u-bob", "bob")

	joinBoard(t, alice, "b1")
	joinBoard(t, bob, "b1")
	drain(t, alice)

	hub.leave(bob)

	aliceEvents := drain(t, alice)
	left := eventsOf(aliceEvents, EventUserLeft)
	require.Len(t, left, 1)
	p := decodeAs[PresencePayload](t, left[0])
	assert.Equal(t, "u-bob", p.UserID)
	assert.Equal(t, 1, p.TotalUsers)

	rosters := eventsOf(aliceEvents, EventRosterUpdated)
	require.Len(t, rosters, 1)
	r := decodeAs[RosterUpdatedPayload](t, rosters[0])
	require.Len(t, r.Roster, 1)
	assert.Equal(t, "u-alice", r.Roster[0].UserID)

	hub.mu.RLock()
	_, resident := hub.boards["b1"]
	hub.mu.RUnlock()
	assert.True(t, resident, "board stays resident while a member remains")

	hub.leave(alice)

	hub.mu.RLock()
	_, resident = hub.boards["b1"]
	hub.mu.RUnlock()
	assert.False(t, resident, "board is evicted once the roster empties")
}

func TestEvictionForcesRehydration(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)

	alice := newTestClient(hub, "u-alice", "alice")
	joinBoard(t, alice, "b1")
	require.Equal(t, 1, store.loadCount())
	hub.leave(alice)

	bob := newTestClient(hub, "u-bob", "bob")
	joinBoard(t, bob, "b1")
	assert.Equal(t, 2, store.loadCount(), "a join after eviction re-reads durable truth")
}

func TestConcurrentFirstJoinsProduceOneBoard(t *testing.T) {
	store := newFakeStore()
	store.loadDelay = 50 * time.Millisecond
	hub := newTestHub(store, time.Second)

	alice := newTestClient(hub, "u-alice", "alice")
	bob := newTestClient(hub, "u-bob", "bob")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		emit(t, alice, EventJoin, JoinPayload{BoardID: "b1"})
	}()
	go func() {
		defer wg.Done()
		emit(t, bob, EventJoin, JoinPayload{BoardID: "b1"})
	}()
	wg.Wait()

	assert.Equal(t, 1, store.loadCount(), "single-flight: one durable read for concurrent first joins")

	hub.mu.RLock()
	require.Len(t, hub.boards, 1)
	b := hub.boards["b1"]
	hub.mu.RUnlock()

	aliceState := decodeAs[BoardStatePayload](t, eventsOf(drain(t, alice), EventBoardState)[0])
	bobState := decodeAs[BoardStatePayload](t, eventsOf(drain(t, bob), EventBoardState)[0])
	assert.Equal(t, aliceState.OwnerID, bobState.OwnerID, "both joiners observe the same single owner")
	assert.Contains(t, []string{"u-alice", "u-bob"}, b.ownerID)

	b.mu.Lock()
	members := len(b.clients)
	b.mu.Unlock()
	assert.Equal(t, 2, members)
}

func TestMutationBeforeJoinIsRejected(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)
	stray := newTestClient(hub, "u-stray", "stray")

	emit(t, stray, EventStickyCreate, StickyCreatePayload{
		Sticky: board.Sticky{ID: "s1", Text: "x", Color: "#fff"},
	})

	assert.Empty(t, drain(t, stray))
	hub.mu.RLock()
	assert.Empty(t, hub.boards)
	hub.mu.RUnlock()
}

func TestMalformedPayloadIsDroppedWithoutBroadcast(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)
	alice := newTestClient(hub, "u-alice", "alice")
	bob := newTestClient(hub, "u-bob", "bob")

	joinBoard(t, alice, "b1")
	joinBoard(t, bob, "b1")
	drain(t, alice)
	drain(t, bob)

	alice.handleEvent(context.Background(), Envelope{
		Event: EventStickyUpdate,
		Data:  json.RawMessage(`{"sticky_id": 42}`),
	})

	assert.Empty(t, drain(t, bob))
}

func TestBoardDeletedOverEventBus(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)
	go hub.Run()

	alice := newTestClient(hub, "u-alice", "alice")
	bob := newTestClient(hub, "u-bob", "bob")
	joinBoard(t, alice, "b1")
	joinBoard(t, bob, "b1")
	drain(t, alice)
	drain(t, bob)

	hub.eventBus.Publish("board_deleted", map[string]interface{}{"board_id": "b1"})

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, resident := hub.boards["b1"]
		return !resident
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(eventsOf(drain(t, alice), EventBoardDeleted)) == 1
	}, time.Second, 10*time.Millisecond)

	// Mutations against the dropped board are ignored.
	emit(t, bob, EventStickyCreate, StickyCreatePayload{
		Sticky: board.Sticky{ID: "s1", Text: "x", Color: "#fff"},
	})
	assert.Empty(t, eventsOf(drain(t, alice), EventStickyCreated))
}
