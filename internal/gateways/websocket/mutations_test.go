package websocket

import (
	"errors"
	"testing"
	"time"

	"backend/internal/app/board"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerSaveWritesThrough(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)
	alice := newTestClient(hub, "u-alice", "alice")
	joinBoard(t, alice, "b1")

	emit(t, alice, EventBoardSave, BoardSavePayload{
		Content: BoardContent{
			Stickies:  []board.Sticky{{ID: "s1", Text: "Hero", Color: "#fff"}},
			Instances: []board.CanvasInstance{{ID: "i1", StickyID: "s1", X: 10, Y: 20, ZIndex: 1}},
		},
	})

	saved := eventsOf(drain(t, alice), EventBoardSaved)
	require.Len(t, saved, 1)
	assert.Equal(t, 1, store.saveCount())

	rec := store.boards["b1"]
	require.NotNil(t, rec)
	assert.Equal(t, "u-alice", rec.OwnerID)
	require.Len(t, rec.Stickies, 1)
	require.Len(t, rec.Instances, 1)
}

func TestNonOwnerSaveRejectedWithoutStateChange(t *testing.T) {
	store := newFakeStore()
	store.boards["b1"] = &board.Board{
		ID:        "b1",
		OwnerID:   "u-owner",
		OwnerName: "owner",
		Stickies:  []board.Sticky{{ID: "s1", Text: "original", Color: "#fff"}},
	}
	hub := newTestHub(store, time.Second)
	owner := newTestClient(hub, "u-owner", "owner")
	mallory := newTestClient(hub, "u-mallory", "mallory")
	joinBoard(t, owner, "b1")
	joinBoard(t, mallory, "b1")
	drain(t, owner)

	emit(t, mallory, EventBoardSave, BoardSavePayload{
		Content: BoardContent{Stickies: []board.Sticky{{ID: "evil", Text: "tampered", Color: "#000"}}},
	})

	rejected := eventsOf(drain(t, mallory), EventSaveRejected)
	require.Len(t, rejected, 1)
	p := decodeAs[SaveRejectedPayload](t, rejected[0])
	assert.Equal(t, "UNAUTHORIZED", p.Code)

	assert.Empty(t, drain(t, owner), "rejection is sent to the requester only")
	assert.Equal(t, 0, store.saveCount(), "durable storage untouched")

	hub.mu.RLock()
	b := hub.boards["b1"]
	hub.mu.RUnlock()
	b.mu.Lock()
	_, tampered := b.stickies["evil"]
	_, original := b.stickies["s1"]
	b.mu.Unlock()
	assert.False(t, tampered)
	assert.True(t, original, "in-memory content unchanged")
}

func TestSavePersistenceFailureKeepsCollaborationAlive(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("storage outage")
	hub := newTestHub(store, time.Second)
	alice := newTestClient(hub, "u-alice", "alice")
	bob := newTestClient(hub, "u-bob", "bob")
	joinBoard(t, alice, "b1")
	joinBoard(t, bob, "b1")
	drain(t, alice)
	drain(t, bob)

	emit(t, alice, EventBoardSave, BoardSavePayload{
		Content: BoardContent{Stickies: []board.Sticky{{ID: "s1", Text: "x", Color: "#fff"}}},
	})

	failed := eventsOf(drain(t, alice), EventSaveFailed)
	require.Len(t, failed, 1)
	p := decodeAs[SaveRejectedPayload](t, failed[0])
	assert.Equal(t, "PERSISTENCE_ERROR", p.Code)

	// Live collaboration continues on the resident content.
	emit(t, alice, EventStickyCreate, StickyCreatePayload{
		Sticky: board.Sticky{ID: "s2", Text: "still alive", Color: "#fff"},
	})
	require.Len(t, eventsOf(drain(t, bob), EventStickyCreated), 1)
}

// Walks the full collaboration scenario: create, observe, cascade, leave,
// evict.
func TestCollaborationScenario(t *testing.T) {
	store := newFakeStore()
	hub := newTestHub(store, time.Second)

	// A joins a brand-new board and becomes its owner.
	userA := newTestClient(hub, "u-a", "A")
	stateA := joinBoard(t, userA, "b1")
	require.Equal(t, "u-a", stateA.OwnerID)

	// A creates a sticky before B arrives.
	emit(t, userA, EventStickyCreate, StickyCreatePayload{
		Sticky: board.Sticky{ID: "s1", Text: "Hero", Color: "#fff"},
	})

	// B's join snapshot contains s1.
	userB := newTestClient(hub, "u-b", "B")
	stateB := joinBoard(t, userB, "b1")
	require.Len(t, stateB.Content.Stickies, 1)
	assert.Equal(t, "s1", stateB.Content.Stickies[0].ID)

	// A places s1 on the canvas; B observes the instance event.
	emit(t, userA, EventInstanceCreate, InstanceCreatePayload{
		Instance: board.CanvasInstance{ID: "i1", StickyID: "s1", X: 10, Y: 20, ZIndex: 1},
	})
	created := eventsOf(drain(t, userB), EventInstanceCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "i1", decodeAs[InstanceCreatePayload](t, created[0]).Instance.ID)

	// A deletes s1; B observes the delete and the cascade empties i1.
	emit(t, userA, EventStickyDelete, StickyDeletePayload{StickyID: "s1"})
	deleted := eventsOf(drain(t, userB), EventStickyDeleted)
	require.Len(t, deleted, 1)

	hub.mu.RLock()
	b := hub.boards["b1"]
	hub.mu.RUnlock()
	b.mu.Lock()
	assert.Empty(t, b.instances, "cascade removed every instance of the deleted sticky")
	b.mu.Unlock()

	// B disconnects; A sees a roster of one.
	drain(t, userA)
	hub.leave(userB)
	rosters := eventsOf(drain(t, userA), EventRosterUpdated)
	require.Len(t, rosters, 1)
	assert.Len(t, decodeAs[RosterUpdatedPayload](t, rosters[0]).Roster, 1)

	// A disconnects; the board is evicted.
	hub.leave(userA)
	hub.mu.RLock()
	_, resident := hub.boards["b1"]
	hub.mu.RUnlock()
	assert.False(t, resident)
}
