package websocket

import (
	"time"
)

// activityRecord is the ephemeral "user X is acting on instance Y" signal.
// Never part of board content, never persisted, never replayed to late
// joiners. Timestamp is the announce instant in nanoseconds and doubles as
// the generation guard for scheduled expiries.
type activityRecord struct {
	InstanceID string
	UserID     string
	Username   string
	Action     string
	Timestamp  int64
}

func (h *Hub) startActivity(c *Client, env Envelope) {
	var p ActivityStartPayload
	if !decode(c, env, &p) || p.InstanceID == "" {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	rec := activityRecord{
		InstanceID: p.InstanceID,
		UserID:     c.UserID,
		Username:   c.Username,
		Action:     p.Action,
		Timestamp:  time.Now().UnixNano(),
	}

	b.mu.Lock()
	if b.deleted {
		b.mu.Unlock()
		return
	}
	// A newer announce supersedes the previous record for this instance;
	// the superseded record's pending expiry becomes a no-op by guard.
	b.activity[rec.InstanceID] = rec
	h.broadcastLocked(b, c, EventActivityStarted, ActivityStartedPayload{
		InstanceID: rec.InstanceID,
		UserID:     rec.UserID,
		Username:   rec.Username,
		Action:     rec.Action,
		Timestamp:  rec.Timestamp,
	})
	b.mu.Unlock()

	h.scheduleExpiry(b, rec)
}

// scheduleExpiry clears the record after the quiescence window unless a
// newer announce replaced it. The timestamp comparison guarantees an old
// timer can never clobber a newer record for the same instance.
func (h *Hub) scheduleExpiry(b *liveBoard, rec activityRecord) {
	time.AfterFunc(h.activityTTL, func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		current, ok := b.activity[rec.InstanceID]
		if !ok || current.Timestamp != rec.Timestamp {
			return
		}
		delete(b.activity, rec.InstanceID)
		h.broadcastLocked(b, nil, EventActivityCleared, ActivityClearPayload{
			InstanceID: rec.InstanceID,
		})
	})
}

func (h *Hub) clearActivity(c *Client, env Envelope) {
	var p ActivityClearPayload
	if !decode(c, env, &p) || p.InstanceID == "" {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.activity[p.InstanceID]; !ok {
		return
	}
	delete(b.activity, p.InstanceID)
	h.broadcastLocked(b, c, EventActivityCleared, p)
}

// clearUserActivity drops every activity record owned by userID, so a
// disconnect mid-drag never leaves other members watching a ghost.
// Caller holds b.mu. Returns the cleared instance ids.
func (b *liveBoard) clearUserActivity(userID string) []string {
	var cleared []string
	for id, rec := range b.activity {
		if rec.UserID == userID {
			delete(b.activity, id)
			cleared = append(cleared, id)
		}
	}
	return cleared
}
