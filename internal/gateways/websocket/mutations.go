package websocket

import (
	"context"
	"encoding/json"
)

// handleEvent dispatches one inbound frame. Called sequentially from the
// connection's read loop, so events from a single connection apply and
// broadcast in arrival order.
func (c *Client) handleEvent(ctx context.Context, env Envelope) {
	switch env.Event {
	case EventJoin:
		var p JoinPayload
		if !decode(c, env, &p) {
			return
		}
		c.hub.join(ctx, c, p)
	case EventStickyCreate:
		c.hub.createSticky(c, env)
	case EventStickyUpdate:
		c.hub.updateSticky(c, env)
	case EventStickyDelete:
		c.hub.deleteSticky(c, env)
	case EventInstanceCreate:
		c.hub.createInstance(c, env)
	case EventInstanceUpdate:
		c.hub.updateInstance(c, env)
	case EventInstanceDelete:
		c.hub.deleteInstance(c, env)
	case EventActivityStart:
		c.hub.startActivity(c, env)
	case EventActivityClear:
		c.hub.clearActivity(c, env)
	case EventBoardSave:
		c.hub.saveBoard(ctx, c, env)
	default:
		c.hub.logger.Debugw("Unknown event dropped",
			"event", env.Event,
			"client_id", c.ID,
		)
	}
}

func decode(c *Client, env Envelope, dst interface{}) bool {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		c.hub.logger.Warnw("Malformed event payload dropped",
			"event", env.Event,
			"client_id", c.ID,
			"error", err,
		)
		return false
	}
	return true
}

// mutableBoard returns the board a mutation may apply to, or nil. Mutations
// from connections that never completed the join handshake are rejected
// across all kinds, as are mutations against deleted boards.
func (h *Hub) mutableBoard(c *Client, event string) *liveBoard {
	b := c.board
	if b == nil {
		h.logger.Warnw("Mutation rejected: connection has not joined a board",
			"event", event,
			"client_id", c.ID,
		)
		return nil
	}
	return b
}

func (h *Hub) createSticky(c *Client, env Envelope) {
	var p StickyCreatePayload
	if !decode(c, env, &p) || p.Sticky.ID == "" {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleted {
		return
	}
	b.putSticky(p.Sticky)
	h.broadcastLocked(b, c, EventStickyCreated, p)
}

func (h *Hub) updateSticky(c *Client, env Envelope) {
	var p StickyUpdatePayload
	if !decode(c, env, &p) || p.StickyID == "" {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleted {
		return
	}
	// Unknown ids are stale client messages, not errors: no broadcast.
	if !b.patchSticky(p.StickyID, p.Updates) {
		return
	}
	h.broadcastLocked(b, c, EventStickyUpdated, p)
}

func (h *Hub) deleteSticky(c *Client, env Envelope) {
	var p StickyDeletePayload
	if !decode(c, env, &p) || p.StickyID == "" {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleted {
		return
	}
	removed, cascaded := b.removeSticky(p.StickyID)
	if !removed {
		return
	}
	if len(cascaded) > 0 {
		h.logger.Debugw("Sticky delete cascaded to instances",
			"board_id", b.id,
			"sticky_id", p.StickyID,
			"instances", len(cascaded),
		)
	}
	h.broadcastLocked(b, c, EventStickyDeleted, p)
}

func (h *Hub) createInstance(c *Client, env Envelope) {
	var p InstanceCreatePayload
	if !decode(c, env, &p) || p.Instance.ID == "" || p.Instance.StickyID == "" {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleted {
		return
	}
	b.putInstance(p.Instance)
	h.broadcastLocked(b, c, EventInstanceCreated, p)
}

func (h *Hub) updateInstance(c *Client, env Envelope) {
	var p InstanceUpdatePayload
	if !decode(c, env, &p) || p.InstanceID == "" {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleted {
		return
	}
	if !b.patchInstance(p.InstanceID, p.Updates) {
		return
	}
	h.broadcastLocked(b, c, EventInstanceUpdated, p)
}

func (h *Hub) deleteInstance(c *Client, env Envelope) {
	var p InstanceDeletePayload
	if !decode(c, env, &p) || p.InstanceID == "" {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleted {
		return
	}
	if !b.removeInstance(p.InstanceID) {
		return
	}
	h.broadcastLocked(b, c, EventInstanceDeleted, p)
}

// saveBoard replaces the whole board content and is the only path that
// writes through to durable storage. Owner only.
func (h *Hub) saveBoard(ctx context.Context, c *Client, env Envelope) {
	var p BoardSavePayload
	if !decode(c, env, &p) {
		return
	}
	b := h.mutableBoard(c, env.Event)
	if b == nil {
		return
	}

	b.mu.Lock()
	if b.deleted {
		b.mu.Unlock()
		return
	}
	if c.UserID != b.ownerID {
		b.mu.Unlock()
		c.sendEvent(EventSaveRejected, SaveRejectedPayload{
			Message: "only the board owner can save",
			Code:    "UNAUTHORIZED",
		})
		h.logger.Warnw("Board save rejected",
			"board_id", b.id,
			"user_id", c.UserID,
			"owner_id", b.ownerID,
		)
		return
	}

	b.replaceContent(p.Content)
	rec := b.record()
	b.mu.Unlock()

	// The durable write happens outside the board lock: a slow or failing
	// store must not stall live collaboration.
	if err := h.store.ReplaceBoardContent(ctx, rec); err != nil {
		h.logger.Errorw("Board save failed",
			"board_id", b.id,
			"error", err,
		)
		c.sendEvent(EventSaveFailed, SaveRejectedPayload{
			Message: "failed to persist board",
			Code:    "PERSISTENCE_ERROR",
		})
		return
	}

	c.sendEvent(EventBoardSaved, BoardSavedPayload{BoardID: b.id})
	h.logger.Infow("Board saved",
		"board_id", b.id,
		"stickies", len(rec.Stickies),
		"instances", len(rec.Instances),
	)
}
