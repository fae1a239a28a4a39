package websocket

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// resolveBoard returns the resident board for boardID, hydrating it from
// the persistence gateway or constructing a brand-new board owned by the
// joiner. Resolution is single-flight per boardID: concurrent first joins
// share one durable read and one construction, so two diverging instances
// can never exist for the same id.
func (h *Hub) resolveBoard(ctx context.Context, boardID string, joiner *Client, seed *BoardContent) (*liveBoard, error) {
	h.mu.RLock()
	b, ok := h.boards[boardID]
	h.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, _ := h.flight.Do(boardID, func() (interface{}, error) {
		h.mu.RLock()
		b, ok := h.boards[boardID]
		h.mu.RUnlock()
		if ok {
			return b, nil
		}

		var lb *liveBoard
		rec, err := h.store.GetBoardWithContent(ctx, boardID)
		switch {
		case err == nil:
			// A durable owner always wins over the joiner's identity.
			lb = boardFromRecord(rec)
			h.logger.Infow("Board hydrated from storage",
				"board_id", boardID,
				"owner_id", lb.ownerID,
				"stickies", len(lb.stickies),
				"instances", len(lb.instances),
			)
		case errors.Is(err, gorm.ErrRecordNotFound):
			lb = newLiveBoard(boardID, joiner.UserID, joiner.Username, seed)
			h.logger.Infow("Board created",
				"board_id", boardID,
				"owner_id", joiner.UserID,
			)
		default:
			return nil, fmt.Errorf("failed to hydrate board %q: %w", boardID, err)
		}

		h.mu.Lock()
		h.boards[boardID] = lb
		h.mu.Unlock()
		return lb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*liveBoard), nil
}

// evictIfEmpty drops the board from residency once its roster is empty, so
// the next join re-reads durable truth instead of stale cached state.
func (h *Hub) evictIfEmpty(boardID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b, ok := h.boards[boardID]
	if !ok {
		return
	}

	b.mu.Lock()
	empty := len(b.clients) == 0
	if empty {
		// Joins that already resolved this instance see the flag and
		// re-resolve instead of attaching to an orphan.
		b.evicted = true
		delete(h.boards, boardID)
	}
	b.mu.Unlock()

	if empty {
		h.logger.Infow("Board evicted", "board_id", boardID)
	}
}
