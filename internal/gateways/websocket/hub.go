package websocket

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"backend/internal/app/board"
	"backend/internal/app/session"
	"backend/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// BoardStore is the persistence gateway consumed by the hub: hydrate on
// first join, write through on explicit save. Calls may be slow or fail;
// live collaboration never depends on them succeeding.
type BoardStore interface {
	GetBoardWithContent(ctx context.Context, id string) (*board.Board, error)
	ReplaceBoardContent(ctx context.Context, b *board.Board) error
}

// SessionValidator is the session gateway consumed before a connection is
// accepted.
type SessionValidator interface {
	GetUserBySessionKey(ctx context.Context, sessionKey string) (*session.User, error)
}

type ClientConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const sendBuffer = 256

type Client struct {
	hub  *Hub
	conn ClientConn

	ID       string
	UserID   string
	Username string

	send     chan []byte
	joinedAt time.Time

	// board is bound by the join handshake and only touched from the
	// connection's own read goroutine.
	board *liveBoard

	closeOnce sync.Once
}

func generateClientID() string {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "xxxxx"
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

// sendEvent queues an event for the client. The queue never blocks the
// caller; a client that cannot drain its queue loses frames and will be
// dropped by its own read loop eventually.
func (c *Client) sendEvent(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		c.hub.logger.Errorw("Failed to marshal event payload", "event", event, "error", err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		c.hub.logger.Errorw("Failed to marshal event frame", "event", event, "error", err)
		return
	}
	select {
	case c.send <- frame:
	default:
		c.hub.logger.Warnw("Client send queue full, dropping frame",
			"client_id", c.ID,
			"event", event,
		)
	}
}

type Hub struct {
	mu     sync.RWMutex
	boards map[string]*liveBoard
	flight singleflight.Group

	store       BoardStore
	sessionSvc  SessionValidator
	eventBus    *utils.EventBus
	logger      *zap.SugaredLogger
	activityTTL time.Duration
}

func NewHub(logger *zap.Logger, store BoardStore, sessionSvc SessionValidator, eventBus *utils.EventBus, activityTTL time.Duration) *Hub {
	return &Hub{
		boards:      make(map[string]*liveBoard),
		store:       store,
		sessionSvc:  sessionSvc,
		eventBus:    eventBus,
		logger:      logger.Sugar(),
		activityTTL: activityTTL,
	}
}

// Run consumes the in-process event bus so REST-side board deletions reach
// live members.
func (h *Hub) Run() {
	h.logger.Info("WebSocket Hub started")

	for ev := range h.eventBus.SubscribeCh() {
		if ev.Event != "board_deleted" {
			continue
		}
		data, ok := ev.Data.(map[string]interface{})
		if !ok {
			continue
		}
		boardID, ok := data["board_id"].(string)
		if !ok {
			continue
		}
		h.dropBoard(boardID)
	}
}

func (h *Hub) dropBoard(boardID string) {
	h.mu.Lock()
	b, ok := h.boards[boardID]
	if ok {
		delete(h.boards, boardID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	b.mu.Lock()
	b.deleted = true
	h.broadcastLocked(b, nil, EventBoardDeleted, BoardDeletedPayload{BoardID: boardID})
	members := len(b.clients)
	b.mu.Unlock()

	h.logger.Infow("Board dropped after deletion",
		"board_id", boardID,
		"members_notified", members,
	)
}

// broadcastLocked relays an event to every client of the board except the
// originator. Caller holds b.mu; queuing never blocks, so holding the lock
// across the fan-out is safe.
func (h *Hub) broadcastLocked(b *liveBoard, except *Client, event string, data interface{}) {
	for c := range b.clients {
		if c == except {
			continue
		}
		c.sendEvent(event, data)
	}
}

func (h *Hub) join(ctx context.Context, c *Client, p JoinPayload) {
	if c.board != nil {
		h.logger.Warnw("Join ignored: connection already joined",
			"client_id", c.ID,
			"board_id", c.board.id,
		)
		return
	}
	if p.BoardID == "" {
		h.logger.Warnw("Join rejected: board_id missing", "client_id", c.ID)
		return
	}

	var b *liveBoard
	for attempt := 0; attempt < 3; attempt++ {
		resolved, err := h.resolveBoard(ctx, p.BoardID, c, p.Seed)
		if err != nil {
			h.logger.Errorw("Failed to resolve board",
				"board_id", p.BoardID,
				"client_id", c.ID,
				"error", err,
			)
			return
		}
		resolved.mu.Lock()
		if resolved.deleted {
			resolved.mu.Unlock()
			return
		}
		if resolved.evicted {
			// Lost a race with eviction; resolve again.
			resolved.mu.Unlock()
			continue
		}
		b = resolved
		break
	}
	if b == nil {
		h.logger.Warnw("Join abandoned after eviction races", "board_id", p.BoardID)
		return
	}
	defer b.mu.Unlock()

	c.joinedAt = time.Now().UTC()
	c.board = b
	b.clients[c] = struct{}{}

	roster := b.roster()
	c.sendEvent(EventBoardState, BoardStatePayload{
		BoardID:       b.id,
		Content:       b.snapshot(),
		OwnerID:       b.ownerID,
		OwnerUsername: b.ownerName,
		Roster:        roster,
	})
	h.broadcastLocked(b, c, EventUserJoined, PresencePayload{
		UserID:     c.UserID,
		Username:   c.Username,
		TotalUsers: len(b.clients),
	})
	h.broadcastLocked(b, nil, EventRosterUpdated, RosterUpdatedPayload{Roster: roster})

	h.logger.Infow("User joined board",
		"board_id", b.id,
		"user_id", c.UserID,
		"client_id", c.ID,
		"members", len(b.clients),
	)
}

func (h *Hub) leave(c *Client) {
	b := c.board
	if b == nil {
		return
	}
	c.board = nil

	b.mu.Lock()
	delete(b.clients, c)

	for _, instanceID := range b.clearUserActivity(c.UserID) {
		h.broadcastLocked(b, nil, EventActivityCleared, ActivityClearPayload{InstanceID: instanceID})
	}

	h.broadcastLocked(b, nil, EventUserLeft, PresencePayload{
		UserID:     c.UserID,
		Username:   c.Username,
		TotalUsers: len(b.clients),
	})
	h.broadcastLocked(b, nil, EventRosterUpdated, RosterUpdatedPayload{Roster: b.roster()})

	empty := len(b.clients) == 0
	b.mu.Unlock()

	h.logger.Infow("User left board",
		"board_id", b.id,
		"user_id", c.UserID,
		"client_id", c.ID,
	)

	if empty {
		h.evictIfEmpty(b.id)
	}
}
