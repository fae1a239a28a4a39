package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"backend/internal/app/board"
	"backend/internal/utils"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeStore struct {
	mu        sync.Mutex
	boards    map[string]*board.Board
	loads     int
	saves     int
	loadDelay time.Duration
	loadErr   error
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{boards: make(map[string]*board.Board)}
}

func (s *fakeStore) GetBoardWithContent(_ context.Context, id string) (*board.Board, error) {
	if s.loadDelay > 0 {
		time.Sleep(s.loadDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	b, ok := s.boards[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) ReplaceBoardContent(_ context.Context, b *board.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *b
	s.boards[b.ID] = &cp
	return nil
}

func (s *fakeStore) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

type fakeConn struct{}

func (fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, nil }
func (fakeConn) WriteMessage(int, []byte) error    { return nil }
func (fakeConn) Close() error                      { return nil }

func newTestHub(store *fakeStore, activityTTL time.Duration) *Hub {
	return NewHub(zap.NewNop(), store, nil, utils.NewEventBus(), activityTTL)
}

func newTestClient(h *Hub, userID, username string) *Client {
	return &Client{
		hub:      h,
		conn:     fakeConn{},
		ID:       generateClientID(),
		UserID:   userID,
		Username: username,
		send:     make(chan []byte, sendBuffer),
	}
}

// emit feeds one event through the client's dispatch path, exactly as the
// read loop would.
func emit(t *testing.T, c *Client, event string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	c.handleEvent(context.Background(), Envelope{Event: event, Data: data})
}

// drain empties the client's outbound queue and returns the decoded frames.
func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventsOf(envs []Envelope, name string) []Envelope {
	var out []Envelope
	for _, e := range envs {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func decodeAs[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func joinBoard(t *testing.T, c *Client, boardID string) BoardStatePayload {
	t.Helper()
	emit(t, c, EventJoin, JoinPayload{BoardID: boardID})
	envs := drain(t, c)
	states := eventsOf(envs, EventBoardState)
	require.Len(t, states, 1, "joiner must receive exactly one board_state")
	return decodeAs[BoardStatePayload](t, states[0])
}
