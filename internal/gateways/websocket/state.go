package websocket

import (
	"sort"
	"sync"
	"time"

	"backend/internal/app/board"
)

// liveBoard is the resident state of one active board: its content, the
// connected clients and the in-flight activity records. All fields behind
// mu; a mutation applies and broadcasts under one lock hold, so readers
// never observe a half-applied change.
type liveBoard struct {
	mu sync.Mutex

	id        string
	ownerID   string
	ownerName string
	deleted   bool
	evicted   bool

	stickies  map[string]board.Sticky
	instances map[string]board.CanvasInstance
	clients   map[*Client]struct{}
	activity  map[string]activityRecord
}

func newLiveBoard(id, ownerID, ownerName string, seed *BoardContent) *liveBoard {
	b := &liveBoard{
		id:        id,
		ownerID:   ownerID,
		ownerName: ownerName,
		stickies:  make(map[string]board.Sticky),
		instances: make(map[string]board.CanvasInstance),
		clients:   make(map[*Client]struct{}),
		activity:  make(map[string]activityRecord),
	}
	if seed != nil {
		b.replaceContent(*seed)
	}
	return b
}

func boardFromRecord(rec *board.Board) *liveBoard {
	b := newLiveBoard(rec.ID, rec.OwnerID, rec.OwnerName, nil)
	for _, s := range rec.Stickies {
		b.stickies[s.ID] = s
	}
	for _, i := range rec.Instances {
		b.instances[i.ID] = i
	}
	return b
}

func (b *liveBoard) putSticky(s board.Sticky) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.BoardID = b.id
	b.stickies[s.ID] = s
}

func (b *liveBoard) patchSticky(id string, p StickyPatch) bool {
	s, ok := b.stickies[id]
	if !ok {
		return false
	}
	if p.Text != nil {
		s.Text = *p.Text
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	b.stickies[id] = s
	return true
}

// removeSticky deletes a sticky and cascades to every canvas instance
// referencing it. Returns the ids of the cascaded instances.
func (b *liveBoard) removeSticky(id string) (bool, []string) {
	if _, ok := b.stickies[id]; !ok {
		return false, nil
	}
	delete(b.stickies, id)

	var cascaded []string
	for iid, inst := range b.instances {
		if inst.StickyID == id {
			delete(b.instances, iid)
			cascaded = append(cascaded, iid)
		}
	}
	return true, cascaded
}

func (b *liveBoard) putInstance(i board.CanvasInstance) {
	i.BoardID = b.id
	b.instances[i.ID] = i
}

func (b *liveBoard) patchInstance(id string, p InstancePatch) bool {
	i, ok := b.instances[id]
	if !ok {
		return false
	}
	if p.X != nil {
		i.X = *p.X
	}
	if p.Y != nil {
		i.Y = *p.Y
	}
	if p.Width != nil {
		i.Width = *p.Width
	}
	if p.Height != nil {
		i.Height = *p.Height
	}
	if p.ZIndex != nil {
		i.ZIndex = *p.ZIndex
	}
	if p.TextOverride != nil {
		if *p.TextOverride == "" {
			i.TextOverride = nil
		} else {
			override := *p.TextOverride
			i.TextOverride = &override
		}
	}
	b.instances[id] = i
	return true
}

func (b *liveBoard) removeInstance(id string) bool {
	if _, ok := b.instances[id]; !ok {
		return false
	}
	delete(b.instances, id)
	return true
}

func (b *liveBoard) replaceContent(content BoardContent) {
	b.stickies = make(map[string]board.Sticky, len(content.Stickies))
	b.instances = make(map[string]board.CanvasInstance, len(content.Instances))
	for _, s := range content.Stickies {
		b.putSticky(s)
	}
	for _, i := range content.Instances {
		b.putInstance(i)
	}
}

func (b *liveBoard) snapshot() BoardContent {
	content := BoardContent{
		Stickies:  make([]board.Sticky, 0, len(b.stickies)),
		Instances: make([]board.CanvasInstance, 0, len(b.instances)),
	}
	for _, s := range b.stickies {
		content.Stickies = append(content.Stickies, s)
	}
	for _, i := range b.instances {
		content.Instances = append(content.Instances, i)
	}
	sort.Slice(content.Stickies, func(a, z int) bool {
		return content.Stickies[a].ID < content.Stickies[z].ID
	})
	sort.Slice(content.Instances, func(a, z int) bool {
		return content.Instances[a].ID < content.Instances[z].ID
	})
	return content
}

func (b *liveBoard) record() *board.Board {
	content := b.snapshot()
	return &board.Board{
		ID:        b.id,
		OwnerID:   b.ownerID,
		OwnerName: b.ownerName,
		Stickies:  content.Stickies,
		Instances: content.Instances,
	}
}

func (b *liveBoard) roster() []RosterEntry {
	type member struct {
		entry RosterEntry
		at    time.Time
	}
	members := make([]member, 0, len(b.clients))
	for c := range b.clients {
		members = append(members, member{
			entry: RosterEntry{UserID: c.UserID, Username: c.Username},
			at:    c.joinedAt,
		})
	}
	sort.Slice(members, func(a, z int) bool {
		if members[a].at.Equal(members[z].at) {
			return members[a].entry.UserID < members[z].entry.UserID
		}
		return members[a].at.Before(members[z].at)
	})
	roster := make([]RosterEntry, 0, len(members))
	for _, m := range members {
		roster = append(roster, m.entry)
	}
	return roster
}
