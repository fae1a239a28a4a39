package websocket

import (
	"encoding/json"

	"backend/internal/app/board"
)

// Client -> server events.
const (
	EventJoin           = "join"
	EventStickyCreate   = "sticky_create"
	EventStickyUpdate   = "sticky_update"
	EventStickyDelete   = "sticky_delete"
	EventInstanceCreate = "instance_create"
	EventInstanceUpdate = "instance_update"
	EventInstanceDelete = "instance_delete"
	EventActivityStart  = "activity_start"
	EventActivityClear  = "activity_clear"
	EventBoardSave      = "board_save"
)

// Server -> client events.
const (
	EventBoardState      = "board_state"
	EventStickyCreated   = "sticky_created"
	EventStickyUpdated   = "sticky_updated"
	EventStickyDeleted   = "sticky_deleted"
	EventInstanceCreated = "instance_created"
	EventInstanceUpdated = "instance_updated"
	EventInstanceDeleted = "instance_deleted"
	EventRosterUpdated   = "roster_updated"
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventActivityStarted = "activity_started"
	EventActivityCleared = "activity_cleared"
	EventSaveRejected    = "save_rejected"
	EventSaveFailed      = "save_failed"
	EventBoardSaved      = "board_saved"
	EventBoardDeleted    = "board_deleted"
)

// Envelope is the wire frame for every event in both directions. Data is
// decoded per event kind; frames whose payload does not match the kind's
// schema are dropped without broadcast.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type BoardContent struct {
	Stickies  []board.Sticky         `json:"stickies"`
	Instances []board.CanvasInstance `json:"canvas_instances"`
}

type RosterEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type JoinPayload struct {
	BoardID string        `json:"board_id"`
	Seed    *BoardContent `json:"seed,omitempty"`
}

type BoardStatePayload struct {
	BoardID       string        `json:"board_id"`
	Content       BoardContent  `json:"content"`
	OwnerID       string        `json:"owner_id"`
	OwnerUsername string        `json:"owner_username"`
	Roster        []RosterEntry `json:"roster"`
}

// StickyPatch carries a per-field patch; nil fields are left untouched.
type StickyPatch struct {
	Text  *string `json:"text,omitempty"`
	Color *string `json:"color,omitempty"`
}

// InstancePatch carries a per-field patch; nil fields are left untouched.
// An empty TextOverride clears the override.
type InstancePatch struct {
	X            *float64 `json:"x,omitempty"`
	Y            *float64 `json:"y,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	ZIndex       *int     `json:"z_index,omitempty"`
	TextOverride *string  `json:"text_override,omitempty"`
}

type StickyCreatePayload struct {
	Sticky board.Sticky `json:"sticky"`
}

type StickyUpdatePayload struct {
	StickyID string      `json:"sticky_id"`
	Updates  StickyPatch `json:"updates"`
}

type StickyDeletePayload struct {
	StickyID string `json:"sticky_id"`
}

type InstanceCreatePayload struct {
	Instance board.CanvasInstance `json:"instance"`
}

type InstanceUpdatePayload struct {
	InstanceID string        `json:"instance_id"`
	Updates    InstancePatch `json:"updates"`
}

type InstanceDeletePayload struct {
	InstanceID string `json:"instance_id"`
}

type RosterUpdatedPayload struct {
	Roster []RosterEntry `json:"roster"`
}

type PresencePayload struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	TotalUsers int    `json:"total_users"`
}

type ActivityStartPayload struct {
	InstanceID string `json:"instance_id"`
	Action     string `json:"action"`
}

type ActivityStartedPayload struct {
	InstanceID string `json:"instance_id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	Timestamp  int64  `json:"timestamp"`
}

type ActivityClearPayload struct {
	InstanceID string `json:"instance_id"`
}

type BoardSavePayload struct {
	Content BoardContent `json:"content"`
}

type SaveRejectedPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type BoardSavedPayload struct {
	BoardID string `json:"board_id"`
}

type BoardDeletedPayload struct {
	BoardID string `json:"board_id"`
}
