package board

import "time"

type Board struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	OwnerID   string    `json:"owner_id" gorm:"not null;index"`
	OwnerName string    `json:"owner_name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Stickies  []Sticky         `json:"stickies" gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
	Instances []CanvasInstance `json:"canvas_instances" gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}

type Sticky struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	BoardID   string    `json:"-" gorm:"not null;index"`
	Text      string    `json:"text" gorm:"type:text"`
	Color     string    `json:"color" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// CanvasInstance places a Sticky on the shared surface. StickyID is a weak
// reference: rows cascade away with their sticky.
type CanvasInstance struct {
	ID           string  `json:"id" gorm:"primaryKey"`
	BoardID      string  `json:"-" gorm:"not null;index"`
	StickyID     string  `json:"sticky_id" gorm:"not null;index"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	ZIndex       int     `json:"z_index"`
	TextOverride *string `json:"text_override,omitempty" gorm:"type:text"`
}

type BoardListResponse struct {
	Boards []*Board `json:"boards"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
