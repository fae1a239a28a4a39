package seeder

import (
	"time"

	"backend/internal/app/board"
	"backend/internal/app/session"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		logger: logger,
	}
}

func (s *Seeder) Seed() error {
	s.logger.Info("Running database seeders...")

	if err := s.seedDemoBoard(); err != nil {
		return err
	}

	s.logger.Info("Database seeders completed successfully")
	return nil
}

func (s *Seeder) seedDemoBoard() error {
	var count int64
	s.db.Model(&board.Board{}).Count(&count)
	if count > 0 {
		s.logger.Info("Boards already exist, skipping seed")
		return nil
	}

	owner := session.User{
		ID:       "00000000-0000-0000-0000-000000000001",
		Username: "demo",
	}
	if err := s.db.FirstOrCreate(&owner, session.User{ID: owner.ID}).Error; err != nil {
		return err
	}

	demo := board.Board{
		ID:        "demo",
		OwnerID:   owner.ID,
		OwnerName: owner.Username,
		Stickies: []board.Sticky{
			{ID: "demo-s1", Text: "Welcome to your board", Color: "#fff176", CreatedAt: time.Now().UTC()},
			{ID: "demo-s2", Text: "Drag stickies anywhere", Color: "#aed581", CreatedAt: time.Now().UTC()},
		},
		Instances: []board.CanvasInstance{
			{ID: "demo-i1", StickyID: "demo-s1", X: 80, Y: 60, Width: 200, Height: 160, ZIndex: 1},
			{ID: "demo-i2", StickyID: "demo-s2", X: 320, Y: 140, Width: 200, Height: 160, ZIndex: 2},
		},
	}
	if err := s.db.Create(&demo).Error; err != nil {
		return err
	}

	s.logger.Info("Seeded demo board", zap.String("board_id", demo.ID))
	return nil
}
