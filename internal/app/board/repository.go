package board

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CreateBoard(ctx context.Context, b *Board) error
	GetBoardWithContent(ctx context.Context, id string) (*Board, error)
	ListBoardsByOwner(ctx context.Context, ownerID string) ([]*Board, error)
	ReplaceBoardContent(ctx context.Context, b *Board) error
	DeleteBoard(ctx context.Context, id string) error
	DeleteSticky(ctx context.Context, boardID, stickyID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBoard(ctx context.Context, b *Board) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *repository) GetBoardWithContent(ctx context.Context, id string) (*Board, error) {
	var b Board
	err := r.db.WithContext(ctx).
		Preload("Stickies").
		Preload("Instances").
		Where("id = ?", id).
		First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListBoardsByOwner(ctx context.Context, ownerID string) ([]*Board, error) {
	var boards []*Board
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&boards).Error
	return boards, err
}

// ReplaceBoardContent writes a full snapshot: the board row is upserted and
// its stickies and canvas instances are swapped out in one transaction.
func (r *repository) ReplaceBoardContent(ctx context.Context, b *Board) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Board
		err := tx.Where("id = ?", b.ID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&Board{}).Where("id = ?", b.ID).
				Update("updated_at", time.Now().UTC()).Error; err != nil {
				return err
			}
		case err == gorm.ErrRecordNotFound:
			row := Board{ID: b.ID, OwnerID: b.OwnerID, OwnerName: b.OwnerName}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := tx.Where("board_id = ?", b.ID).Delete(&CanvasInstance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", b.ID).Delete(&Sticky{}).Error; err != nil {
			return err
		}

		for i := range b.Stickies {
			b.Stickies[i].BoardID = b.ID
		}
		for i := range b.Instances {
			b.Instances[i].BoardID = b.ID
		}
		if len(b.Stickies) > 0 {
			if err := tx.Create(&b.Stickies).Error; err != nil {
				return err
			}
		}
		if len(b.Instances) > 0 {
			if err := tx.Create(&b.Instances).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repository) DeleteBoard(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("board_id = ?", id).Delete(&CanvasInstance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("board_id = ?", id).Delete(&Sticky{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&Board{}).Error
	})
}

// DeleteSticky removes a sticky and every canvas instance referencing it,
// so durable storage never holds dangling placements.
func (r *repository) DeleteSticky(ctx context.Context, boardID, stickyID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("board_id = ? AND sticky_id = ?", boardID, stickyID).
			Delete(&CanvasInstance{}).Error; err != nil {
			return err
		}
		return tx.Where("board_id = ? AND id = ?", boardID, stickyID).
			Delete(&Sticky{}).Error
	})
}
