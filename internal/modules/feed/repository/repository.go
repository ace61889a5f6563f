package repository

import (
	"context"
	"time"

	postRepo "anoa.com/socialfeed/internal/modules/post/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cursor is the position after which the next page starts. Without an ID
// only the timestamp bounds the page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
	HasID     bool
}

type RepostRow struct {
	postRepo.PostRow
	ActivityAt time.Time
}

type FeedRepository interface {
	// GlobalPage returns up to limit original posts strictly after cursor
	// in (created_at DESC, id DESC) order.
	GlobalPage(ctx context.Context, viewerID uuid.UUID, cursor *Cursor, limit int) ([]postRepo.PostRow, error)
	ProfileOriginals(ctx context.Context, profileUserID, viewerID uuid.UUID) ([]postRepo.PostRow, error)
	ProfileReposts(ctx context.Context, profileUserID, viewerID uuid.UUID) ([]RepostRow, error)
}

type feedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) GlobalPage(ctx context.Context, viewerID uuid.UUID, cursor *Cursor, limit int) ([]postRepo.PostRow, error) {
	query := postRepo.Enriched(r.db.WithContext(ctx), viewerID).
		Where("p.is_comment = ?", false)

	if cursor != nil {
		if cursor.HasID {
			query = query.Where("(p.created_at < ? OR (p.created_at = ? AND p.id < ?))",
				cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		} else {
			query = query.Where("p.created_at < ?", cursor.CreatedAt)
		}
	}

	rows := []postRepo.PostRow{}
	err := query.
		Order("p.created_at DESC").
		Order("p.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *feedRepository) ProfileOriginals(ctx context.Context, profileUserID, viewerID uuid.UUID) ([]postRepo.PostRow, error) {
	rows := []postRepo.PostRow{}
	err := postRepo.Enriched(r.db.WithContext(ctx), viewerID).
		Where("p.user_id = ? AND p.is_comment = ?", profileUserID, false).
		Order("p.created_at DESC").
		Order("p.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *feedRepository) ProfileReposts(ctx context.Context, profileUserID, viewerID uuid.UUID) ([]RepostRow, error) {
	rows := []RepostRow{}
	err := postRepo.Enriched(r.db.WithContext(ctx), viewerID, "r.created_at AS activity_at").
		Joins("JOIN reposts r ON r.post_id = p.id").
		Where("r.user_id = ? AND p.is_comment = ?", profileUserID, false).
		Order("r.created_at DESC").
		Order("p.id DESC").
		Scan(&rows).Error
	return rows, err
}
