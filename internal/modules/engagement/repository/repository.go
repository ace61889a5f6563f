package repository

import (
	"context"
	"errors"

	"anoa.com/socialfeed/internal/entity"
	"anoa.com/socialfeed/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrAlreadyExists is returned when the (user, post) pair is already
// recorded. The unique index decides, not a prior read.
var ErrAlreadyExists = errors.New("engagement already exists")

// EngagementRepository records likes and reposts. Each call is one
// transaction that writes the relation row and moves the matching
// counter on the post by one.
type EngagementRepository interface {
	Like(ctx context.Context, like *entity.Like) error
	Unlike(ctx context.Context, userID, postID uuid.UUID) error
	Repost(ctx context.Context, repost *entity.Repost) error
	Unrepost(ctx context.Context, userID, postID uuid.UUID) error
}

type engagementRepository struct {
	db *gorm.DB
}

func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) Like(ctx context.Context, like *entity.Like) error {
	return r.insert(ctx, like, like.PostID, "like_count")
}

func (r *engagementRepository) Unlike(ctx context.Context, userID, postID uuid.UUID) error {
	return r.remove(ctx, &entity.Like{}, userID, postID, "like_count")
}

func (r *engagementRepository) Repost(ctx context.Context, repost *entity.Repost) error {
	return r.insert(ctx, repost, repost.PostID, "repost_count")
}

func (r *engagementRepository) Unrepost(ctx context.Context, userID, postID uuid.UUID) error {
	return r.remove(ctx, &entity.Repost{}, userID, postID, "repost_count")
}

func (r *engagementRepository) insert(ctx context.Context, row any, postID uuid.UUID, counter string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return ErrAlreadyExists
			}
			return err
		}

		result := tx.Model(&entity.Post{}).
			Where("id = ?", postID).
			UpdateColumn(counter, gorm.Expr(counter+" + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *engagementRepository) remove(ctx context.Context, model any, userID, postID uuid.UUID, counter string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Model(&entity.Post{}).
			Where("id = ?", postID).
			UpdateColumn(counter, gorm.Expr(counter+" - ?", 1)).Error
	})
}
