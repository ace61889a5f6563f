package repository

import (
	"context"
	"time"

	"anoa.com/socialfeed/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostRow is a post joined with its author and the viewer's engagement.
// comment_count is computed live; like/repost counts are the stored
// counters.
type PostRow struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Content           string
	MediaURL          *string
	ParentID          *uuid.UUID
	IsComment         bool
	LikeCount         int64
	RepostCount       int64
	CreatedAt         time.Time
	AuthorUsername    string
	AuthorDisplayName string
	AuthorAvatarURL   *string
	CommentCount      int64
	IsLiked           bool
	IsReposted        bool
}

const enrichedColumns = `p.id, p.user_id, p.content, p.media_url, p.parent_id, p.is_comment,
	p.like_count, p.repost_count, p.created_at,
	u.username AS author_username, u.display_name AS author_display_name, u.avatar_url AS author_avatar_url,
	(SELECT COUNT(*) FROM posts c WHERE c.parent_id = p.id) AS comment_count,
	EXISTS(SELECT 1 FROM likes vl WHERE vl.post_id = p.id AND vl.user_id = ?) AS is_liked,
	EXISTS(SELECT 1 FROM reposts vr WHERE vr.post_id = p.id AND vr.user_id = ?) AS is_reposted`

// Enriched starts a query over posts aliased p, joined to their author u,
// selecting every PostRow column for viewerID. A nil viewer sees no
// engagement flags set.
func Enriched(db *gorm.DB, viewerID uuid.UUID, extraColumns ...string) *gorm.DB {
	columns := enrichedColumns
	for _, c := range extraColumns {
		columns += ", " + c
	}
	return db.Table("posts AS p").
		Select(columns, viewerID, viewerID).
		Joins("JOIN users u ON u.id = p.user_id")
}

type PostRepository interface {
	Create(ctx context.Context, post *entity.Post) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error)
	FindEnrichedByID(ctx context.Context, id, viewerID uuid.UUID) (*PostRow, error)
	FindComments(ctx context.Context, parentID, viewerID uuid.UUID) ([]PostRow, error)
	// DeleteCascade removes a post together with its comments and every
	// like, repost and notification pointing at any of them.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *entity.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Post, error) {
	var post entity.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindEnrichedByID(ctx context.Context, id, viewerID uuid.UUID) (*PostRow, error) {
	var rows []PostRow
	err := Enriched(r.db.WithContext(ctx), viewerID).
		Where("p.id = ?", id).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *postRepository) FindComments(ctx context.Context, parentID, viewerID uuid.UUID) ([]PostRow, error) {
	rows := []PostRow{}
	err := Enriched(r.db.WithContext(ctx), viewerID).
		Where("p.parent_id = ?", parentID).
		Order("p.created_at DESC").
		Order("p.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *postRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&entity.Post{}).
			Where("id = ? OR parent_id = ?", id, id).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("post_id IN ?", ids).Delete(&entity.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id IN ?", ids).Delete(&entity.Repost{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id IN ?", ids).Delete(&entity.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", id).Delete(&entity.Post{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&entity.Post{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
