package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxContentLength bounds post and comment text, counted in characters.
const MaxContentLength = 280

// Post is either an original post (ParentID nil, IsComment false) or a
// comment nested one level under an original post.
type Post struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User        User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	MediaURL    *string    `gorm:"type:text" json:"media_url,omitempty"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Parent      *Post      `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	IsComment   bool       `gorm:"not null;index:idx_posts_feed,priority:1" json:"is_comment"`
	LikeCount   int64      `gorm:"not null" json:"like_count"`
	RepostCount int64      `gorm:"not null" json:"repost_count"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_posts_feed,priority:2,sort:desc" json:"created_at"`
}

func (p *Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID, err = uuid.NewV7()
	}
	return
}

// IsOriginal reports whether the post may appear in feeds and receive
// likes, reposts and comments.
func (p *Post) IsOriginal() bool {
	return p.ParentID == nil && !p.IsComment
}
