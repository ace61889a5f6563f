package dto

import (
	"io"
	"time"

	commonDto "anoa.com/socialfeed/pkg/dto"
	"github.com/google/uuid"
)

// MediaFile is an uploaded image or video attached to a new post.
type MediaFile struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

type CreatePostRequest struct {
	Content string     `form:"content" json:"content"`
	Media   *MediaFile `form:"-" json:"-"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type PostResponse struct {
	ID        uuid.UUID                `json:"id"`
	Content   string                   `json:"content"`
	MediaURL  *string                  `json:"media_url,omitempty"`
	ParentID  *uuid.UUID               `json:"parent_id,omitempty"`
	IsComment bool                     `json:"is_comment"`
	Author    commonDto.AuthorResponse `json:"author"`
	CreatedAt time.Time                `json:"created_at"`
	commonDto.EngagementState
}
