package dto

import "github.com/google/uuid"

type AuthorResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
}

// EngagementState is the per-viewer view of a post's counters.
type EngagementState struct {
	LikeCount    int64 `json:"like_count"`
	RepostCount  int64 `json:"repost_count"`
	CommentCount int64 `json:"comment_count"`
	IsLiked      bool  `json:"is_liked"`
	IsReposted   bool  `json:"is_reposted"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
