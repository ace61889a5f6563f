package service

import (
	"strings"
	"unicode/utf8"

	"anoa.com/socialfeed/internal/entity"
	postDto "anoa.com/socialfeed/internal/modules/post/dto"
	postRepo "anoa.com/socialfeed/internal/modules/post/repository"
	"anoa.com/socialfeed/pkg/apperror"
	commonDto "anoa.com/socialfeed/pkg/dto"
)

// NormalizeContent trims surrounding whitespace. Everything else is stored
// as typed; escaping belongs to whoever renders it.
func NormalizeContent(raw string) string {
	return strings.TrimSpace(raw)
}

func checkLength(content string) error {
	if utf8.RuneCountInString(content) > entity.MaxContentLength {
		return apperror.Validation("content must be at most 280 characters")
	}
	return nil
}

// ToResponse maps an enriched row onto the wire shape.
func ToResponse(row *postRepo.PostRow) postDto.PostResponse {
	return postDto.PostResponse{
		ID:        row.ID,
		Content:   row.Content,
		MediaURL:  row.MediaURL,
		ParentID:  row.ParentID,
		IsComment: row.IsComment,
		Author: commonDto.AuthorResponse{
			ID:          row.UserID,
			Username:    row.AuthorUsername,
			DisplayName: row.AuthorDisplayName,
			AvatarURL:   row.AuthorAvatarURL,
		},
		CreatedAt: row.CreatedAt,
		EngagementState: commonDto.EngagementState{
			LikeCount:    row.LikeCount,
			RepostCount:  row.RepostCount,
			CommentCount: row.CommentCount,
			IsLiked:      row.IsLiked,
			IsReposted:   row.IsReposted,
		},
	}
}

func newPostResponse(post *entity.Post, author *entity.User) *postDto.PostResponse {
	return &postDto.PostResponse{
		ID:        post.ID,
		Content:   post.Content,
		MediaURL:  post.MediaURL,
		ParentID:  post.ParentID,
		IsComment: post.IsComment,
		Author: commonDto.AuthorResponse{
			ID:          author.ID,
			Username:    author.Username,
			DisplayName: author.DisplayName,
			AvatarURL:   author.AvatarURL,
		},
		CreatedAt: post.CreatedAt,
	}
}

func isAllowedMedia(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}
