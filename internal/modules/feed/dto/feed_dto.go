package dto

import (
	"time"

	postDto "anoa.com/socialfeed/internal/modules/post/dto"
)

const (
	KindOriginal = "original"
	KindRepost   = "repost"
)

type FeedPage struct {
	Data       []postDto.PostResponse `json:"data"`
	NextCursor *string                `json:"next_cursor,omitempty"`
}

// ActivityEntry is one line of a profile timeline: a post the owner wrote
// or a post they reposted, placed at the time of that activity.
type ActivityEntry struct {
	Kind       string               `json:"type"`
	ActivityAt time.Time            `json:"activity_at"`
	RepostedBy *string              `json:"reposted_by,omitempty"`
	Post       postDto.PostResponse `json:"post"`
}

type FeedQuery struct {
	Cursor string `form:"cursor" validate:"max=128"`
}
