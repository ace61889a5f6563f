package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"anoa.com/socialfeed/internal/modules/feed/dto"
	feedRepo "anoa.com/socialfeed/internal/modules/feed/repository"
	postDto "anoa.com/socialfeed/internal/modules/post/dto"
	postService "anoa.com/socialfeed/internal/modules/post/service"
	userRepo "anoa.com/socialfeed/internal/modules/user/repository"
	"anoa.com/socialfeed/pkg/apperror"
	"anoa.com/socialfeed/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FeedService interface {
	GetGlobalFeed(ctx context.Context, viewerID uuid.UUID, cursor string) (*dto.FeedPage, error)
	GetProfileActivity(ctx context.Context, profileUserID, viewerID uuid.UUID) ([]dto.ActivityEntry, error)
	// GetProfileActivityByUsername resolves the handle case-insensitively.
	GetProfileActivityByUsername(ctx context.Context, username string, viewerID uuid.UUID) ([]dto.ActivityEntry, error)
}

type feedService struct {
	repo     feedRepo.FeedRepository
	userRepo userRepo.UserRepository
	pageSize int
}

func NewFeedService(repo feedRepo.FeedRepository, userRepo userRepo.UserRepository, pageSize int) FeedService {
	return &feedService{
		repo:     repo,
		userRepo: userRepo,
		pageSize: pageSize,
	}
}

func (s *feedService) GetGlobalFeed(ctx context.Context, viewerID uuid.UUID, cursor string) (*dto.FeedPage, error) {
	after, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.GlobalPage(ctx, viewerID, after, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("load global feed: %w", err)
	}

	page := &dto.FeedPage{Data: make([]postDto.PostResponse, 0, len(rows))}
	for i := range rows {
		page.Data = append(page.Data, postService.ToResponse(&rows[i]))
	}
	if len(rows) == s.pageSize {
		last := rows[len(rows)-1]
		next := EncodeCursor(last.CreatedAt, last.ID)
		page.NextCursor = &next
	}

	metrics.FeedPagesServed.WithLabelValues("global").Inc()
	return page, nil
}

func (s *feedService) GetProfileActivityByUsername(ctx context.Context, username string, viewerID uuid.UUID) ([]dto.ActivityEntry, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.activity(ctx, user.ID, user.Username, viewerID)
}

func (s *feedService) GetProfileActivity(ctx context.Context, profileUserID, viewerID uuid.UUID) ([]dto.ActivityEntry, error) {
	user, err := s.userRepo.FindByID(ctx, profileUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.activity(ctx, user.ID, user.Username, viewerID)
}

func (s *feedService) activity(ctx context.Context, profileUserID uuid.UUID, username string, viewerID uuid.UUID) ([]dto.ActivityEntry, error) {
	originals, err := s.repo.ProfileOriginals(ctx, profileUserID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load profile posts: %w", err)
	}
	reposts, err := s.repo.ProfileReposts(ctx, profileUserID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load profile reposts: %w", err)
	}

	entries := make([]dto.ActivityEntry, 0, len(originals)+len(reposts))
	for i := range originals {
		entries = append(entries, dto.ActivityEntry{
			Kind:       dto.KindOriginal,
			ActivityAt: originals[i].CreatedAt,
			Post:       postService.ToResponse(&originals[i]),
		})
	}
	for i := range reposts {
		reposter := username
		entries = append(entries, dto.ActivityEntry{
			Kind:       dto.KindRepost,
			ActivityAt: reposts[i].ActivityAt,
			RepostedBy: &reposter,
			Post:       postService.ToResponse(&reposts[i].PostRow),
		})
	}

	SortActivity(entries)
	metrics.FeedPagesServed.WithLabelValues("profile").Inc()
	return entries, nil
}

// SortActivity orders entries newest first. Equal instants fall back to
// the post id, descending, and then put originals ahead of reposts.
func SortActivity(entries []dto.ActivityEntry) {
	slices.SortStableFunc(entries, func(a, b dto.ActivityEntry) int {
		if c := b.ActivityAt.Compare(a.ActivityAt); c != 0 {
			return c
		}
		if c := bytes.Compare(b.Post.ID[:], a.Post.ID[:]); c != 0 {
			return c
		}
		return kindRank(a.Kind) - kindRank(b.Kind)
	})
}

func kindRank(kind string) int {
	if kind == dto.KindOriginal {
		return 0
	}
	return 1
}
