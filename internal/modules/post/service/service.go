package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/socialfeed/internal/entity"
	"anoa.com/socialfeed/internal/modules/authz"
	notifService "anoa.com/socialfeed/internal/modules/notification/service"
	postDto "anoa.com/socialfeed/internal/modules/post/dto"
	postRepo "anoa.com/socialfeed/internal/modules/post/repository"
	userRepo "anoa.com/socialfeed/internal/modules/user/repository"
	"anoa.com/socialfeed/pkg/apperror"
	"anoa.com/socialfeed/pkg/database"
	"anoa.com/socialfeed/pkg/events"
	"anoa.com/socialfeed/pkg/logger"
	"anoa.com/socialfeed/pkg/ratelimiter"
	"anoa.com/socialfeed/pkg/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	maxMediaSize = 5 * 1024 * 1024
	mediaFolder  = "posts"
)

type PostService interface {
	CreatePost(ctx context.Context, userID uuid.UUID, req postDto.CreatePostRequest) (*postDto.PostResponse, error)
	CreateComment(ctx context.Context, userID, parentID uuid.UUID, req postDto.CreateCommentRequest) (*postDto.PostResponse, error)
	GetPostByID(ctx context.Context, postID, viewerID uuid.UUID) (*postDto.PostResponse, error)
	GetComments(ctx context.Context, postID uuid.UUID) ([]postDto.PostResponse, error)
	DeletePost(ctx context.Context, requesterID, postID uuid.UUID) error
}

// Limits are the per-user cooldowns. Global applies to every write,
// Post only to original posts.
type Limits struct {
	Global time.Duration
	Post   time.Duration
}

type Option func(*postService)

// WithClock overrides the timestamp source for new posts.
func WithClock(now func() time.Time) Option {
	return func(s *postService) { s.now = now }
}

type postService struct {
	postRepo            postRepo.PostRepository
	userRepo            userRepo.UserRepository
	notificationService notifService.NotificationService
	mediaStorage        storage.MediaStorage
	limiter             *ratelimiter.Limiter
	publisher           events.Publisher
	limits              Limits
	now                 func() time.Time
}

func NewPostService(postRepo postRepo.PostRepository, userRepo userRepo.UserRepository, notificationService notifService.NotificationService, mediaStorage storage.MediaStorage, limiter *ratelimiter.Limiter, publisher events.Publisher, limits Limits, opts ...Option) PostService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &postService{
		postRepo:            postRepo,
		userRepo:            userRepo,
		notificationService: notificationService,
		mediaStorage:        mediaStorage,
		limiter:             limiter,
		publisher:           publisher,
		limits:              limits,
		now:                 database.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *postService) CreatePost(ctx context.Context, userID uuid.UUID, req postDto.CreatePostRequest) (*postDto.PostResponse, error) {
	content := NormalizeContent(req.Content)
	if err := checkLength(content); err != nil {
		return nil, err
	}
	if content == "" && req.Media == nil {
		return nil, apperror.Validation("content or media is required")
	}
	if req.Media != nil {
		if req.Media.Size > maxMediaSize {
			return nil, apperror.Validation("media must be at most 5MB")
		}
		if !isAllowedMedia(req.Media.ContentType) {
			return nil, apperror.Validation("media must be an image or a video")
		}
		if s.mediaStorage == nil {
			return nil, apperror.Validation("media uploads are not available")
		}
	}

	author, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	release, err := s.claim(ctx, userID, "post", s.limits.Post)
	if err != nil {
		return nil, err
	}
	creationFailed := true
	defer func() {
		if creationFailed {
			release()
		}
	}()

	post := &entity.Post{
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now(),
	}

	if req.Media != nil {
		url, err := s.mediaStorage.Upload(ctx, req.Media.Reader, mediaFolder, req.Media.FileName)
		if err != nil {
			return nil, fmt.Errorf("upload media: %w", err)
		}
		post.MediaURL = &url
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if post.MediaURL != nil {
			s.deleteMedia(ctx, *post.MediaURL)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	creationFailed = false
	return newPostResponse(post, author), nil
}

func (s *postService) CreateComment(ctx context.Context, userID, parentID uuid.UUID, req postDto.CreateCommentRequest) (*postDto.PostResponse, error) {
	content := NormalizeContent(req.Content)
	if content == "" {
		return nil, apperror.Validation("content is required")
	}
	if err := checkLength(content); err != nil {
		return nil, err
	}

	parent, err := s.postRepo.FindByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("post not found")
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	if !parent.IsOriginal() {
		return nil, apperror.Validation("comments cannot be replied to")
	}

	author, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	release, err := s.claim(ctx, userID, "comment", s.limits.Global)
	if err != nil {
		return nil, err
	}

	comment := &entity.Post{
		UserID:    userID,
		Content:   content,
		ParentID:  &parent.ID,
		IsComment: true,
		CreatedAt: s.now(),
	}
	if err := s.postRepo.Create(ctx, comment); err != nil {
		release()
		return nil, fmt.Errorf("create comment: %w", err)
	}

	go func() {
		bg := context.Background()
		if s.notificationService != nil {
			if err := s.notificationService.Notify(bg, parent.UserID, userID, parent.ID, entity.NotificationComment); err != nil {
				logger.L().Warn("comment notification failed", "post_id", parent.ID, "error", err)
			}
		}
		evt := events.EngagementEvent{
			Action:    "commented",
			ActorID:   userID,
			PostID:    parent.ID,
			AuthorID:  parent.UserID,
			Timestamp: comment.CreatedAt,
		}
		if err := s.publisher.PublishEngagement(evt); err != nil {
			logger.L().Warn("publish engagement event failed", "action", evt.Action, "error", err)
		}
	}()

	return newPostResponse(comment, author), nil
}

func (s *postService) GetPostByID(ctx context.Context, postID, viewerID uuid.UUID) (*postDto.PostResponse, error) {
	row, err := s.postRepo.FindEnrichedByID(ctx, postID, viewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("post not found")
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	resp := ToResponse(row)
	return &resp, nil
}

func (s *postService) GetComments(ctx context.Context, postID uuid.UUID) ([]postDto.PostResponse, error) {
	rows, err := s.postRepo.FindComments(ctx, postID, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}

	comments := make([]postDto.PostResponse, 0, len(rows))
	for i := range rows {
		comments = append(comments, ToResponse(&rows[i]))
	}
	return comments, nil
}

func (s *postService) DeletePost(ctx context.Context, requesterID, postID uuid.UUID) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("post not found")
		}
		return fmt.Errorf("find post: %w", err)
	}

	requester, err := s.userRepo.FindByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Unauthorized("user not found")
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := authz.AuthorizeDelete(
		authz.Actor{ID: requester.ID, IsAdmin: requester.IsAdmin},
		authz.Resource{AuthorID: post.UserID},
	); err != nil {
		return err
	}

	if err := s.postRepo.DeleteCascade(ctx, post.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("post not found")
		}
		return fmt.Errorf("delete post: %w", err)
	}

	if post.MediaURL != nil && *post.MediaURL != "" {
		s.deleteMedia(ctx, *post.MediaURL)
	}

	logger.FromContext(ctx).Info("post deleted",
		"post_id", post.ID,
		"requester_id", requester.ID,
		"by_admin", requester.IsAdmin && requester.ID != post.UserID,
	)
	return nil
}

func (s *postService) findUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// claim takes the global cooldown and the action cooldown together. The
// returned func gives both back when the write does not happen.
func (s *postService) claim(ctx context.Context, userID uuid.UUID, action string, cooldown time.Duration) (func(), error) {
	allowed, err := s.limiter.Allow(ctx, userID, "global", s.limits.Global)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		ttl, _ := s.limiter.TTL(ctx, userID, "global")
		return nil, apperror.RateLimited(fmt.Sprintf("you are doing that too fast, please wait %.0f seconds", ttl.Seconds()))
	}

	allowed, err = s.limiter.Allow(ctx, userID, action, cooldown)
	if err != nil {
		_ = s.limiter.Clear(ctx, userID, "global")
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		_ = s.limiter.Clear(ctx, userID, "global")
		ttl, _ := s.limiter.TTL(ctx, userID, action)
		return nil, apperror.RateLimited(fmt.Sprintf("you can only %s once every %.0f seconds, please wait %.0f seconds", action, cooldown.Seconds(), ttl.Seconds()))
	}

	return func() {
		_ = s.limiter.Clear(ctx, userID, "global")
		_ = s.limiter.Clear(ctx, userID, action)
	}, nil
}

func (s *postService) deleteMedia(ctx context.Context, url string) {
	if s.mediaStorage == nil {
		return
	}
	if err := s.mediaStorage.Delete(ctx, url); err != nil {
		logger.FromContext(ctx).Warn("failed to delete media", "url", url, "error", err)
	}
}
