package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"anoa.com/socialfeed/internal/entity"
	engagementRepo "anoa.com/socialfeed/internal/modules/engagement/repository"
	notifService "anoa.com/socialfeed/internal/modules/notification/service"
	postRepo "anoa.com/socialfeed/internal/modules/post/repository"
	"anoa.com/socialfeed/pkg/apperror"
	"anoa.com/socialfeed/pkg/database"
	"anoa.com/socialfeed/pkg/events"
	"anoa.com/socialfeed/pkg/logger"
	"anoa.com/socialfeed/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	actionLike     = "like"
	actionUnlike   = "unlike"
	actionRepost   = "repost"
	actionUnrepost = "unrepost"
)

type EngagementService interface {
	LikePost(ctx context.Context, userID, postID uuid.UUID) error
	UnlikePost(ctx context.Context, userID, postID uuid.UUID) error
	RepostPost(ctx context.Context, userID, postID uuid.UUID) error
	UnrepostPost(ctx context.Context, userID, postID uuid.UUID) error
}

type Option func(*engagementService)

func WithClock(now func() time.Time) Option {
	return func(s *engagementService) { s.now = now }
}

type engagementService struct {
	repo                engagementRepo.EngagementRepository
	postRepo            postRepo.PostRepository
	notificationService notifService.NotificationService
	publisher           events.Publisher
	now                 func() time.Time
}

func NewEngagementService(repo engagementRepo.EngagementRepository, postRepo postRepo.PostRepository, notificationService notifService.NotificationService, publisher events.Publisher, opts ...Option) EngagementService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &engagementService{
		repo:                repo,
		postRepo:            postRepo,
		notificationService: notificationService,
		publisher:           publisher,
		now:                 database.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *engagementService) LikePost(ctx context.Context, userID, postID uuid.UUID) (err error) {
	defer func() { record(actionLike, err) }()

	post, err := s.targetPost(ctx, postID, "liked")
	if err != nil {
		return err
	}

	like := &entity.Like{UserID: userID, PostID: postID, CreatedAt: s.now()}
	if err := s.repo.Like(ctx, like); err != nil {
		return mapWriteError(err, "post already liked", "post not found")
	}

	s.afterEngagement(userID, post, entity.NotificationLike, "liked", like.CreatedAt)
	return nil
}

func (s *engagementService) UnlikePost(ctx context.Context, userID, postID uuid.UUID) (err error) {
	defer func() { record(actionUnlike, err) }()

	if err := s.repo.Unlike(ctx, userID, postID); err != nil {
		return mapWriteError(err, "", "like not found")
	}

	s.publish(events.EngagementEvent{Action: "unliked", ActorID: userID, PostID: postID, Timestamp: s.now()})
	return nil
}

func (s *engagementService) RepostPost(ctx context.Context, userID, postID uuid.UUID) (err error) {
	defer func() { record(actionRepost, err) }()

	post, err := s.targetPost(ctx, postID, "reposted")
	if err != nil {
		return err
	}

	repost := &entity.Repost{UserID: userID, PostID: postID, CreatedAt: s.now()}
	if err := s.repo.Repost(ctx, repost); err != nil {
		return mapWriteError(err, "post already reposted", "post not found")
	}

	s.afterEngagement(userID, post, entity.NotificationRepost, "reposted", repost.CreatedAt)
	return nil
}

func (s *engagementService) UnrepostPost(ctx context.Context, userID, postID uuid.UUID) (err error) {
	defer func() { record(actionUnrepost, err) }()

	if err := s.repo.Unrepost(ctx, userID, postID); err != nil {
		return mapWriteError(err, "", "repost not found")
	}

	s.publish(events.EngagementEvent{Action: "unreposted", ActorID: userID, PostID: postID, Timestamp: s.now()})
	return nil
}

// targetPost loads a post that may receive engagement. Only original
// posts qualify.
func (s *engagementService) targetPost(ctx context.Context, postID uuid.UUID, verb string) (*entity.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("post not found")
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	if !post.IsOriginal() {
		return nil, apperror.Validation(fmt.Sprintf("comments cannot be %s", verb))
	}
	return post, nil
}

func mapWriteError(err error, conflictMsg, notFoundMsg string) error {
	switch {
	case errors.Is(err, engagementRepo.ErrAlreadyExists):
		return apperror.Conflict(conflictMsg)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(notFoundMsg)
	default:
		return fmt.Errorf("write engagement: %w", err)
	}
}

func (s *engagementService) afterEngagement(actorID uuid.UUID, post *entity.Post, kind, action string, at time.Time) {
	evt := events.EngagementEvent{
		Action:    action,
		ActorID:   actorID,
		PostID:    post.ID,
		AuthorID:  post.UserID,
		Timestamp: at,
	}

	go func() {
		if s.notificationService != nil && post.UserID != actorID {
			if err := s.notificationService.Notify(context.Background(), post.UserID, actorID, post.ID, kind); err != nil {
				logger.L().Warn("engagement notification failed",
					"post_id", post.ID,
					"type", kind,
					"error", err,
				)
			}
		}
		s.publish(evt)
	}()
}

func (s *engagementService) publish(evt events.EngagementEvent) {
	if err := s.publisher.PublishEngagement(evt); err != nil {
		logger.L().Warn("publish engagement event failed", "action", evt.Action, "error", err)
	}
}

func record(action string, err error) {
	result := "ok"
	if err != nil {
		switch apperror.MapErrorToStatus(err) {
		case http.StatusConflict:
			result = "conflict"
		case http.StatusNotFound:
			result = "not_found"
		case http.StatusBadRequest:
			result = "invalid"
		default:
			result = "error"
		}
	}
	metrics.EngagementOperations.WithLabelValues(action, result).Inc()
}
