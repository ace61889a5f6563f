package service

import (
	"context"
	"encoding/json"
	"fmt"

	"anoa.com/socialfeed/internal/entity"
	notifRepo "anoa.com/socialfeed/internal/modules/notification/repository"
	userRepo "anoa.com/socialfeed/internal/modules/user/repository"
	"anoa.com/socialfeed/pkg/apperror"
	"anoa.com/socialfeed/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type NotificationService interface {
	// Notify records that actorID engaged with recipientID's post. Self
	// engagement produces nothing.
	Notify(ctx context.Context, recipientID, actorID, postID uuid.UUID, kind string) error
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	userRepo    userRepo.UserRepository
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.NotificationRepository, userRepo userRepo.UserRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		userRepo:    userRepo,
		redisClient: redisClient,
	}
}

// Channel is the Redis pub/sub channel carrying a user's notifications.
func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

func (s *notificationService) Notify(ctx context.Context, recipientID, actorID, postID uuid.UUID, kind string) error {
	if recipientID == actorID {
		return nil
	}

	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}

	var message string
	switch kind {
	case entity.NotificationLike:
		message = fmt.Sprintf("%s liked your post", actor.Username)
	case entity.NotificationRepost:
		message = fmt.Sprintf("%s reposted your post", actor.Username)
	case entity.NotificationComment:
		message = fmt.Sprintf("%s commented on your post", actor.Username)
	default:
		return fmt.Errorf("unknown notification type %q", kind)
	}

	return s.create(ctx, &entity.Notification{
		UserID:  recipientID,
		ActorID: actorID,
		PostID:  postID,
		Type:    kind,
		Message: message,
	})
}

func (s *notificationService) create(ctx context.Context, notification *entity.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(notification)
		if err == nil {
			if err := s.redisClient.Publish(ctx, Channel(notification.UserID), payload).Err(); err != nil {
				logger.FromContext(ctx).Warn("publish notification failed",
					"user_id", notification.UserID,
					"error", err,
				)
			}
		}
	}

	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Notification, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	updated, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !updated {
		return apperror.NotFound("notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
