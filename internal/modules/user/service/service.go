package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"anoa.com/socialfeed/internal/entity"
	"anoa.com/socialfeed/internal/modules/user/dto"
	"anoa.com/socialfeed/internal/modules/user/repository"
	"anoa.com/socialfeed/pkg/apperror"
	"anoa.com/socialfeed/pkg/logger"
	"anoa.com/socialfeed/pkg/storage"
	"anoa.com/socialfeed/pkg/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	maxAvatarSize   = 5 * 1024 * 1024
	avatarFolder    = "avatars"
	suggestedUsersN = 3
)

type UserService interface {
	Register(ctx context.Context, input dto.RegisterInput) (*dto.UserResponse, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error)
	GetProfileByUsername(ctx context.Context, username string) (*dto.UserResponse, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput) (*dto.UserResponse, error)
	SuggestedUsers(ctx context.Context, userID uuid.UUID) ([]dto.UserResponse, error)
	ListUsers(ctx context.Context) ([]dto.UserResponse, error)
}

type userService struct {
	repo         repository.UserRepository
	mediaStorage storage.MediaStorage
	secret       string
	tokenTTL     time.Duration
}

func NewUserService(repo repository.UserRepository, mediaStorage storage.MediaStorage, secret string, tokenTTL time.Duration) UserService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &userService{
		repo:         repo,
		mediaStorage: mediaStorage,
		secret:       secret,
		tokenTTL:     tokenTTL,
	}
}

func (s *userService) Register(ctx context.Context, input dto.RegisterInput) (*dto.UserResponse, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := validator.Struct(input); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	if _, err := s.repo.FindByUsername(ctx, input.Username); err == nil {
		return nil, apperror.Conflict("username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		Username:     input.Username,
		DisplayName:  input.DisplayName,
		PasswordHash: string(hashed),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Lost a race with another registration for the same handle.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("username already taken")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResponse, error) {
	if err := validator.Struct(input); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &dto.AuthResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
		User:        dto.NewUserResponse(user),
	}, nil
}

func (s *userService) GetProfileByUsername(ctx context.Context, username string) (*dto.UserResponse, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, input dto.UpdateProfileInput) (*dto.UserResponse, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if err := validator.Struct(input); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	user, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(input.Username, user.Username) {
		existing, err := s.repo.FindByUsername(ctx, input.Username)
		if err == nil && existing.ID != user.ID {
			return nil, apperror.Conflict("username already taken")
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
	}

	oldAvatar := user.AvatarURL
	if input.Avatar != nil {
		if input.Avatar.Size > maxAvatarSize {
			return nil, apperror.Validation("avatar must be at most 5MB")
		}
		if !strings.HasPrefix(input.Avatar.ContentType, "image/") {
			return nil, apperror.Validation("avatar must be an image")
		}
		if s.mediaStorage == nil {
			return nil, apperror.Validation("media uploads are not available")
		}

		url, err := s.mediaStorage.Upload(ctx, input.Avatar.Reader, avatarFolder, input.Avatar.FileName)
		if err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
		user.AvatarURL = &url
	}

	user.Username = input.Username
	if input.DisplayName != "" {
		user.DisplayName = input.DisplayName
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		user.Bio = &bio
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("username already taken")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if input.Avatar != nil && oldAvatar != nil && *oldAvatar != "" {
		if err := s.mediaStorage.Delete(ctx, *oldAvatar); err != nil {
			logger.FromContext(ctx).Warn("failed to delete old avatar", "user_id", user.ID, "error", err)
		}
	}

	return dto.NewUserResponse(user), nil
}

func (s *userService) SuggestedUsers(ctx context.Context, userID uuid.UUID) ([]dto.UserResponse, error) {
	users, err := s.repo.FindRandomExcept(ctx, userID, suggestedUsersN)
	if err != nil {
		return nil, fmt.Errorf("find suggested users: %w", err)
	}
	return toResponses(users), nil
}

func (s *userService) ListUsers(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return toResponses(users), nil
}

func (s *userService) findByID(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func toResponses(users []entity.User) []dto.UserResponse {
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *dto.NewUserResponse(&users[i]))
	}
	return out
}
