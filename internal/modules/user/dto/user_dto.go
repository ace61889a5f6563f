package dto

import (
	"io"
	"time"

	"anoa.com/socialfeed/internal/entity"
	"github.com/google/uuid"
)

type LoginInput struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required"`
}

type RegisterInput struct {
	Username    string `json:"username" validate:"required,min=3,max=50,alphanum"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
}

// AvatarFile is an uploaded profile picture.
type AvatarFile struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}

type UpdateProfileInput struct {
	Username    string      `form:"username" validate:"required,min=3,max=50,alphanum"`
	DisplayName string      `form:"display_name" validate:"max=100"`
	Bio         *string     `form:"bio" validate:"omitempty,max=160"`
	Avatar      *AvatarFile `form:"-" validate:"-"`
}

type AuthResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *UserResponse `json:"user"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         *string   `json:"bio,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewUserResponse(u *entity.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		IsAdmin:     u.IsAdmin,
		CreatedAt:   u.CreatedAt,
	}
}
