package http

import (
	"net/http"

	"anoa.com/socialfeed/internal/modules/engagement/service"
	"anoa.com/socialfeed/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EngagementHandler struct {
	service service.EngagementService
}

func NewEngagementHandler(service service.EngagementService) *EngagementHandler {
	return &EngagementHandler{service: service}
}

type engagementFunc func(c *gin.Context, userID, postID uuid.UUID) error

func (h *EngagementHandler) handle(c *gin.Context, status int, message string, fn engagementFunc) {
	postID, err := uuid.Parse(c.Param("post_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := fn(c, userID, postID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(status, gin.H{"message": message})
}

func (h *EngagementHandler) Like(c *gin.Context) {
	h.handle(c, http.StatusCreated, "post liked", func(c *gin.Context, userID, postID uuid.UUID) error {
		return h.service.LikePost(c.Request.Context(), userID, postID)
	})
}

func (h *EngagementHandler) Unlike(c *gin.Context) {
	h.handle(c, http.StatusOK, "post unliked", func(c *gin.Context, userID, postID uuid.UUID) error {
		return h.service.UnlikePost(c.Request.Context(), userID, postID)
	})
}

func (h *EngagementHandler) Repost(c *gin.Context) {
	h.handle(c, http.StatusCreated, "post reposted", func(c *gin.Context, userID, postID uuid.UUID) error {
		return h.service.RepostPost(c.Request.Context(), userID, postID)
	})
}

func (h *EngagementHandler) Unrepost(c *gin.Context) {
	h.handle(c, http.StatusOK, "repost removed", func(c *gin.Context, userID, postID uuid.UUID) error {
		return h.service.UnrepostPost(c.Request.Context(), userID, postID)
	})
}
