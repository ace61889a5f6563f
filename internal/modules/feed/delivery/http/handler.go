package http

import (
	"net/http"

	"anoa.com/socialfeed/internal/modules/feed/dto"
	"anoa.com/socialfeed/internal/modules/feed/service"
	"anoa.com/socialfeed/pkg/apperror"
	"anoa.com/socialfeed/pkg/response"
	"anoa.com/socialfeed/pkg/validator"
	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	service service.FeedService
}

func NewFeedHandler(service service.FeedService) *FeedHandler {
	return &FeedHandler{service: service}
}

func (h *FeedHandler) GetGlobalFeed(c *gin.Context) {
	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.FeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	if err := validator.Struct(query); err != nil {
		response.ResponseError(c, apperror.Validation(err.Error()))
		return
	}

	page, err := h.service.GetGlobalFeed(c.Request.Context(), viewerID, query.Cursor)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *FeedHandler) GetProfileActivity(c *gin.Context) {
	viewerID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	entries, err := h.service.GetProfileActivityByUsername(c.Request.Context(), c.Param("username"), viewerID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
