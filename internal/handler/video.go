package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/response"
	"github.com/Skufu/Health-Info-Assistant/internal/video"
)

type VideoHandler struct {
	videoService video.Service
}

func NewVideoHandler(videoService video.Service) *VideoHandler {
	return &VideoHandler{videoService: videoService}
}

func (h *VideoHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1/videos")
	{
		api.GET("/categories", h.Categories)
		api.GET("/categories/:id", h.ByCategory)
		api.GET("/search", h.Search)
		api.GET("/featured", h.Featured)
	}
}

func (h *VideoHandler) Categories(c *gin.Context) {
	response.Success(c, h.videoService.Categories())
}

func (h *VideoHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req video.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		l.Warn().Err(err).Msg("invalid video search request")
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.videoService.Search(ctx, req)
	if err != nil {
		h.writeError(c, err, "video search failed")
		return
	}
	response.Success(c, result)
}

func (h *VideoHandler) ByCategory(c *gin.Context) {
	ctx := c.Request.Context()

	maxResults := 0
	if s := c.Query("max"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			response.BadRequest(c, "max must be an integer")
			return
		}
		maxResults = n
	}

	result, err := h.videoService.ByCategory(ctx, c.Param("id"), c.Query("pageToken"), maxResults)
	if err != nil {
		h.writeError(c, err, "category lookup failed")
		return
	}
	response.Success(c, result)
}

func (h *VideoHandler) Featured(c *gin.Context) {
	rows, err := h.videoService.Featured(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "featured lookup failed")
		return
	}
	response.Success(c, rows)
}

func (h *VideoHandler) writeError(c *gin.Context, err error, msg string) {
	l := log.Ctx(c.Request.Context())

	switch {
	case errors.Is(err, video.ErrEmptyQuery):
		response.BadRequest(c, "search query is required")
	case errors.Is(err, video.ErrUnknownCategory):
		response.NotFound(c, "unknown video category")
	case errors.Is(err, video.ErrMissingAPIKey):
		l.Warn().Msg("video request without youtube api key")
		response.Unavailable(c, "video search is not configured")
	default:
		l.Error().Err(err).Msg(msg)
		response.Error(c, http.StatusBadGateway, "UPSTREAM_ERROR", "could not load videos, please try again later")
	}
}
