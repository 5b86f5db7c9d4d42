package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/Health-Info-Assistant/internal/chat"
	"github.com/Skufu/Health-Info-Assistant/internal/history"
	"github.com/Skufu/Health-Info-Assistant/internal/log"
	"github.com/Skufu/Health-Info-Assistant/internal/query"
	"github.com/Skufu/Health-Info-Assistant/internal/response"
)

// ChatService is what the chat endpoints need. *chat.Service implements it.
type ChatService interface {
	Ask(ctx context.Context, req chat.Request) (*chat.Reply, error)
	History(ctx context.Context, conversationID string, limit int) ([]history.Message, error)
	Clear(ctx context.Context, conversationID string) error
}

type ChatHandler struct {
	chatService ChatService
}

func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1/chat")
	{
		api.POST("", h.Ask)
		api.GET("/ws", h.WebSocket)
		api.GET("/:conversationId/messages", h.Messages)
		api.DELETE("/:conversationId/messages", h.ClearMessages)
	}
}

// Ask answers one question.
func (h *ChatHandler) Ask(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid chat request")
		response.BadRequest(c, "invalid request body")
		return
	}

	reply, err := h.chatService.Ask(ctx, req)
	if err != nil {
		writeChatError(c, err)
		return
	}
	response.Success(c, reply)
}

func (h *ChatHandler) Messages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	convID := strings.TrimSpace(c.Param("conversationId"))
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := h.chatService.History(ctx, convID, limit)
	if err != nil {
		l.Error().Err(err).Str(log.FieldConversation, convID).Msg("failed to load history")
		response.InternalError(c, "failed to load chat history")
		return
	}
	response.Success(c, gin.H{"conversationId": convID, "messages": msgs})
}

func (h *ChatHandler) ClearMessages(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	convID := strings.TrimSpace(c.Param("conversationId"))
	if err := h.chatService.Clear(ctx, convID); err != nil {
		l.Error().Err(err).Str(log.FieldConversation, convID).Msg("failed to clear history")
		response.InternalError(c, "failed to clear chat history")
		return
	}
	response.Success(c, gin.H{"conversationId": convID, "cleared": true})
}

// chatError maps a chat service error to a status, code and message.
func chatError(err error) (int, string, string) {
	switch {
	case errors.Is(err, query.ErrEmptyQuery),
		errors.Is(err, query.ErrQueryTooShort),
		errors.Is(err, query.ErrQueryTooLong):
		return http.StatusBadRequest, "INVALID_QUERY", queryErrorMessage(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "UNAVAILABLE", "request was cancelled before an answer was ready"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "failed to answer question"
	}
}

func writeChatError(c *gin.Context, err error) {
	status, code, msg := chatError(err)
	if status >= http.StatusInternalServerError {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("chat request failed")
	}
	response.Error(c, status, code, msg)
}

func queryErrorMessage(err error) string {
	switch {
	case errors.Is(err, query.ErrEmptyQuery):
		return "Please enter a question."
	case errors.Is(err, query.ErrQueryTooShort):
		return "Please enter at least " + strconv.Itoa(query.MinLength) + " characters."
	default:
		return "Please keep your question under " + strconv.Itoa(query.MaxLength) + " characters."
	}
}
