package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/gateway"
	"github.com/weiawesome/trip-chat/pkg/log"
	"github.com/weiawesome/trip-chat/pkg/middleware"
	"github.com/weiawesome/trip-chat/pkg/response"
)

// SendMessageRequest is the write-path body.
type SendMessageRequest struct {
	Body string `json:"body"`
	Kind string `json:"kind"`
}

// Handler handles HTTP requests for the activity chat.
type Handler struct {
	gateway        gateway.Gateway
	authMiddleware *middleware.AuthMiddleware
	ws             *WSHandler
}

func NewHandler(gw gateway.Gateway, authMiddleware *middleware.AuthMiddleware, ws *WSHandler) *Handler {
	return &Handler{
		gateway:        gw,
		authMiddleware: authMiddleware,
		ws:             ws,
	}
}

// RegisterRoutes registers all routes. Every route requires a token.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authMiddleware.RequireAuth())
	{
		activities := api.Group("/activities/:id")
		{
			activities.POST("/messages", h.SendMessage)
			activities.GET("/messages", h.GetHistory)
			activities.POST("/read", h.MarkRead)
			activities.GET("/unread", h.UnreadCount)
			activities.GET("/presence", h.Presence)
		}

		api.GET("/conversations", h.ListConversations)

		if h.ws != nil {
			api.GET("/ws", h.ws.Serve)
		}
	}
}

// SendMessage commits a message and fans it out to the live room.
func (h *Handler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind send message request")
		response.BadRequest(c, "invalid request body")
		return
	}

	msg, err := h.gateway.SendMessage(ctx, gateway.SendRequest{
		UserID:      middleware.GetUserID(c),
		DisplayName: middleware.GetDisplayName(c),
		ActivityID:  c.Param("id"),
		Body:        req.Body,
		Kind:        req.Kind,
	})
	if err != nil {
		writeError(c, err, "failed to send message")
		return
	}

	response.Created(c, msg)
}

// GetHistory returns messages oldest first with an activity snapshot.
// Query: limit (default 100, max 500), order (latest|earliest).
func (h *Handler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	order, ok := domain.ParseListOrder(c.Query("order"))
	if !ok {
		response.BadRequest(c, "order must be latest or earliest")
		return
	}

	history, err := h.gateway.GetHistory(ctx, gateway.HistoryRequest{
		UserID:     middleware.GetUserID(c),
		ActivityID: c.Param("id"),
		Limit:      limit,
		Order:      order,
	})
	if err != nil {
		writeError(c, err, "failed to load messages")
		return
	}

	response.Success(c, history)
}

func (h *Handler) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	summaries, err := h.gateway.ListConversations(ctx, middleware.GetUserID(c))
	if err != nil {
		writeError(c, err, "failed to list conversations")
		return
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}

	response.Success(c, summaries)
}

func (h *Handler) MarkRead(c *gin.Context) {
	receipt, err := h.gateway.MarkRead(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to mark messages read")
		return
	}
	response.Success(c, receipt)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	summary, err := h.gateway.UnreadCount(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to count unread messages")
		return
	}
	response.Success(c, summary)
}

func (h *Handler) Presence(c *gin.Context) {
	snapshot, err := h.gateway.Presence(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load presence")
		return
	}
	response.Success(c, snapshot)
}
