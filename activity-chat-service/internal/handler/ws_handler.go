package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/audit"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/config"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/gateway"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/hub"
	"github.com/weiawesome/trip-chat/pkg/log"
	"github.com/weiawesome/trip-chat/pkg/middleware"
)

// WSHandler upgrades authenticated requests and feeds frames to the gateway.
type WSHandler struct {
	gateway  gateway.Gateway
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(gw gateway.Gateway, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		gateway: gw,
		wsCfg:   wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Serve runs behind RequireAuth, so the identity is already on the context.
func (h *WSHandler) Serve(c *gin.Context) {
	identity := domain.Identity{
		UserID:      middleware.GetUserID(c),
		DisplayName: middleware.GetDisplayName(c),
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := domain.NewSession(uuid.New().String(), identity)
	client := hub.NewClient(conn, session, h.wsCfg)

	// The request context ends when this handler returns; the connection does not.
	ctx := log.WithLogger(context.Background(), log.Ctx(c.Request.Context()))
	ctx = log.With(ctx, log.FieldSessionID, session.ID)
	audit.Log(ctx, audit.ActionConnect, identity.UserID, "", "websocket connected")

	go client.WritePump()
	go client.ReadPump(
		func(cl *hub.Client, message []byte) { h.handleMessage(ctx, cl, message) },
		func(cl *hub.Client) { h.gateway.HandleDisconnect(ctx, cl) },
	)
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, message []byte) {
	l := log.Ctx(ctx)

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendJSON(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	var err error
	switch base.Type {
	case domain.MsgTypeJoin, domain.MsgTypeLeave, domain.MsgTypeStopTyping:
		var msg domain.RoomMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendJSON(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid "+base.Type+" message"))
			return
		}
		switch base.Type {
		case domain.MsgTypeJoin:
			err = h.gateway.HandleJoin(ctx, client, msg.ActivityID)
		case domain.MsgTypeLeave:
			err = h.gateway.HandleLeave(ctx, client, msg.ActivityID)
		default:
			err = h.gateway.HandleStopTyping(ctx, client, msg.ActivityID)
		}

	case domain.MsgTypeTyping:
		var msg domain.TypingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendJSON(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid typing message"))
			return
		}
		err = h.gateway.HandleTyping(ctx, client, msg.ActivityID, msg.UserName)

	case domain.MsgTypePing:
		client.SendJSON(&domain.PongMessage{Type: domain.MsgTypePong})

	default:
		client.SendJSON(domain.NewErrorMessage(domain.ErrCodeBadRequest, "unknown message type"))
	}

	if err != nil {
		l.Debug().Err(err).Str(log.FieldEventType, base.Type).Msg("websocket request rejected")
		client.SendJSON(frameError(err))
	}
}
