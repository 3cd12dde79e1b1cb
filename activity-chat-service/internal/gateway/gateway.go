package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/audit"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/hub"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/membership"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/presence"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/readstate"
	"github.com/weiawesome/trip-chat/activity-chat-service/internal/repository"
	"github.com/weiawesome/trip-chat/pkg/log"
)

// Options tunes request validation.
type Options struct {
	MaxBodyLength       int
	DefaultHistoryLimit int
	MaxHistoryLimit     int
	// AuthorizeJoins re-checks membership on every live room join.
	AuthorizeJoins bool
}

// Deps are the collaborators of a ChannelGateway. Presence may be nil,
// in which case presence queries read the in-process rooms.
type Deps struct {
	Authority Authorizer
	Directory ActivityLister
	Messages  repository.MessageRepository
	ReadState *readstate.Calculator
	Rooms     Rooms
	Router    Broadcaster
	Events    EventPublisher
	Presence  presence.Tracker
}

type ChannelGateway struct {
	authority Authorizer
	directory ActivityLister
	messages  repository.MessageRepository
	readState *readstate.Calculator
	rooms     Rooms
	router    Broadcaster
	events    EventPublisher
	presence  presence.Tracker
	opts      Options
	sf        singleflight.Group
}

func New(deps Deps, opts Options) *ChannelGateway {
	if opts.MaxBodyLength <= 0 {
		opts.MaxBodyLength = 4000
	}
	if opts.DefaultHistoryLimit <= 0 {
		opts.DefaultHistoryLimit = repository.DefaultListLimit
	}
	if opts.MaxHistoryLimit < opts.DefaultHistoryLimit {
		opts.MaxHistoryLimit = opts.DefaultHistoryLimit
	}
	if deps.ReadState == nil {
		deps.ReadState = readstate.NewCalculator(deps.Messages, 0)
	}

	return &ChannelGateway{
		authority: deps.Authority,
		directory: deps.Directory,
		messages:  deps.Messages,
		readState: deps.ReadState,
		rooms:     deps.Rooms,
		router:    deps.Router,
		events:    deps.Events,
		presence:  deps.Presence,
		opts:      opts,
	}
}

func (g *ChannelGateway) HandleJoin(ctx context.Context, s hub.Session, activityID string) error {
	if activityID == "" {
		return fmt.Errorf("%w: activityId is required", ErrValidation)
	}

	if g.opts.AuthorizeJoins {
		if _, err := g.authorize(ctx, s.UserID(), activityID); err != nil {
			audit.LogWithDetail(ctx, audit.ActionJoinDenied, s.UserID(), activityID, err.Error(), "room join rejected")
			return err
		}
	}

	if g.rooms.Join(activityID, s) {
		g.trackJoin(ctx, s, activityID)
		g.emit(ctx, activityID, domain.MsgTypeUserJoined, &domain.PresenceEvent{
			Type:       domain.MsgTypeUserJoined,
			ActivityID: activityID,
			SessionID:  s.ID(),
		}, s.ID())
		audit.Log(ctx, audit.ActionJoinRoom, s.UserID(), activityID, "session joined room")
	}

	return deliverJSON(s, &domain.RoomJoinedEvent{Type: domain.MsgTypeRoomJoined, ActivityID: activityID})
}

func (g *ChannelGateway) HandleLeave(ctx context.Context, s hub.Session, activityID string) error {
	if !g.rooms.Leave(activityID, s.ID()) {
		return nil
	}
	g.afterLeave(ctx, s, activityID)
	audit.Log(ctx, audit.ActionLeaveRoom, s.UserID(), activityID, "session left room")
	return nil
}

func (g *ChannelGateway) HandleTyping(ctx context.Context, s hub.Session, activityID, userName string) error {
	if !g.rooms.IsMember(activityID, s.ID()) {
		return ErrNotInRoom
	}
	if userName == "" {
		userName = s.DisplayName()
	}
	g.emit(ctx, activityID, domain.MsgTypeUserTyping, &domain.TypingEvent{
		Type:       domain.MsgTypeUserTyping,
		ActivityID: activityID,
		UserName:   userName,
	}, s.ID())
	return nil
}

func (g *ChannelGateway) HandleStopTyping(ctx context.Context, s hub.Session, activityID string) error {
	if !g.rooms.IsMember(activityID, s.ID()) {
		return ErrNotInRoom
	}
	g.emit(ctx, activityID, domain.MsgTypeUserStoppedTyping, &domain.TypingEvent{
		Type:       domain.MsgTypeUserStoppedTyping,
		ActivityID: activityID,
	}, s.ID())
	return nil
}

// HandleDisconnect removes the session from every room it joined.
func (g *ChannelGateway) HandleDisconnect(ctx context.Context, s hub.Session) {
	rooms := g.rooms.RemoveSession(s.ID())
	for _, activityID := range rooms {
		g.afterLeave(ctx, s, activityID)
	}
	audit.LogWithDetail(ctx, audit.ActionDisconnect, s.UserID(), "", strings.Join(rooms, ","), "session disconnected")
}

func (g *ChannelGateway) afterLeave(ctx context.Context, s hub.Session, activityID string) {
	if g.presence != nil {
		if err := g.presence.Leave(ctx, activityID, s.ID()); err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldActivityID, activityID).Msg("failed to clear presence")
		}
	}
	g.emit(ctx, activityID, domain.MsgTypeUserLeft, &domain.PresenceEvent{
		Type:       domain.MsgTypeUserLeft,
		ActivityID: activityID,
		SessionID:  s.ID(),
	}, "")
}

func (g *ChannelGateway) trackJoin(ctx context.Context, s hub.Session, activityID string) {
	if g.presence == nil {
		return
	}
	if err := g.presence.Join(ctx, activityID, s.ID(), s.UserID()); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldActivityID, activityID).Msg("failed to record presence")
	}
}

// SendMessage validates, authorizes and commits a message, then fans it
// out. Nothing is broadcast unless the append succeeded.
func (g *ChannelGateway) SendMessage(ctx context.Context, req SendRequest) (*domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	if req.UserID == "" {
		return nil, ErrUnauthorized
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is empty", ErrValidation)
	}
	if utf8.RuneCountInString(body) > g.opts.MaxBodyLength {
		return nil, fmt.Errorf("%w: message body exceeds %d characters", ErrValidation, g.opts.MaxBodyLength)
	}

	activity, err := g.authorize(ctx, req.UserID, req.ActivityID)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			audit.Log(ctx, audit.ActionSendDenied, req.UserID, req.ActivityID, "send rejected for non-member")
		}
		return nil, err
	}

	kind := req.Kind
	if kind == "" {
		kind = domain.KindText
	}
	senderName := req.DisplayName
	if senderName == "" {
		senderName = req.UserID
	}

	committed, err := g.messages.Append(ctx, &domain.ChatMessage{
		ActivityID: req.ActivityID,
		SenderID:   req.UserID,
		SenderName: senderName,
		Content:    body,
		Kind:       kind,
	})
	if err != nil {
		l.Error().Err(err).Str(log.FieldActivityID, req.ActivityID).Msg("failed to append message")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	g.forgetConversations(activity.HostID)
	for _, member := range activity.Participants {
		g.forgetConversations(member)
	}

	g.emit(ctx, committed.ActivityID, domain.MsgTypeNewMessage, domain.NewNewMessageEvent(committed), "")
	if g.events != nil {
		g.events.MessageCreated(ctx, committed)
	}

	audit.LogWithDetail(ctx, audit.ActionSendMessage, req.UserID, req.ActivityID, committed.ID, "message committed")
	return committed, nil
}

func (g *ChannelGateway) GetHistory(ctx context.Context, req HistoryRequest) (*domain.ChatHistory, error) {
	activity, err := g.authorize(ctx, req.UserID, req.ActivityID)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = g.opts.DefaultHistoryLimit
	}
	if limit > g.opts.MaxHistoryLimit {
		limit = g.opts.MaxHistoryLimit
	}
	order := req.Order
	if order == "" {
		order = domain.ListLatest
	}

	messages, err := g.messages.List(ctx, req.ActivityID, repository.ListOptions{Limit: limit, Order: order})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldActivityID, req.ActivityID).Msg("failed to list messages")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}

	return &domain.ChatHistory{
		Activity: activity.Snapshot(),
		Messages: messages,
	}, nil
}

// ListConversations coalesces concurrent requests for the same user. The
// shared read runs detached from any single caller's cancellation, and a
// write touching the user's unread state starts a fresh read for later
// callers.
func (g *ChannelGateway) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}

	shared := context.WithoutCancel(ctx)
	result, err, _ := g.sf.Do(userID, func() (interface{}, error) {
		activities, err := g.directory.ListByMember(shared, userID)
		if err != nil {
			return nil, err
		}
		return g.readState.Summaries(shared, userID, activities)
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to build conversation list")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Shared result; hand each caller its own slice header.
	summaries := result.([]domain.ConversationSummary)
	return append([]domain.ConversationSummary(nil), summaries...), nil
}

func (g *ChannelGateway) MarkRead(ctx context.Context, userID, activityID string) (*domain.ReadReceipt, error) {
	if _, err := g.authorize(ctx, userID, activityID); err != nil {
		return nil, err
	}

	updated, err := g.messages.MarkRead(ctx, activityID, userID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldActivityID, activityID).Msg("failed to mark messages read")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	g.forgetConversations(userID)

	receipt := &domain.ReadReceipt{ActivityID: activityID, UserID: userID, Updated: updated}
	if updated > 0 && g.events != nil {
		g.events.MessageRead(ctx, receipt)
	}
	audit.LogWithDetail(ctx, audit.ActionMarkRead, userID, activityID, fmt.Sprintf("%d", updated), "messages acknowledged")
	return receipt, nil
}

func (g *ChannelGateway) UnreadCount(ctx context.Context, userID, activityID string) (*domain.UnreadSummary, error) {
	if _, err := g.authorize(ctx, userID, activityID); err != nil {
		return nil, err
	}

	n, err := g.readState.Unread(ctx, activityID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &domain.UnreadSummary{ActivityID: activityID, UnreadCount: n}, nil
}

func (g *ChannelGateway) Presence(ctx context.Context, userID, activityID string) (*domain.PresenceSnapshot, error) {
	if _, err := g.authorize(ctx, userID, activityID); err != nil {
		return nil, err
	}

	if g.presence != nil {
		users, sessions, err := g.presence.Online(ctx, activityID)
		if err == nil {
			return &domain.PresenceSnapshot{ActivityID: activityID, OnlineUsers: users, SessionCount: sessions}, nil
		}
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldActivityID, activityID).Msg("presence store unavailable, using local rooms")
	}

	users, sessions := g.rooms.OnlineUsers(activityID)
	return &domain.PresenceSnapshot{ActivityID: activityID, OnlineUsers: users, SessionCount: sessions}, nil
}

func (g *ChannelGateway) Start(ctx context.Context) error {
	if g.presence == nil {
		return nil
	}
	if err := g.presence.StartHeartbeat(ctx); err != nil {
		return fmt.Errorf("failed to start presence heartbeat: %w", err)
	}
	return nil
}

func (g *ChannelGateway) Stop() error {
	if g.presence != nil {
		g.presence.StopHeartbeat()
	}
	return nil
}

// forgetConversations detaches later ListConversations callers from a read
// that may predate a write.
func (g *ChannelGateway) forgetConversations(userID string) {
	if userID != "" {
		g.sf.Forget(userID)
	}
}

// authorize maps membership failures onto gateway errors.
func (g *ChannelGateway) authorize(ctx context.Context, userID, activityID string) (*domain.Activity, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if activityID == "" {
		return nil, fmt.Errorf("%w: activityId is required", ErrValidation)
	}

	activity, err := g.authority.Authorize(ctx, userID, activityID)
	switch {
	case err == nil:
		return activity, nil
	case errors.Is(err, membership.ErrActivityNotFound):
		return nil, fmt.Errorf("%w: activity %s", ErrNotFound, activityID)
	case errors.Is(err, membership.ErrNotMember):
		return nil, fmt.Errorf("%w: not a member of activity %s", ErrForbidden, activityID)
	default:
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldActivityID, activityID).Msg("activity directory unavailable")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
}

// emit never fails the caller; the router only errors on shutdown.
func (g *ChannelGateway) emit(ctx context.Context, activityID, kind string, payload interface{}, exclude string) {
	if err := g.router.Emit(activityID, kind, payload, exclude); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldActivityID, activityID).Str(log.FieldEventType, kind).Msg("failed to emit event")
	}
}

func deliverJSON(s hub.Session, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.Deliver(data); err != nil && !errors.Is(err, hub.ErrSessionClosed) {
		return err
	}
	return nil
}
