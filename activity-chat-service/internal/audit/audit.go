package audit

import (
	"context"

	"github.com/weiawesome/trip-chat/pkg/log"
)

// Audit actions for the activity chat.
const (
	ActionConnect     = "chat.connect"
	ActionAuthFailed  = "chat.auth_failed"
	ActionJoinRoom    = "chat.join_room"
	ActionJoinDenied  = "chat.join_denied"
	ActionLeaveRoom   = "chat.leave_room"
	ActionSendMessage = "chat.send_message"
	ActionSendDenied  = "chat.send_denied"
	ActionMarkRead    = "chat.mark_read"
	ActionDisconnect  = "chat.disconnect"
)

const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit entry via the context logger.
func Log(ctx context.Context, action, userID, activityID, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldActivityID, activityID).
		Msg(msg)
}

// LogWithDetail is Log with an extra detail field.
func LogWithDetail(ctx context.Context, action, userID, activityID, detail, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldActivityID, activityID).
		Str(FieldDetail, detail).
		Msg(msg)
}
