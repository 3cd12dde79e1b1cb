package repository

import (
	"time"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/pkg/database"
)

// ChatMessageModel is the GORM model for the chat_messages table.
// Seq is the surrogate primary key; the log is ordered by (created_at, message_id).
type ChatMessageModel struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	MessageID  string    `gorm:"column:message_id;type:varchar(26);uniqueIndex;not null"`
	ActivityID string    `gorm:"type:varchar(64);index:idx_chat_messages_activity_time,priority:1;not null"`
	SenderID   string    `gorm:"type:varchar(64);not null"`
	SenderName string    `gorm:"type:varchar(100);not null"`
	Content    string    `gorm:"type:text;not null"`
	Kind       string    `gorm:"type:varchar(20);not null;default:'text'"`
	CreatedAt  time.Time `gorm:"index:idx_chat_messages_activity_time,priority:2;not null"`
}

func (ChatMessageModel) TableName() string {
	return "chat_messages"
}

// MessageReadModel is one (message, reader) pair. The sender's row is
// written together with the message.
type MessageReadModel struct {
	MessageID  string    `gorm:"type:varchar(26);primaryKey"`
	UserID     string    `gorm:"type:varchar(64);primaryKey"`
	ActivityID string    `gorm:"type:varchar(64);index;not null"`
	ReadAt     time.Time `gorm:"not null"`
}

func (MessageReadModel) TableName() string {
	return "chat_message_reads"
}

func (m *ChatMessageModel) toDomain(readBy []string) domain.ChatMessage {
	if readBy == nil {
		readBy = []string{}
	}
	return domain.ChatMessage{
		ID:         m.MessageID,
		ActivityID: m.ActivityID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Kind:       m.Kind,
		CreatedAt:  m.CreatedAt.UTC(),
		ReadBy:     readBy,
	}
}

func messageToModel(m *domain.ChatMessage) *ChatMessageModel {
	return &ChatMessageModel{
		MessageID:  m.ID,
		ActivityID: m.ActivityID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Kind:       m.Kind,
		CreatedAt:  m.CreatedAt,
	}
}

// ActivityModel is the GORM model for the activities table.
type ActivityModel struct {
	ID           string               `gorm:"type:varchar(64);primaryKey"`
	Name         string               `gorm:"type:varchar(200);not null"`
	Location     string               `gorm:"type:varchar(200)"`
	HostID       string               `gorm:"type:varchar(64);index;not null"`
	Participants database.StringArray `gorm:"type:text"`
	CreatedAt    time.Time            `gorm:"autoCreateTime"`
}

func (ActivityModel) TableName() string {
	return "activities"
}

func (m *ActivityModel) toDomain() *domain.Activity {
	participants := []string(m.Participants)
	if participants == nil {
		participants = []string{}
	}
	return &domain.Activity{
		ID:           m.ID,
		Name:         m.Name,
		Location:     m.Location,
		HostID:       m.HostID,
		Participants: participants,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

func activityToModel(a *domain.Activity) *ActivityModel {
	return &ActivityModel{
		ID:           a.ID,
		Name:         a.Name,
		Location:     a.Location,
		HostID:       a.HostID,
		Participants: database.StringArray(a.Participants),
		CreatedAt:    a.CreatedAt,
	}
}

// GormModels lists every model the chat service migrates.
func GormModels() []interface{} {
	return []interface{}{&ChatMessageModel{}, &MessageReadModel{}, &ActivityModel{}}
}
