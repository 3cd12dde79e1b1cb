package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/pkg/log"
)

// markReadBatchSize caps rows per INSERT when acknowledging a long backlog.
const markReadBatchSize = 200

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db  *gorm.DB
	gen IDGenerator
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB, gen IDGenerator) *GormMessageRepository {
	return &GormMessageRepository{db: db, gen: gen}
}

// Append writes the message and the sender's read row in one transaction.
func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	committed, err := stamp(r.gen, msg)
	if err != nil {
		return nil, err
	}

	reads := make([]MessageReadModel, 0, len(committed.ReadBy))
	for _, u := range committed.ReadBy {
		reads = append(reads, MessageReadModel{
			MessageID:  committed.ID,
			UserID:     u,
			ActivityID: committed.ActivityID,
			ReadAt:     committed.CreatedAt,
		})
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(messageToModel(committed)).Error; err != nil {
			return err
		}
		return tx.Create(&reads).Error
	})
	if err != nil {
		l.Error().Err(err).Str(log.FieldActivityID, committed.ActivityID).Msg("failed to append message in db")
		return nil, err
	}

	l.Debug().Str(log.FieldMessageID, committed.ID).Msg("message appended in db")
	return committed, nil
}

// List returns a bounded window of the log, oldest first.
func (r *GormMessageRepository) List(ctx context.Context, activityID string, opts ListOptions) ([]domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	order := "created_at DESC, message_id DESC"
	if opts.Order == domain.ListEarliest {
		order = "created_at ASC, message_id ASC"
	}

	var models []ChatMessageModel
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order(order).
		Limit(opts.limit()).
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldActivityID, activityID).Msg("failed to list messages from db")
		return nil, err
	}

	messages, err := r.withReaders(ctx, models)
	if err != nil {
		return nil, err
	}
	if opts.Order != domain.ListEarliest {
		reverse(messages)
	}
	return messages, nil
}

// CountUnread counts messages from others that userID has no read row for.
func (r *GormMessageRepository) CountUnread(ctx context.Context, activityID, userID string) (int64, error) {
	read := r.db.Model(&MessageReadModel{}).
		Select("1").
		Where("chat_message_reads.message_id = chat_messages.message_id AND chat_message_reads.user_id = ?", userID)

	var n int64
	err := r.db.WithContext(ctx).Model(&ChatMessageModel{}).
		Where("activity_id = ? AND sender_id <> ?", activityID, userID).
		Where("NOT EXISTS (?)", read).
		Count(&n).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldActivityID, activityID).Msg("failed to count unread messages")
		return 0, err
	}
	return n, nil
}

// Latest returns the newest message of the activity.
func (r *GormMessageRepository) Latest(ctx context.Context, activityID string) (*domain.ChatMessage, error) {
	var model ChatMessageModel
	err := r.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("created_at DESC, message_id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	messages, err := r.withReaders(ctx, []ChatMessageModel{model})
	if err != nil {
		return nil, err
	}
	return &messages[0], nil
}

// MarkRead inserts the missing read rows for userID. Rows written by a
// concurrent acknowledgment are skipped by the conflict clause.
func (r *GormMessageRepository) MarkRead(ctx context.Context, activityID, userID string) (int64, error) {
	l := log.Ctx(ctx)

	read := r.db.Model(&MessageReadModel{}).
		Select("1").
		Where("chat_message_reads.message_id = chat_messages.message_id AND chat_message_reads.user_id = ?", userID)

	var pending []string
	err := r.db.WithContext(ctx).Model(&ChatMessageModel{}).
		Where("activity_id = ?", activityID).
		Where("NOT EXISTS (?)", read).
		Pluck("message_id", &pending).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldActivityID, activityID).Msg("failed to find unread messages")
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([]MessageReadModel, len(pending))
	for i, id := range pending {
		rows[i] = MessageReadModel{MessageID: id, UserID: userID, ActivityID: activityID, ReadAt: now}
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, markReadBatchSize)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldActivityID, activityID).Msg("failed to mark messages read")
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormMessageRepository) Close() error {
	return nil
}

// withReaders loads read rows for the given messages and assembles ReadBy,
// sender first, then readers in acknowledgment order.
func (r *GormMessageRepository) withReaders(ctx context.Context, models []ChatMessageModel) ([]domain.ChatMessage, error) {
	out := make([]domain.ChatMessage, 0, len(models))
	if len(models) == 0 {
		return out, nil
	}

	ids := make([]string, len(models))
	for i := range models {
		ids[i] = models[i].MessageID
	}

	var reads []MessageReadModel
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", ids).
		Order("read_at ASC, user_id ASC").
		Find(&reads).Error
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to load message readers")
		return nil, err
	}

	readers := make(map[string][]string, len(models))
	for _, rd := range reads {
		readers[rd.MessageID] = append(readers[rd.MessageID], rd.UserID)
	}

	for i := range models {
		m := &models[i]
		readBy := []string{m.SenderID}
		for _, u := range readers[m.MessageID] {
			if u != m.SenderID {
				readBy = append(readBy, u)
			}
		}
		out = append(out, m.toDomain(readBy))
	}
	return out, nil
}
