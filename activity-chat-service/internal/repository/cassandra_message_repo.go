package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/pkg/log"
)

// readAckBatchSize caps statements per unlogged batch in MarkRead.
const readAckBatchSize = 100

const messageColumns = `activity_id, created_at, message_id, sender_id, sender_name, content, kind, read_by`

// CassandraMessageRepository keeps each activity's log in one partition.
// Unread counting and read acknowledgment scan the partition client-side.
type CassandraMessageRepository struct {
	session *gocql.Session
	gen     IDGenerator
}

func NewCassandraMessageRepository(session *gocql.Session, gen IDGenerator) *CassandraMessageRepository {
	return &CassandraMessageRepository{session: session, gen: gen}
}

func (r *CassandraMessageRepository) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	committed, err := stamp(r.gen, msg)
	if err != nil {
		return nil, err
	}

	err = r.session.Query(
		`INSERT INTO messages_by_activity (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		committed.ActivityID,
		committed.CreatedAt,
		committed.ID,
		committed.SenderID,
		committed.SenderName,
		committed.Content,
		committed.Kind,
		committed.ReadBy,
	).WithContext(ctx).Exec()
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldActivityID, committed.ActivityID).Msg("failed to insert message into cassandra")
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return committed, nil
}

func (r *CassandraMessageRepository) List(ctx context.Context, activityID string, opts ListOptions) ([]domain.ChatMessage, error) {
	order := "DESC"
	if opts.Order == domain.ListEarliest {
		order = "ASC"
	}

	iter := r.session.Query(
		`SELECT `+messageColumns+` FROM messages_by_activity WHERE activity_id = ?
		 ORDER BY created_at `+order+`, message_id `+order+` LIMIT ?`,
		activityID, opts.limit(),
	).WithContext(ctx).Iter()

	messages := []domain.ChatMessage{}
	for {
		msg, ok := scanMessage(iter)
		if !ok {
			break
		}
		messages = append(messages, msg)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	if order == "DESC" {
		reverse(messages)
	}
	return messages, nil
}

func (r *CassandraMessageRepository) CountUnread(ctx context.Context, activityID, userID string) (int64, error) {
	iter := r.session.Query(
		`SELECT sender_id, read_by FROM messages_by_activity WHERE activity_id = ?`,
		activityID,
	).WithContext(ctx).Iter()

	var (
		n        int64
		senderID string
		readBy   []string
	)
	for iter.Scan(&senderID, &readBy) {
		m := domain.ChatMessage{SenderID: senderID, ReadBy: readBy}
		if m.IsUnreadFor(userID) {
			n++
		}
		readBy = nil
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return n, nil
}

func (r *CassandraMessageRepository) Latest(ctx context.Context, activityID string) (*domain.ChatMessage, error) {
	iter := r.session.Query(
		`SELECT `+messageColumns+` FROM messages_by_activity WHERE activity_id = ?
		 ORDER BY created_at DESC, message_id DESC LIMIT 1`,
		activityID,
	).WithContext(ctx).Iter()

	msg, ok := scanMessage(iter)
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to read latest message: %w", err)
	}
	if !ok {
		return nil, ErrMessageNotFound
	}
	return &msg, nil
}

// MarkRead adds userID to the read_by set of every row missing it.
// Set addition is idempotent, so a concurrent ack can only overcount.
func (r *CassandraMessageRepository) MarkRead(ctx context.Context, activityID, userID string) (int64, error) {
	iter := r.session.Query(
		`SELECT created_at, message_id, sender_id, read_by FROM messages_by_activity WHERE activity_id = ?`,
		activityID,
	).WithContext(ctx).Iter()

	type key struct {
		createdAt time.Time
		messageID string
	}

	var (
		pending   []key
		createdAt time.Time
		messageID string
		senderID  string
		readBy    []string
	)
	for iter.Scan(&createdAt, &messageID, &senderID, &readBy) {
		m := domain.ChatMessage{SenderID: senderID, ReadBy: readBy}
		if !m.HasRead(userID) {
			pending = append(pending, key{createdAt: createdAt, messageID: messageID})
		}
		readBy = nil
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("failed to scan for unread: %w", err)
	}

	for start := 0; start < len(pending); start += readAckBatchSize {
		end := start + readAckBatchSize
		if end > len(pending) {
			end = len(pending)
		}

		batch := r.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
		for _, k := range pending[start:end] {
			batch.Query(
				`UPDATE messages_by_activity SET read_by = read_by + ?
				 WHERE activity_id = ? AND created_at = ? AND message_id = ?`,
				[]string{userID}, activityID, k.createdAt, k.messageID,
			)
		}
		if err := r.session.ExecuteBatch(batch); err != nil {
			return int64(start), fmt.Errorf("failed to mark read: %w", err)
		}
	}

	return int64(len(pending)), nil
}

func (r *CassandraMessageRepository) Close() error {
	r.session.Close()
	return nil
}

func scanMessage(iter *gocql.Iter) (domain.ChatMessage, bool) {
	var msg domain.ChatMessage
	var readBy []string
	ok := iter.Scan(
		&msg.ActivityID,
		&msg.CreatedAt,
		&msg.ID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.Content,
		&msg.Kind,
		&readBy,
	)
	if !ok {
		return msg, false
	}

	msg.CreatedAt = msg.CreatedAt.UTC()
	// read_by is an unordered set; put the sender first.
	msg.ReadBy = []string{msg.SenderID}
	for _, u := range readBy {
		if u != msg.SenderID {
			msg.ReadBy = append(msg.ReadBy, u)
		}
	}
	return msg, true
}
