package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/pkg/log"
)

const messageCollection = "chat_messages"

// MongoMessageRepository stores each message as one document with an
// embedded readBy array.
type MongoMessageRepository struct {
	coll *mongo.Collection
	gen  IDGenerator
}

// NewMongoMessageRepository ensures the (activityId, createdAt, _id) index.
func NewMongoMessageRepository(ctx context.Context, db *mongo.Database, gen IDGenerator) (*MongoMessageRepository, error) {
	coll := db.Collection(messageCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "activityId", Value: 1},
			{Key: "createdAt", Value: 1},
			{Key: "_id", Value: 1},
		},
		Options: options.Index().SetName("activity_created"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message index: %w", err)
	}

	return &MongoMessageRepository{coll: coll, gen: gen}, nil
}

func (r *MongoMessageRepository) Append(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	committed, err := stamp(r.gen, msg)
	if err != nil {
		return nil, err
	}

	if _, err := r.coll.InsertOne(ctx, committed); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldActivityID, committed.ActivityID).Msg("failed to insert message")
		return nil, err
	}
	return committed, nil
}

func (r *MongoMessageRepository) List(ctx context.Context, activityID string, opts ListOptions) ([]domain.ChatMessage, error) {
	dir := -1
	if opts.Order == domain.ListEarliest {
		dir = 1
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: dir}, {Key: "_id", Value: dir}}).
		SetLimit(int64(opts.limit()))

	cursor, err := r.coll.Find(ctx, bson.M{"activityId": activityID}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []domain.ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	for i := range messages {
		normalizeMongo(&messages[i])
	}

	if dir < 0 {
		reverse(messages)
	}
	return messages, nil
}

func (r *MongoMessageRepository) CountUnread(ctx context.Context, activityID, userID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{
		"activityId": activityID,
		"senderId":   bson.M{"$ne": userID},
		"readBy":     bson.M{"$ne": userID},
	})
}

func (r *MongoMessageRepository) Latest(ctx context.Context, activityID string) (*domain.ChatMessage, error) {
	findOpts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	var msg domain.ChatMessage
	err := r.coll.FindOne(ctx, bson.M{"activityId": activityID}, findOpts).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	normalizeMongo(&msg)
	return &msg, nil
}

func (r *MongoMessageRepository) MarkRead(ctx context.Context, activityID, userID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"activityId": activityID, "readBy": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"readBy": userID}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Close is a no-op; the shared client is disconnected by its owner.
func (r *MongoMessageRepository) Close() error {
	return nil
}

func normalizeMongo(m *domain.ChatMessage) {
	m.CreatedAt = m.CreatedAt.UTC()
	if m.ReadBy == nil {
		m.ReadBy = []string{}
	}
}
