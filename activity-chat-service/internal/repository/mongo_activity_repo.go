package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
)

const activityCollection = "activities"

// MongoActivityRepository reads activities from a collection keyed by activity id.
type MongoActivityRepository struct {
	coll *mongo.Collection
}

func NewMongoActivityRepository(db *mongo.Database) *MongoActivityRepository {
	return &MongoActivityRepository{coll: db.Collection(activityCollection)}
}

// Save upserts an activity document.
func (r *MongoActivityRepository) Save(ctx context.Context, activity *domain.Activity) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": activity.ID}, activity, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoActivityRepository) GetActivity(ctx context.Context, activityID string) (*domain.Activity, error) {
	var a domain.Activity
	if err := r.coll.FindOne(ctx, bson.M{"_id": activityID}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}
	if a.Participants == nil {
		a.Participants = []string{}
	}
	return &a, nil
}

func (r *MongoActivityRepository) ListByMember(ctx context.Context, userID string) ([]domain.Activity, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"hostId": userID},
		bson.M{"participants": userID},
	}}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []domain.Activity{}
	if err := cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (r *MongoActivityRepository) Close() error {
	return nil
}
