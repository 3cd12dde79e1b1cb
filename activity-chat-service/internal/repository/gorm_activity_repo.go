package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/pkg/database"
	"github.com/weiawesome/trip-chat/pkg/log"
)

// GormActivityRepository reads the activity directory from the activities table.
type GormActivityRepository struct {
	db *gorm.DB
}

func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// Save upserts an activity. The CRUD layer normally owns this table; the
// chat service only writes it for seeding.
func (r *GormActivityRepository) Save(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(activityToModel(activity)).Error
}

func (r *GormActivityRepository) GetActivity(ctx context.Context, activityID string) (*domain.Activity, error) {
	l := log.Ctx(ctx)

	var model ActivityModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", activityID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldActivityID, activityID).Msg("failed to get activity by id")
		return nil, result.Error
	}
	return model.toDomain(), nil
}

// ListByMember matches the host column or a whole element of the JSON
// participants column, then re-checks membership on the decoded row.
func (r *GormActivityRepository) ListByMember(ctx context.Context, userID string) ([]domain.Activity, error) {
	l := log.Ctx(ctx)

	var models []ActivityModel
	err := r.db.WithContext(ctx).
		Where("host_id = ? OR participants LIKE ? ESCAPE '"+database.LikeEscape+"'", userID, database.MemberPattern(userID)).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to list activities by member")
		return nil, err
	}

	activities := make([]domain.Activity, 0, len(models))
	for i := range models {
		m := &models[i]
		if m.HostID != userID && !m.Participants.Contains(userID) {
			continue
		}
		activities = append(activities, *m.toDomain())
	}
	return activities, nil
}

func (r *GormActivityRepository) Close() error {
	return nil
}
