package events

import (
	"context"

	"github.com/weiawesome/trip-chat/activity-chat-service/internal/domain"
	"github.com/weiawesome/trip-chat/pkg/log"
	"github.com/weiawesome/trip-chat/pkg/pubsub"
)

// ReadPayload is the body of a message.read event.
type ReadPayload struct {
	ActivityID string `json:"activityId"`
	UserID     string `json:"userId"`
	Updated    int64  `json:"updated"`
}

// Publisher announces committed chat changes to downstream consumers.
// Failures are logged and swallowed: the log is already durable.
type Publisher struct {
	bus pubsub.Publisher
}

func NewPublisher(bus pubsub.Publisher) *Publisher {
	if bus == nil {
		bus = pubsub.NopPublisher{}
	}
	return &Publisher{bus: bus}
}

func (p *Publisher) MessageCreated(ctx context.Context, msg *domain.ChatMessage) {
	p.publish(ctx, pubsub.ActivityMessagesChannel(msg.ActivityID), pubsub.EventMessageCreated, msg.ActivityID, msg)
}

func (p *Publisher) MessageRead(ctx context.Context, receipt *domain.ReadReceipt) {
	p.publish(ctx, pubsub.ActivityReadsChannel(receipt.ActivityID), pubsub.EventMessageRead, receipt.ActivityID, &ReadPayload{
		ActivityID: receipt.ActivityID,
		UserID:     receipt.UserID,
		Updated:    receipt.Updated,
	})
}

func (p *Publisher) publish(ctx context.Context, channel, eventType, activityID string, payload interface{}) {
	l := log.Ctx(ctx)

	event, err := pubsub.NewEvent(eventType, activityID, payload)
	if err != nil {
		l.Error().Err(err).Str(log.FieldEventType, eventType).Msg("failed to encode event")
		return
	}
	if err := p.bus.Publish(ctx, channel, event); err != nil {
		l.Warn().Err(err).Str(log.FieldEventType, eventType).Str(log.FieldActivityID, activityID).Msg("failed to publish event")
	}
}

func (p *Publisher) Close() error {
	return p.bus.Close()
}
