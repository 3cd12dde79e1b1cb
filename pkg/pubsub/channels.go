package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming: {prefix}:activity:{activityID}:{stream}.
const (
	ChannelActivityMessages = "chat:activity:%s:messages"
	ChannelActivityReads    = "chat:activity:%s:reads"
)

// Event types.
const (
	EventMessageCreated = "message.created"
	EventMessageRead    = "message.read"
)

// ActivityMessagesChannel returns the channel for committed messages of an activity.
func ActivityMessagesChannel(activityID string) string {
	return fmt.Sprintf(ChannelActivityMessages, activityID)
}

// ActivityReadsChannel returns the channel for read acknowledgments of an activity.
func ActivityReadsChannel(activityID string) string {
	return fmt.Sprintf(ChannelActivityReads, activityID)
}

// channelToTopicAndKey maps a channel onto a Kafka topic and partition key.
//
//	"chat:activity:A1:messages" → topic "chat-messages", key "A1"
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 4 || parts[1] != "activity" || parts[2] == "" {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return parts[0] + "-" + strings.ReplaceAll(parts[3], "_", "-"), parts[2], nil
}

// KafkaTopics lists the topics the activity channels map onto.
func KafkaTopics() []string {
	return []string{"chat-messages", "chat-reads"}
}
