package outbox

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/dishdash-backend/pkg/config"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
)

// TopicFor returns the Pub/Sub topic an event type is published to.
func TopicFor(eventType enums.OutboxEventType, cfg config.PubSubConfig) (string, error) {
	if !eventType.IsValid() {
		return "", fmt.Errorf("no topic for event type %q", eventType)
	}
	topic := strings.TrimSpace(cfg.BillingTopic)
	if topic == "" {
		return "", fmt.Errorf("billing topic not configured")
	}
	return topic, nil
}
