package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs all events
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		// Pull structured fields out of the known payload shapes
		switch payload := event.Payload.(type) {
		case models.ProgressEvent:
			logEvent = logEvent.
				Str("operation", payload.Operation).
				Int("current", payload.Current).
				Int("total", payload.Total)
			if payload.Step != "" {
				logEvent = logEvent.Str("step", payload.Step)
			}
			if payload.IsComplete {
				logEvent = logEvent.Bool("complete", true)
			}
		case map[string]string:
			if batchID, ok := payload["batch_id"]; ok {
				logEvent = logEvent.Str("batch_id", batchID)
			}
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	eventTypes := []interfaces.EventType{
		interfaces.EventImportProgress,
		interfaces.EventRenderProgress,
		interfaces.EventExportReportProgress,
		interfaces.EventExportBundleProgress,
		interfaces.EventBatchDeleted,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Debug().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
