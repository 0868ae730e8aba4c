package services

import (
	"context"

	"go.uber.org/zap"

	"sidequest/internal/events"
)

// publishEvent queues an event for asynchronous handlers. Delivery problems
// never fail the calling operation.
func publishEvent(ctx context.Context, bus events.EventBus, logger *zap.Logger, ev events.Event) {
	if bus == nil {
		return
	}
	if err := bus.PublishAsync(ctx, ev); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("event_type", ev.GetEventType()),
			zap.String("event_id", ev.GetEventID()),
			zap.Error(err),
		)
	}
}
