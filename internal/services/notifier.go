package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/observability"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime"
	"github.com/yungbote/tripseal-backend/internal/realtime/bus"
)

// TripNotifier publishes realtime events after a write commits. Publishing
// never fails the request; errors are logged.
type TripNotifier interface {
	SessionEvent(ctx context.Context, sessionID uuid.UUID, event realtime.SSEEvent, data any)
	UserEvent(ctx context.Context, userID uuid.UUID, event realtime.SSEEvent, data any)
}

type tripNotifier struct {
	log     *logger.Logger
	bus     bus.Bus
	metrics *observability.Metrics
}

// NewTripNotifier accepts a nil bus, which disables publishing, and nil metrics.
func NewTripNotifier(baseLog *logger.Logger, b bus.Bus, metrics *observability.Metrics) TripNotifier {
	return &tripNotifier{log: baseLog.With("service", "TripNotifier"), bus: b, metrics: metrics}
}

func (n *tripNotifier) SessionEvent(ctx context.Context, sessionID uuid.UUID, event realtime.SSEEvent, data any) {
	n.publish(ctx, realtime.SSEMessage{Channel: realtime.SessionChannel(sessionID), Event: event, Data: data})
}

func (n *tripNotifier) UserEvent(ctx context.Context, userID uuid.UUID, event realtime.SSEEvent, data any) {
	n.publish(ctx, realtime.SSEMessage{Channel: realtime.UserChannel(userID), Event: event, Data: data})
}

func (n *tripNotifier) publish(ctx context.Context, msg realtime.SSEMessage) {
	if n == nil || n.bus == nil {
		return
	}
	err := n.bus.Publish(context.WithoutCancel(ctx), msg)
	n.metrics.IncEventPublished(string(msg.Event), err == nil)
	if err != nil {
		n.log.Warn("Realtime publish failed", "channel", msg.Channel, "event", msg.Event, "error", err)
	}
}
