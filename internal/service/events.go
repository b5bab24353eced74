package service

import (
	"context"
	"time"

	"referral_contest/internal/model"
	"referral_contest/pkg/logger"

	"go.uber.org/zap"
)

// publish hands the event to the publisher. Publishing is fire-and-forget:
// a failure is logged and never fails the operation that produced the event.
func publish(ctx context.Context, p EventPublisher, t model.EventType, at time.Time, payload map[string]any) {
	if p == nil {
		return
	}

	if err := p.Publish(ctx, model.NewEvent(t, at, payload)); err != nil {
		logger.Logger().Warn("Failed to publish event",
			zap.String("type", string(t)),
			zap.Error(err),
		)
	}
}
