package service

import (
	"context"
	"fmt"
	"time"

	"referral_contest/internal/model"
	"referral_contest/pkg/logger"

	"go.uber.org/zap"
)

// Dispatcher fans messages out to users. Delivery is best-effort: a failed
// send is logged and reported in the outcome list, it never aborts the batch.
type Dispatcher struct {
	recipients RecipientRepository
	messenger  Messenger
	events     EventPublisher
	now        func() time.Time
}

func NewDispatcher(recipients RecipientRepository, messenger Messenger, events EventPublisher) *Dispatcher {
	return &Dispatcher{
		recipients: recipients,
		messenger:  messenger,
		events:     events,
		now:        time.Now,
	}
}

// Broadcast sends the message to every non-banned user.
func (d *Dispatcher) Broadcast(ctx context.Context, text string, button *model.Button) ([]model.Delivery, error) {
	return d.BroadcastExcept(ctx, nil, text, button)
}

// BroadcastExcept sends the message to every non-banned user not in exclude.
func (d *Dispatcher) BroadcastExcept(ctx context.Context, exclude []int64, text string, button *model.Button) ([]model.Delivery, error) {
	ids, err := d.recipients.GetRecipientIDs(ctx, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to get broadcast recipients: %w", err)
	}

	deliveries := d.SendTo(ctx, ids, text, button)

	sent, failed := model.CountDeliveries(deliveries)
	logger.Logger().Info("Broadcast completed",
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	publish(ctx, d.events, model.EventBroadcastCompleted, d.now(), map[string]any{
		"sent":   sent,
		"failed": failed,
	})

	return deliveries, nil
}

func (d *Dispatcher) SendTo(ctx context.Context, ids []int64, text string, button *model.Button) []model.Delivery {
	deliveries := make([]model.Delivery, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			deliveries = append(deliveries, model.Delivery{UserID: id, Err: ctx.Err()})
			continue
		}
		deliveries = append(deliveries, d.Notify(ctx, id, text, button))
	}
	return deliveries
}

func (d *Dispatcher) Notify(ctx context.Context, id int64, text string, button *model.Button) model.Delivery {
	err := d.messenger.SendMessage(ctx, id, text, button)
	if err != nil {
		logger.Logger().Warn("Failed to deliver message",
			zap.Int64("telegram_id", id),
			zap.Error(err),
		)
	}
	return model.Delivery{UserID: id, Err: err}
}
