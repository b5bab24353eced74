package events

import (
	"context"

	"referral_contest/internal/model"
)

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, model.Event) error {
	return nil
}
