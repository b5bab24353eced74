package events

import (
	"context"
	"errors"

	"referral_contest/internal/model"
)

type Publisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// Multi delivers an event to every publisher, even when some fail.
type Multi []Publisher

func NewMulti(publishers ...Publisher) Multi {
	out := make(Multi, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m Multi) Publish(ctx context.Context, event model.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
