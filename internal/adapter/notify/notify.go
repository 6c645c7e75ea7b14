package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/semmidev/custos/internal/domain"
)

// Filter restricts a notifier to one status. An empty status passes everything.
type Filter struct {
	domain.Notifier
	Status string
}

func (f Filter) Notify(ctx context.Context, e domain.Event) error {
	if f.Status != "" && f.Status != e.Status {
		return nil
	}
	return f.Notifier.Notify(ctx, e)
}

// Multi fans an event out to every notifier and joins their errors.
type Multi []domain.Notifier

func (m Multi) Notify(ctx context.Context, e domain.Event) error {
	var errs []error
	for i, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
