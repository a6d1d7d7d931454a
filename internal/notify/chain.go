package notify

import (
	"context"
	"errors"

	"github.com/did4510/Nexon/internal/domain"
)

// Escalations runs every action in order and joins their errors.
type Escalations []EscalationAction

func (c Escalations) Escalate(ctx context.Context, ticketID int64, kind domain.TimerKind) error {
	var errs []error
	for _, action := range c {
		if action == nil {
			continue
		}
		if err := action.Escalate(ctx, ticketID, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
