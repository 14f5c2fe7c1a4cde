// Package services implements the budget domain operations over the storage
// layer: the month/week lifecycle, cash reconciliation, the ledger, piggy
// banks and the dashboard summary. Every multi-step write runs inside one
// store transaction; derived balances are always recomputed from the live
// ledger, never cached.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hucha/internal/core"
)

// EventPublisher pushes ledger change notifications to the mirror worker.
// Publishing is best-effort: a failure is logged, never surfaced to the user.
type EventPublisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
}

// publishSync fires a sync event if a publisher is configured. Mirrors are
// eventually consistent; the periodic sweep picks up anything missed here.
func publishSync(ctx context.Context, p EventPublisher, id, version int64) {
	if p == nil {
		return
	}
	if err := p.PublishTransactionSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event", "id", id, "error", err)
	}
}

func parsePositiveAmount(field, s string) (int64, error) {
	cents, err := core.ParseAmountToCents(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", err, field)
	}
	if cents <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", core.ErrValidation, field)
	}
	return cents, nil
}

func parseNonNegativeAmount(field, s string) (int64, error) {
	cents, err := core.ParseAmountToCents(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", err, field)
	}
	return cents, nil
}

// parseAmountOrZero is the lenient form used by week close, where a missing
// or unparseable amount counts as zero rather than failing the request.
func parseAmountOrZero(s *string) int64 {
	if s == nil {
		return 0
	}
	cents, err := core.ParseAmountToCents(*s)
	if err != nil {
		return 0
	}
	return cents
}

// nowFunc lets tests pin the clock; defaults to time.Now.
type nowFunc func() time.Time
