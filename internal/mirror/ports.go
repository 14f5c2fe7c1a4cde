// Package mirror defines the outbound port for copying ledger entries to an
// external read-only view, plus its adapters.
package mirror

import (
	"context"

	"hucha/internal/core"
)

// RowAppender mirrors one ledger entry. The returned reference identifies
// where the row landed (sheet range, memory index) and is only used in logs.
type RowAppender interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
