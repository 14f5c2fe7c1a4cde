// Package worker syncs ledger entries to the external mirror, driven by AMQP
// messages with a periodic sweep as backup.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hucha/internal/amqp"
	"hucha/internal/core"
	"hucha/internal/mirror"
	"hucha/internal/storage"
)

type SyncWorker struct {
	store     storage.Store
	mirror    mirror.RowAppender
	batchSize int
}

func NewSyncWorker(store storage.Store, appender mirror.RowAppender, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{store: store, mirror: appender, batchSize: batchSize}
}

// HandleSyncMessage mirrors one ledger entry named by an AMQP message. The
// entry is re-read from the database so the mirror always sees the latest
// version, whatever order messages arrive in. An entry deleted before its
// message was handled is skipped, not an error.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction gone before sync, skipping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction: %w", err)
	}

	return w.syncOne(ctx, tx)
}

// ProcessPending mirrors entries that never got a message through, a batch at
// a time. Backup for lost AMQP deliveries.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListUnsyncedTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	var firstErr error
	for _, tx := range pending {
		if err := w.syncOne(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", tx.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (w *SyncWorker) syncOne(ctx context.Context, tx core.Transaction) error {
	if w.mirror == nil {
		return errors.New("no mirror configured")
	}

	rowRef, err := w.mirror.AppendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}
	if err := w.store.MarkTransactionSynced(ctx, tx.ID); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored", "id", tx.ID, "row", rowRef)
	return nil
}
