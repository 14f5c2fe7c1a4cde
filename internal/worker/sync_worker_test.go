package worker

import (
	"context"
	"path/filepath"
	"testing"

	"hucha/internal/amqp"
	"hucha/internal/core"
	"hucha/internal/mirror/memory"
	"hucha/internal/services"
	"hucha/internal/storage"
)

func setup(t *testing.T) (*storage.SQLiteStore, *memory.Store, core.Transaction) {
	t.Helper()
	st, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "hucha.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	start, err := core.ParseDate("2025-06-01")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	month, _, err := services.NewLifecycleService(st, nil).StartMonth(ctx, services.StartMonthInput{
		Income: "2500", SavingGoal: "0", WeeklyBudget: "0", StartDate: &start,
	})
	if err != nil {
		t.Fatalf("start month: %v", err)
	}
	cats, err := st.ListCategories(ctx, true)
	if err != nil || len(cats) == 0 {
		t.Fatalf("categories: %v", err)
	}
	tx, err := services.NewLedgerService(st, nil).Create(ctx, services.CreateTransactionInput{
		MonthID:       month.ID,
		CategoryID:    &cats[0].ID,
		Amount:        "12.34",
		PaymentMethod: core.MethodCard,
		Concept:       "groceries",
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	return st, memory.New(), tx
}

func TestHandleSyncMessage(t *testing.T) {
	st, mem, tx := setup(t)
	w := NewSyncWorker(st, mem, 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage(tx.ID, 1))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	items := mem.Items()
	if len(items) != 1 {
		t.Fatalf("mirrored items: got %d, want 1", len(items))
	}
	if items[0].ID != tx.ID || items[0].Amount.Cents != 1234 {
		t.Fatalf("mirrored item: %+v", items[0])
	}

	pending, err := st.ListUnsyncedTransactions(context.Background(), 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("unsynced after handle: got %d, want 0", len(pending))
	}
}

func TestHandleSyncMessageMissingTransaction(t *testing.T) {
	st, mem, _ := setup(t)
	w := NewSyncWorker(st, mem, 10)

	// A deleted entry is skipped, not requeued forever.
	err := w.HandleSyncMessage(context.Background(), amqp.NewTransactionSyncMessage(9999, 1))
	if err != nil {
		t.Fatalf("missing transaction should not error: %v", err)
	}
	if len(mem.Items()) != 0 {
		t.Fatalf("nothing should be mirrored, got %d items", len(mem.Items()))
	}
}

func TestProcessPendingSweep(t *testing.T) {
	st, mem, tx := setup(t)
	w := NewSyncWorker(st, mem, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	items := mem.Items()
	if len(items) != 1 || items[0].ID != tx.ID {
		t.Fatalf("sweep should mirror the pending entry, got %+v", items)
	}

	// Second sweep finds nothing.
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(mem.Items()) != 1 {
		t.Fatalf("entry mirrored twice: %d items", len(mem.Items()))
	}
}
