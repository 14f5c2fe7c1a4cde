package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"hucha/internal/core"
	"hucha/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	st, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "hucha.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func dayClock(t *testing.T, day string) nowFunc {
	t.Helper()
	ts, err := time.Parse("2006-01-02", day)
	if err != nil {
		t.Fatalf("parse day %q: %v", day, err)
	}
	return func() time.Time { return ts }
}

func mustDate(t *testing.T, day string) core.Date {
	t.Helper()
	d, err := core.ParseDate(day)
	if err != nil {
		t.Fatalf("parse date %q: %v", day, err)
	}
	return d
}

// startTestMonth opens a June 2025 month starting on Sunday the 1st, which
// partitions into six weeks (a one-day first week, four full weeks, a
// one-day last week).
func startTestMonth(t *testing.T, st storage.Store, income, weekly string) (core.Month, []core.Week) {
	t.Helper()
	svc := NewLifecycleService(st, nil)
	start := mustDate(t, "2025-06-01")
	month, weeks, err := svc.StartMonth(context.Background(), StartMonthInput{
		Income:       income,
		SavingGoal:   "0",
		WeeklyBudget: weekly,
		StartDate:    &start,
	})
	if err != nil {
		t.Fatalf("start month: %v", err)
	}
	return month, weeks
}

func firstCategory(t *testing.T, st storage.Store) core.Category {
	t.Helper()
	cats, err := st.ListCategories(context.Background(), true)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) == 0 {
		t.Fatal("no seeded categories")
	}
	return cats[0]
}

func addExpense(t *testing.T, st storage.Store, monthID int64, amount string, method core.PaymentMethod) core.Transaction {
	t.Helper()
	cat := firstCategory(t, st)
	tx, err := NewLedgerService(st, nil).Create(context.Background(), CreateTransactionInput{
		MonthID:       monthID,
		CategoryID:    &cat.ID,
		Amount:        amount,
		PaymentMethod: method,
		Concept:       "test expense",
	})
	if err != nil {
		t.Fatalf("add expense: %v", err)
	}
	return tx
}

func countByType(t *testing.T, st storage.Store, monthID int64, txType core.TxType) int {
	t.Helper()
	txs, err := st.ListTransactions(context.Background(), monthID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	n := 0
	for _, tx := range txs {
		if tx.Type == txType {
			n++
		}
	}
	return n
}
