package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"hucha/internal/core"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "hucha.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testMonth(t *testing.T, key string) core.Month {
	t.Helper()
	start, err := core.ParseDate(key + "-01")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return core.Month{
		PeriodKey:    key,
		StartDate:    start,
		EndDate:      core.MonthEnd(start),
		Income:       core.Money{Cents: 250000},
		WeeklyBudget: core.Money{Cents: 15000},
		Status:       core.StatusOpen,
	}
}

func insertMonthWithWeek(t *testing.T, st *SQLiteStore) (core.Month, core.Week) {
	t.Helper()
	ctx := context.Background()
	month := testMonth(t, "2025-06")
	if err := st.InsertMonth(ctx, &month); err != nil {
		t.Fatalf("insert month: %v", err)
	}
	week := core.Week{
		MonthID:      month.ID,
		Index:        1,
		StartDate:    month.StartDate,
		EndDate:      month.StartDate,
		CashWithdraw: core.Money{Cents: 15000},
		Status:       core.StatusOpen,
	}
	if err := st.InsertWeek(ctx, &week); err != nil {
		t.Fatalf("insert week: %v", err)
	}
	return month, week
}

func TestSingleOpenMonthEnforced(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	first := testMonth(t, "2025-06")
	if err := st.InsertMonth(ctx, &first); err != nil {
		t.Fatalf("insert first: %v", err)
	}

	second := testMonth(t, "2025-07")
	err := st.InsertMonth(ctx, &second)
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("second OPEN month: want conflict, got %v", err)
	}

	// A CLOSED month alongside the OPEN one is fine.
	if err := st.MarkMonthClosed(ctx, first.ID, time.Now()); err != nil {
		t.Fatalf("close first: %v", err)
	}
	if err := st.InsertMonth(ctx, &second); err != nil {
		t.Fatalf("insert after close: %v", err)
	}
}

func TestWeekWithdrawalUniquePerWeek(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	month, week := insertMonthWithWeek(t, st)

	withdrawal := func() core.Transaction {
		return core.Transaction{
			OccurredAt:    week.StartDate.Time,
			Amount:        core.Money{Cents: 15000},
			Direction:     core.DirectionOut,
			Type:          core.TxCashWithdrawal,
			MonthID:       month.ID,
			WeekID:        &week.ID,
			Attribution:   core.AttributionHouse,
			PaymentMethod: core.MethodCash,
		}
	}

	first := withdrawal()
	if err := st.InsertTransaction(ctx, &first); err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}
	dup := withdrawal()
	if err := st.InsertTransaction(ctx, &dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("duplicate withdrawal: want conflict, got %v", err)
	}

	// Other per-week entries are unaffected by the partial index.
	ret := withdrawal()
	ret.Type = core.TxCashReturn
	ret.Direction = core.DirectionIn
	if err := st.InsertTransaction(ctx, &ret); err != nil {
		t.Fatalf("cash return on same week: %v", err)
	}
}

func TestDeleteMonthCascadesInSchema(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	month, week := insertMonthWithWeek(t, st)

	tx := core.Transaction{
		OccurredAt:    time.Now(),
		Amount:        core.Money{Cents: 5000},
		Direction:     core.DirectionOut,
		Type:          core.TxCashWithdrawal,
		MonthID:       month.ID,
		WeekID:        &week.ID,
		Attribution:   core.AttributionHouse,
		PaymentMethod: core.MethodCash,
	}
	if err := st.InsertTransaction(ctx, &tx); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	bank, err := st.GetPiggyBankByType(ctx, core.PiggyGeneral)
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	entry := core.PiggyBankEntry{
		PiggyBankID: bank.ID,
		Amount:      core.Money{Cents: 1000},
		MonthID:     &month.ID,
		CreatedAt:   time.Now(),
	}
	if err := st.InsertPiggyBankEntry(ctx, &entry); err != nil {
		t.Fatalf("insert entry: %v", err)
	}

	if err := st.DeleteMonth(ctx, month.ID); err != nil {
		t.Fatalf("delete month: %v", err)
	}

	if _, err := st.GetWeek(ctx, week.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("week survived cascade: %v", err)
	}
	if _, err := st.GetTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("transaction survived cascade: %v", err)
	}

	entries, err := st.ListPiggyBankEntries(ctx, bank.ID)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 || entries[0].MonthID != nil {
		t.Fatalf("piggy entry should survive with nil month: %+v", entries)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := st.InTx(ctx, func(q Querier) error {
		month := testMonth(t, "2025-06")
		if err := q.InsertMonth(ctx, &month); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("want sentinel error, got %v", err)
	}

	months, err := st.ListMonths(ctx)
	if err != nil {
		t.Fatalf("list months: %v", err)
	}
	if len(months) != 0 {
		t.Fatalf("rolled-back month visible: %d", len(months))
	}
}

func TestSeedData(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	cats, err := st.ListCategories(ctx, true)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) == 0 {
		t.Fatal("no seeded categories")
	}

	banks, err := st.ListPiggyBanks(ctx)
	if err != nil {
		t.Fatalf("list piggy banks: %v", err)
	}
	if len(banks) != 2 {
		t.Fatalf("piggy banks: got %d, want 2", len(banks))
	}
}
