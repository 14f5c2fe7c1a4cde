package services

import (
	"context"
	"errors"
	"testing"

	"hucha/internal/core"
	"hucha/internal/storage"
)

func TestEnsureWeeklyWithdrawalIdempotent(t *testing.T) {
	st := newTestStore(t)
	month, weeks := startTestMonth(t, st, "2500", "150")
	week := weeks[1]

	cash := NewCashService(st, nil)
	for i := 0; i < 3; i++ {
		if err := cash.EnsureWeeklyWithdrawal(context.Background(), week); err != nil {
			t.Fatalf("withdrawal %d: %v", i, err)
		}
	}

	if n := countByType(t, st, month.ID, core.TxCashWithdrawal); n != 1 {
		t.Fatalf("withdrawal entries: got %d, want 1", n)
	}

	pocket, err := cash.PocketCashBalance(context.Background(), month.ID)
	if err != nil {
		t.Fatalf("pocket: %v", err)
	}
	if pocket.Cents != 15000 {
		t.Fatalf("pocket after repeated ensure: got %d, want 15000", pocket.Cents)
	}
}

// staleReadStore simulates the race window between the existence check and
// the insert: HasWeekWithdrawal reports false even when a concurrent reader
// has already recorded the withdrawal, so the insert runs into the partial
// unique index.
type staleReadStore struct{ storage.Store }

func (s staleReadStore) InTx(ctx context.Context, fn func(storage.Querier) error) error {
	return s.Store.InTx(ctx, func(q storage.Querier) error {
		return fn(staleReadQuerier{q})
	})
}

type staleReadQuerier struct{ storage.Querier }

func (staleReadQuerier) HasWeekWithdrawal(context.Context, int64) (bool, error) {
	return false, nil
}

func TestEnsureWeeklyWithdrawalLosingRacerStaysQuiet(t *testing.T) {
	st := newTestStore(t)
	month, weeks := startTestMonth(t, st, "2500", "150")
	week := weeks[1]

	if err := NewCashService(st, nil).EnsureWeeklyWithdrawal(context.Background(), week); err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}

	racer := NewCashService(staleReadStore{st}, nil)
	if err := racer.EnsureWeeklyWithdrawal(context.Background(), week); err != nil {
		t.Fatalf("racing withdrawal should be absorbed, got %v", err)
	}

	if n := countByType(t, st, month.ID, core.TxCashWithdrawal); n != 1 {
		t.Fatalf("withdrawal entries after race: got %d, want 1", n)
	}
}

func TestEnsureWeeklyWithdrawalSkipsZeroAllotment(t *testing.T) {
	st := newTestStore(t)
	month, weeks := startTestMonth(t, st, "2500", "0")

	if err := NewCashService(st, nil).EnsureWeeklyWithdrawal(context.Background(), weeks[0]); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	if n := countByType(t, st, month.ID, core.TxCashWithdrawal); n != 0 {
		t.Fatalf("withdrawal entries: got %d, want 0", n)
	}
}

func TestBalancesConserveMoney(t *testing.T) {
	st := newTestStore(t)
	month, weeks := startTestMonth(t, st, "2500", "150")

	cash := NewCashService(st, nil)
	if err := cash.EnsureWeeklyWithdrawal(context.Background(), weeks[1]); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	addExpense(t, st, month.ID, "40", core.MethodCash)
	addExpense(t, st, month.ID, "60", core.MethodCard)
	if _, _, err := NewLifecycleService(st, nil).CashReturn(context.Background(), weeks[1].ID, "30"); err != nil {
		t.Fatalf("cash return: %v", err)
	}

	pocket, err := cash.PocketCashBalance(context.Background(), month.ID)
	if err != nil {
		t.Fatalf("pocket: %v", err)
	}
	// 150 withdrawn - 40 cash spent - 30 returned.
	if pocket.Cents != 8000 {
		t.Fatalf("pocket: got %d, want 8000", pocket.Cents)
	}

	bank, err := cash.BankBalance(context.Background(), month.ID)
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	// 2500 income - 60 card - 150 withdrawn + 30 returned.
	if bank.Cents != 232000 {
		t.Fatalf("bank: got %d, want 232000", bank.Cents)
	}

	// Everything the month started with is either in the bank, in the
	// pocket, or was spent.
	spent := int64(4000 + 6000)
	if bank.Cents+pocket.Cents+spent != month.Income.Cents {
		t.Fatalf("money not conserved: bank=%d pocket=%d spent=%d income=%d",
			bank.Cents, pocket.Cents, spent, month.Income.Cents)
	}
}

func TestEmergencyWithdrawalRequiresNote(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")

	_, err := NewCashService(st, nil).EmergencyWithdrawal(context.Background(), month.ID, "50", "  ")
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestEmergencyWithdrawalMayOverdrawSafety(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")

	cash := NewCashService(st, nil)
	tx, err := cash.EmergencyWithdrawal(context.Background(), month.ID, "50", "car repair")
	if err != nil {
		t.Fatalf("emergency: %v", err)
	}
	if tx.Type != core.TxEmergencyFromSafety || tx.Direction != core.DirectionOut {
		t.Fatalf("emergency tx: type=%q direction=%q", tx.Type, tx.Direction)
	}

	safety, err := cash.SafetyBalance(context.Background())
	if err != nil {
		t.Fatalf("safety: %v", err)
	}
	if safety.Cents != -5000 {
		t.Fatalf("safety: got %d, want -5000", safety.Cents)
	}
}

func TestExtraIncomeDefaults(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")

	cash := NewCashService(st, nil)
	tx, err := cash.ExtraIncome(context.Background(), month.ID, "120,50", nil, "", "")
	if err != nil {
		t.Fatalf("extra income: %v", err)
	}
	if tx.Amount.Cents != 12050 {
		t.Fatalf("amount: got %d, want 12050", tx.Amount.Cents)
	}
	if tx.Type != core.TxExtraIncome || tx.Direction != core.DirectionIn {
		t.Fatalf("tx: type=%q direction=%q", tx.Type, tx.Direction)
	}
	if tx.Attribution != core.AttributionHouse {
		t.Fatalf("attribution: got %q, want HOUSE", tx.Attribution)
	}
	if tx.Concept != "Extra income" {
		t.Fatalf("concept: got %q", tx.Concept)
	}
}

func TestExtraIncomeDoesNotTouchSafety(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")

	cash := NewCashService(st, nil)
	if _, err := cash.ExtraIncome(context.Background(), month.ID, "300", nil, "", ""); err != nil {
		t.Fatalf("extra income: %v", err)
	}

	safety, err := cash.SafetyBalance(context.Background())
	if err != nil {
		t.Fatalf("safety: %v", err)
	}
	if safety.Cents != 0 {
		t.Fatalf("safety after extra income: got %d, want 0", safety.Cents)
	}

	bank, err := cash.BankBalance(context.Background(), month.ID)
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	if bank.Cents != 280000 {
		t.Fatalf("bank after extra income: got %d, want 280000", bank.Cents)
	}
}

func TestSafetyHistory(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")

	cash := NewCashService(st, nil)
	if _, err := cash.EmergencyWithdrawal(context.Background(), month.ID, "10", "one"); err != nil {
		t.Fatalf("emergency: %v", err)
	}
	if _, err := cash.EmergencyWithdrawal(context.Background(), month.ID, "20", "two"); err != nil {
		t.Fatalf("emergency: %v", err)
	}
	addExpense(t, st, month.ID, "99", core.MethodCard)

	history, err := cash.SafetyHistory(context.Background(), 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length: got %d, want 2", len(history))
	}
	for _, tx := range history {
		if tx.Type != core.TxEmergencyFromSafety && tx.Type != core.TxConsolidateToSafety {
			t.Fatalf("unexpected type in history: %q", tx.Type)
		}
	}
}
