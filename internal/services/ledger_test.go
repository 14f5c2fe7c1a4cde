package services

import (
	"context"
	"errors"
	"testing"

	"hucha/internal/core"
)

func TestCreateTransactionDefaults(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")
	cat := firstCategory(t, st)

	tx, err := NewLedgerService(st, nil).Create(context.Background(), CreateTransactionInput{
		MonthID:       month.ID,
		CategoryID:    &cat.ID,
		Amount:        "12,34",
		PaymentMethod: core.MethodCard,
		Concept:       "groceries",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.ID == 0 {
		t.Fatal("transaction id not set")
	}
	if tx.Type != core.TxExpense {
		t.Fatalf("type default: got %q, want EXPENSE", tx.Type)
	}
	if tx.Direction != core.DirectionOut {
		t.Fatalf("direction: got %q, want OUT", tx.Direction)
	}
	if tx.Attribution != core.AttributionHouse {
		t.Fatalf("attribution default: got %q, want HOUSE", tx.Attribution)
	}
	if tx.Amount.Cents != 1234 {
		t.Fatalf("amount: got %d, want 1234", tx.Amount.Cents)
	}
}

func TestCreateExpenseRequiresCategory(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")

	_, err := NewLedgerService(st, nil).Create(context.Background(), CreateTransactionInput{
		MonthID:       month.ID,
		Amount:        "10",
		PaymentMethod: core.MethodCard,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestCreateRejectsUnknownReferences(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")
	cat := firstCategory(t, st)

	svc := NewLedgerService(st, nil)
	_, err := svc.Create(context.Background(), CreateTransactionInput{
		MonthID:       9999,
		CategoryID:    &cat.ID,
		Amount:        "10",
		PaymentMethod: core.MethodCard,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown month: want not found, got %v", err)
	}

	badCat := int64(9999)
	_, err = svc.Create(context.Background(), CreateTransactionInput{
		MonthID:       month.ID,
		CategoryID:    &badCat,
		Amount:        "10",
		PaymentMethod: core.MethodCard,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown category: want not found, got %v", err)
	}
}

func TestCreateRejectsWeekFromAnotherMonth(t *testing.T) {
	st := newTestStore(t)
	month, weeks := startTestMonth(t, st, "2500", "0")
	cat := firstCategory(t, st)

	svc := NewLifecycleService(st, nil)
	if _, err := svc.CloseMonth(context.Background(), month.ID); err != nil {
		t.Fatalf("close month: %v", err)
	}
	start := mustDate(t, "2025-07-01")
	other, _, err := svc.StartMonth(context.Background(), StartMonthInput{
		Income: "2500", SavingGoal: "0", WeeklyBudget: "0", StartDate: &start,
	})
	if err != nil {
		t.Fatalf("start second month: %v", err)
	}

	_, err = NewLedgerService(st, nil).Create(context.Background(), CreateTransactionInput{
		MonthID:       other.ID,
		WeekID:        &weeks[0].ID,
		CategoryID:    &cat.ID,
		Amount:        "10",
		PaymentMethod: core.MethodCard,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestUpdateTransactionPartialPatch(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")
	tx := addExpense(t, st, month.ID, "40", core.MethodCard)

	svc := NewLedgerService(st, nil)
	updated, err := svc.Update(context.Background(), tx.ID, UpdateTransactionInput{
		Amount: ptr("55,50"),
		Note:   ptr("corrected"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount.Cents != 5550 {
		t.Fatalf("amount: got %d, want 5550", updated.Amount.Cents)
	}
	if updated.Note != "corrected" {
		t.Fatalf("note: got %q", updated.Note)
	}
	// Untouched fields keep their values.
	if updated.PaymentMethod != core.MethodCard || updated.Concept != tx.Concept {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if updated.Type != core.TxExpense || updated.Direction != core.DirectionOut {
		t.Fatalf("type or direction changed: %+v", updated)
	}
}

func TestUpdateTransactionRejectsBadAmount(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")
	tx := addExpense(t, st, month.ID, "40", core.MethodCard)

	_, err := NewLedgerService(st, nil).Update(context.Background(), tx.ID, UpdateTransactionInput{
		Amount: ptr("0"),
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}

	got, err := st.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount.Cents != 4000 {
		t.Fatalf("amount after failed update: got %d, want 4000", got.Amount.Cents)
	}
}

func TestDeleteTransaction(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")
	tx := addExpense(t, st, month.ID, "40", core.MethodCard)

	svc := NewLedgerService(st, nil)
	if err := svc.Delete(context.Background(), tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get after delete: want not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: want not found, got %v", err)
	}
}

func TestDeletedExpenseLeavesBalances(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")
	tx := addExpense(t, st, month.ID, "40", core.MethodCard)

	if err := NewLedgerService(st, nil).Delete(context.Background(), tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	bank, err := NewCashService(st, nil).BankBalance(context.Background(), month.ID)
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	if bank.Cents != 250000 {
		t.Fatalf("bank after delete: got %d, want 250000", bank.Cents)
	}
}
