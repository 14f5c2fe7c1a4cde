package services

import (
	"context"
	"errors"
	"testing"

	"hucha/internal/core"
)

func TestPiggyBanksAreSeeded(t *testing.T) {
	st := newTestStore(t)
	banks, err := NewPiggyBankService(st, nil).List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(banks) != 2 {
		t.Fatalf("banks: got %d, want 2", len(banks))
	}
	types := map[core.PiggyType]bool{}
	for _, b := range banks {
		types[b.Type] = true
	}
	if !types[core.PiggySmallCoin] || !types[core.PiggyGeneral] {
		t.Fatalf("jar types: %+v", types)
	}
}

func TestDepositWithOpenMonthHitsLedger(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")
	bank, err := st.GetPiggyBankByType(context.Background(), core.PiggyGeneral)
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}

	entry, err := NewPiggyBankService(st, nil).Deposit(context.Background(), bank.ID, "25", "spare change", nil)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if entry.Amount.Cents != 2500 {
		t.Fatalf("entry amount: got %d, want 2500", entry.Amount.Cents)
	}
	if entry.MonthID == nil || *entry.MonthID != month.ID {
		t.Fatalf("entry month: got %v, want %d", entry.MonthID, month.ID)
	}

	if n := countByType(t, st, month.ID, core.TxPiggyBankDeposit); n != 1 {
		t.Fatalf("ledger deposits: got %d, want 1", n)
	}
}

func TestDepositWithoutMonthIsJarOnly(t *testing.T) {
	st := newTestStore(t)
	bank, err := st.GetPiggyBankByType(context.Background(), core.PiggySmallCoin)
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}

	entry, err := NewPiggyBankService(st, nil).Deposit(context.Background(), bank.ID, "5", "", nil)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if entry.MonthID != nil {
		t.Fatalf("entry month: got %v, want nil", entry.MonthID)
	}

	total, err := st.SumGlobalByType(context.Background(), core.TxPiggyBankDeposit)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total != 0 {
		t.Fatalf("ledger deposits without a month: got %d, want 0", total)
	}
}

func TestDepositUnknownJar(t *testing.T) {
	st := newTestStore(t)
	_, err := NewPiggyBankService(st, nil).Deposit(context.Background(), 9999, "5", "", nil)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestPiggyBankTotals(t *testing.T) {
	st := newTestStore(t)
	month, _ := startTestMonth(t, st, "2500", "0")

	svc := NewPiggyBankService(st, nil)
	small, err := st.GetPiggyBankByType(context.Background(), core.PiggySmallCoin)
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	for _, amount := range []string{"2", "3"} {
		if _, err := svc.Deposit(context.Background(), small.ID, amount, "", &month.ID); err != nil {
			t.Fatalf("deposit %s: %v", amount, err)
		}
	}

	totals, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("totals length: got %d, want 2", len(totals))
	}
	for _, tot := range totals {
		want := int64(0)
		if tot.PiggyBank.Type == core.PiggySmallCoin {
			want = 500
		}
		if tot.Total.Cents != want {
			t.Fatalf("jar %s total: got %d, want %d", tot.PiggyBank.Type, tot.Total.Cents, want)
		}
	}
}
