package core

import (
	"errors"
	"testing"
	"time"
)

func TestTxTypeDirection(t *testing.T) {
	cases := []struct {
		tt   TxType
		want Direction
	}{
		{TxExpense, DirectionOut},
		{TxExtraIncome, DirectionIn},
		{TxCashWithdrawal, DirectionOut},
		{TxCashReturn, DirectionIn},
		{TxConsolidateToSafety, DirectionIn},
		{TxEmergencyFromSafety, DirectionOut},
		{TxPiggyBankDeposit, DirectionOut},
	}
	for _, tc := range cases {
		if got := tc.tt.Direction(); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.tt, tc.want, got)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	catID := int64(1)
	good := Transaction{
		OccurredAt:    time.Now(),
		Amount:        Money{Cents: 1234},
		Direction:     DirectionOut,
		Type:          TxExpense,
		MonthID:       1,
		CategoryID:    &catID,
		Attribution:   AttributionHouse,
		PaymentMethod: MethodCard,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	bads := []Transaction{
		func(tx Transaction) Transaction { tx.Amount.Cents = 0; return tx }(good),
		func(tx Transaction) Transaction { tx.Amount.Cents = -5; return tx }(good),
		func(tx Transaction) Transaction { tx.Type = "BOGUS"; return tx }(good),
		func(tx Transaction) Transaction { tx.Direction = DirectionIn; return tx }(good), // expense must be OUT
		func(tx Transaction) Transaction { tx.CategoryID = nil; return tx }(good),        // expense needs category
		func(tx Transaction) Transaction { tx.Attribution = "THEIRS"; return tx }(good),
		func(tx Transaction) Transaction { tx.PaymentMethod = "CHEQUE"; return tx }(good),
		func(tx Transaction) Transaction { tx.MonthID = 0; return tx }(good),
	}
	for i, tx := range bads {
		err := tx.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestAttributionsClosedSet(t *testing.T) {
	if len(Attributions) != 3 {
		t.Fatalf("expected 3 attributions, got %d", len(Attributions))
	}
	for _, a := range Attributions {
		if !a.Valid() {
			t.Fatalf("%s should be valid", a)
		}
	}
}

func TestWeekContains(t *testing.T) {
	w := Week{StartDate: NewDate(2025, 6, 2), EndDate: NewDate(2025, 6, 8)}
	if !w.Contains(NewDate(2025, 6, 2)) || !w.Contains(NewDate(2025, 6, 8)) || !w.Contains(NewDate(2025, 6, 5)) {
		t.Fatalf("week should contain its boundary and interior days")
	}
	if w.Contains(NewDate(2025, 6, 1)) || w.Contains(NewDate(2025, 6, 9)) {
		t.Fatalf("week should not contain days outside its range")
	}
}
