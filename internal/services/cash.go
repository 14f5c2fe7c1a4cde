package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hucha/internal/core"
	"hucha/internal/storage"
)

// CashService is the reconciliation engine. The three balances it exposes
// are never stored; each call aggregates the live ledger.
type CashService struct {
	store  storage.Store
	events EventPublisher
	now    nowFunc
}

func NewCashService(store storage.Store, events EventPublisher) *CashService {
	return &CashService{store: store, events: events, now: time.Now}
}

// pocketCashBalance is what physically sits in the wallet for a month:
// withdrawals minus cash expenses, returns to bank and cash piggy deposits.
func pocketCashBalance(ctx context.Context, q storage.Querier, monthID int64) (int64, error) {
	withdrawn, err := q.SumByType(ctx, monthID, core.TxCashWithdrawal)
	if err != nil {
		return 0, err
	}
	cashSpent, err := q.SumByTypeAndMethods(ctx, monthID, core.TxExpense, core.MethodCash)
	if err != nil {
		return 0, err
	}
	returned, err := q.SumByType(ctx, monthID, core.TxCashReturn)
	if err != nil {
		return 0, err
	}
	deposited, err := q.SumByTypeAndMethods(ctx, monthID, core.TxPiggyBankDeposit, core.MethodCash)
	if err != nil {
		return 0, err
	}
	return withdrawn - (cashSpent + returned + deposited), nil
}

// bankBalance is the account view: income and inflows minus non-cash
// expenses and withdrawals.
func bankBalance(ctx context.Context, q storage.Querier, month core.Month) (int64, error) {
	extraIncome, err := q.SumByType(ctx, month.ID, core.TxExtraIncome)
	if err != nil {
		return 0, err
	}
	returned, err := q.SumByType(ctx, month.ID, core.TxCashReturn)
	if err != nil {
		return 0, err
	}
	bankSpent, err := q.SumByTypeAndMethods(ctx, month.ID, core.TxExpense, core.MethodCard, core.MethodTransfer)
	if err != nil {
		return 0, err
	}
	withdrawn, err := q.SumByType(ctx, month.ID, core.TxCashWithdrawal)
	if err != nil {
		return 0, err
	}
	return month.Income.Cents + extraIncome + returned - (bankSpent + withdrawn), nil
}

// PocketCashBalance returns the month's current pocket cash in cents.
func (s *CashService) PocketCashBalance(ctx context.Context, monthID int64) (core.Money, error) {
	cents, err := pocketCashBalance(ctx, s.store, monthID)
	return core.Money{Cents: cents}, err
}

// BankBalance returns the month's current bank balance in cents.
func (s *CashService) BankBalance(ctx context.Context, monthID int64) (core.Money, error) {
	month, err := s.store.GetMonth(ctx, monthID)
	if err != nil {
		return core.Money{}, err
	}
	cents, err := bankBalance(ctx, s.store, month)
	return core.Money{Cents: cents}, err
}

// SafetyBalance is global, not month-scoped: consolidations in minus
// emergencies out. Extra income is not a safety inflow. The balance may go
// negative; emergencies are recorded unconditionally.
func (s *CashService) SafetyBalance(ctx context.Context) (core.Money, error) {
	in, err := s.store.SumGlobalByType(ctx, core.TxConsolidateToSafety)
	if err != nil {
		return core.Money{}, err
	}
	out, err := s.store.SumGlobalByType(ctx, core.TxEmergencyFromSafety)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: in - out}, nil
}

// EnsureWeeklyWithdrawal lazily records the week's bank-to-pocket cash
// withdrawal, exactly once. Invoked whenever the current week is resolved;
// the existence check and insert share one transaction, and the partial
// unique index on (week_id, CASH_WITHDRAWAL) closes the remaining race
// window between concurrent readers.
func (s *CashService) EnsureWeeklyWithdrawal(ctx context.Context, week core.Week) error {
	if week.CashWithdraw.Cents <= 0 {
		return nil
	}
	var created int64
	err := s.store.InTx(ctx, func(q storage.Querier) error {
		exists, err := q.HasWeekWithdrawal(ctx, week.ID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		tx := core.Transaction{
			OccurredAt:    week.StartDate.Time,
			Amount:        week.CashWithdraw,
			Direction:     core.DirectionOut,
			Type:          core.TxCashWithdrawal,
			MonthID:       week.MonthID,
			WeekID:        &week.ID,
			Attribution:   core.AttributionHouse,
			PaymentMethod: core.MethodCash,
			Concept:       fmt.Sprintf("Week %d cash withdrawal", week.Index),
		}
		if err := q.InsertTransaction(ctx, &tx); err != nil {
			return err
		}
		created = tx.ID
		return nil
	})
	if errors.Is(err, core.ErrConflict) {
		// A concurrent reader recorded the withdrawal between the existence
		// check and the insert. Same outcome, nothing to surface.
		return nil
	}
	if err != nil {
		return err
	}
	if created != 0 {
		publishSync(ctx, s.events, created, 1)
		slog.InfoContext(ctx, "Weekly cash withdrawal recorded",
			"week_id", week.ID, "amount_cents", week.CashWithdraw.Cents)
	}
	return nil
}

// EmergencyWithdrawal spends from the safety fund. The note is required;
// the fund is allowed to go negative.
func (s *CashService) EmergencyWithdrawal(ctx context.Context, monthID int64, amount, note string) (core.Transaction, error) {
	cents, err := parsePositiveAmount("amount", amount)
	if err != nil {
		return core.Transaction{}, err
	}
	if strings.TrimSpace(note) == "" {
		return core.Transaction{}, fmt.Errorf("%w: emergency withdrawal requires a note", core.ErrValidation)
	}
	if _, err := s.store.GetMonth(ctx, monthID); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		OccurredAt:    s.now(),
		Amount:        core.Money{Cents: cents},
		Direction:     core.DirectionOut,
		Type:          core.TxEmergencyFromSafety,
		MonthID:       monthID,
		Attribution:   core.AttributionHouse,
		PaymentMethod: core.MethodTransfer,
		Concept:       "Safety fund emergency",
		Note:          note,
	}
	if err := s.store.InsertTransaction(ctx, &tx); err != nil {
		return core.Transaction{}, err
	}
	publishSync(ctx, s.events, tx.ID, 1)
	return tx, nil
}

// ExtraIncome records unplanned income for the month. Attribution defaults
// to HOUSE and the concept to a generic label.
func (s *CashService) ExtraIncome(ctx context.Context, monthID int64, amount string, attribution *core.Attribution, concept, note string) (core.Transaction, error) {
	cents, err := parsePositiveAmount("amount", amount)
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.store.GetMonth(ctx, monthID); err != nil {
		return core.Transaction{}, err
	}

	attr := core.AttributionHouse
	if attribution != nil {
		if !attribution.Valid() {
			return core.Transaction{}, fmt.Errorf("%w: unknown attribution %q", core.ErrValidation, *attribution)
		}
		attr = *attribution
	}
	if strings.TrimSpace(concept) == "" {
		concept = "Extra income"
	}

	tx := core.Transaction{
		OccurredAt:    s.now(),
		Amount:        core.Money{Cents: cents},
		Direction:     core.DirectionIn,
		Type:          core.TxExtraIncome,
		MonthID:       monthID,
		Attribution:   attr,
		PaymentMethod: core.MethodTransfer,
		Concept:       concept,
		Note:          note,
	}
	if err := s.store.InsertTransaction(ctx, &tx); err != nil {
		return core.Transaction{}, err
	}
	publishSync(ctx, s.events, tx.ID, 1)
	return tx, nil
}

// SafetyHistory lists the most recent safety fund movements.
func (s *CashService) SafetyHistory(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.store.ListSafetyTransactions(ctx, limit)
}
