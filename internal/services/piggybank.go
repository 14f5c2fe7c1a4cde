package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hucha/internal/core"
	"hucha/internal/storage"
)

// PiggyBankService manages deposits into the two fixed savings jars.
type PiggyBankService struct {
	store  storage.Store
	events EventPublisher
	now    nowFunc
}

func NewPiggyBankService(store storage.Store, events EventPublisher) *PiggyBankService {
	return &PiggyBankService{store: store, events: events, now: time.Now}
}

func (s *PiggyBankService) List(ctx context.Context) ([]core.PiggyBank, error) {
	return s.store.ListPiggyBanks(ctx)
}

func (s *PiggyBankService) Entries(ctx context.Context, piggyBankID int64) ([]core.PiggyBankEntry, error) {
	if _, err := s.store.GetPiggyBank(ctx, piggyBankID); err != nil {
		return nil, err
	}
	return s.store.ListPiggyBankEntries(ctx, piggyBankID)
}

func (s *PiggyBankService) Summary(ctx context.Context) ([]storage.PiggyBankTotal, error) {
	return s.store.PiggyBankTotals(ctx)
}

// Deposit records a deposit outside of week close. When a month can be
// resolved (explicitly or via the open month) the deposit also hits the
// ledger as a cash movement out of the pocket; with no month in play only
// the jar entry is written, since ledger rows are always month-owned.
func (s *PiggyBankService) Deposit(ctx context.Context, piggyBankID int64, amount, note string, monthID *int64) (core.PiggyBankEntry, error) {
	cents, err := parsePositiveAmount("amount", amount)
	if err != nil {
		return core.PiggyBankEntry{}, err
	}

	var entry core.PiggyBankEntry
	var createdTx int64
	err = s.store.InTx(ctx, func(q storage.Querier) error {
		bank, err := q.GetPiggyBank(ctx, piggyBankID)
		if err != nil {
			return err
		}

		owner := monthID
		if owner == nil {
			if open, err := q.GetOpenMonth(ctx); err == nil {
				owner = &open.ID
			} else if !errors.Is(err, core.ErrNotFound) {
				return err
			}
		} else {
			if _, err := q.GetMonth(ctx, *owner); err != nil {
				return err
			}
		}

		entry = core.PiggyBankEntry{
			PiggyBankID: piggyBankID,
			Amount:      core.Money{Cents: cents},
			Note:        note,
			MonthID:     owner,
			CreatedAt:   s.now(),
		}
		if err := q.InsertPiggyBankEntry(ctx, &entry); err != nil {
			return err
		}

		if owner != nil {
			tx := core.Transaction{
				OccurredAt:    entry.CreatedAt,
				Amount:        core.Money{Cents: cents},
				Direction:     core.DirectionOut,
				Type:          core.TxPiggyBankDeposit,
				MonthID:       *owner,
				Attribution:   core.AttributionHouse,
				PaymentMethod: core.MethodCash,
				Concept:       fmt.Sprintf("Deposit to %s", bank.Name),
				Note:          note,
			}
			if err := q.InsertTransaction(ctx, &tx); err != nil {
				return err
			}
			createdTx = tx.ID
		}
		return nil
	})
	if err != nil {
		return core.PiggyBankEntry{}, err
	}

	if createdTx != 0 {
		publishSync(ctx, s.events, createdTx, 1)
	}
	slog.InfoContext(ctx, "Piggy bank deposit",
		"piggy_bank_id", piggyBankID, "amount_cents", cents)
	return entry, nil
}
