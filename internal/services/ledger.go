package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hucha/internal/core"
	"hucha/internal/storage"
)

// LedgerService handles user-entered transactions. Lifecycle-generated
// entries (withdrawals, returns, consolidations) are written by their own
// services; this one covers manual create/edit/delete.
type LedgerService struct {
	store  storage.Store
	events EventPublisher
	now    nowFunc
}

func NewLedgerService(store storage.Store, events EventPublisher) *LedgerService {
	return &LedgerService{store: store, events: events, now: time.Now}
}

// CreateTransactionInput carries a new ledger entry. Type defaults to
// EXPENSE and attribution to HOUSE; direction is always derived from the
// type, never accepted from the caller.
type CreateTransactionInput struct {
	MonthID       int64
	WeekID        *int64
	CategoryID    *int64
	Amount        string
	Type          *core.TxType
	Attribution   *core.Attribution
	PaymentMethod core.PaymentMethod
	Concept       string
	Note          string
	OccurredAt    *time.Time
}

func (s *LedgerService) Create(ctx context.Context, in CreateTransactionInput) (core.Transaction, error) {
	cents, err := parsePositiveAmount("amount", in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	txType := core.TxExpense
	if in.Type != nil {
		txType = *in.Type
	}
	attr := core.AttributionHouse
	if in.Attribution != nil {
		attr = *in.Attribution
	}
	occurred := s.now()
	if in.OccurredAt != nil {
		occurred = *in.OccurredAt
	}

	tx := core.Transaction{
		OccurredAt:    occurred,
		Amount:        core.Money{Cents: cents},
		Direction:     txType.Direction(),
		Type:          txType,
		MonthID:       in.MonthID,
		WeekID:        in.WeekID,
		CategoryID:    in.CategoryID,
		Attribution:   attr,
		PaymentMethod: in.PaymentMethod,
		Concept:       in.Concept,
		Note:          in.Note,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if _, err := s.store.GetMonth(ctx, in.MonthID); err != nil {
		return core.Transaction{}, err
	}
	if in.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, *in.CategoryID); err != nil {
			return core.Transaction{}, err
		}
	}
	if in.WeekID != nil {
		week, err := s.store.GetWeek(ctx, *in.WeekID)
		if err != nil {
			return core.Transaction{}, err
		}
		if week.MonthID != in.MonthID {
			return core.Transaction{}, fmt.Errorf("%w: week belongs to another month", core.ErrValidation)
		}
	}

	if err := s.store.InsertTransaction(ctx, &tx); err != nil {
		return core.Transaction{}, err
	}
	publishSync(ctx, s.events, tx.ID, 1)
	return tx, nil
}

// UpdateTransactionInput patches an existing entry. Nil fields keep their
// current value; type, direction and owning month are immutable.
type UpdateTransactionInput struct {
	Amount        *string
	CategoryID    *int64
	Attribution   *core.Attribution
	PaymentMethod *core.PaymentMethod
	Concept       *string
	Note          *string
	OccurredAt    *time.Time
}

func (s *LedgerService) Update(ctx context.Context, id int64, in UpdateTransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	err := s.store.InTx(ctx, func(q storage.Querier) error {
		var err error
		tx, err = q.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		if in.Amount != nil {
			cents, err := parsePositiveAmount("amount", *in.Amount)
			if err != nil {
				return err
			}
			tx.Amount.Cents = cents
		}
		if in.CategoryID != nil {
			if _, err := q.GetCategory(ctx, *in.CategoryID); err != nil {
				return err
			}
			tx.CategoryID = in.CategoryID
		}
		if in.Attribution != nil {
			tx.Attribution = *in.Attribution
		}
		if in.PaymentMethod != nil {
			tx.PaymentMethod = *in.PaymentMethod
		}
		if in.Concept != nil {
			tx.Concept = *in.Concept
		}
		if in.Note != nil {
			tx.Note = *in.Note
		}
		if in.OccurredAt != nil {
			tx.OccurredAt = *in.OccurredAt
		}

		if err := tx.Validate(); err != nil {
			return err
		}
		return q.UpdateTransaction(ctx, tx)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	publishSync(ctx, s.events, tx.ID, 2)
	return tx, nil
}

func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *LedgerService) List(ctx context.Context, monthID int64) ([]core.Transaction, error) {
	if _, err := s.store.GetMonth(ctx, monthID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, monthID)
}
