// Package storage provides the persistent stores behind the budget ledger.
// Two implementations exist: sqlite (default) and postgres. Both enforce the
// schema-level invariants the domain relies on: a single OPEN month, unique
// (month, week_index) pairs, positive amounts, cascade and set-null rules,
// and at most one cash withdrawal per week.
package storage

import (
	"context"
	"time"

	"hucha/internal/core"
)

// PiggyBankTotal aggregates one jar for the piggy bank summary.
type PiggyBankTotal struct {
	PiggyBank core.PiggyBank `json:"piggy_bank"`
	Total     core.Money     `json:"total"`
	Entries   int            `json:"entries"`
}

// Querier is the set of reads and single-statement writes. It is implemented
// both by a store (auto-commit) and by the transaction handle passed to InTx,
// so domain code composes multi-step operations without caring which it got.
type Querier interface {
	// Months
	InsertMonth(ctx context.Context, m *core.Month) error
	GetMonth(ctx context.Context, id int64) (core.Month, error)
	GetOpenMonth(ctx context.Context) (core.Month, error)
	ListMonths(ctx context.Context) ([]core.Month, error)
	UpdateMonthAmounts(ctx context.Context, id, incomeCents, savingGoalCents, weeklyBudgetCents int64) error
	MarkMonthClosed(ctx context.Context, id int64, closedAt time.Time) error
	DeleteMonth(ctx context.Context, id int64) error

	// Weeks
	InsertWeek(ctx context.Context, w *core.Week) error
	GetWeek(ctx context.Context, id int64) (core.Week, error)
	ListWeeks(ctx context.Context, monthID int64) ([]core.Week, error)
	SetOpenWeekAllotments(ctx context.Context, monthID, cents int64) error
	MarkWeekClosed(ctx context.Context, id int64, closedAt time.Time) error
	AddWeekCashReturned(ctx context.Context, id, cents int64) error

	// Categories
	ListCategories(ctx context.Context, activeOnly bool) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)

	// Piggy banks
	ListPiggyBanks(ctx context.Context) ([]core.PiggyBank, error)
	GetPiggyBank(ctx context.Context, id int64) (core.PiggyBank, error)
	GetPiggyBankByType(ctx context.Context, t core.PiggyType) (core.PiggyBank, error)
	InsertPiggyBankEntry(ctx context.Context, e *core.PiggyBankEntry) error
	ListPiggyBankEntries(ctx context.Context, piggyBankID int64) ([]core.PiggyBankEntry, error)
	PiggyBankTotals(ctx context.Context) ([]PiggyBankTotal, error)

	// Ledger
	InsertTransaction(ctx context.Context, t *core.Transaction) error
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, monthID int64) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	ListSafetyTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	HasWeekWithdrawal(ctx context.Context, weekID int64) (bool, error)

	// Ledger aggregates, always computed fresh from the live rows.
	SumByType(ctx context.Context, monthID int64, t core.TxType) (int64, error)
	SumByTypeAndMethods(ctx context.Context, monthID int64, t core.TxType, methods ...core.PaymentMethod) (int64, error)
	SumGlobalByType(ctx context.Context, t core.TxType) (int64, error)
	SumCashExpensesBetween(ctx context.Context, monthID int64, from, to core.Date) (int64, error)
	SumExpensesByAttribution(ctx context.Context, monthID int64) (map[core.Attribution]int64, error)

	// Mirror sync bookkeeping
	ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkTransactionSynced(ctx context.Context, id int64) error
}

// Store is a Querier that can also open an explicit transaction scope.
// InTx begins a transaction, runs fn against it and commits; any error from
// fn (or the commit) rolls everything back before it propagates.
type Store interface {
	Querier
	InTx(ctx context.Context, fn func(q Querier) error) error
	Close() error
}
