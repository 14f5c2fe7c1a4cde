package core

import (
	"fmt"
	"strings"
	"time"
)

// Status of a month or week lifecycle. Transitions are one-way.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Direction of a ledger movement. The amount itself is always positive.
type Direction string

const (
	DirectionOut Direction = "OUT"
	DirectionIn  Direction = "IN"
)

// TxType is the closed enumeration of ledger entry types.
type TxType string

const (
	TxExpense             TxType = "EXPENSE"
	TxExtraIncome         TxType = "EXTRA_INCOME"
	TxCashWithdrawal      TxType = "CASH_WITHDRAWAL"
	TxCashReturn          TxType = "CASH_RETURN"
	TxConsolidateToSafety TxType = "CONSOLIDATE_TO_SAFETY"
	TxEmergencyFromSafety TxType = "EMERGENCY_FROM_SAFETY"
	TxPiggyBankDeposit    TxType = "PIGGYBANK_DEPOSIT"
)

// Direction returns the canonical direction for the type.
func (t TxType) Direction() Direction {
	switch t {
	case TxExtraIncome, TxCashReturn, TxConsolidateToSafety:
		return DirectionIn
	default:
		return DirectionOut
	}
}

// Valid reports whether t is one of the known ledger types.
func (t TxType) Valid() bool {
	switch t {
	case TxExpense, TxExtraIncome, TxCashWithdrawal, TxCashReturn,
		TxConsolidateToSafety, TxEmergencyFromSafety, TxPiggyBankDeposit:
		return true
	}
	return false
}

// Attribution assigns an expense or income to a party of the household.
type Attribution string

const (
	AttributionMine    Attribution = "MINE"
	AttributionPartner Attribution = "PARTNER"
	AttributionHouse   Attribution = "HOUSE"
)

// Attributions is the fixed closed set, in reporting order. Splits always
// report every member, zero-filled.
var Attributions = []Attribution{AttributionMine, AttributionPartner, AttributionHouse}

func (a Attribution) Valid() bool {
	switch a {
	case AttributionMine, AttributionPartner, AttributionHouse:
		return true
	}
	return false
}

// PaymentMethod distinguishes cash movements from bank movements.
type PaymentMethod string

const (
	MethodCard     PaymentMethod = "CARD"
	MethodCash     PaymentMethod = "CASH"
	MethodTransfer PaymentMethod = "TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodCash, MethodTransfer:
		return true
	}
	return false
}

// PiggyType tags the two fixed savings jars.
type PiggyType string

const (
	PiggySmallCoin PiggyType = "small-coin"
	PiggyGeneral   PiggyType = "general"
)

// Month is one active budgeting period. At most one month is OPEN at any
// time; the store enforces this with a partial unique index.
type Month struct {
	ID           int64      `json:"id"`
	PeriodKey    string     `json:"period_key"`
	StartDate    Date       `json:"start_date"`
	EndDate      Date       `json:"end_date"`
	Income       Money      `json:"income"`
	WeeklyBudget Money      `json:"weekly_budget"`
	SavingGoal   Money      `json:"saving_goal"`
	Status       Status     `json:"status"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// Week is one Monday-to-Sunday slice of a month, clipped to the month's
// range. (MonthID, Index) is unique; all weeks of a month are created
// together when the month starts.
type Week struct {
	ID           int64      `json:"id"`
	MonthID      int64      `json:"month_id"`
	Index        int        `json:"week_index"`
	StartDate    Date       `json:"start_date"`
	EndDate      Date       `json:"end_date"`
	CashWithdraw Money      `json:"cash_withdraw"`
	CashReturned Money      `json:"cash_returned"`
	Status       Status     `json:"status"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// Contains reports whether the day falls inside the week's range, inclusive.
func (w Week) Contains(d Date) bool {
	return !d.Before(w.StartDate) && !d.After(w.EndDate)
}

// Category is a named expense bucket, soft-deletable via the active flag.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// PiggyBank is one of the two fixed savings jars. Never created or deleted
// by users; seeded by migration.
type PiggyBank struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	Type PiggyType `json:"type"`
}

// PiggyBankEntry is an immutable deposit record. MonthID is kept for
// traceability and nulled if the month is deleted.
type PiggyBankEntry struct {
	ID          int64     `json:"id"`
	PiggyBankID int64     `json:"piggy_bank_id"`
	Amount      Money     `json:"amount"`
	Note        string    `json:"note,omitempty"`
	MonthID     *int64    `json:"month_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transaction is the ledger entry, the single source of truth for every
// derived balance. Amounts are strictly positive; direction is separate.
type Transaction struct {
	ID            int64         `json:"id"`
	OccurredAt    time.Time     `json:"occurred_at"`
	Amount        Money         `json:"amount"`
	Direction     Direction     `json:"direction"`
	Type          TxType        `json:"type"`
	MonthID       int64         `json:"month_id"`
	WeekID        *int64        `json:"week_id,omitempty"`
	CategoryID    *int64        `json:"category_id,omitempty"`
	Attribution   Attribution   `json:"attribution"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Concept       string        `json:"concept,omitempty"`
	Note          string        `json:"note,omitempty"`
}

// Validate checks the ledger invariants before an insert or update.
func (t Transaction) Validate() error {
	if t.Amount.Cents <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", ErrValidation, t.Type)
	}
	if t.Direction != t.Type.Direction() {
		return fmt.Errorf("%w: direction %q does not match type %q", ErrValidation, t.Direction, t.Type)
	}
	if !t.Attribution.Valid() {
		return fmt.Errorf("%w: unknown attribution %q", ErrValidation, t.Attribution)
	}
	if !t.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, t.PaymentMethod)
	}
	if t.Type == TxExpense && t.CategoryID == nil {
		return fmt.Errorf("%w: expense requires a category", ErrValidation)
	}
	if t.MonthID == 0 {
		return fmt.Errorf("%w: transaction requires a month", ErrValidation)
	}
	if len(strings.TrimSpace(t.Concept)) > 200 {
		return fmt.Errorf("%w: concept too long (max 200 characters)", ErrValidation)
	}
	return nil
}
