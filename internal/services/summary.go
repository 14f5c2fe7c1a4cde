package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hucha/internal/core"
	"hucha/internal/storage"
)

// SummaryService composes the point-in-time dashboard view from the
// lifecycle state and the reconciliation engine.
type SummaryService struct {
	store storage.Store
	cash  *CashService
	now   nowFunc
}

func NewSummaryService(store storage.Store, cash *CashService) *SummaryService {
	return &SummaryService{store: store, cash: cash, now: time.Now}
}

// Summary is the dashboard aggregate. All balances are derived fresh; the
// split always reports every attribution, zero-filled.
type Summary struct {
	Month             core.Month                 `json:"month"`
	Week              core.Week                  `json:"week"`
	DaysLeft          int                        `json:"days_left"`
	TotalExpenses     core.Money                 `json:"total_expenses"`
	ExtraIncome       core.Money                 `json:"extra_income"`
	RemainingMonth    core.Money                 `json:"remaining_month"`
	DailyBudget       float64                    `json:"daily_budget"`
	WeekSpentCash     core.Money                 `json:"week_spent_cash"`
	WeekRemainingCash core.Money                 `json:"week_remaining_cash"`
	ByAttribution     map[core.Attribution]int64 `json:"by_attribution"`
	BankBalance       core.Money                 `json:"bank_balance"`
	PocketCash        core.Money                 `json:"pocket_cash"`
}

// CurrentWeek resolves the week of the open month containing today,
// falling back to the most recent week by index when today is outside the
// month's recorded range. Resolving the current week lazily records its
// cash withdrawal.
func (s *SummaryService) CurrentWeek(ctx context.Context) (core.Week, error) {
	month, err := s.store.GetOpenMonth(ctx)
	if err != nil {
		return core.Week{}, err
	}
	return s.currentWeekOf(ctx, month)
}

func (s *SummaryService) currentWeekOf(ctx context.Context, month core.Month) (core.Week, error) {
	weeks, err := s.store.ListWeeks(ctx, month.ID)
	if err != nil {
		return core.Week{}, err
	}
	if len(weeks) == 0 {
		return core.Week{}, fmt.Errorf("%w: month has no weeks", core.ErrNotFound)
	}

	today := core.DateOf(s.now())
	current := weeks[len(weeks)-1]
	for _, w := range weeks {
		if w.Contains(today) {
			current = w
			break
		}
	}

	if err := s.cash.EnsureWeeklyWithdrawal(ctx, current); err != nil {
		return core.Week{}, err
	}
	return current, nil
}

// CurrentSummary builds the dashboard for the open month. Returns nil when
// no month is open. Pure read except for the embedded idempotent weekly
// withdrawal.
func (s *SummaryService) CurrentSummary(ctx context.Context) (*Summary, error) {
	month, err := s.store.GetOpenMonth(ctx)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	week, err := s.currentWeekOf(ctx, month)
	if err != nil {
		return nil, err
	}

	totalExpenses, err := s.store.SumByType(ctx, month.ID, core.TxExpense)
	if err != nil {
		return nil, err
	}
	extraIncome, err := s.store.SumByType(ctx, month.ID, core.TxExtraIncome)
	if err != nil {
		return nil, err
	}
	remaining := month.Income.Cents + extraIncome - totalExpenses

	weekSpentCash, err := s.store.SumCashExpensesBetween(ctx, month.ID, week.StartDate, week.EndDate)
	if err != nil {
		return nil, err
	}

	split, err := s.store.SumExpensesByAttribution(ctx, month.ID)
	if err != nil {
		return nil, err
	}
	byAttribution := make(map[core.Attribution]int64, len(core.Attributions))
	for _, a := range core.Attributions {
		byAttribution[a] = split[a]
	}

	today := core.DateOf(s.now())
	daysLeft := int(month.EndDate.Sub(today.Time).Hours()/24) + 1
	if daysLeft < 1 {
		daysLeft = 1
	}

	bank, err := bankBalance(ctx, s.store, month)
	if err != nil {
		return nil, err
	}
	pocket, err := pocketCashBalance(ctx, s.store, month.ID)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Month:             month,
		Week:              week,
		DaysLeft:          daysLeft,
		TotalExpenses:     core.Money{Cents: totalExpenses},
		ExtraIncome:       core.Money{Cents: extraIncome},
		RemainingMonth:    core.Money{Cents: remaining},
		DailyBudget:       core.CentsToAmount(remaining) / float64(daysLeft),
		WeekSpentCash:     core.Money{Cents: weekSpentCash},
		WeekRemainingCash: core.Money{Cents: week.CashWithdraw.Cents - weekSpentCash},
		ByAttribution:     byAttribution,
		BankBalance:       core.Money{Cents: bank},
		PocketCash:        core.Money{Cents: pocket},
	}, nil
}
