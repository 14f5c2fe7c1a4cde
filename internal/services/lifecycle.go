package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hucha/internal/core"
	"hucha/internal/storage"
)

// LifecycleService owns the month and week state machines: starting a month
// with its week partition, closing weeks with cash distribution, and closing
// months with leftover consolidation.
type LifecycleService struct {
	store  storage.Store
	events EventPublisher
	now    nowFunc
}

func NewLifecycleService(store storage.Store, events EventPublisher) *LifecycleService {
	return &LifecycleService{store: store, events: events, now: time.Now}
}

// StartMonthInput carries the raw amounts as entered by the user.
type StartMonthInput struct {
	Income       string
	SavingGoal   string
	WeeklyBudget string
	StartDate    *core.Date
}

// StartMonth opens a new budgeting period and creates all of its weeks
// atomically: either the month and every week exist, or nothing does.
// Fails with a conflict if a month is already open; the partial unique
// index on months(status) backs the in-transaction check.
func (s *LifecycleService) StartMonth(ctx context.Context, in StartMonthInput) (core.Month, []core.Week, error) {
	income, err := parsePositiveAmount("income", in.Income)
	if err != nil {
		return core.Month{}, nil, err
	}
	savingGoal, err := parseNonNegativeAmount("saving goal", in.SavingGoal)
	if err != nil {
		return core.Month{}, nil, err
	}
	weeklyBudget, err := parseNonNegativeAmount("weekly budget", in.WeeklyBudget)
	if err != nil {
		return core.Month{}, nil, err
	}

	start := core.DateOf(s.now())
	if in.StartDate != nil && !in.StartDate.IsZero() {
		start = *in.StartDate
	}
	end := core.MonthEnd(start)

	month := core.Month{
		PeriodKey:    core.PeriodKey(start),
		StartDate:    start,
		EndDate:      end,
		Income:       core.Money{Cents: income},
		WeeklyBudget: core.Money{Cents: weeklyBudget},
		SavingGoal:   core.Money{Cents: savingGoal},
		Status:       core.StatusOpen,
	}

	var weeks []core.Week
	err = s.store.InTx(ctx, func(q storage.Querier) error {
		if _, err := q.GetOpenMonth(ctx); err == nil {
			return fmt.Errorf("%w: a month is already open", core.ErrConflict)
		}
		if err := q.InsertMonth(ctx, &month); err != nil {
			return err
		}
		for _, span := range core.PartitionWeeks(start, end) {
			w := core.Week{
				MonthID:      month.ID,
				Index:        span.Index,
				StartDate:    span.Start,
				EndDate:      span.End,
				CashWithdraw: core.Money{Cents: weeklyBudget},
				Status:       core.StatusOpen,
			}
			if err := q.InsertWeek(ctx, &w); err != nil {
				return err
			}
			weeks = append(weeks, w)
		}
		return nil
	})
	if err != nil {
		return core.Month{}, nil, err
	}

	slog.InfoContext(ctx, "Month started",
		"id", month.ID, "period_key", month.PeriodKey, "weeks", len(weeks))
	return month, weeks, nil
}

// CloseMonthResult reports the totals computed while closing.
type CloseMonthResult struct {
	Month         core.Month `json:"month"`
	TotalExpenses core.Money `json:"total_expenses"`
	ExtraIncome   core.Money `json:"extra_income"`
	TotalIncome   core.Money `json:"total_income"`
	Remainder     core.Money `json:"remainder"`
	Consolidated  core.Money `json:"consolidated"`
}

// CloseMonth ends the period: any positive leftover (income plus extra
// income minus expenses) is consolidated to the safety fund as one ledger
// entry, then the month transitions to CLOSED. One-way, all in one
// transaction.
func (s *LifecycleService) CloseMonth(ctx context.Context, monthID int64) (CloseMonthResult, error) {
	var result CloseMonthResult
	var consolidatedID int64

	err := s.store.InTx(ctx, func(q storage.Querier) error {
		month, err := q.GetMonth(ctx, monthID)
		if err != nil {
			return err
		}
		if month.Status != core.StatusOpen {
			return fmt.Errorf("%w: month is not open", core.ErrConflict)
		}

		totalExpenses, err := q.SumByType(ctx, monthID, core.TxExpense)
		if err != nil {
			return err
		}
		extraIncome, err := q.SumByType(ctx, monthID, core.TxExtraIncome)
		if err != nil {
			return err
		}

		totalIncome := month.Income.Cents + extraIncome
		remainder := totalIncome - totalExpenses
		toConsolidate := remainder
		if toConsolidate < 0 {
			toConsolidate = 0
		}

		now := s.now()
		if toConsolidate > 0 {
			tx := core.Transaction{
				OccurredAt:    now,
				Amount:        core.Money{Cents: toConsolidate},
				Direction:     core.DirectionIn,
				Type:          core.TxConsolidateToSafety,
				MonthID:       monthID,
				Attribution:   core.AttributionHouse,
				PaymentMethod: core.MethodTransfer,
				Concept:       "Month close consolidation",
			}
			if err := q.InsertTransaction(ctx, &tx); err != nil {
				return err
			}
			consolidatedID = tx.ID
		}

		if err := q.MarkMonthClosed(ctx, monthID, now); err != nil {
			return err
		}
		month, err = q.GetMonth(ctx, monthID)
		if err != nil {
			return err
		}

		result = CloseMonthResult{
			Month:         month,
			TotalExpenses: core.Money{Cents: totalExpenses},
			ExtraIncome:   core.Money{Cents: extraIncome},
			TotalIncome:   core.Money{Cents: totalIncome},
			Remainder:     core.Money{Cents: remainder},
			Consolidated:  core.Money{Cents: toConsolidate},
		}
		return nil
	})
	if err != nil {
		return CloseMonthResult{}, err
	}

	if consolidatedID != 0 {
		publishSync(ctx, s.events, consolidatedID, 1)
	}
	slog.InfoContext(ctx, "Month closed",
		"id", monthID, "consolidated_cents", result.Consolidated.Cents)
	return result, nil
}

// CloseWeekInput carries the raw amounts to distribute at week close.
// Missing or unparseable amounts count as zero.
type CloseWeekInput struct {
	SmallCoin    *string
	General      *string
	ReturnToBank *string
	Note         string
}

// CloseWeekResult reports what moved where.
type CloseWeekResult struct {
	Week             core.Week  `json:"week"`
	PocketBefore     core.Money `json:"pocket_before"`
	PocketAfter      core.Money `json:"pocket_after"`
	DepositSmallCoin core.Money `json:"deposit_small_coin"`
	DepositGeneral   core.Money `json:"deposit_general"`
	ReturnedToBank   core.Money `json:"returned_to_bank"`
}

// CloseWeek distributes the week's leftover pocket cash into the two piggy
// banks and/or back to the bank, then closes the week. The total moved must
// be positive and must not exceed the month's current pocket-cash balance.
func (s *LifecycleService) CloseWeek(ctx context.Context, weekID int64, in CloseWeekInput) (CloseWeekResult, error) {
	smallCoin := parseAmountOrZero(in.SmallCoin)
	general := parseAmountOrZero(in.General)
	returnToBank := parseAmountOrZero(in.ReturnToBank)
	total := smallCoin + general + returnToBank
	if total <= 0 {
		return CloseWeekResult{}, fmt.Errorf("%w: nothing to distribute", core.ErrValidation)
	}

	var result CloseWeekResult
	var createdIDs []int64

	err := s.store.InTx(ctx, func(q storage.Querier) error {
		week, err := q.GetWeek(ctx, weekID)
		if err != nil {
			return err
		}
		if week.Status != core.StatusOpen {
			return fmt.Errorf("%w: week is not open", core.ErrConflict)
		}

		pocket, err := pocketCashBalance(ctx, q, week.MonthID)
		if err != nil {
			return err
		}
		if total > pocket {
			return fmt.Errorf("%w: insufficient pocket cash (%d > %d)", core.ErrValidation, total, pocket)
		}

		now := s.now()
		deposits := []struct {
			jar   core.PiggyType
			cents int64
		}{
			{core.PiggySmallCoin, smallCoin},
			{core.PiggyGeneral, general},
		}
		for _, d := range deposits {
			if d.cents <= 0 {
				continue
			}
			bank, err := q.GetPiggyBankByType(ctx, d.jar)
			if err != nil {
				return err
			}
			entry := core.PiggyBankEntry{
				PiggyBankID: bank.ID,
				Amount:      core.Money{Cents: d.cents},
				Note:        in.Note,
				MonthID:     &week.MonthID,
				CreatedAt:   now,
			}
			if err := q.InsertPiggyBankEntry(ctx, &entry); err != nil {
				return err
			}
			tx := core.Transaction{
				OccurredAt:    now,
				Amount:        core.Money{Cents: d.cents},
				Direction:     core.DirectionOut,
				Type:          core.TxPiggyBankDeposit,
				MonthID:       week.MonthID,
				WeekID:        &weekID,
				Attribution:   core.AttributionHouse,
				PaymentMethod: core.MethodCash,
				Concept:       fmt.Sprintf("Week %d close deposit to %s", week.Index, bank.Name),
				Note:          in.Note,
			}
			if err := q.InsertTransaction(ctx, &tx); err != nil {
				return err
			}
			createdIDs = append(createdIDs, tx.ID)
		}

		if returnToBank > 0 {
			if err := q.AddWeekCashReturned(ctx, weekID, returnToBank); err != nil {
				return err
			}
			tx := core.Transaction{
				OccurredAt:    now,
				Amount:        core.Money{Cents: returnToBank},
				Direction:     core.DirectionIn,
				Type:          core.TxCashReturn,
				MonthID:       week.MonthID,
				WeekID:        &weekID,
				Attribution:   core.AttributionHouse,
				PaymentMethod: core.MethodCash,
				Concept:       fmt.Sprintf("Week %d close return to bank", week.Index),
				Note:          in.Note,
			}
			if err := q.InsertTransaction(ctx, &tx); err != nil {
				return err
			}
			createdIDs = append(createdIDs, tx.ID)
		}

		if err := q.MarkWeekClosed(ctx, weekID, now); err != nil {
			return err
		}
		week, err = q.GetWeek(ctx, weekID)
		if err != nil {
			return err
		}

		result = CloseWeekResult{
			Week:             week,
			PocketBefore:     core.Money{Cents: pocket},
			PocketAfter:      core.Money{Cents: pocket - total},
			DepositSmallCoin: core.Money{Cents: smallCoin},
			DepositGeneral:   core.Money{Cents: general},
			ReturnedToBank:   core.Money{Cents: returnToBank},
		}
		return nil
	})
	if err != nil {
		return CloseWeekResult{}, err
	}

	for _, id := range createdIDs {
		publishSync(ctx, s.events, id, 1)
	}
	slog.InfoContext(ctx, "Week closed",
		"id", weekID, "moved_cents", total,
		"small_coin_cents", smallCoin, "general_cents", general, "returned_cents", returnToBank)
	return result, nil
}

// CashReturn records a standalone pocket-to-bank return outside week close.
func (s *LifecycleService) CashReturn(ctx context.Context, weekID int64, amount string) (core.Week, core.Transaction, error) {
	cents, err := parsePositiveAmount("amount", amount)
	if err != nil {
		return core.Week{}, core.Transaction{}, err
	}

	var week core.Week
	var tx core.Transaction
	err = s.store.InTx(ctx, func(q storage.Querier) error {
		var err error
		week, err = q.GetWeek(ctx, weekID)
		if err != nil {
			return err
		}
		if week.Status != core.StatusOpen {
			return fmt.Errorf("%w: week is not open", core.ErrConflict)
		}
		pocket, err := pocketCashBalance(ctx, q, week.MonthID)
		if err != nil {
			return err
		}
		if cents > pocket {
			return fmt.Errorf("%w: insufficient pocket cash (%d > %d)", core.ErrValidation, cents, pocket)
		}
		if err := q.AddWeekCashReturned(ctx, weekID, cents); err != nil {
			return err
		}
		tx = core.Transaction{
			OccurredAt:    s.now(),
			Amount:        core.Money{Cents: cents},
			Direction:     core.DirectionIn,
			Type:          core.TxCashReturn,
			MonthID:       week.MonthID,
			WeekID:        &weekID,
			Attribution:   core.AttributionHouse,
			PaymentMethod: core.MethodCash,
			Concept:       fmt.Sprintf("Week %d cash return", week.Index),
		}
		if err := q.InsertTransaction(ctx, &tx); err != nil {
			return err
		}
		week, err = q.GetWeek(ctx, weekID)
		return err
	})
	if err != nil {
		return core.Week{}, core.Transaction{}, err
	}

	publishSync(ctx, s.events, tx.ID, 1)
	return week, tx, nil
}

// UpdateMonth patches the month's amounts. A changed weekly budget
// propagates to the cash allotment of OPEN weeks only; CLOSED weeks keep
// their historical allotment.
func (s *LifecycleService) UpdateMonth(ctx context.Context, monthID int64, income, savingGoal, weeklyBudget *string) (core.Month, error) {
	if income == nil && savingGoal == nil && weeklyBudget == nil {
		return core.Month{}, fmt.Errorf("%w: nothing to update", core.ErrValidation)
	}

	var month core.Month
	err := s.store.InTx(ctx, func(q storage.Querier) error {
		var err error
		month, err = q.GetMonth(ctx, monthID)
		if err != nil {
			return err
		}

		incomeCents := month.Income.Cents
		savingCents := month.SavingGoal.Cents
		weeklyCents := month.WeeklyBudget.Cents

		if income != nil {
			if incomeCents, err = parseNonNegativeAmount("income", *income); err != nil {
				return err
			}
		}
		if savingGoal != nil {
			if savingCents, err = parseNonNegativeAmount("saving goal", *savingGoal); err != nil {
				return err
			}
		}
		if weeklyBudget != nil {
			if weeklyCents, err = parseNonNegativeAmount("weekly budget", *weeklyBudget); err != nil {
				return err
			}
		}

		if err := q.UpdateMonthAmounts(ctx, monthID, incomeCents, savingCents, weeklyCents); err != nil {
			return err
		}
		if weeklyBudget != nil && weeklyCents != month.WeeklyBudget.Cents {
			if err := q.SetOpenWeekAllotments(ctx, monthID, weeklyCents); err != nil {
				return err
			}
		}
		month, err = q.GetMonth(ctx, monthID)
		return err
	})
	if err != nil {
		return core.Month{}, err
	}
	return month, nil
}

// DeleteMonth removes the month. The schema cascades to its weeks and
// transactions and nulls the month reference on piggy bank entries.
func (s *LifecycleService) DeleteMonth(ctx context.Context, monthID int64) error {
	if err := s.store.DeleteMonth(ctx, monthID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Month deleted", "id", monthID)
	return nil
}

// ListMonths returns all months, newest first.
func (s *LifecycleService) ListMonths(ctx context.Context) ([]core.Month, error) {
	return s.store.ListMonths(ctx)
}

// GetMonth returns one month by id.
func (s *LifecycleService) GetMonth(ctx context.Context, id int64) (core.Month, error) {
	return s.store.GetMonth(ctx, id)
}

// CurrentMonth returns the single OPEN month.
func (s *LifecycleService) CurrentMonth(ctx context.Context) (core.Month, error) {
	return s.store.GetOpenMonth(ctx)
}

// ListCategories returns the active expense buckets.
func (s *LifecycleService) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx, true)
}
