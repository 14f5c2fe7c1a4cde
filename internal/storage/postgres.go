package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"hucha/internal/core"
)

// pgdb is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgdb interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgQueries struct {
	db pgdb
}

// PostgresStore is the alternative store, backed by a pgx connection pool.
// Selected with DATA_BACKEND=postgres.
type PostgresStore struct {
	pgQueries
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS months (
		id BIGSERIAL PRIMARY KEY,
		period_key TEXT NOT NULL UNIQUE,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		income_cents BIGINT NOT NULL,
		weekly_budget_cents BIGINT NOT NULL DEFAULT 0,
		saving_goal_cents BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'CLOSED')),
		closed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_months_single_open ON months (status) WHERE status = 'OPEN'`,
	`CREATE TABLE IF NOT EXISTS weeks (
		id BIGSERIAL PRIMARY KEY,
		month_id BIGINT NOT NULL REFERENCES months (id) ON DELETE CASCADE,
		week_index INT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		cash_withdraw_cents BIGINT NOT NULL DEFAULT 0,
		cash_returned_cents BIGINT NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'OPEN' CHECK (status IN ('OPEN', 'CLOSED')),
		closed_at TIMESTAMPTZ,
		UNIQUE (month_id, week_index)
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS piggy_banks (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL UNIQUE CHECK (type IN ('small-coin', 'general'))
	)`,
	`CREATE TABLE IF NOT EXISTS piggy_bank_entries (
		id BIGSERIAL PRIMARY KEY,
		piggy_bank_id BIGINT NOT NULL REFERENCES piggy_banks (id) ON DELETE CASCADE,
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		note TEXT NOT NULL DEFAULT '',
		month_id BIGINT REFERENCES months (id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		occurred_at TIMESTAMPTZ NOT NULL,
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
		direction TEXT NOT NULL CHECK (direction IN ('IN', 'OUT')),
		type TEXT NOT NULL CHECK (type IN (
			'EXPENSE', 'EXTRA_INCOME', 'CASH_WITHDRAWAL', 'CASH_RETURN',
			'CONSOLIDATE_TO_SAFETY', 'EMERGENCY_FROM_SAFETY', 'PIGGYBANK_DEPOSIT'
		)),
		month_id BIGINT NOT NULL REFERENCES months (id) ON DELETE CASCADE,
		week_id BIGINT REFERENCES weeks (id) ON DELETE SET NULL,
		category_id BIGINT REFERENCES categories (id) ON DELETE SET NULL,
		attribution TEXT NOT NULL DEFAULT 'HOUSE' CHECK (attribution IN ('MINE', 'PARTNER', 'HOUSE')),
		payment_method TEXT NOT NULL CHECK (payment_method IN ('CARD', 'CASH', 'TRANSFER')),
		concept TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		synced BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_month ON transactions (month_id)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_month_type ON transactions (month_id, type)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_week_withdrawal ON transactions (week_id) WHERE type = 'CASH_WITHDRAWAL'`,
	`INSERT INTO piggy_banks (name, type) VALUES ('Coin jar', 'small-coin'), ('General jar', 'general') ON CONFLICT (type) DO NOTHING`,
	`INSERT INTO categories (name) VALUES
		('Groceries'), ('Eating out'), ('Transport'), ('Home'), ('Health'),
		('Leisure'), ('Clothing'), ('Gifts'), ('Other')
	 ON CONFLICT (name) DO NOTHING`,
}

// NewPostgresStore connects to url and bootstraps the schema.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", core.ErrStorage, err)
	}
	for _, stmt := range pgSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return &PostgresStore{pgQueries: pgQueries{db: pool}, pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", core.ErrStorage, err)
	}
	if err := fn(&pgQueries{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", core.ErrStorage, err)
	}
	return nil
}

// --- months ---

func pgScanMonth(row pgx.Row) (core.Month, error) {
	var m core.Month
	var start, end time.Time
	err := row.Scan(&m.ID, &m.PeriodKey, &start, &end,
		&m.Income.Cents, &m.WeeklyBudget.Cents, &m.SavingGoal.Cents, &m.Status, &m.ClosedAt)
	if err != nil {
		return core.Month{}, err
	}
	m.StartDate = core.DateOf(start)
	m.EndDate = core.DateOf(end)
	return m, nil
}

func (q *pgQueries) InsertMonth(ctx context.Context, m *core.Month) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO months (period_key, start_date, end_date, income_cents, weekly_budget_cents, saving_goal_cents, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		m.PeriodKey, m.StartDate.Time, m.EndDate.Time,
		m.Income.Cents, m.WeeklyBudget.Cents, m.SavingGoal.Cents, string(m.Status)).Scan(&m.ID)
	if err != nil {
		if isPgUniqueViolation(err) {
			return fmt.Errorf("%w: a month is already open or the period %s already exists", core.ErrConflict, m.PeriodKey)
		}
		return fmt.Errorf("insert month: %w", err)
	}
	slog.InfoContext(ctx, "Month created", "id", m.ID, "period_key", m.PeriodKey, "income_cents", m.Income.Cents)
	return nil
}

func (q *pgQueries) GetMonth(ctx context.Context, id int64) (core.Month, error) {
	m, err := pgScanMonth(q.db.QueryRow(ctx,
		"SELECT "+monthColumns+" FROM months WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Month{}, fmt.Errorf("%w: no such month", core.ErrNotFound)
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get month: %w", err)
	}
	return m, nil
}

func (q *pgQueries) GetOpenMonth(ctx context.Context) (core.Month, error) {
	m, err := pgScanMonth(q.db.QueryRow(ctx,
		"SELECT "+monthColumns+" FROM months WHERE status = $1 LIMIT 1", string(core.StatusOpen)))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Month{}, fmt.Errorf("%w: no open month", core.ErrNotFound)
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get open month: %w", err)
	}
	return m, nil
}

func (q *pgQueries) ListMonths(ctx context.Context) ([]core.Month, error) {
	rows, err := q.db.Query(ctx, "SELECT "+monthColumns+" FROM months ORDER BY start_date DESC")
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var months []core.Month
	for rows.Next() {
		m, err := pgScanMonth(rows)
		if err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

func (q *pgQueries) UpdateMonthAmounts(ctx context.Context, id, incomeCents, savingGoalCents, weeklyBudgetCents int64) error {
	tag, err := q.db.Exec(ctx,
		"UPDATE months SET income_cents = $1, saving_goal_cents = $2, weekly_budget_cents = $3 WHERE id = $4",
		incomeCents, savingGoalCents, weeklyBudgetCents, id)
	if err != nil {
		return fmt.Errorf("update month amounts: %w", err)
	}
	return pgRequireRow(tag, "no such month")
}

func (q *pgQueries) MarkMonthClosed(ctx context.Context, id int64, closedAt time.Time) error {
	tag, err := q.db.Exec(ctx,
		"UPDATE months SET status = $1, closed_at = $2 WHERE id = $3",
		string(core.StatusClosed), closedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("close month: %w", err)
	}
	return pgRequireRow(tag, "no such month")
}

func (q *pgQueries) DeleteMonth(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM months WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete month: %w", err)
	}
	return pgRequireRow(tag, "no such month")
}

// --- weeks ---

func pgScanWeek(row pgx.Row) (core.Week, error) {
	var w core.Week
	var start, end time.Time
	err := row.Scan(&w.ID, &w.MonthID, &w.Index, &start, &end,
		&w.CashWithdraw.Cents, &w.CashReturned.Cents, &w.Status, &w.ClosedAt)
	if err != nil {
		return core.Week{}, err
	}
	w.StartDate = core.DateOf(start)
	w.EndDate = core.DateOf(end)
	return w, nil
}

func (q *pgQueries) InsertWeek(ctx context.Context, w *core.Week) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO weeks (month_id, week_index, start_date, end_date, cash_withdraw_cents, cash_returned_cents, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		w.MonthID, w.Index, w.StartDate.Time, w.EndDate.Time,
		w.CashWithdraw.Cents, w.CashReturned.Cents, string(w.Status)).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("insert week %d: %w", w.Index, err)
	}
	return nil
}

func (q *pgQueries) GetWeek(ctx context.Context, id int64) (core.Week, error) {
	w, err := pgScanWeek(q.db.QueryRow(ctx,
		"SELECT "+weekColumns+" FROM weeks WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Week{}, fmt.Errorf("%w: no such week", core.ErrNotFound)
	}
	if err != nil {
		return core.Week{}, fmt.Errorf("get week: %w", err)
	}
	return w, nil
}

func (q *pgQueries) ListWeeks(ctx context.Context, monthID int64) ([]core.Week, error) {
	rows, err := q.db.Query(ctx,
		"SELECT "+weekColumns+" FROM weeks WHERE month_id = $1 ORDER BY week_index", monthID)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	defer rows.Close()

	var weeks []core.Week
	for rows.Next() {
		w, err := pgScanWeek(rows)
		if err != nil {
			return nil, fmt.Errorf("scan week: %w", err)
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

func (q *pgQueries) SetOpenWeekAllotments(ctx context.Context, monthID, cents int64) error {
	_, err := q.db.Exec(ctx,
		"UPDATE weeks SET cash_withdraw_cents = $1 WHERE month_id = $2 AND status = $3",
		cents, monthID, string(core.StatusOpen))
	if err != nil {
		return fmt.Errorf("update open week allotments: %w", err)
	}
	return nil
}

func (q *pgQueries) MarkWeekClosed(ctx context.Context, id int64, closedAt time.Time) error {
	tag, err := q.db.Exec(ctx,
		"UPDATE weeks SET status = $1, closed_at = $2 WHERE id = $3",
		string(core.StatusClosed), closedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("close week: %w", err)
	}
	return pgRequireRow(tag, "no such week")
}

func (q *pgQueries) AddWeekCashReturned(ctx context.Context, id, cents int64) error {
	tag, err := q.db.Exec(ctx,
		"UPDATE weeks SET cash_returned_cents = cash_returned_cents + $1 WHERE id = $2", cents, id)
	if err != nil {
		return fmt.Errorf("add week cash returned: %w", err)
	}
	return pgRequireRow(tag, "no such week")
}

// --- categories ---

func (q *pgQueries) ListCategories(ctx context.Context, activeOnly bool) ([]core.Category, error) {
	query := "SELECT id, name, active FROM categories"
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY name"

	rows, err := q.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Active); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (q *pgQueries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRow(ctx,
		"SELECT id, name, active FROM categories WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Category{}, fmt.Errorf("%w: no such category", core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// --- piggy banks ---

func (q *pgQueries) ListPiggyBanks(ctx context.Context) ([]core.PiggyBank, error) {
	rows, err := q.db.Query(ctx, "SELECT id, name, type FROM piggy_banks ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list piggy banks: %w", err)
	}
	defer rows.Close()

	var banks []core.PiggyBank
	for rows.Next() {
		var p core.PiggyBank
		if err := rows.Scan(&p.ID, &p.Name, &p.Type); err != nil {
			return nil, fmt.Errorf("scan piggy bank: %w", err)
		}
		banks = append(banks, p)
	}
	return banks, rows.Err()
}

func (q *pgQueries) GetPiggyBank(ctx context.Context, id int64) (core.PiggyBank, error) {
	var p core.PiggyBank
	err := q.db.QueryRow(ctx,
		"SELECT id, name, type FROM piggy_banks WHERE id = $1", id).
		Scan(&p.ID, &p.Name, &p.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.PiggyBank{}, fmt.Errorf("%w: no such piggy bank", core.ErrNotFound)
	}
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("get piggy bank: %w", err)
	}
	return p, nil
}

func (q *pgQueries) GetPiggyBankByType(ctx context.Context, t core.PiggyType) (core.PiggyBank, error) {
	var p core.PiggyBank
	err := q.db.QueryRow(ctx,
		"SELECT id, name, type FROM piggy_banks WHERE type = $1", string(t)).
		Scan(&p.ID, &p.Name, &p.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.PiggyBank{}, fmt.Errorf("%w: no piggy bank of type %s", core.ErrNotFound, t)
	}
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("get piggy bank by type: %w", err)
	}
	return p, nil
}

func (q *pgQueries) InsertPiggyBankEntry(ctx context.Context, e *core.PiggyBankEntry) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO piggy_bank_entries (piggy_bank_id, amount_cents, note, month_id, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		e.PiggyBankID, e.Amount.Cents, e.Note, e.MonthID, e.CreatedAt.UTC()).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert piggy bank entry: %w", err)
	}
	return nil
}

func (q *pgQueries) ListPiggyBankEntries(ctx context.Context, piggyBankID int64) ([]core.PiggyBankEntry, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, piggy_bank_id, amount_cents, note, month_id, created_at
		 FROM piggy_bank_entries WHERE piggy_bank_id = $1 ORDER BY created_at DESC, id DESC`, piggyBankID)
	if err != nil {
		return nil, fmt.Errorf("list piggy bank entries: %w", err)
	}
	defer rows.Close()

	var entries []core.PiggyBankEntry
	for rows.Next() {
		var e core.PiggyBankEntry
		if err := rows.Scan(&e.ID, &e.PiggyBankID, &e.Amount.Cents, &e.Note, &e.MonthID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan piggy bank entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *pgQueries) PiggyBankTotals(ctx context.Context) ([]PiggyBankTotal, error) {
	rows, err := q.db.Query(ctx,
		`SELECT p.id, p.name, p.type, COALESCE(SUM(e.amount_cents), 0), COUNT(e.id)
		 FROM piggy_banks p
		 LEFT JOIN piggy_bank_entries e ON e.piggy_bank_id = p.id
		 GROUP BY p.id, p.name, p.type
		 ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("piggy bank totals: %w", err)
	}
	defer rows.Close()

	var totals []PiggyBankTotal
	for rows.Next() {
		var t PiggyBankTotal
		if err := rows.Scan(&t.PiggyBank.ID, &t.PiggyBank.Name, &t.PiggyBank.Type, &t.Total.Cents, &t.Entries); err != nil {
			return nil, fmt.Errorf("scan piggy bank total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// --- transactions ---

func pgScanTransaction(row pgx.Row) (core.Transaction, error) {
	var t core.Transaction
	err := row.Scan(&t.ID, &t.OccurredAt, &t.Amount.Cents, &t.Direction, &t.Type,
		&t.MonthID, &t.WeekID, &t.CategoryID, &t.Attribution, &t.PaymentMethod, &t.Concept, &t.Note)
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (q *pgQueries) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	err := q.db.QueryRow(ctx,
		`INSERT INTO transactions (occurred_at, amount_cents, direction, type, month_id, week_id, category_id, attribution, payment_method, concept, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		t.OccurredAt.UTC(), t.Amount.Cents, string(t.Direction), string(t.Type),
		t.MonthID, t.WeekID, t.CategoryID, string(t.Attribution), string(t.PaymentMethod), t.Concept, t.Note).Scan(&t.ID)
	if err != nil {
		if isPgUniqueViolation(err) && t.Type == core.TxCashWithdrawal {
			return fmt.Errorf("%w: week already has a cash withdrawal", core.ErrConflict)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Ledger entry recorded",
		"id", t.ID, "type", t.Type, "direction", t.Direction,
		"amount_cents", t.Amount.Cents, "month_id", t.MonthID)
	return nil
}

func (q *pgQueries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := pgScanTransaction(q.db.QueryRow(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: no such transaction", core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (q *pgQueries) ListTransactions(ctx context.Context, monthID int64) ([]core.Transaction, error) {
	rows, err := q.db.Query(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE month_id = $1 ORDER BY occurred_at DESC, id DESC", monthID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return pgCollectTransactions(rows)
}

func pgCollectTransactions(rows pgx.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		t, err := pgScanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (q *pgQueries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE transactions
		 SET occurred_at = $1, amount_cents = $2, category_id = $3, attribution = $4, payment_method = $5, concept = $6, note = $7, synced = FALSE
		 WHERE id = $8`,
		t.OccurredAt.UTC(), t.Amount.Cents, t.CategoryID,
		string(t.Attribution), string(t.PaymentMethod), t.Concept, t.Note, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return pgRequireRow(tag, "no such transaction")
}

func (q *pgQueries) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return pgRequireRow(tag, "no such transaction")
}

func (q *pgQueries) ListSafetyTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := q.db.Query(ctx,
		"SELECT "+txColumns+` FROM transactions WHERE type IN ($1, $2)
		 ORDER BY occurred_at DESC, id DESC LIMIT $3`,
		string(core.TxConsolidateToSafety), string(core.TxEmergencyFromSafety), limit)
	if err != nil {
		return nil, fmt.Errorf("list safety transactions: %w", err)
	}
	defer rows.Close()
	return pgCollectTransactions(rows)
}

func (q *pgQueries) HasWeekWithdrawal(ctx context.Context, weekID int64) (bool, error) {
	var n int
	err := q.db.QueryRow(ctx,
		"SELECT COUNT(1) FROM transactions WHERE week_id = $1 AND type = $2",
		weekID, string(core.TxCashWithdrawal)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check week withdrawal: %w", err)
	}
	return n > 0, nil
}

// --- aggregates ---

func (q *pgQueries) SumByType(ctx context.Context, monthID int64, t core.TxType) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE month_id = $1 AND type = $2",
		monthID, string(t)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum %s: %w", t, err)
	}
	return sum, nil
}

func (q *pgQueries) SumByTypeAndMethods(ctx context.Context, monthID int64, t core.TxType, methods ...core.PaymentMethod) (int64, error) {
	placeholders := make([]string, len(methods))
	args := []any{monthID, string(t)}
	for i, m := range methods {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, string(m))
	}
	var sum int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE month_id = $1 AND type = $2 AND payment_method IN (`+strings.Join(placeholders, ", ")+`)`,
		args...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum %s by method: %w", t, err)
	}
	return sum, nil
}

func (q *pgQueries) SumGlobalByType(ctx context.Context, t core.TxType) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE type = $1", string(t)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum global %s: %w", t, err)
	}
	return sum, nil
}

func (q *pgQueries) SumCashExpensesBetween(ctx context.Context, monthID int64, from, to core.Date) (int64, error) {
	var sum int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE month_id = $1 AND type = $2 AND payment_method = $3
		   AND occurred_at::date BETWEEN $4 AND $5`,
		monthID, string(core.TxExpense), string(core.MethodCash), from.Time, to.Time).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum cash expenses between: %w", err)
	}
	return sum, nil
}

func (q *pgQueries) SumExpensesByAttribution(ctx context.Context, monthID int64) (map[core.Attribution]int64, error) {
	rows, err := q.db.Query(ctx,
		`SELECT attribution, COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE month_id = $1 AND type = $2 GROUP BY attribution`,
		monthID, string(core.TxExpense))
	if err != nil {
		return nil, fmt.Errorf("sum expenses by attribution: %w", err)
	}
	defer rows.Close()

	sums := make(map[core.Attribution]int64)
	for rows.Next() {
		var a core.Attribution
		var sum int64
		if err := rows.Scan(&a, &sum); err != nil {
			return nil, fmt.Errorf("scan attribution sum: %w", err)
		}
		sums[a] = sum
	}
	return sums, rows.Err()
}

// --- mirror sync bookkeeping ---

func (q *pgQueries) ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := q.db.Query(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE NOT synced ORDER BY id LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", err)
	}
	defer rows.Close()
	return pgCollectTransactions(rows)
}

func (q *pgQueries) MarkTransactionSynced(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, "UPDATE transactions SET synced = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return pgRequireRow(tag, "no such transaction")
}

// --- helpers ---

func pgRequireRow(tag pgconn.CommandTag, msg string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, msg)
	}
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
