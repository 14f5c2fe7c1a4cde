package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hucha/internal/core"

	_ "modernc.org/sqlite"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query method works
// inside and outside an explicit transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteQueries struct {
	db dbtx
}

// SQLiteStore is the default store, backed by modernc.org/sqlite.
type SQLiteStore struct {
	sqliteQueries
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// migrations. Foreign keys are enabled per connection via the DSN pragma.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", core.ErrStorage, err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{sqliteQueries: sqliteQueries{db: db}, db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InTx runs fn inside a single database transaction. Rollback happens on any
// error path; the commit error, if any, is returned after rollback.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", core.ErrStorage, err)
	}
	if err := fn(&sqliteQueries{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", core.ErrStorage, err)
	}
	return nil
}

// --- months ---

const monthColumns = "id, period_key, start_date, end_date, income_cents, weekly_budget_cents, saving_goal_cents, status, closed_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMonth(row rowScanner) (core.Month, error) {
	var m core.Month
	var start, end string
	var closed sql.NullString
	err := row.Scan(&m.ID, &m.PeriodKey, &start, &end,
		&m.Income.Cents, &m.WeeklyBudget.Cents, &m.SavingGoal.Cents, &m.Status, &closed)
	if err != nil {
		return core.Month{}, err
	}
	if m.StartDate, err = core.ParseDate(start); err != nil {
		return core.Month{}, fmt.Errorf("parse month start date: %w", err)
	}
	if m.EndDate, err = core.ParseDate(end); err != nil {
		return core.Month{}, fmt.Errorf("parse month end date: %w", err)
	}
	if closed.Valid {
		t, err := time.Parse(time.RFC3339, closed.String)
		if err != nil {
			return core.Month{}, fmt.Errorf("parse month closed_at: %w", err)
		}
		m.ClosedAt = &t
	}
	return m, nil
}

func (q *sqliteQueries) InsertMonth(ctx context.Context, m *core.Month) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO months (period_key, start_date, end_date, income_cents, weekly_budget_cents, saving_goal_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.PeriodKey, m.StartDate.String(), m.EndDate.String(),
		m.Income.Cents, m.WeeklyBudget.Cents, m.SavingGoal.Cents, m.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: a month is already open or the period %s already exists", core.ErrConflict, m.PeriodKey)
		}
		return fmt.Errorf("insert month: %w", err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert month id: %w", err)
	}
	slog.InfoContext(ctx, "Month created", "id", m.ID, "period_key", m.PeriodKey, "income_cents", m.Income.Cents)
	return nil
}

func (q *sqliteQueries) GetMonth(ctx context.Context, id int64) (core.Month, error) {
	m, err := scanMonth(q.db.QueryRowContext(ctx,
		"SELECT "+monthColumns+" FROM months WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Month{}, fmt.Errorf("%w: no such month", core.ErrNotFound)
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get month: %w", err)
	}
	return m, nil
}

func (q *sqliteQueries) GetOpenMonth(ctx context.Context) (core.Month, error) {
	m, err := scanMonth(q.db.QueryRowContext(ctx,
		"SELECT "+monthColumns+" FROM months WHERE status = ? LIMIT 1", core.StatusOpen))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Month{}, fmt.Errorf("%w: no open month", core.ErrNotFound)
	}
	if err != nil {
		return core.Month{}, fmt.Errorf("get open month: %w", err)
	}
	return m, nil
}

func (q *sqliteQueries) ListMonths(ctx context.Context) ([]core.Month, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+monthColumns+" FROM months ORDER BY start_date DESC")
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var months []core.Month
	for rows.Next() {
		m, err := scanMonth(rows)
		if err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

func (q *sqliteQueries) UpdateMonthAmounts(ctx context.Context, id, incomeCents, savingGoalCents, weeklyBudgetCents int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE months SET income_cents = ?, saving_goal_cents = ?, weekly_budget_cents = ? WHERE id = ?",
		incomeCents, savingGoalCents, weeklyBudgetCents, id)
	if err != nil {
		return fmt.Errorf("update month amounts: %w", err)
	}
	return requireRow(res, "no such month")
}

func (q *sqliteQueries) MarkMonthClosed(ctx context.Context, id int64, closedAt time.Time) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE months SET status = ?, closed_at = ? WHERE id = ?",
		core.StatusClosed, closedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("close month: %w", err)
	}
	return requireRow(res, "no such month")
}

func (q *sqliteQueries) DeleteMonth(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM months WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete month: %w", err)
	}
	return requireRow(res, "no such month")
}

// --- weeks ---

const weekColumns = "id, month_id, week_index, start_date, end_date, cash_withdraw_cents, cash_returned_cents, status, closed_at"

func scanWeek(row rowScanner) (core.Week, error) {
	var w core.Week
	var start, end string
	var closed sql.NullString
	err := row.Scan(&w.ID, &w.MonthID, &w.Index, &start, &end,
		&w.CashWithdraw.Cents, &w.CashReturned.Cents, &w.Status, &closed)
	if err != nil {
		return core.Week{}, err
	}
	if w.StartDate, err = core.ParseDate(start); err != nil {
		return core.Week{}, fmt.Errorf("parse week start date: %w", err)
	}
	if w.EndDate, err = core.ParseDate(end); err != nil {
		return core.Week{}, fmt.Errorf("parse week end date: %w", err)
	}
	if closed.Valid {
		t, err := time.Parse(time.RFC3339, closed.String)
		if err != nil {
			return core.Week{}, fmt.Errorf("parse week closed_at: %w", err)
		}
		w.ClosedAt = &t
	}
	return w, nil
}

func (q *sqliteQueries) InsertWeek(ctx context.Context, w *core.Week) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO weeks (month_id, week_index, start_date, end_date, cash_withdraw_cents, cash_returned_cents, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.MonthID, w.Index, w.StartDate.String(), w.EndDate.String(),
		w.CashWithdraw.Cents, w.CashReturned.Cents, w.Status)
	if err != nil {
		return fmt.Errorf("insert week %d: %w", w.Index, err)
	}
	w.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert week id: %w", err)
	}
	return nil
}

func (q *sqliteQueries) GetWeek(ctx context.Context, id int64) (core.Week, error) {
	w, err := scanWeek(q.db.QueryRowContext(ctx,
		"SELECT "+weekColumns+" FROM weeks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Week{}, fmt.Errorf("%w: no such week", core.ErrNotFound)
	}
	if err != nil {
		return core.Week{}, fmt.Errorf("get week: %w", err)
	}
	return w, nil
}

func (q *sqliteQueries) ListWeeks(ctx context.Context, monthID int64) ([]core.Week, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+weekColumns+" FROM weeks WHERE month_id = ? ORDER BY week_index", monthID)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	defer rows.Close()

	var weeks []core.Week
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, fmt.Errorf("scan week: %w", err)
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

func (q *sqliteQueries) SetOpenWeekAllotments(ctx context.Context, monthID, cents int64) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE weeks SET cash_withdraw_cents = ? WHERE month_id = ? AND status = ?",
		cents, monthID, core.StatusOpen)
	if err != nil {
		return fmt.Errorf("update open week allotments: %w", err)
	}
	return nil
}

func (q *sqliteQueries) MarkWeekClosed(ctx context.Context, id int64, closedAt time.Time) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE weeks SET status = ?, closed_at = ? WHERE id = ?",
		core.StatusClosed, closedAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("close week: %w", err)
	}
	return requireRow(res, "no such week")
}

func (q *sqliteQueries) AddWeekCashReturned(ctx context.Context, id, cents int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE weeks SET cash_returned_cents = cash_returned_cents + ? WHERE id = ?", cents, id)
	if err != nil {
		return fmt.Errorf("add week cash returned: %w", err)
	}
	return requireRow(res, "no such week")
}

// --- categories ---

func (q *sqliteQueries) ListCategories(ctx context.Context, activeOnly bool) ([]core.Category, error) {
	query := "SELECT id, name, active FROM categories"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name"

	rows, err := q.db.QueryContext(ctx, query)
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

func (q *sqliteQueries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := q.db.QueryRowContext(ctx,
		"SELECT id, name, active FROM categories WHERE id = ?", id).
		Scan(&c.ID, &c.Name, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("%w: no such category", core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// --- piggy banks ---

func (q *sqliteQueries) ListPiggyBanks(ctx context.Context) ([]core.PiggyBank, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, name, type FROM piggy_banks ORDER BY id")
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

func (q *sqliteQueries) GetPiggyBank(ctx context.Context, id int64) (core.PiggyBank, error) {
	var p core.PiggyBank
	err := q.db.QueryRowContext(ctx,
		"SELECT id, name, type FROM piggy_banks WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &p.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PiggyBank{}, fmt.Errorf("%w: no such piggy bank", core.ErrNotFound)
	}
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("get piggy bank: %w", err)
	}
	return p, nil
}

func (q *sqliteQueries) GetPiggyBankByType(ctx context.Context, t core.PiggyType) (core.PiggyBank, error) {
	var p core.PiggyBank
	err := q.db.QueryRowContext(ctx,
		"SELECT id, name, type FROM piggy_banks WHERE type = ?", t).
		Scan(&p.ID, &p.Name, &p.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PiggyBank{}, fmt.Errorf("%w: no piggy bank of type %s", core.ErrNotFound, t)
	}
	if err != nil {
		return core.PiggyBank{}, fmt.Errorf("get piggy bank by type: %w", err)
	}
	return p, nil
}

func (q *sqliteQueries) InsertPiggyBankEntry(ctx context.Context, e *core.PiggyBankEntry) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO piggy_bank_entries (piggy_bank_id, amount_cents, note, month_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.PiggyBankID, e.Amount.Cents, e.Note, e.MonthID, e.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert piggy bank entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert piggy bank entry id: %w", err)
	}
	return nil
}

func (q *sqliteQueries) ListPiggyBankEntries(ctx context.Context, piggyBankID int64) ([]core.PiggyBankEntry, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, piggy_bank_id, amount_cents, note, month_id, created_at
		 FROM piggy_bank_entries WHERE piggy_bank_id = ? ORDER BY created_at DESC, id DESC`, piggyBankID)
	if err != nil {
		return nil, fmt.Errorf("list piggy bank entries: %w", err)
	}
	defer rows.Close()

	var entries []core.PiggyBankEntry
	for rows.Next() {
		var e core.PiggyBankEntry
		var created string
		if err := rows.Scan(&e.ID, &e.PiggyBankID, &e.Amount.Cents, &e.Note, &e.MonthID, &created); err != nil {
			return nil, fmt.Errorf("scan piggy bank entry: %w", err)
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse entry created_at: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (q *sqliteQueries) PiggyBankTotals(ctx context.Context) ([]PiggyBankTotal, error) {
	rows, err := q.db.QueryContext(ctx,
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

const txColumns = "id, occurred_at, amount_cents, direction, type, month_id, week_id, category_id, attribution, payment_method, concept, note"

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var occurred string
	err := row.Scan(&t.ID, &occurred, &t.Amount.Cents, &t.Direction, &t.Type,
		&t.MonthID, &t.WeekID, &t.CategoryID, &t.Attribution, &t.PaymentMethod, &t.Concept, &t.Note)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.OccurredAt, err = time.Parse(time.RFC3339, occurred); err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurred_at: %w", err)
	}
	return t, nil
}

func (q *sqliteQueries) InsertTransaction(ctx context.Context, t *core.Transaction) error {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO transactions (occurred_at, amount_cents, direction, type, month_id, week_id, category_id, attribution, payment_method, concept, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OccurredAt.UTC().Format(time.RFC3339), t.Amount.Cents, t.Direction, t.Type,
		t.MonthID, t.WeekID, t.CategoryID, t.Attribution, t.PaymentMethod, t.Concept, t.Note)
	if err != nil {
		if isUniqueViolation(err) && t.Type == core.TxCashWithdrawal {
			return fmt.Errorf("%w: week already has a cash withdrawal", core.ErrConflict)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert transaction id: %w", err)
	}
	slog.InfoContext(ctx, "Ledger entry recorded",
		"id", t.ID, "type", t.Type, "direction", t.Direction,
		"amount_cents", t.Amount.Cents, "month_id", t.MonthID)
	return nil
}

func (q *sqliteQueries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: no such transaction", core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (q *sqliteQueries) ListTransactions(ctx context.Context, monthID int64) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE month_id = ? ORDER BY occurred_at DESC, id DESC", monthID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (q *sqliteQueries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE transactions
		 SET occurred_at = ?, amount_cents = ?, category_id = ?, attribution = ?, payment_method = ?, concept = ?, note = ?, synced = 0
		 WHERE id = ?`,
		t.OccurredAt.UTC().Format(time.RFC3339), t.Amount.Cents, t.CategoryID,
		t.Attribution, t.PaymentMethod, t.Concept, t.Note, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, "no such transaction")
}

func (q *sqliteQueries) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, "no such transaction")
}

func (q *sqliteQueries) ListSafetyTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+txColumns+` FROM transactions WHERE type IN (?, ?)
		 ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		core.TxConsolidateToSafety, core.TxEmergencyFromSafety, limit)
	if err != nil {
		return nil, fmt.Errorf("list safety transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (q *sqliteQueries) HasWeekWithdrawal(ctx context.Context, weekID int64) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM transactions WHERE week_id = ? AND type = ?",
		weekID, core.TxCashWithdrawal).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check week withdrawal: %w", err)
	}
	return n > 0, nil
}

// --- aggregates ---

func (q *sqliteQueries) SumByType(ctx context.Context, monthID int64, t core.TxType) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE month_id = ? AND type = ?",
		monthID, t).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum %s: %w", t, err)
	}
	return sum, nil
}

func (q *sqliteQueries) SumByTypeAndMethods(ctx context.Context, monthID int64, t core.TxType, methods ...core.PaymentMethod) (int64, error) {
	placeholders := make([]string, len(methods))
	args := []any{monthID, t}
	for i, m := range methods {
		placeholders[i] = "?"
		args = append(args, m)
	}
	var sum int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE month_id = ? AND type = ? AND payment_method IN (`+strings.Join(placeholders, ", ")+`)`,
		args...).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum %s by method: %w", t, err)
	}
	return sum, nil
}

func (q *sqliteQueries) SumGlobalByType(ctx context.Context, t core.TxType) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE type = ?", t).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum global %s: %w", t, err)
	}
	return sum, nil
}

func (q *sqliteQueries) SumCashExpensesBetween(ctx context.Context, monthID int64, from, to core.Date) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE month_id = ? AND type = ? AND payment_method = ?
		   AND date(occurred_at) BETWEEN ? AND ?`,
		monthID, core.TxExpense, core.MethodCash, from.String(), to.String()).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum cash expenses between: %w", err)
	}
	return sum, nil
}

func (q *sqliteQueries) SumExpensesByAttribution(ctx context.Context, monthID int64) (map[core.Attribution]int64, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT attribution, COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE month_id = ? AND type = ? GROUP BY attribution`,
		monthID, core.TxExpense)
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

func (q *sqliteQueries) ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE synced = 0 ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (q *sqliteQueries) MarkTransactionSynced(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "UPDATE transactions SET synced = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return requireRow(res, "no such transaction")
}

// --- helpers ---

func requireRow(res sql.Result, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrNotFound, msg)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
