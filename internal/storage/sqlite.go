package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists the entity graph in a SQLite database. Amounts are
// stored as decimal strings, timestamps as RFC3339, ids as uuid strings.
type SQLiteStore struct {
	db *sql.DB
	q  queryer
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, q: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InTx runs fn against a view bound to one database transaction.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	view := &SQLiteStore{db: s.db, q: tx}
	if err := fn(view); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const timeFormat = time.RFC3339Nano

func fmtTime(t time.Time) string { return t.UTC().Format(timeFormat) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeFormat, s) }

func parseDec(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// --- periods ---

const periodColumns = "id, is_active, created_on, modified_on, start_date, end_date, length, day_length, user_id, amount_spent, budget_amount"

func (s *SQLiteStore) scanPeriod(row interface{ Scan(...any) error }) (core.Period, error) {
	var p core.Period
	var id, userID, createdOn, modifiedOn, startDate, endDate, spent, budget string
	err := row.Scan(&id, &p.IsActive, &createdOn, &modifiedOn, &startDate, &endDate, &p.Length, &p.DayLength, &userID, &spent, &budget)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Period{}, ErrNotFound
	}
	if err != nil {
		return core.Period{}, fmt.Errorf("scan period: %w", err)
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return core.Period{}, fmt.Errorf("parse period id: %w", err)
	}
	if p.UserID, err = uuid.Parse(userID); err != nil {
		return core.Period{}, fmt.Errorf("parse period user id: %w", err)
	}
	if p.CreatedOn, err = parseTime(createdOn); err != nil {
		return core.Period{}, fmt.Errorf("parse period created_on: %w", err)
	}
	if p.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return core.Period{}, fmt.Errorf("parse period modified_on: %w", err)
	}
	if p.StartDate, err = parseTime(startDate); err != nil {
		return core.Period{}, fmt.Errorf("parse period start_date: %w", err)
	}
	if p.EndDate, err = parseTime(endDate); err != nil {
		return core.Period{}, fmt.Errorf("parse period end_date: %w", err)
	}
	if p.AmountSpent, err = parseDec(spent); err != nil {
		return core.Period{}, fmt.Errorf("parse period amount_spent: %w", err)
	}
	if p.BudgetAmount, err = parseDec(budget); err != nil {
		return core.Period{}, fmt.Errorf("parse period budget_amount: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) Period(ctx context.Context, id uuid.UUID) (core.Period, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+periodColumns+" FROM periods WHERE id = ?", id.String())
	return s.scanPeriod(row)
}

func (s *SQLiteStore) ActivePeriod(ctx context.Context, userID uuid.UUID) (core.Period, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+periodColumns+" FROM periods WHERE user_id = ? AND is_active = 1 ORDER BY end_date DESC LIMIT 1",
		userID.String())
	return s.scanPeriod(row)
}

func (s *SQLiteStore) LatestPeriod(ctx context.Context, userID uuid.UUID) (core.Period, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+periodColumns+" FROM periods WHERE user_id = ? ORDER BY end_date DESC LIMIT 1",
		userID.String())
	return s.scanPeriod(row)
}

func (s *SQLiteStore) InsertPeriod(ctx context.Context, p core.Period) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO periods ("+periodColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID.String(), p.IsActive, fmtTime(p.CreatedOn), fmtTime(p.ModifiedOn),
		fmtTime(p.StartDate), fmtTime(p.EndDate), string(p.Length), p.DayLength,
		p.UserID.String(), p.AmountSpent.String(), p.BudgetAmount.String())
	if err != nil {
		return fmt.Errorf("insert period: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdatePeriod(ctx context.Context, p core.Period) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE periods SET is_active = ?, modified_on = ?, start_date = ?, end_date = ?,
		 length = ?, day_length = ?, amount_spent = ?, budget_amount = ? WHERE id = ?`,
		p.IsActive, fmtTime(p.ModifiedOn), fmtTime(p.StartDate), fmtTime(p.EndDate),
		string(p.Length), p.DayLength, p.AmountSpent.String(), p.BudgetAmount.String(), p.ID.String())
	if err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	return requireRow(res)
}

// --- folders ---

const folderColumns = "id, is_active, created_on, modified_on, general_id, name, period_id, user_id"

func (s *SQLiteStore) scanFolder(row interface{ Scan(...any) error }) (core.Folder, error) {
	var f core.Folder
	var id, createdOn, modifiedOn, generalID, periodID, userID string
	err := row.Scan(&id, &f.IsActive, &createdOn, &modifiedOn, &generalID, &f.Name, &periodID, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Folder{}, ErrNotFound
	}
	if err != nil {
		return core.Folder{}, fmt.Errorf("scan folder: %w", err)
	}
	if f.ID, err = uuid.Parse(id); err != nil {
		return core.Folder{}, fmt.Errorf("parse folder id: %w", err)
	}
	if f.GeneralID, err = uuid.Parse(generalID); err != nil {
		return core.Folder{}, fmt.Errorf("parse folder general id: %w", err)
	}
	if f.PeriodID, err = uuid.Parse(periodID); err != nil {
		return core.Folder{}, fmt.Errorf("parse folder period id: %w", err)
	}
	if f.UserID, err = uuid.Parse(userID); err != nil {
		return core.Folder{}, fmt.Errorf("parse folder user id: %w", err)
	}
	if f.CreatedOn, err = parseTime(createdOn); err != nil {
		return core.Folder{}, fmt.Errorf("parse folder created_on: %w", err)
	}
	if f.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return core.Folder{}, fmt.Errorf("parse folder modified_on: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) Folder(ctx context.Context, id uuid.UUID) (core.Folder, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+folderColumns+" FROM folders WHERE id = ?", id.String())
	return s.scanFolder(row)
}

func (s *SQLiteStore) queryFolders(ctx context.Context, query string, args ...any) ([]core.Folder, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var out []core.Folder
	for rows.Next() {
		f, err := s.scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ActiveFolders(ctx context.Context, periodID uuid.UUID) ([]core.Folder, error) {
	return s.queryFolders(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE period_id = ? AND is_active = 1 ORDER BY created_on, id",
		periodID.String())
}

func (s *SQLiteStore) UserFolders(ctx context.Context, userID uuid.UUID) ([]core.Folder, error) {
	return s.queryFolders(ctx,
		"SELECT "+folderColumns+" FROM folders WHERE user_id = ? AND is_active = 1 ORDER BY created_on, id",
		userID.String())
}

func (s *SQLiteStore) InsertFolder(ctx context.Context, f core.Folder) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO folders ("+folderColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		f.ID.String(), f.IsActive, fmtTime(f.CreatedOn), fmtTime(f.ModifiedOn),
		f.GeneralID.String(), f.Name, f.PeriodID.String(), f.UserID.String())
	if err != nil {
		return fmt.Errorf("insert folder: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateFolder(ctx context.Context, f core.Folder) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE folders SET is_active = ?, modified_on = ?, name = ? WHERE id = ?",
		f.IsActive, fmtTime(f.ModifiedOn), f.Name, f.ID.String())
	if err != nil {
		return fmt.Errorf("update folder: %w", err)
	}
	return requireRow(res)
}

// --- general categories ---

const generalCategoryColumns = "id, is_active, created_on, modified_on, target_amount, category_type, final_date, currency, user_id"

func (s *SQLiteStore) scanGeneralCategory(row interface{ Scan(...any) error }) (core.GeneralCategory, error) {
	var g core.GeneralCategory
	var id, createdOn, modifiedOn, target, userID string
	var finalDate sql.NullString
	err := row.Scan(&id, &g.IsActive, &createdOn, &modifiedOn, &target, &g.CategoryType, &finalDate, &g.Currency, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.GeneralCategory{}, ErrNotFound
	}
	if err != nil {
		return core.GeneralCategory{}, fmt.Errorf("scan general category: %w", err)
	}
	if g.ID, err = uuid.Parse(id); err != nil {
		return core.GeneralCategory{}, fmt.Errorf("parse general category id: %w", err)
	}
	if g.UserID, err = uuid.Parse(userID); err != nil {
		return core.GeneralCategory{}, fmt.Errorf("parse general category user id: %w", err)
	}
	if g.CreatedOn, err = parseTime(createdOn); err != nil {
		return core.GeneralCategory{}, fmt.Errorf("parse general category created_on: %w", err)
	}
	if g.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return core.GeneralCategory{}, fmt.Errorf("parse general category modified_on: %w", err)
	}
	if g.TargetAmount, err = parseDec(target); err != nil {
		return core.GeneralCategory{}, fmt.Errorf("parse general category target: %w", err)
	}
	if finalDate.Valid {
		t, err := parseTime(finalDate.String)
		if err != nil {
			return core.GeneralCategory{}, fmt.Errorf("parse general category final_date: %w", err)
		}
		g.FinalDate = &t
	}
	return g, nil
}

func (s *SQLiteStore) GeneralCategory(ctx context.Context, id uuid.UUID) (core.GeneralCategory, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+generalCategoryColumns+" FROM general_categories WHERE id = ?", id.String())
	return s.scanGeneralCategory(row)
}

func (s *SQLiteStore) InsertGeneralCategory(ctx context.Context, g core.GeneralCategory) error {
	var finalDate any
	if g.FinalDate != nil {
		finalDate = fmtTime(*g.FinalDate)
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO general_categories ("+generalCategoryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		g.ID.String(), g.IsActive, fmtTime(g.CreatedOn), fmtTime(g.ModifiedOn),
		g.TargetAmount.String(), string(g.CategoryType), finalDate, g.Currency, g.UserID.String())
	if err != nil {
		return fmt.Errorf("insert general category: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateGeneralCategory(ctx context.Context, g core.GeneralCategory) error {
	var finalDate any
	if g.FinalDate != nil {
		finalDate = fmtTime(*g.FinalDate)
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE general_categories SET is_active = ?, modified_on = ?, target_amount = ?,
		 category_type = ?, final_date = ?, currency = ? WHERE id = ?`,
		g.IsActive, fmtTime(g.ModifiedOn), g.TargetAmount.String(),
		string(g.CategoryType), finalDate, g.Currency, g.ID.String())
	if err != nil {
		return fmt.Errorf("update general category: %w", err)
	}
	return requireRow(res)
}

// --- categories ---

const categoryColumns = "id, is_active, created_on, modified_on, general_id, name, folder_id, general_category_id, target_amount, budget_amount, amount_spent, amount_remaining"

func (s *SQLiteStore) scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var id, createdOn, modifiedOn, generalID, folderID, generalCategoryID string
	var target, budget, spent, remaining string
	err := row.Scan(&id, &c.IsActive, &createdOn, &modifiedOn, &generalID, &c.Name,
		&folderID, &generalCategoryID, &target, &budget, &spent, &remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return core.Category{}, fmt.Errorf("parse category id: %w", err)
	}
	if c.GeneralID, err = uuid.Parse(generalID); err != nil {
		return core.Category{}, fmt.Errorf("parse category general id: %w", err)
	}
	if c.FolderID, err = uuid.Parse(folderID); err != nil {
		return core.Category{}, fmt.Errorf("parse category folder id: %w", err)
	}
	if c.GeneralCategoryID, err = uuid.Parse(generalCategoryID); err != nil {
		return core.Category{}, fmt.Errorf("parse category general category id: %w", err)
	}
	if c.CreatedOn, err = parseTime(createdOn); err != nil {
		return core.Category{}, fmt.Errorf("parse category created_on: %w", err)
	}
	if c.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return core.Category{}, fmt.Errorf("parse category modified_on: %w", err)
	}
	if c.TargetAmount, err = parseDec(target); err != nil {
		return core.Category{}, fmt.Errorf("parse category target: %w", err)
	}
	if c.BudgetAmount, err = parseDec(budget); err != nil {
		return core.Category{}, fmt.Errorf("parse category budget: %w", err)
	}
	if c.AmountSpent, err = parseDec(spent); err != nil {
		return core.Category{}, fmt.Errorf("parse category spent: %w", err)
	}
	if c.AmountRemaining, err = parseDec(remaining); err != nil {
		return core.Category{}, fmt.Errorf("parse category remaining: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) Category(ctx context.Context, id uuid.UUID) (core.Category, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id.String())
	return s.scanCategory(row)
}

func (s *SQLiteStore) ActiveCategories(ctx context.Context, folderID uuid.UUID) ([]core.Category, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE folder_id = ? AND is_active = 1 ORDER BY created_on, id",
		folderID.String())
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := s.scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertCategory(ctx context.Context, c core.Category) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO categories ("+categoryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID.String(), c.IsActive, fmtTime(c.CreatedOn), fmtTime(c.ModifiedOn),
		c.GeneralID.String(), c.Name, c.FolderID.String(), c.GeneralCategoryID.String(),
		c.TargetAmount.String(), c.BudgetAmount.String(), c.AmountSpent.String(), c.AmountRemaining.String())
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE categories SET is_active = ?, modified_on = ?, name = ?, target_amount = ?,
		 budget_amount = ?, amount_spent = ?, amount_remaining = ? WHERE id = ?`,
		c.IsActive, fmtTime(c.ModifiedOn), c.Name, c.TargetAmount.String(),
		c.BudgetAmount.String(), c.AmountSpent.String(), c.AmountRemaining.String(), c.ID.String())
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res)
}

// --- accounts ---

const accountColumns = "id, is_active, created_on, modified_on, kind, name, current_balance, currency, account_number, notes, user_id, bank_name, credit_limit, statement_closing_day, payment_offset, supported_currencies"

func (s *SQLiteStore) scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	var id, createdOn, modifiedOn, balance, userID string
	var bankName, creditLimit, currencies sql.NullString
	var closingDay, paymentOffset sql.NullInt64
	err := row.Scan(&id, &a.IsActive, &createdOn, &modifiedOn, &a.Kind, &a.Name, &balance,
		&a.Currency, &a.AccountNumber, &a.Notes, &userID,
		&bankName, &creditLimit, &closingDay, &paymentOffset, &currencies)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return core.Account{}, fmt.Errorf("parse account id: %w", err)
	}
	if a.UserID, err = uuid.Parse(userID); err != nil {
		return core.Account{}, fmt.Errorf("parse account user id: %w", err)
	}
	if a.CreatedOn, err = parseTime(createdOn); err != nil {
		return core.Account{}, fmt.Errorf("parse account created_on: %w", err)
	}
	if a.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return core.Account{}, fmt.Errorf("parse account modified_on: %w", err)
	}
	if a.CurrentBalance, err = parseDec(balance); err != nil {
		return core.Account{}, fmt.Errorf("parse account balance: %w", err)
	}
	switch a.Kind {
	case core.BankAccount:
		a.Bank = &core.BankDetails{BankName: bankName.String}
	case core.CreditCard:
		card := &core.CardDetails{
			StatementClosingDay: int(closingDay.Int64),
			PaymentOffset:       int(paymentOffset.Int64),
		}
		if card.CreditLimit, err = parseDec(creditLimit.String); err != nil {
			return core.Account{}, fmt.Errorf("parse account credit limit: %w", err)
		}
		if currencies.String != "" {
			card.SupportedCurrencies = strings.Split(currencies.String, ",")
		}
		a.Card = card
	}
	return a, nil
}

func (s *SQLiteStore) Account(ctx context.Context, id uuid.UUID) (core.Account, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id.String())
	return s.scanAccount(row)
}

func (s *SQLiteStore) UserAccounts(ctx context.Context, userID uuid.UUID, kind core.AccountKind) ([]core.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE user_id = ?"
	args := []any{userID.String()}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY created_on, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := s.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func accountVariantFields(a core.Account) (bankName, creditLimit any, closingDay, paymentOffset any, currencies any) {
	if a.Bank != nil {
		bankName = a.Bank.BankName
	}
	if a.Card != nil {
		creditLimit = a.Card.CreditLimit.String()
		closingDay = a.Card.StatementClosingDay
		paymentOffset = a.Card.PaymentOffset
		currencies = strings.Join(a.Card.SupportedCurrencies, ",")
	}
	return
}

func (s *SQLiteStore) InsertAccount(ctx context.Context, a core.Account) error {
	bankName, creditLimit, closingDay, paymentOffset, currencies := accountVariantFields(a)
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO accounts ("+accountColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID.String(), a.IsActive, fmtTime(a.CreatedOn), fmtTime(a.ModifiedOn),
		string(a.Kind), a.Name, a.CurrentBalance.String(), a.Currency, a.AccountNumber,
		a.Notes, a.UserID.String(), bankName, creditLimit, closingDay, paymentOffset, currencies)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateAccount(ctx context.Context, a core.Account) error {
	bankName, creditLimit, closingDay, paymentOffset, currencies := accountVariantFields(a)
	res, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET is_active = ?, modified_on = ?, name = ?, current_balance = ?,
		 currency = ?, account_number = ?, notes = ?, bank_name = ?, credit_limit = ?,
		 statement_closing_day = ?, payment_offset = ?, supported_currencies = ? WHERE id = ?`,
		a.IsActive, fmtTime(a.ModifiedOn), a.Name, a.CurrentBalance.String(),
		a.Currency, a.AccountNumber, a.Notes, bankName, creditLimit,
		closingDay, paymentOffset, currencies, a.ID.String())
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

// --- transactions ---

const transactionColumns = "id, is_active, created_on, modified_on, amount, type, account_id, category_id, note, require_category_review"

func (s *SQLiteStore) scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var t core.Transaction
	var id, createdOn, modifiedOn, amount, accountID string
	var categoryID sql.NullString
	err := row.Scan(&id, &t.IsActive, &createdOn, &modifiedOn, &amount, &t.Type,
		&accountID, &categoryID, &t.Note, &t.RequireCategoryReview)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	if t.ID, err = uuid.Parse(id); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	if t.AccountID, err = uuid.Parse(accountID); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction account id: %w", err)
	}
	if categoryID.Valid {
		cid, err := uuid.Parse(categoryID.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parse transaction category id: %w", err)
		}
		t.CategoryID = &cid
	}
	if t.CreatedOn, err = parseTime(createdOn); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction created_on: %w", err)
	}
	if t.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction modified_on: %w", err)
	}
	if t.Amount, err = parseDec(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction amount: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Transaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id.String())
	return s.scanTransaction(row)
}

func (s *SQLiteStore) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE account_id = ? AND is_active = 1 ORDER BY created_on, id",
		accountID.String())
}

func (s *SQLiteStore) CategoryTransactions(ctx context.Context, categoryID uuid.UUID) ([]core.Transaction, error) {
	return s.queryTransactions(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE category_id = ? AND is_active = 1 ORDER BY created_on, id",
		categoryID.String())
}

func (s *SQLiteStore) PendingReviewCount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE account_id = ? AND is_active = 1 AND require_category_review = 1",
		accountID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending reviews: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) InsertTransaction(ctx context.Context, t core.Transaction) error {
	var categoryID any
	if t.CategoryID != nil {
		categoryID = t.CategoryID.String()
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID.String(), t.IsActive, fmtTime(t.CreatedOn), fmtTime(t.ModifiedOn),
		t.Amount.String(), string(t.Type), t.AccountID.String(), categoryID,
		t.Note, t.RequireCategoryReview)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE transactions SET is_active = ?, modified_on = ?, note = ?, require_category_review = ? WHERE id = ?",
		t.IsActive, fmtTime(t.ModifiedOn), t.Note, t.RequireCategoryReview, t.ID.String())
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

// --- effects ---

const effectColumns = "id, is_active, created_on, modified_on, transaction_id, category_id, amount, conversion_rate"

func (s *SQLiteStore) scanEffect(row interface{ Scan(...any) error }) (core.CategoryEffect, error) {
	var e core.CategoryEffect
	var id, createdOn, modifiedOn, transactionID, categoryID, amount string
	var rate sql.NullString
	err := row.Scan(&id, &e.IsActive, &createdOn, &modifiedOn, &transactionID, &categoryID, &amount, &rate)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CategoryEffect{}, ErrNotFound
	}
	if err != nil {
		return core.CategoryEffect{}, fmt.Errorf("scan effect: %w", err)
	}
	if e.ID, err = uuid.Parse(id); err != nil {
		return core.CategoryEffect{}, fmt.Errorf("parse effect id: %w", err)
	}
	if e.TransactionID, err = uuid.Parse(transactionID); err != nil {
		return core.CategoryEffect{}, fmt.Errorf("parse effect transaction id: %w", err)
	}
	if e.CategoryID, err = uuid.Parse(categoryID); err != nil {
		return core.CategoryEffect{}, fmt.Errorf("parse effect category id: %w", err)
	}
	if e.CreatedOn, err = parseTime(createdOn); err != nil {
		return core.CategoryEffect{}, fmt.Errorf("parse effect created_on: %w", err)
	}
	if e.ModifiedOn, err = parseTime(modifiedOn); err != nil {
		return core.CategoryEffect{}, fmt.Errorf("parse effect modified_on: %w", err)
	}
	if e.Amount, err = parseDec(amount); err != nil {
		return core.CategoryEffect{}, fmt.Errorf("parse effect amount: %w", err)
	}
	if rate.Valid {
		r, err := parseDec(rate.String)
		if err != nil {
			return core.CategoryEffect{}, fmt.Errorf("parse effect conversion rate: %w", err)
		}
		e.ConversionRate = &r
	}
	return e, nil
}

func (s *SQLiteStore) Effect(ctx context.Context, transactionID, categoryID uuid.UUID) (core.CategoryEffect, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+effectColumns+" FROM category_effects WHERE transaction_id = ? AND category_id = ?",
		transactionID.String(), categoryID.String())
	return s.scanEffect(row)
}

func (s *SQLiteStore) InsertEffect(ctx context.Context, e core.CategoryEffect) error {
	var rate any
	if e.ConversionRate != nil {
		rate = e.ConversionRate.String()
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO category_effects ("+effectColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID.String(), e.IsActive, fmtTime(e.CreatedOn), fmtTime(e.ModifiedOn),
		e.TransactionID.String(), e.CategoryID.String(), e.Amount.String(), rate)
	if err != nil {
		return fmt.Errorf("insert effect: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateEffect(ctx context.Context, e core.CategoryEffect) error {
	var rate any
	if e.ConversionRate != nil {
		rate = e.ConversionRate.String()
	}
	res, err := s.q.ExecContext(ctx,
		"UPDATE category_effects SET is_active = ?, modified_on = ?, amount = ?, conversion_rate = ? WHERE id = ?",
		e.IsActive, fmtTime(e.ModifiedOn), e.Amount.String(), rate, e.ID.String())
	if err != nil {
		return fmt.Errorf("update effect: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
