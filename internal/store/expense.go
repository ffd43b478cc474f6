package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perabo/convivio/internal/model"
)

type ExpenseStore struct {
	db *sql.DB
}

func NewExpenseStore(db *sql.DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

func scanExpense(scanner interface{ Scan(...any) error }) (*model.Expense, error) {
	var e model.Expense
	var category sql.NullString
	var settledAt sql.NullTime

	err := scanner.Scan(
		&e.ID, &e.HouseholdID, &e.UserID, &e.Type, &e.Amount,
		&e.Description, &category, &e.SpentAt, &settledAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if category.Valid {
		e.Category = category.String
	}
	if settledAt.Valid {
		e.SettledAt = &settledAt.Time
	}
	return &e, nil
}

const expenseCols = `id, household_id, user_id, type, amount, description, category, spent_at, settled_at, created_at, updated_at`

func (s *ExpenseStore) Create(householdID, userID int64, expenseType string, amount decimal.Decimal, description, category string, spentAt time.Time) (*model.Expense, error) {
	var cat sql.NullString
	if category != "" {
		cat = sql.NullString{String: category, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO expenses (household_id, user_id, type, amount, description, category, spent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		householdID, userID, expenseType, amount, description, cat, sqlTime(spentAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert expense: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ExpenseStore) GetByID(id int64) (*model.Expense, error) {
	row := s.db.QueryRow(`SELECT `+expenseCols+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListByHousehold returns all of a household's expenses, newest spend first.
func (s *ExpenseStore) ListByHousehold(householdID int64) ([]model.Expense, error) {
	rows, err := s.db.Query(
		`SELECT `+expenseCols+` FROM expenses WHERE household_id = ? ORDER BY spent_at DESC, id DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// ListUnsettledCommon returns the household's common expenses that have not
// been discharged by a settlement. This is the balance calculator's input set.
func (s *ExpenseStore) ListUnsettledCommon(householdID int64) ([]model.Expense, error) {
	rows, err := s.db.Query(
		`SELECT `+expenseCols+` FROM expenses
		 WHERE household_id = ? AND type = ? AND settled_at IS NULL
		 ORDER BY spent_at ASC, id ASC`,
		householdID, model.ExpenseTypeCommon,
	)
	if err != nil {
		return nil, fmt.Errorf("list unsettled common expenses: %w", err)
	}
	defer rows.Close()
	return collectExpenses(rows)
}

// SumPersonalForMonth totals one member's personal expenses for a calendar
// month, using a half-open [start, next month) range over spent_at.
func (s *ExpenseStore) SumPersonalForMonth(householdID, userID int64, year int, month time.Month) (decimal.Decimal, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	rows, err := s.db.Query(
		`SELECT amount FROM expenses
		 WHERE household_id = ? AND user_id = ? AND type = ?
		   AND spent_at >= ? AND spent_at < ?`,
		householdID, userID, model.ExpenseTypePersonal,
		sqlTime(start), sqlTime(end),
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum personal expenses: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount decimal.Decimal
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

func (s *ExpenseStore) Update(id int64, expenseType string, amount decimal.Decimal, description, category string, spentAt time.Time) (*model.Expense, error) {
	var cat sql.NullString
	if category != "" {
		cat = sql.NullString{String: category, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE expenses SET type = ?, amount = ?, description = ?, category = ?, spent_at = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		expenseType, amount, description, cat, sqlTime(spentAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	return s.GetByID(id)
}

func (s *ExpenseStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func collectExpenses(rows *sql.Rows) ([]model.Expense, error) {
	var expenses []model.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}
