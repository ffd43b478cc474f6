package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perabo/convivio/internal/model"
)

// ErrStaleExpense is returned when a settlement references an expense that no
// longer exists, was already settled, or belongs to another household. The
// caller should recompute the balance and retry.
var ErrStaleExpense = errors.New("expense missing, already settled, or not in household")

type SettlementStore struct {
	db *sql.DB
}

func NewSettlementStore(db *sql.DB) *SettlementStore {
	return &SettlementStore{db: db}
}

func scanSettlement(scanner interface{ Scan(...any) error }) (*model.Settlement, error) {
	var st model.Settlement
	var note sql.NullString

	err := scanner.Scan(
		&st.ID, &st.HouseholdID, &st.FromUserID, &st.ToUserID,
		&st.Amount, &note, &st.SettledOn, &st.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if note.Valid {
		st.Note = note.String
	}
	return &st, nil
}

const settlementCols = `id, household_id, from_user_id, to_user_id, amount, note, settled_on, created_at`

// CreateWithExpenses inserts a settlement, links it to the given expenses, and
// marks those expenses settled, all in one transaction. Before writing, it
// re-checks inside the transaction that every expense still exists in the
// household and is unsettled; if not, nothing is applied and ErrStaleExpense
// is returned.
func (s *SettlementStore) CreateWithExpenses(householdID, fromUserID, toUserID int64, amount decimal.Decimal, note string, settledOn time.Time, expenseIDs []int64) (*model.Settlement, error) {
	if len(expenseIDs) == 0 {
		return nil, fmt.Errorf("create settlement: no expense ids")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(expenseIDs)), ",")
	args := make([]any, 0, len(expenseIDs)+1)
	for _, id := range expenseIDs {
		args = append(args, id)
	}
	args = append(args, householdID)

	var fresh int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM expenses
		 WHERE id IN (`+placeholders+`) AND household_id = ? AND settled_at IS NULL`,
		args...,
	).Scan(&fresh)
	if err != nil {
		return nil, fmt.Errorf("check expenses: %w", err)
	}
	if fresh != len(expenseIDs) {
		return nil, ErrStaleExpense
	}

	var noteVal sql.NullString
	if note != "" {
		noteVal = sql.NullString{String: note, Valid: true}
	}

	result, err := tx.Exec(
		`INSERT INTO settlements (household_id, from_user_id, to_user_id, amount, note, settled_on)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, fromUserID, toUserID, amount, noteVal, sqlTime(settledOn),
	)
	if err != nil {
		return nil, fmt.Errorf("insert settlement: %w", err)
	}
	settlementID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	now := time.Now().UTC()
	for _, expenseID := range expenseIDs {
		if _, err := tx.Exec(
			`INSERT INTO settlement_expenses (settlement_id, expense_id) VALUES (?, ?)`,
			settlementID, expenseID,
		); err != nil {
			return nil, fmt.Errorf("link expense: %w", err)
		}
		if _, err := tx.Exec(
			`UPDATE expenses SET settled_at = ?, updated_at = datetime('now') WHERE id = ?`,
			sqlTime(now), expenseID,
		); err != nil {
			return nil, fmt.Errorf("mark expense settled: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetByID(settlementID)
}

// GetByID returns a settlement with its linked expense ids.
func (s *SettlementStore) GetByID(id int64) (*model.Settlement, error) {
	row := s.db.QueryRow(`SELECT `+settlementCols+` FROM settlements WHERE id = ?`, id)
	st, err := scanSettlement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settlement: %w", err)
	}

	st.ExpenseIDs, err = s.expenseIDs(id)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SettlementStore) expenseIDs(settlementID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT expense_id FROM settlement_expenses WHERE settlement_id = ? ORDER BY expense_id ASC`,
		settlementID,
	)
	if err != nil {
		return nil, fmt.Errorf("list settlement expenses: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expense id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByHousehold returns the household's settlements, newest first.
func (s *SettlementStore) ListByHousehold(householdID int64) ([]model.Settlement, error) {
	return s.list(householdID, 0)
}

// ListRecent returns up to limit settlements, newest first. Ties on settled_on
// break by insertion order.
func (s *SettlementStore) ListRecent(householdID int64, limit int) ([]model.Settlement, error) {
	return s.list(householdID, limit)
}

func (s *SettlementStore) list(householdID int64, limit int) ([]model.Settlement, error) {
	query := `SELECT ` + settlementCols + ` FROM settlements
	 WHERE household_id = ? ORDER BY settled_on DESC, id DESC`
	args := []any{householdID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []model.Settlement
	for rows.Next() {
		st, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range settlements {
		ids, err := s.expenseIDs(settlements[i].ID)
		if err != nil {
			return nil, err
		}
		settlements[i].ExpenseIDs = ids
	}
	return settlements, nil
}
