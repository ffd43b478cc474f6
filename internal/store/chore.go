package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/perabo/convivio/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var dueDate sql.NullTime
	var assignedTo sql.NullString
	var notes sql.NullString

	err := scanner.Scan(
		&c.ID, &c.HouseholdID, &c.Title, &dueDate, &assignedTo,
		&c.Status, &notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		c.DueDate = &dueDate.Time
	}
	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.String
	}
	if notes.Valid {
		c.Notes = notes.String
	}
	return &c, nil
}

const choreCols = `id, household_id, title, due_date, assigned_to, status, notes, created_at, updated_at`

func (s *ChoreStore) Create(householdID int64, title string, dueDate *time.Time, assignedTo *string, notes string) (*model.Chore, error) {
	result, err := s.db.Exec(
		`INSERT INTO chores (household_id, title, due_date, assigned_to, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		householdID, title, nullTime(dueDate), nullString(assignedTo), model.ChoreStatusOpen, nullStr(notes),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByHousehold(householdID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE household_id = ?
		 ORDER BY status ASC, due_date IS NULL, due_date ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// ListOpen returns up to limit open chores, latest due date first.
func (s *ChoreStore) ListOpen(householdID int64, limit int) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores
		 WHERE household_id = ? AND status = ?
		 ORDER BY due_date DESC, id DESC LIMIT ?`,
		householdID, model.ChoreStatusOpen, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list open chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// ListDueBy returns open chores due on or before the given time.
func (s *ChoreStore) ListDueBy(householdID int64, by time.Time) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores
		 WHERE household_id = ? AND status = ? AND due_date IS NOT NULL AND due_date <= ?
		 ORDER BY due_date ASC, id ASC`,
		householdID, model.ChoreStatusOpen, sqlTime(by),
	)
	if err != nil {
		return nil, fmt.Errorf("list due chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

func (s *ChoreStore) Update(id int64, title string, dueDate *time.Time, assignedTo *string, status, notes string) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET title = ?, due_date = ?, assigned_to = ?, status = ?, notes = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		title, nullTime(dueDate), nullString(assignedTo), status, nullStr(notes), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

// ToggleStatus flips a chore between open and done.
func (s *ChoreStore) ToggleStatus(id int64) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores
		 SET status = CASE status WHEN ? THEN ? ELSE ? END, updated_at = datetime('now')
		 WHERE id = ?`,
		model.ChoreStatusOpen, model.ChoreStatusDone, model.ChoreStatusOpen, id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle chore status: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
