package store

import (
	"database/sql"
	"fmt"

	"github.com/perabo/convivio/internal/model"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var it model.ShoppingItem
	var quantity sql.NullString

	err := scanner.Scan(
		&it.ID, &it.HouseholdID, &it.Name, &quantity, &it.Checked,
		&it.AddedBy, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if quantity.Valid {
		it.Quantity = quantity.String
	}
	return &it, nil
}

const shoppingItemCols = `id, household_id, name, quantity, is_checked, added_by, created_at`

func (s *ShoppingStore) CreateItem(householdID int64, name, quantity string, addedBy int64) (*model.ShoppingItem, error) {
	result, err := s.db.Exec(
		`INSERT INTO shopping_items (household_id, name, quantity, added_by) VALUES (?, ?, ?, ?)`,
		householdID, name, nullStr(quantity), addedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShoppingStore) GetItemByID(id int64) (*model.ShoppingItem, error) {
	row := s.db.QueryRow(`SELECT `+shoppingItemCols+` FROM shopping_items WHERE id = ?`, id)
	it, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	return it, nil
}

// ListByHousehold returns the household's shopping list, unchecked items first.
func (s *ShoppingStore) ListByHousehold(householdID int64) ([]model.ShoppingItem, error) {
	rows, err := s.db.Query(
		`SELECT `+shoppingItemCols+` FROM shopping_items
		 WHERE household_id = ? ORDER BY is_checked ASC, created_at DESC, id DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingItem
	for rows.Next() {
		it, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) UpdateItem(id int64, name, quantity string) (*model.ShoppingItem, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_items SET name = ?, quantity = ? WHERE id = ?`,
		name, nullStr(quantity), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShoppingStore) ToggleChecked(id int64) (*model.ShoppingItem, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_items SET is_checked = NOT is_checked WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle shopping item: %w", err)
	}
	return s.GetItemByID(id)
}

func (s *ShoppingStore) DeleteItem(id int64) error {
	_, err := s.db.Exec(`DELETE FROM shopping_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return nil
}

func (s *ShoppingStore) CountUnchecked(householdID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM shopping_items WHERE household_id = ? AND is_checked = 0`,
		householdID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unchecked items: %w", err)
	}
	return count, nil
}
