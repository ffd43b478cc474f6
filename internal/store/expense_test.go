package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perabo/convivio/internal/model"
)

func TestExpenseCRUD(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, _ := seedHousehold(t, db)
	es := NewExpenseStore(db)

	e, err := es.Create(hID, u1, model.ExpenseTypeCommon, decimal.RequireFromString("42.50"), "groceries", "food", time.Now())
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if !e.Amount.Equal(decimal.RequireFromString("42.50")) {
		t.Errorf("amount = %s, want 42.50", e.Amount)
	}
	if e.Type != model.ExpenseTypeCommon {
		t.Errorf("type = %q, want common", e.Type)
	}
	if e.Settled() {
		t.Error("new expense should not be settled")
	}

	updated, err := es.Update(e.ID, model.ExpenseTypePersonal, decimal.RequireFromString("10.00"), "coffee", "", time.Now())
	if err != nil {
		t.Fatalf("update expense: %v", err)
	}
	if updated.Type != model.ExpenseTypePersonal {
		t.Errorf("updated type = %q, want personal", updated.Type)
	}
	if updated.Category != "" {
		t.Errorf("updated category = %q, want empty", updated.Category)
	}

	if err := es.Delete(e.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	got, err := es.GetByID(e.ID)
	if err != nil {
		t.Fatalf("get deleted expense: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted expense")
	}
}

func TestExpenseGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	es := NewExpenseStore(db)

	got, err := es.GetByID(9999)
	if err != nil {
		t.Fatalf("get missing expense: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing expense")
	}
}

func TestExpenseAmountRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, _ := seedHousehold(t, db)
	es := NewExpenseStore(db)

	// Values that lose precision in binary floating point survive as text.
	for _, amount := range []string{"0.01", "150.50", "65.75", "10.10"} {
		e, err := es.Create(hID, u1, model.ExpenseTypeCommon, decimal.RequireFromString(amount), "d", "", time.Now())
		if err != nil {
			t.Fatalf("create expense: %v", err)
		}
		got, err := es.GetByID(e.ID)
		if err != nil {
			t.Fatalf("get expense: %v", err)
		}
		if !got.Amount.Equal(decimal.RequireFromString(amount)) {
			t.Errorf("amount round trip = %s, want %s", got.Amount, amount)
		}
	}
}

func TestListUnsettledCommonFiltersAndOrders(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, u2 := seedHousehold(t, db)
	es := NewExpenseStore(db)

	older := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	e2, _ := es.Create(hID, u2, model.ExpenseTypeCommon, decimal.RequireFromString("20.00"), "second", "", newer)
	e1, _ := es.Create(hID, u1, model.ExpenseTypeCommon, decimal.RequireFromString("10.00"), "first", "", older)
	es.Create(hID, u1, model.ExpenseTypePersonal, decimal.RequireFromString("5.00"), "personal", "", older)

	// A settled common expense is excluded.
	settled, _ := es.Create(hID, u1, model.ExpenseTypeCommon, decimal.RequireFromString("7.00"), "settled", "", older)
	if _, err := db.Exec(`UPDATE expenses SET settled_at = datetime('now') WHERE id = ?`, settled.ID); err != nil {
		t.Fatalf("mark settled: %v", err)
	}

	list, err := es.ListUnsettledCommon(hID)
	if err != nil {
		t.Fatalf("list unsettled common: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(list))
	}
	if list[0].ID != e1.ID || list[1].ID != e2.ID {
		t.Errorf("order = [%d, %d], want [%d, %d] (spent_at ASC)", list[0].ID, list[1].ID, e1.ID, e2.ID)
	}
}

func TestSumPersonalForMonth(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, u2 := seedHousehold(t, db)
	es := NewExpenseStore(db)

	march := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	es.Create(hID, u1, model.ExpenseTypePersonal, decimal.RequireFromString("12.30"), "a", "", march)
	es.Create(hID, u1, model.ExpenseTypePersonal, decimal.RequireFromString("7.70"), "b", "", march)
	// Other month, other member, and common expenses are excluded.
	es.Create(hID, u1, model.ExpenseTypePersonal, decimal.RequireFromString("99.00"), "c", "", april)
	es.Create(hID, u2, model.ExpenseTypePersonal, decimal.RequireFromString("50.00"), "d", "", march)
	es.Create(hID, u1, model.ExpenseTypeCommon, decimal.RequireFromString("40.00"), "e", "", march)
	// Month boundaries: the first instant of March counts, of April does not.
	es.Create(hID, u1, model.ExpenseTypePersonal, decimal.RequireFromString("1.00"), "f", "",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	es.Create(hID, u1, model.ExpenseTypePersonal, decimal.RequireFromString("2.00"), "g", "",
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

	total, err := es.SumPersonalForMonth(hID, u1, 2026, time.March)
	if err != nil {
		t.Fatalf("sum personal: %v", err)
	}
	if !total.Equal(decimal.RequireFromString("21.00")) {
		t.Errorf("total = %s, want 21.00", total)
	}

	// The stored spent_at text must be readable by sqlite's date functions.
	var parsed sql.NullString
	if err := db.QueryRow(`SELECT strftime('%Y-%m', spent_at) FROM expenses LIMIT 1`).Scan(&parsed); err != nil {
		t.Fatalf("strftime over spent_at: %v", err)
	}
	if !parsed.Valid {
		t.Error("strftime returned NULL, stored spent_at is not a sqlite datetime")
	}

	empty, err := es.SumPersonalForMonth(hID, u1, 2026, time.December)
	if err != nil {
		t.Fatalf("sum empty month: %v", err)
	}
	if !empty.IsZero() {
		t.Errorf("empty month total = %s, want 0", empty)
	}
}

func TestListByHouseholdNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, _ := seedHousehold(t, db)
	es := NewExpenseStore(db)

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	a, _ := es.Create(hID, u1, model.ExpenseTypeCommon, decimal.RequireFromString("1.00"), "a", "", older)
	b, _ := es.Create(hID, u1, model.ExpenseTypeCommon, decimal.RequireFromString("2.00"), "b", "", newer)

	list, err := es.ListByHousehold(hID)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(list))
	}
	if list[0].ID != b.ID || list[1].ID != a.ID {
		t.Errorf("order = [%d, %d], want [%d, %d] (spent_at DESC)", list[0].ID, list[1].ID, b.ID, a.ID)
	}
}
