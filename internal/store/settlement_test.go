package store

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perabo/convivio/internal/model"
)

func createCommonExpense(t *testing.T, es *ExpenseStore, hID, uID int64, amount string) *model.Expense {
	t.Helper()
	e, err := es.Create(hID, uID, model.ExpenseTypeCommon, decimal.RequireFromString(amount), "shared", "", time.Now())
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}

func TestCreateWithExpenses(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, u2 := seedHousehold(t, db)
	es := NewExpenseStore(db)
	ss := NewSettlementStore(db)

	e1 := createCommonExpense(t, es, hID, u1, "30.00")
	e2 := createCommonExpense(t, es, hID, u1, "12.50")

	st, err := ss.CreateWithExpenses(hID, u2, u1, decimal.RequireFromString("21.25"), "april", time.Now(), []int64{e1.ID, e2.ID})
	if err != nil {
		t.Fatalf("create settlement: %v", err)
	}
	if !st.Amount.Equal(decimal.RequireFromString("21.25")) {
		t.Errorf("amount = %s, want 21.25", st.Amount)
	}
	if st.Note != "april" {
		t.Errorf("note = %q, want april", st.Note)
	}
	if len(st.ExpenseIDs) != 2 {
		t.Fatalf("expected 2 linked expenses, got %d", len(st.ExpenseIDs))
	}

	for _, id := range []int64{e1.ID, e2.ID} {
		got, err := es.GetByID(id)
		if err != nil {
			t.Fatalf("get expense: %v", err)
		}
		if !got.Settled() {
			t.Errorf("expense %d not marked settled", id)
		}
	}
}

func TestCreateWithExpensesStale(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, u2 := seedHousehold(t, db)
	es := NewExpenseStore(db)
	ss := NewSettlementStore(db)

	e := createCommonExpense(t, es, hID, u1, "10.00")

	// Missing expense id aborts the whole transaction.
	_, err := ss.CreateWithExpenses(hID, u2, u1, decimal.RequireFromString("5.00"), "", time.Now(), []int64{e.ID, 9999})
	if !errors.Is(err, ErrStaleExpense) {
		t.Fatalf("err = %v, want ErrStaleExpense", err)
	}

	// The valid expense must be untouched after the rollback.
	got, err := es.GetByID(e.ID)
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	if got.Settled() {
		t.Error("expense settled despite failed settlement")
	}
	list, err := ss.ListByHousehold(hID)
	if err != nil {
		t.Fatalf("list settlements: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected 0 settlements, got %d", len(list))
	}
}

func TestCreateWithExpensesWrongHousehold(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, u2 := seedHousehold(t, db)
	es := NewExpenseStore(db)
	ss := NewSettlementStore(db)
	hs := NewHouseholdStore(db)

	other, err := hs.Create("Elsewhere")
	if err != nil {
		t.Fatalf("create other household: %v", err)
	}
	foreign := createCommonExpense(t, es, other.ID, u1, "10.00")

	_, err = ss.CreateWithExpenses(hID, u2, u1, decimal.RequireFromString("5.00"), "", time.Now(), []int64{foreign.ID})
	if !errors.Is(err, ErrStaleExpense) {
		t.Fatalf("err = %v, want ErrStaleExpense", err)
	}
}

func TestListRecentOrderAndLimit(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, u2 := seedHousehold(t, db)
	es := NewExpenseStore(db)
	ss := NewSettlementStore(db)

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		e := createCommonExpense(t, es, hID, u1, "10.00")
		st, err := ss.CreateWithExpenses(hID, u2, u1, decimal.RequireFromString("5.00"), "", day, []int64{e.ID})
		if err != nil {
			t.Fatalf("create settlement %d: %v", i, err)
		}
		ids = append(ids, st.ID)
	}

	recent, err := ss.ListRecent(hID, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(recent))
	}
	// Same settled_on ties break by newest insertion first.
	if recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Errorf("order = [%d, %d], want [%d, %d]", recent[0].ID, recent[1].ID, ids[2], ids[1])
	}
}

func TestExpenseDeleteCascadesOutOfJoinTable(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, u2 := seedHousehold(t, db)
	es := NewExpenseStore(db)
	ss := NewSettlementStore(db)

	e1 := createCommonExpense(t, es, hID, u1, "10.00")
	e2 := createCommonExpense(t, es, hID, u1, "20.00")
	st, err := ss.CreateWithExpenses(hID, u2, u1, decimal.RequireFromString("15.00"), "", time.Now(), []int64{e1.ID, e2.ID})
	if err != nil {
		t.Fatalf("create settlement: %v", err)
	}

	if err := es.Delete(e1.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}

	got, err := ss.GetByID(st.ID)
	if err != nil {
		t.Fatalf("get settlement: %v", err)
	}
	if len(got.ExpenseIDs) != 1 || got.ExpenseIDs[0] != e2.ID {
		t.Errorf("expense ids = %v, want [%d]", got.ExpenseIDs, e2.ID)
	}
}
