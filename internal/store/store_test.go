package store

import (
	"database/sql"
	"testing"

	"github.com/perabo/convivio/internal/database"
	"github.com/perabo/convivio/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedHousehold creates a household with two member users and returns their
// ids as (householdID, user1, user2).
func seedHousehold(t *testing.T, db *sql.DB) (int64, int64, int64) {
	t.Helper()
	users := NewUserStore(db)
	households := NewHouseholdStore(db)

	h, err := households.Create("Via Roma 12")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	u1, err := users.Create("ada@example.com", "Ada", "x")
	if err != nil {
		t.Fatalf("create user1: %v", err)
	}
	u2, err := users.Create("ben@example.com", "Ben", "x")
	if err != nil {
		t.Fatalf("create user2: %v", err)
	}
	if _, err := households.AddMember(h.ID, u1.ID, model.RoleOwner); err != nil {
		t.Fatalf("add member1: %v", err)
	}
	if _, err := households.AddMember(h.ID, u2.ID, model.RoleMember); err != nil {
		t.Fatalf("add member2: %v", err)
	}
	return h.ID, u1.ID, u2.ID
}
