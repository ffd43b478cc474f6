package database

import "testing"

func TestOpenEnforcesForeignKeys(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var fk int
	if err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("pragma foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}

	// A child row referencing a missing parent must be rejected.
	_, err = db.Exec(
		`INSERT INTO household_members (household_id, user_id, role) VALUES (9999, 9999, 'member')`,
	)
	if err == nil {
		t.Fatal("expected foreign key violation for missing household")
	}
}

func TestOpenCascadesDeletes(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(`INSERT INTO households (name) VALUES ('Via Roma 12')`); err != nil {
		t.Fatalf("insert household: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO users (email, name, password_hash) VALUES ('ada@example.com', 'Ada', 'x')`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO household_members (household_id, user_id, role) VALUES (1, 1, 'owner')`); err != nil {
		t.Fatalf("insert member: %v", err)
	}

	if _, err := db.Exec(`DELETE FROM households WHERE id = 1`); err != nil {
		t.Fatalf("delete household: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM household_members`).Scan(&count); err != nil {
		t.Fatalf("count members: %v", err)
	}
	if count != 0 {
		t.Errorf("members after household delete = %d, want 0", count)
	}
}
