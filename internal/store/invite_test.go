package store

import "testing"

func TestInviteCreateAndRedeem(t *testing.T) {
	db := setupTestDB(t)
	hID, _, _ := seedHousehold(t, db)
	invites := NewInviteStore(db)

	ic, err := invites.Create("ben@example.com", hID)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if len(ic.Code) != 6 {
		t.Errorf("code length = %d, want 6 digits", len(ic.Code))
	}
	if ic.HouseholdID != hID {
		t.Errorf("household id = %d, want %d", ic.HouseholdID, hID)
	}

	got, err := invites.GetPendingByEmail("ben@example.com")
	if err != nil {
		t.Fatalf("get pending invite: %v", err)
	}
	if got == nil {
		t.Fatal("expected invite, got nil")
	}
	if got.Code != ic.Code {
		t.Errorf("pending code = %q, want %q", got.Code, ic.Code)
	}

	if err := invites.MarkUsed(ic.ID); err != nil {
		t.Fatalf("mark used: %v", err)
	}
	used, err := invites.GetPendingByEmail("ben@example.com")
	if err != nil {
		t.Fatalf("get used invite: %v", err)
	}
	if used != nil {
		t.Error("expected nil for used code")
	}
}

func TestInvitePendingUnknownEmail(t *testing.T) {
	db := setupTestDB(t)
	hID, _, _ := seedHousehold(t, db)
	invites := NewInviteStore(db)

	if _, err := invites.Create("ben@example.com", hID); err != nil {
		t.Fatalf("create invite: %v", err)
	}

	got, err := invites.GetPendingByEmail("other@example.com")
	if err != nil {
		t.Fatalf("get pending for other email: %v", err)
	}
	if got != nil {
		t.Error("expected nil for email with no invite")
	}
}

func TestInviteNewCodeInvalidatesPrevious(t *testing.T) {
	db := setupTestDB(t)
	hID, _, _ := seedHousehold(t, db)
	invites := NewInviteStore(db)

	first, err := invites.Create("ben@example.com", hID)
	if err != nil {
		t.Fatalf("create first code: %v", err)
	}
	second, err := invites.Create("ben@example.com", hID)
	if err != nil {
		t.Fatalf("create second code: %v", err)
	}

	pending, err := invites.GetPendingByEmail("ben@example.com")
	if err != nil {
		t.Fatalf("get pending code: %v", err)
	}
	if pending == nil {
		t.Fatal("expected a pending code")
	}
	if pending.ID != second.ID {
		t.Errorf("pending id = %d, want %d (the reissued code)", pending.ID, second.ID)
	}
	if pending.ID == first.ID {
		t.Error("first code should have been invalidated by the reissue")
	}
}

func TestInviteExpiry(t *testing.T) {
	db := setupTestDB(t)
	hID, _, _ := seedHousehold(t, db)
	invites := NewInviteStore(db)

	ic, err := invites.Create("ben@example.com", hID)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if _, err := db.Exec(`UPDATE invite_codes SET expires_at = datetime('now', '-1 minute') WHERE id = ?`, ic.ID); err != nil {
		t.Fatalf("expire invite: %v", err)
	}

	got, err := invites.GetPendingByEmail("ben@example.com")
	if err != nil {
		t.Fatalf("get expired invite: %v", err)
	}
	if got != nil {
		t.Error("expected nil for expired code")
	}

	deleted, err := invites.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestInviteAttempts(t *testing.T) {
	db := setupTestDB(t)
	hID, _, _ := seedHousehold(t, db)
	invites := NewInviteStore(db)

	ic, err := invites.Create("ben@example.com", hID)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	for want := 1; want <= 3; want++ {
		got, err := invites.IncrementAttempts(ic.ID)
		if err != nil {
			t.Fatalf("increment attempts: %v", err)
		}
		if got != want {
			t.Errorf("attempts = %d, want %d", got, want)
		}
	}
}
