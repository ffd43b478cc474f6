package store

import "testing"

func TestPushSubscriptionUpsert(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, _ := seedHousehold(t, db)
	ps := NewPushStore(db)

	sub, err := ps.CreateSubscription(u1, hID, "https://push.example/ep1", "p256-a", "auth-a", "phone")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.P256dhKey != "p256-a" {
		t.Errorf("p256dh = %q, want p256-a", sub.P256dhKey)
	}

	// Re-subscribing the same endpoint replaces the keys, not duplicates.
	again, err := ps.CreateSubscription(u1, hID, "https://push.example/ep1", "p256-b", "auth-b", "phone")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if again.P256dhKey != "p256-b" {
		t.Errorf("p256dh after upsert = %q, want p256-b", again.P256dhKey)
	}

	subs, err := ps.ListByHousehold(hID, 0)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
}

func TestPushListByHouseholdExcludesActor(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, u2 := seedHousehold(t, db)
	ps := NewPushStore(db)

	ps.CreateSubscription(u1, hID, "https://push.example/ep1", "k", "a", "")
	ps.CreateSubscription(u2, hID, "https://push.example/ep2", "k", "a", "")

	subs, err := ps.ListByHousehold(hID, u1)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	if subs[0].UserID != u2 {
		t.Errorf("subscription user = %d, want %d", subs[0].UserID, u2)
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, _ := seedHousehold(t, db)
	ps := NewPushStore(db)

	ps.CreateSubscription(u1, hID, "https://push.example/gone", "k", "a", "")
	if err := ps.DeleteByEndpoint("https://push.example/gone"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	subs, err := ps.ListByHousehold(hID, 0)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expected 0 subscriptions, got %d", len(subs))
	}
}

func TestPushListHouseholdIDs(t *testing.T) {
	db := setupTestDB(t)
	hID, u1, _ := seedHousehold(t, db)
	ps := NewPushStore(db)

	ids, err := ps.ListHouseholdIDs()
	if err != nil {
		t.Fatalf("list household ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no households, got %d", len(ids))
	}

	ps.CreateSubscription(u1, hID, "https://push.example/ep1", "k", "a", "")
	ps.CreateSubscription(u1, hID, "https://push.example/ep2", "k", "a", "")

	ids, err = ps.ListHouseholdIDs()
	if err != nil {
		t.Fatalf("list household ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != hID {
		t.Errorf("household ids = %v, want [%d]", ids, hID)
	}
}
