package handler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/database"
	"github.com/perabo/convivio/internal/email"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
)

type authFixture struct {
	handler    *AuthHandler
	users      *store.UserStore
	households *store.HouseholdStore
	sessions   *store.SessionStore
	invites    *store.InviteStore
}

func setupAuthHandler(t *testing.T) *authFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &authFixture{
		users:      store.NewUserStore(db),
		households: store.NewHouseholdStore(db),
		sessions:   store.NewSessionStore(db),
		invites:    store.NewInviteStore(db),
	}
	f.handler = NewAuthHandler(
		f.users, f.households, f.sessions, f.invites,
		email.NewClient("", "", "http://localhost:8080"),
		slog.New(slog.DiscardHandler),
	)
	return f
}

func (f *authFixture) seedUser(t *testing.T, emailAddr, name, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := f.users.Create(emailAddr, name, string(hash))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *authFixture) seedOwnedHousehold(t *testing.T, owner *model.User) *model.Household {
	t.Helper()
	h, err := f.households.Create("Via Roma 12")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if _, err := f.households.AddMember(h.ID, owner.ID, model.RoleOwner); err != nil {
		t.Fatalf("add owner: %v", err)
	}
	return h
}

func postJSON(path, body string) *http.Request {
	r := httptest.NewRequest("POST", path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestInviteAcceptRequiresPasswordForExistingAccount(t *testing.T) {
	f := setupAuthHandler(t)

	owner := f.seedUser(t, "ada@example.com", "Ada", "owner-password")
	h := f.seedOwnedHousehold(t, owner)
	victim := f.seedUser(t, "ben@example.com", "Ben", "correct-password")

	ic, err := f.invites.Create("ben@example.com", h.ID)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	// Holding the code alone must not open the victim's account.
	rec := httptest.NewRecorder()
	f.handler.InviteAccept(rec, postJSON("/invite/accept",
		`{"email":"ben@example.com","code":"`+ic.Code+`","password":"wrong-password"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	member, err := f.households.GetMember(h.ID, victim.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member != nil {
		t.Fatal("victim must not be added to the household on a failed redeem")
	}

	rec = httptest.NewRecorder()
	f.handler.InviteAccept(rec, postJSON("/invite/accept",
		`{"email":"ben@example.com","code":"`+ic.Code+`","password":"correct-password"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("correct password: status = %d, want %d", rec.Code, http.StatusOK)
	}
	member, err = f.households.GetMember(h.ID, victim.ID)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if member == nil || member.Role != model.RoleMember {
		t.Fatalf("member = %+v, want joined with role member", member)
	}
}

func TestInviteAcceptWrongGuessesBurnAttemptCap(t *testing.T) {
	f := setupAuthHandler(t)

	owner := f.seedUser(t, "ada@example.com", "Ada", "owner-password")
	h := f.seedOwnedHousehold(t, owner)

	ic, err := f.invites.Create("ben@example.com", h.ID)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	wrong := "000000"
	if wrong == ic.Code {
		wrong = "000001"
	}
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		f.handler.InviteAccept(rec, postJSON("/invite/accept",
			`{"email":"ben@example.com","code":"`+wrong+`","name":"Ben","password":"longenough"}`))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("guess %d: status = %d, want %d", i+1, rec.Code, http.StatusUnauthorized)
		}
	}

	// The cap is spent; even the real code no longer redeems.
	rec := httptest.NewRecorder()
	f.handler.InviteAccept(rec, postJSON("/invite/accept",
		`{"email":"ben@example.com","code":"`+ic.Code+`","name":"Ben","password":"longenough"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("after cap: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestInviteResponseOmitsCode(t *testing.T) {
	f := setupAuthHandler(t)

	owner := f.seedUser(t, "ada@example.com", "Ada", "owner-password")
	h := f.seedOwnedHousehold(t, owner)

	r := postJSON("/invite", `{"email":"ben@example.com"}`)
	r = r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{
		UserID:      owner.ID,
		HouseholdID: h.ID,
		Role:        model.RoleOwner,
	}))
	rec := httptest.NewRecorder()
	f.handler.Invite(rec, r)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	ic, err := f.invites.GetPendingByEmail("ben@example.com")
	if err != nil || ic == nil {
		t.Fatalf("expected a pending invite, got %v (%v)", ic, err)
	}
	if strings.Contains(rec.Body.String(), ic.Code) {
		t.Errorf("response %s must not leak the invite code", rec.Body.String())
	}
}
