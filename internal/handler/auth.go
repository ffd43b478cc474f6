package handler

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/email"
	"github.com/perabo/convivio/internal/middleware"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
)

const maxCodeAttempts = 5

// maxHouseholdMembers caps household size. Balances are only defined between
// two members.
const maxHouseholdMembers = 2

type AuthHandler struct {
	userStore      *store.UserStore
	householdStore *store.HouseholdStore
	sessionStore   *store.SessionStore
	inviteStore    *store.InviteStore
	emailClient    *email.Client
	logger         *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	hs *store.HouseholdStore,
	ss *store.SessionStore,
	is *store.InviteStore,
	ec *email.Client,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		userStore:      us,
		householdStore: hs,
		sessionStore:   ss,
		inviteStore:    is,
		emailClient:    ec,
		logger:         logger,
	}
}

// Register creates a user with a fresh household and opens a session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email         string `json:"email"`
		Name          string `json:"name"`
		Password      string `json:"password"`
		HouseholdName string `json:"household_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	req.HouseholdName = strings.TrimSpace(req.HouseholdName)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	if req.HouseholdName == "" {
		writeError(w, http.StatusBadRequest, "household name is required")
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("register lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "an account with that email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.userStore.Create(req.Email, req.Name, string(hash))
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	household, err := h.householdStore.Create(req.HouseholdName)
	if err != nil {
		h.logger.Error("create household", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if _, err := h.householdStore.AddMember(household.ID, user.ID, model.RoleOwner); err != nil {
		h.logger.Error("add member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sess, err := h.sessionStore.Create(user.ID, household.ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	setSessionCookie(w, r, sess.Token)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":      user,
		"household": household,
	})
}

// Login verifies credentials and opens a session scoped to the user's
// household.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	households, err := h.householdStore.ListForUser(user.ID)
	if err != nil {
		h.logger.Error("login households", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(households) == 0 {
		writeError(w, http.StatusForbidden, "account has no household")
		return
	}

	sess, err := h.sessionStore.Create(user.ID, households[0].ID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	setSessionCookie(w, r, sess.Token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":      user,
		"household": households[0],
	})
}

// Logout deletes the current session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if ok {
		if err := h.sessionStore.Delete(ac.SessionID); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Invite emails a join code to the household's second member.
func (h *AuthHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "a valid email is required")
		return
	}

	count, err := h.householdStore.CountMembers(ac.HouseholdID)
	if err != nil {
		h.logger.Error("count members", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if count >= maxHouseholdMembers {
		writeError(w, http.StatusConflict, "household is full")
		return
	}

	ic, err := h.inviteStore.Create(req.Email, ac.HouseholdID)
	if err != nil {
		h.logger.Error("create invite code", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if h.emailClient.Configured() {
		household, err := h.householdStore.GetByID(ac.HouseholdID)
		if err != nil || household == nil {
			h.logger.Error("get household", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		inviter, err := h.userStore.GetByID(ac.UserID)
		if err != nil || inviter == nil {
			h.logger.Error("get inviter", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := h.emailClient.SendInvite(req.Email, ic.Code, household.Name, inviter.Name); err != nil {
			h.logger.Error("send invite", "error", err)
			writeError(w, http.StatusBadGateway, "failed to send invite email")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
		return
	}

	// No email configured: surface the code in the server log for manual
	// delivery. Returning it to the caller would let any member mint a
	// session for an arbitrary email address.
	h.logger.Info("invite code issued", "email", req.Email, "code", ic.Code)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "created"})
}

// InviteAccept redeems an invite code and opens a session in the inviting
// household. A new account is created when the email is unknown; an existing
// account must present its password.
func (h *AuthHandler) InviteAccept(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Code     string `json:"code"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)

	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "email and code are required")
		return
	}

	ic, err := h.inviteStore.GetPendingByEmail(req.Email)
	if err != nil {
		h.logger.Error("get pending invite", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if ic == nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}

	// Count the attempt before checking the code so wrong guesses burn the
	// cap too.
	attempts, err := h.inviteStore.IncrementAttempts(ic.ID)
	if err != nil {
		h.logger.Error("increment attempts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if attempts > maxCodeAttempts {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	if subtle.ConstantTimeCompare([]byte(ic.Code), []byte(req.Code)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}

	count, err := h.householdStore.CountMembers(ic.HouseholdID)
	if err != nil {
		h.logger.Error("count members", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if count >= maxHouseholdMembers {
		writeError(w, http.StatusConflict, "household is full")
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("invitee lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user != nil {
		// The code proves control of the inbox, not of the account.
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
	}
	if user == nil {
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if len(req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		user, err = h.userStore.Create(req.Email, req.Name, string(hash))
		if err != nil {
			h.logger.Error("create invitee", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if _, err := h.householdStore.AddMember(ic.HouseholdID, user.ID, model.RoleMember); err != nil {
		h.logger.Error("add member", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.inviteStore.MarkUsed(ic.ID); err != nil {
		h.logger.Error("mark code used", "error", err)
	}

	sess, err := h.sessionStore.Create(user.ID, ic.HouseholdID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	setSessionCookie(w, r, sess.Token)
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "household_id": ic.HouseholdID})
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}
