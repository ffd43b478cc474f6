package store

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/perabo/convivio/internal/model"
)

// inviteTTL is how long an invite code stays redeemable.
const inviteTTL = 15 * time.Minute

type InviteStore struct {
	db *sql.DB
}

func NewInviteStore(db *sql.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanInviteCode(scanner interface{ Scan(...any) error }) (*model.InviteCode, error) {
	var ic model.InviteCode
	var usedAt sql.NullTime

	err := scanner.Scan(
		&ic.ID, &ic.Code, &ic.Email, &ic.HouseholdID,
		&ic.ExpiresAt, &usedAt, &ic.Attempts, &ic.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		ic.UsedAt = &usedAt.Time
	}
	return &ic, nil
}

const inviteCodeCols = `id, code, email, household_id, expires_at, used_at, attempts, created_at`

// generateCode returns a 6-digit numeric code (100000-999999).
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Create issues a new invite code for the household. Any previous pending
// codes for the same email are invalidated first, so at most one code per
// email is ever redeemable.
func (s *InviteStore) Create(email string, householdID int64) (*model.InviteCode, error) {
	_, err := s.db.Exec(
		`UPDATE invite_codes SET used_at = datetime('now') WHERE email = ? AND used_at IS NULL AND expires_at > datetime('now')`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("invalidate previous codes: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().UTC().Add(inviteTTL)

	result, err := s.db.Exec(
		`INSERT INTO invite_codes (code, email, household_id, expires_at) VALUES (?, ?, ?, ?)`,
		code, email, householdID, sqlTime(expiresAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert invite code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+inviteCodeCols+` FROM invite_codes WHERE id = ?`, id)
	return scanInviteCode(row)
}

// GetPendingByEmail returns the email's live invite, or nil when none is
// pending. The caller compares the submitted code itself, so wrong guesses
// can still be counted against the attempt cap.
func (s *InviteStore) GetPendingByEmail(email string) (*model.InviteCode, error) {
	row := s.db.QueryRow(
		`SELECT `+inviteCodeCols+` FROM invite_codes WHERE email = ? AND expires_at > datetime('now') AND used_at IS NULL`,
		email,
	)
	ic, err := scanInviteCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending invite: %w", err)
	}
	return ic, nil
}

// IncrementAttempts increments the attempt count and returns the new value.
func (s *InviteStore) IncrementAttempts(id int64) (int, error) {
	_, err := s.db.Exec(`UPDATE invite_codes SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}

	var attempts int
	err = s.db.QueryRow(`SELECT attempts FROM invite_codes WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("read attempts: %w", err)
	}
	return attempts, nil
}

func (s *InviteStore) MarkUsed(id int64) error {
	_, err := s.db.Exec(`UPDATE invite_codes SET used_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark invite used: %w", err)
	}
	return nil
}

func (s *InviteStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM invite_codes WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired invite codes: %w", err)
	}
	return result.RowsAffected()
}
