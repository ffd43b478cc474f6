package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense types. Only common expenses are split between the household members.
const (
	ExpenseTypeCommon   = "common"
	ExpenseTypePersonal = "personal"
)

type Expense struct {
	ID          int64           `json:"id"`
	HouseholdID int64           `json:"household_id"`
	UserID      int64           `json:"user_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	SpentAt     time.Time       `json:"spent_at"`
	SettledAt   *time.Time      `json:"settled_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Settled reports whether the expense has been discharged by a settlement.
func (e *Expense) Settled() bool {
	return e.SettledAt != nil
}
