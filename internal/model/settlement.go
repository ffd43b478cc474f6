package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement records a transfer from one household member to the other,
// discharging the linked expenses. Immutable after creation.
type Settlement struct {
	ID          int64           `json:"id"`
	HouseholdID int64           `json:"household_id"`
	FromUserID  int64           `json:"from_user_id"`
	ToUserID    int64           `json:"to_user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Note        string          `json:"note,omitempty"`
	SettledOn   time.Time       `json:"settled_on"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpenseIDs  []int64         `json:"expense_ids,omitempty"`
}
