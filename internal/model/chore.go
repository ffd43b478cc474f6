package model

import "time"

// Chore statuses.
const (
	ChoreStatusOpen = "open"
	ChoreStatusDone = "done"
)

// ChoreAssigneeBoth marks a chore assigned to both household members.
const ChoreAssigneeBoth = "both"

type Chore struct {
	ID          int64      `json:"id"`
	HouseholdID int64      `json:"household_id"`
	Title       string     `json:"title"`
	DueDate     *time.Time `json:"due_date"`
	// AssignedTo holds a member's user id as a string, or "both".
	AssignedTo *string   `json:"assigned_to"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
