package model

import "time"

type ShoppingItem struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Name        string    `json:"name"`
	Quantity    string    `json:"quantity,omitempty"`
	Checked     bool      `json:"is_checked"`
	AddedBy     int64     `json:"added_by"`
	CreatedAt   time.Time `json:"created_at"`
}
