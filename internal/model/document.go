package model

import "time"

// Document is per-household file metadata. The bytes themselves live in
// object storage under StorageKey.
type Document struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	Title       string    `json:"title"`
	StorageKey  string    `json:"-"`
	FileName    string    `json:"file_name"`
	Mime        string    `json:"mime"`
	Size        int64     `json:"size"`
	UploadedBy  int64     `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}
