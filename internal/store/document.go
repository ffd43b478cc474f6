package store

import (
	"database/sql"
	"fmt"

	"github.com/perabo/convivio/internal/model"
)

type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func scanDocument(scanner interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	err := scanner.Scan(
		&d.ID, &d.HouseholdID, &d.Title, &d.StorageKey, &d.FileName,
		&d.Mime, &d.Size, &d.UploadedBy, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const documentCols = `id, household_id, title, storage_key, file_name, mime, size, uploaded_by, created_at`

func (s *DocumentStore) Create(householdID int64, title, storageKey, fileName, mime string, size, uploadedBy int64) (*model.Document, error) {
	result, err := s.db.Exec(
		`INSERT INTO documents (household_id, title, storage_key, file_name, mime, size, uploaded_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		householdID, title, storageKey, fileName, mime, size, uploadedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *DocumentStore) GetByID(id int64) (*model.Document, error) {
	row := s.db.QueryRow(`SELECT `+documentCols+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *DocumentStore) ListByHousehold(householdID int64) ([]model.Document, error) {
	rows, err := s.db.Query(
		`SELECT `+documentCols+` FROM documents WHERE household_id = ? ORDER BY created_at DESC, id DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *DocumentStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
