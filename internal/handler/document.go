package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/filestore"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
	ws "github.com/perabo/convivio/internal/websocket"
)

// maxDocumentSize bounds uploads at 20 MiB.
const maxDocumentSize = 20 << 20

type DocumentHandler struct {
	store  *store.DocumentStore
	files  *filestore.Store
	hub    *ws.Hub
	logger *slog.Logger
}

func NewDocumentHandler(s *store.DocumentStore, files *filestore.Store, hub *ws.Hub, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{store: s, files: files, hub: hub, logger: logger}
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	docs, err := h.store.ListByHousehold(householdID)
	if err != nil {
		h.logger.Error("list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// Upload stores a multipart file in object storage and records its metadata.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	userID := auth.UserID(r.Context())

	if !h.files.Configured() {
		writeError(w, http.StatusServiceUnavailable, "document storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize)
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}

	key, err := h.files.Upload(r.Context(), householdID, header.Filename, mime, file)
	if err != nil {
		h.logger.Error("upload document", "error", err)
		writeError(w, http.StatusBadGateway, "failed to store document")
		return
	}

	doc, err := h.store.Create(householdID, title, key, header.Filename, mime, header.Size, userID)
	if err != nil {
		h.logger.Error("record document", "error", err)
		// Metadata failed; don't leave an orphaned object behind.
		if delErr := h.files.Delete(r.Context(), key); delErr != nil {
			h.logger.Error("clean up orphaned object", "error", delErr, "key", key)
		}
		writeError(w, http.StatusInternalServerError, "failed to record document")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("document", "created", doc.ID, nil))
	writeJSON(w, http.StatusCreated, doc)
}

// Download streams the document bytes from object storage.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	doc, ok := h.ownedDocument(w, r, householdID)
	if !ok {
		return
	}

	obj, err := h.files.Download(r.Context(), doc.StorageKey)
	if err != nil {
		h.logger.Error("download document", "error", err)
		writeError(w, http.StatusBadGateway, "failed to fetch document")
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", doc.Mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	if doc.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Error("stream document", "error", err)
	}
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	doc, ok := h.ownedDocument(w, r, householdID)
	if !ok {
		return
	}

	if err := h.files.Delete(r.Context(), doc.StorageKey); err != nil {
		h.logger.Error("delete stored object", "error", err)
		writeError(w, http.StatusBadGateway, "failed to delete document")
		return
	}

	if err := h.store.Delete(doc.ID); err != nil {
		h.logger.Error("delete document record", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("document", "deleted", doc.ID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *DocumentHandler) ownedDocument(w http.ResponseWriter, r *http.Request, householdID int64) (*model.Document, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	doc, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get document", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get document")
		return nil, false
	}
	if doc == nil || doc.HouseholdID != householdID {
		writeError(w, http.StatusNotFound, "document not found")
		return nil, false
	}
	return doc, true
}
