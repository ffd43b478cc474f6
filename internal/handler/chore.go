package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
	ws "github.com/perabo/convivio/internal/websocket"
)

type ChoreHandler struct {
	store  *store.ChoreStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewChoreHandler(s *store.ChoreStore, hub *ws.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{store: s, hub: hub, logger: logger}
}

type choreRequest struct {
	Title      string  `json:"title"`
	DueDate    *string `json:"due_date"`
	AssignedTo *string `json:"assigned_to"`
	Status     string  `json:"status"`
	Notes      string  `json:"notes"`
}

func (req *choreRequest) validate() (*time.Time, string) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, "title is required"
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return nil, "due_date must be YYYY-MM-DD"
		}
		dueDate = &parsed
	}

	if req.AssignedTo != nil && *req.AssignedTo != "" && *req.AssignedTo != model.ChoreAssigneeBoth {
		if _, err := strconv.ParseInt(*req.AssignedTo, 10, 64); err != nil {
			return nil, `assigned_to must be a member id or "both"`
		}
	}
	return dueDate, ""
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	chores, err := h.store.ListByHousehold(householdID)
	if err != nil {
		h.logger.Error("list chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	dueDate, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	chore, err := h.store.Create(householdID, strings.TrimSpace(req.Title), dueDate, req.AssignedTo, strings.TrimSpace(req.Notes))
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("chore", "created", chore.ID, nil))
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedChore(w, r, householdID)
	if !ok {
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	dueDate, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	status := req.Status
	if status == "" {
		status = existing.Status
	}
	if status != model.ChoreStatusOpen && status != model.ChoreStatusDone {
		writeError(w, http.StatusBadRequest, "status must be open or done")
		return
	}

	chore, err := h.store.Update(existing.ID, strings.TrimSpace(req.Title), dueDate, req.AssignedTo, status, strings.TrimSpace(req.Notes))
	if err != nil {
		h.logger.Error("update chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("chore", "updated", chore.ID, nil))
	writeJSON(w, http.StatusOK, chore)
}

// Toggle flips the chore between open and done.
func (h *ChoreHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedChore(w, r, householdID)
	if !ok {
		return
	}

	chore, err := h.store.ToggleStatus(existing.ID)
	if err != nil {
		h.logger.Error("toggle chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle chore")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("chore", "toggled", chore.ID, map[string]any{"status": chore.Status}))
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedChore(w, r, householdID)
	if !ok {
		return
	}

	if err := h.store.Delete(existing.ID); err != nil {
		h.logger.Error("delete chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("chore", "deleted", existing.ID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ChoreHandler) ownedChore(w http.ResponseWriter, r *http.Request, householdID int64) (*model.Chore, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	chore, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return nil, false
	}
	if chore == nil || chore.HouseholdID != householdID {
		writeError(w, http.StatusNotFound, "chore not found")
		return nil, false
	}
	return chore, true
}
