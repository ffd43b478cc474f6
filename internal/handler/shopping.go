package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
	ws "github.com/perabo/convivio/internal/websocket"
)

type ShoppingHandler struct {
	store  *store.ShoppingStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewShoppingHandler(s *store.ShoppingStore, hub *ws.Hub, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{store: s, hub: hub, logger: logger}
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	items, err := h.store.ListByHousehold(householdID)
	if err != nil {
		h.logger.Error("list shopping items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shopping items")
		return
	}
	if items == nil {
		items = []model.ShoppingItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ShoppingHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	userID := auth.UserID(r.Context())

	var req struct {
		Name     string `json:"name"`
		Quantity string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := h.store.CreateItem(householdID, req.Name, strings.TrimSpace(req.Quantity), userID)
	if err != nil {
		h.logger.Error("create shopping item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create shopping item")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("shopping_item", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ShoppingHandler) Update(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedItem(w, r, householdID)
	if !ok {
		return
	}

	var req struct {
		Name     string `json:"name"`
		Quantity string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := h.store.UpdateItem(existing.ID, req.Name, strings.TrimSpace(req.Quantity))
	if err != nil {
		h.logger.Error("update shopping item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update shopping item")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("shopping_item", "updated", item.ID, nil))
	writeJSON(w, http.StatusOK, item)
}

// Toggle flips the checked flag.
func (h *ShoppingHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedItem(w, r, householdID)
	if !ok {
		return
	}

	item, err := h.store.ToggleChecked(existing.ID)
	if err != nil {
		h.logger.Error("toggle shopping item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle shopping item")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("shopping_item", "toggled", item.ID, map[string]any{"is_checked": item.Checked}))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedItem(w, r, householdID)
	if !ok {
		return
	}

	if err := h.store.DeleteItem(existing.ID); err != nil {
		h.logger.Error("delete shopping item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete shopping item")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("shopping_item", "deleted", existing.ID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ShoppingHandler) ownedItem(w http.ResponseWriter, r *http.Request, householdID int64) (*model.ShoppingItem, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	item, err := h.store.GetItemByID(id)
	if err != nil {
		h.logger.Error("get shopping item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get shopping item")
		return nil, false
	}
	if item == nil || item.HouseholdID != householdID {
		writeError(w, http.StatusNotFound, "shopping item not found")
		return nil, false
	}
	return item, true
}
