package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
	ws "github.com/perabo/convivio/internal/websocket"
)

type ExpenseHandler struct {
	store  *store.ExpenseStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewExpenseHandler(s *store.ExpenseStore, hub *ws.Hub, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{store: s, hub: hub, logger: logger}
}

type expenseRequest struct {
	Type        string  `json:"type"`
	Amount      string  `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	SpentAt     *string `json:"spent_at"`
}

func (req *expenseRequest) validate() (decimal.Decimal, time.Time, string) {
	if req.Type != model.ExpenseTypeCommon && req.Type != model.ExpenseTypePersonal {
		return decimal.Zero, time.Time{}, "type must be common or personal"
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, time.Time{}, "amount must be a positive decimal"
	}
	if strings.TrimSpace(req.Description) == "" {
		return decimal.Zero, time.Time{}, "description is required"
	}

	spentAt := time.Now().UTC()
	if req.SpentAt != nil {
		parsed, err := time.Parse("2006-01-02", *req.SpentAt)
		if err != nil {
			return decimal.Zero, time.Time{}, "spent_at must be YYYY-MM-DD"
		}
		spentAt = parsed
	}
	return amount, spentAt, ""
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	expenses, err := h.store.ListByHousehold(householdID)
	if err != nil {
		h.logger.Error("list expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	userID := auth.UserID(r.Context())

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	amount, spentAt, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	expense, err := h.store.Create(householdID, userID, req.Type, amount, strings.TrimSpace(req.Description), strings.TrimSpace(req.Category), spentAt)
	if err != nil {
		h.logger.Error("create expense", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create expense")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("expense", "created", expense.ID, nil))
	writeJSON(w, http.StatusCreated, expense)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedExpense(w, r, householdID)
	if !ok {
		return
	}
	if existing.Settled() {
		writeError(w, http.StatusConflict, "expense is settled and can no longer be edited")
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	amount, spentAt, msg := req.validate()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	expense, err := h.store.Update(existing.ID, req.Type, amount, strings.TrimSpace(req.Description), strings.TrimSpace(req.Category), spentAt)
	if err != nil {
		h.logger.Error("update expense", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update expense")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("expense", "updated", expense.ID, nil))
	writeJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	existing, ok := h.ownedExpense(w, r, householdID)
	if !ok {
		return
	}
	if existing.Settled() {
		writeError(w, http.StatusConflict, "expense is settled and can no longer be deleted")
		return
	}

	if err := h.store.Delete(existing.ID); err != nil {
		h.logger.Error("delete expense", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("expense", "deleted", existing.ID, nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ownedExpense loads the expense from the id path param and verifies it
// belongs to the caller's household.
func (h *ExpenseHandler) ownedExpense(w http.ResponseWriter, r *http.Request, householdID int64) (*model.Expense, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	expense, err := h.store.GetByID(id)
	if err != nil {
		h.logger.Error("get expense", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get expense")
		return nil, false
	}
	if expense == nil || expense.HouseholdID != householdID {
		writeError(w, http.StatusNotFound, "expense not found")
		return nil, false
	}
	return expense, true
}
