package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/push"
	"github.com/perabo/convivio/internal/settlement"
	"github.com/perabo/convivio/internal/store"
	ws "github.com/perabo/convivio/internal/websocket"
)

type SettlementHandler struct {
	service     *settlement.Service
	settlements *store.SettlementStore
	users       *store.UserStore
	hub         *ws.Hub
	notifier    *push.Notifier
	logger      *slog.Logger
}

func NewSettlementHandler(
	svc *settlement.Service,
	ss *store.SettlementStore,
	us *store.UserStore,
	hub *ws.Hub,
	notifier *push.Notifier,
	logger *slog.Logger,
) *SettlementHandler {
	return &SettlementHandler{
		service:     svc,
		settlements: ss,
		users:       us,
		hub:         hub,
		notifier:    notifier,
		logger:      logger,
	}
}

// Balance returns the current directional balance, or null when nothing is
// owed.
func (h *SettlementHandler) Balance(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	balance, err := h.service.ComputeBalance(householdID)
	if err != nil {
		h.logger.Error("compute balance", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Create settles the current balance. The balance is recomputed server-side
// and the referenced expenses are re-validated inside the storage transaction;
// a concurrent change surfaces as a 409 so the caller can retry.
func (h *SettlementHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	userID := auth.UserID(r.Context())

	var req struct {
		Note      string  `json:"note"`
		SettledOn *string `json:"settled_on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var settledOn *time.Time
	if req.SettledOn != nil {
		parsed, err := time.Parse("2006-01-02", *req.SettledOn)
		if err != nil {
			writeError(w, http.StatusBadRequest, "settled_on must be YYYY-MM-DD")
			return
		}
		settledOn = &parsed
	}

	st, err := h.service.CreateFromBalance(householdID, strings.TrimSpace(req.Note), settledOn)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrNothingToSettle):
			writeError(w, http.StatusUnprocessableEntity, "nothing to settle")
		case errors.Is(err, store.ErrStaleExpense):
			writeError(w, http.StatusConflict, "expenses changed while settling, recompute and retry")
		default:
			h.logger.Error("create settlement", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create settlement")
		}
		return
	}

	h.hub.Broadcast(householdID, ws.NewMessage("settlement", "created", st.ID, nil))

	if h.notifier != nil {
		payerName := ""
		if payer, err := h.users.GetByID(st.FromUserID); err == nil && payer != nil {
			payerName = payer.Name
		}
		// The request context ends when the response is written, so the
		// notification gets its own.
		go h.notifier.SettlementCreated(context.Background(), userID, st, payerName)
	}

	writeJSON(w, http.StatusCreated, st)
}

func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	settlements, err := h.settlements.ListByHousehold(householdID)
	if err != nil {
		h.logger.Error("list settlements", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}
	if settlements == nil {
		settlements = []model.Settlement{}
	}
	writeJSON(w, http.StatusOK, settlements)
}
