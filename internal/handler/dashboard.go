package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/settlement"
	"github.com/perabo/convivio/internal/store"
)

// openChoreLimit bounds the dashboard's chore preview.
const openChoreLimit = 5

type DashboardHandler struct {
	service  *settlement.Service
	expenses *store.ExpenseStore
	chores   *store.ChoreStore
	shopping *store.ShoppingStore
	logger   *slog.Logger
}

func NewDashboardHandler(
	svc *settlement.Service,
	es *store.ExpenseStore,
	cs *store.ChoreStore,
	shs *store.ShoppingStore,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		service:  svc,
		expenses: es,
		chores:   cs,
		shopping: shs,
		logger:   logger,
	}
}

type dashboardResponse struct {
	Balance               *settlement.Balance `json:"balance"`
	TotalUnsettled        decimal.Decimal     `json:"total_unsettled"`
	RecentSettlements     []model.Settlement  `json:"recent_settlements"`
	PersonalThisMonth     decimal.Decimal     `json:"personal_expenses_this_month"`
	OpenChores            []model.Chore       `json:"open_chores"`
	UncheckedShoppingItem int                 `json:"unchecked_shopping_items"`
}

// Get assembles the dashboard payload: settlement metrics plus the caller's
// personal spending this month, open chores, and the shopping list count.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())
	userID := auth.UserID(r.Context())

	metrics, err := h.service.GetMetrics(householdID)
	if err != nil {
		h.logger.Error("get metrics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	now := time.Now().UTC()
	personal, err := h.expenses.SumPersonalForMonth(householdID, userID, now.Year(), now.Month())
	if err != nil {
		h.logger.Error("sum personal expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	openChores, err := h.chores.ListOpen(householdID, openChoreLimit)
	if err != nil {
		h.logger.Error("list open chores", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	if openChores == nil {
		openChores = []model.Chore{}
	}

	unchecked, err := h.shopping.CountUnchecked(householdID)
	if err != nil {
		h.logger.Error("count shopping items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	recent := metrics.RecentSettlements
	if recent == nil {
		recent = []model.Settlement{}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Balance:               metrics.Balance,
		TotalUnsettled:        metrics.TotalUnsettled,
		RecentSettlements:     recent,
		PersonalThisMonth:     personal,
		OpenChores:            openChores,
		UncheckedShoppingItem: unchecked,
	})
}
