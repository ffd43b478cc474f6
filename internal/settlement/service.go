// Package settlement computes the running balance between the two members of
// a household and converts it into immutable settlement records.
package settlement

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
)

// negligible is the threshold under which an imbalance is treated as rounding
// noise rather than a debt worth settling.
var negligible = decimal.New(1, -2) // 0.01

// ErrNothingToSettle is returned by CreateFromBalance when the household has
// no balance to settle.
var ErrNothingToSettle = errors.New("nothing to settle")

// Balance is a directional transfer: FromUserID owes ToUserID Amount, covering
// the listed unsettled common expenses.
type Balance struct {
	FromUserID int64           `json:"from_user_id"`
	ToUserID   int64           `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount"`
	ExpenseIDs []int64         `json:"expense_ids"`
}

// Metrics is the read-only aggregate consumed by the dashboard.
type Metrics struct {
	Balance           *Balance           `json:"balance"`
	TotalUnsettled    decimal.Decimal    `json:"total_unsettled"`
	RecentSettlements []model.Settlement `json:"recent_settlements"`
}

// recentSettlementLimit bounds the dashboard's settlement history.
const recentSettlementLimit = 5

type Service struct {
	households  *store.HouseholdStore
	expenses    *store.ExpenseStore
	settlements *store.SettlementStore
}

func NewService(hs *store.HouseholdStore, es *store.ExpenseStore, ss *store.SettlementStore) *Service {
	return &Service{households: hs, expenses: es, settlements: ss}
}

// ComputeBalance returns who owes whom across the household's unsettled common
// expenses, or nil when nothing is owed. Nil covers three normal outcomes: the
// household does not have exactly two members, there are no unsettled common
// expenses, or the imbalance is below one cent.
func (s *Service) ComputeBalance(householdID int64) (*Balance, error) {
	members, err := s.households.ListMembers(householdID)
	if err != nil {
		return nil, fmt.Errorf("compute balance: %w", err)
	}
	if len(members) != 2 {
		// Balances are only defined for two-person households.
		return nil, nil
	}
	user1, user2 := members[0].UserID, members[1].UserID

	expenses, err := s.expenses.ListUnsettledCommon(householdID)
	if err != nil {
		return nil, fmt.Errorf("compute balance: %w", err)
	}
	if len(expenses) == 0 {
		return nil, nil
	}

	total := decimal.Zero
	paid := map[int64]decimal.Decimal{user1: decimal.Zero, user2: decimal.Zero}
	ids := make([]int64, 0, len(expenses))
	for _, e := range expenses {
		total = total.Add(e.Amount)
		if _, ok := paid[e.UserID]; ok {
			paid[e.UserID] = paid[e.UserID].Add(e.Amount)
		}
		ids = append(ids, e.ID)
	}

	share := total.Div(decimal.NewFromInt(2))
	delta := paid[user1].Sub(share)

	if delta.Abs().LessThan(negligible) {
		return nil, nil
	}

	balance := &Balance{
		Amount:     delta.Abs().Round(2),
		ExpenseIDs: ids,
	}
	if delta.IsPositive() {
		// user1 overpaid: user2 owes user1.
		balance.FromUserID, balance.ToUserID = user2, user1
	} else {
		balance.FromUserID, balance.ToUserID = user1, user2
	}
	return balance, nil
}

// CreateInput carries the caller-supplied data for recording a settlement.
type CreateInput struct {
	FromUserID int64
	ToUserID   int64
	Amount     decimal.Decimal
	ExpenseIDs []int64
	Note       string
	SettledOn  *time.Time
}

// CreateSettlement records a settlement and marks the referenced expenses
// settled, atomically. The expense ids are re-validated inside the storage
// transaction; a stale reference aborts the whole operation with
// store.ErrStaleExpense.
func (s *Service) CreateSettlement(householdID int64, in CreateInput) (*model.Settlement, error) {
	if len(in.ExpenseIDs) == 0 {
		return nil, fmt.Errorf("create settlement: no expenses to settle")
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("create settlement: amount must be positive")
	}

	settledOn := time.Now().UTC()
	if in.SettledOn != nil {
		settledOn = in.SettledOn.UTC()
	}

	st, err := s.settlements.CreateWithExpenses(
		householdID, in.FromUserID, in.ToUserID,
		in.Amount.Round(2), in.Note, settledOn, in.ExpenseIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("create settlement: %w", err)
	}
	return st, nil
}

// CreateFromBalance recomputes the household's balance and settles it in one
// call. Returns ErrNothingToSettle when no balance is owed.
func (s *Service) CreateFromBalance(householdID int64, note string, settledOn *time.Time) (*model.Settlement, error) {
	balance, err := s.ComputeBalance(householdID)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, ErrNothingToSettle
	}

	return s.CreateSettlement(householdID, CreateInput{
		FromUserID: balance.FromUserID,
		ToUserID:   balance.ToUserID,
		Amount:     balance.Amount,
		ExpenseIDs: balance.ExpenseIDs,
		Note:       note,
		SettledOn:  settledOn,
	})
}

// GetMetrics aggregates the dashboard's settlement figures: current balance,
// total of unsettled common expenses, and the most recent settlements.
func (s *Service) GetMetrics(householdID int64) (*Metrics, error) {
	balance, err := s.ComputeBalance(householdID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.ListUnsettledCommon(householdID)
	if err != nil {
		return nil, fmt.Errorf("settlement metrics: %w", err)
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}

	recent, err := s.settlements.ListRecent(householdID, recentSettlementLimit)
	if err != nil {
		return nil, fmt.Errorf("settlement metrics: %w", err)
	}

	return &Metrics{
		Balance:           balance,
		TotalUnsettled:    total,
		RecentSettlements: recent,
	}, nil
}
