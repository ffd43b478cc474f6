package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/perabo/convivio/internal/auth"
	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
)

type HouseholdHandler struct {
	households *store.HouseholdStore
	users      *store.UserStore
	logger     *slog.Logger
}

func NewHouseholdHandler(hs *store.HouseholdStore, us *store.UserStore, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{households: hs, users: us, logger: logger}
}

type memberInfo struct {
	UserID   int64  `json:"user_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

// Get returns the current household and its members.
func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	household, err := h.households.GetByID(householdID)
	if err != nil || household == nil {
		h.logger.Error("get household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load household")
		return
	}

	members, err := h.households.ListMembers(householdID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load household")
		return
	}

	infos := make([]memberInfo, 0, len(members))
	for _, m := range members {
		user, err := h.users.GetByID(m.UserID)
		if err != nil || user == nil {
			h.logger.Error("get member user", "error", err, "user_id", m.UserID)
			continue
		}
		infos = append(infos, memberInfo{
			UserID:   user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Role:     m.Role,
			JoinedAt: m.CreatedAt.Format("2006-01-02"),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"household": household,
		"members":   infos,
	})
}

// Update renames the household. Only the owner may rename.
func (h *HouseholdHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if ac.Role != model.RoleOwner {
		writeError(w, http.StatusForbidden, "only the owner can rename the household")
		return
	}

	var req struct {
		Name string `json:"name"`
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

	household, err := h.households.Update(ac.HouseholdID, req.Name)
	if err != nil {
		h.logger.Error("update household", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update household")
		return
	}
	writeJSON(w, http.StatusOK, household)
}
