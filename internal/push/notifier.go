package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/perabo/convivio/internal/model"
	"github.com/perabo/convivio/internal/store"
)

// Notifier fans out event-driven notifications to a household's subscribed
// devices, skipping the member who performed the action.
type Notifier struct {
	service *Service
	push    *store.PushStore
	logger  *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(svc *Service, pushStore *store.PushStore, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: svc,
		push:    pushStore,
		logger:  logger.With("component", "push"),
	}
}

// SettlementCreated notifies the other household member that the balance was
// settled. payerName is the display name of the member who paid.
func (n *Notifier) SettlementCreated(ctx context.Context, actorUserID int64, st *model.Settlement, payerName string) {
	payload := Payload{
		Title: "Balance settled",
		Body:  fmt.Sprintf("%s settled %s", payerName, st.Amount.StringFixed(2)),
		URL:   "/settlements",
		Tag:   fmt.Sprintf("settlement-%d", st.ID),
	}
	n.send(ctx, st.HouseholdID, actorUserID, payload)
}

func (n *Notifier) send(ctx context.Context, householdID, excludeUserID int64, payload Payload) {
	subs, err := n.push.ListByHousehold(householdID, excludeUserID)
	if err != nil {
		n.logger.Error("list subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		if err := n.service.Send(ctx, &sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.push.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("delete expired subscription", "error", err)
				}
				continue
			}
			n.logger.Error("send notification", "error", err, "subscription_id", sub.ID)
		}
	}
}
