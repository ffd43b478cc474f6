package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/perabo/convivio/internal/store"
)

// Scheduler periodically reminds households about chores that are due.
// Each household is reminded at most once per day.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	push     *store.PushStore
	chores   *store.ChoreStore
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}

	// lastSent maps household id to the date of the last chore reminder.
	lastSent map[int64]string
}

// NewScheduler creates a chore reminder scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, choreStore *store.ChoreStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		push:     pushStore,
		chores:   choreStore,
		logger:   logger.With("component", "push_scheduler"),
		interval: 60 * time.Second,
		lastSent: make(map[int64]string),
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx, time.Now().UTC())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	// Only run at the start of each hour to keep the check cheap.
	if now.Minute() != 0 {
		return
	}

	householdIDs, err := s.push.ListHouseholdIDs()
	if err != nil {
		s.logger.Error("list households", "error", err)
		return
	}

	for _, hid := range householdIDs {
		s.checkChoresDue(ctx, hid, now)
	}
}

func (s *Scheduler) checkChoresDue(ctx context.Context, householdID int64, now time.Time) {
	today := now.Format("2006-01-02")

	s.mu.RLock()
	sent := s.lastSent[householdID] == today
	s.mu.RUnlock()
	if sent {
		return
	}

	due, err := s.chores.ListDueBy(householdID, now)
	if err != nil {
		s.logger.Error("list due chores", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	body := fmt.Sprintf("%d chores are due today", len(due))
	if len(due) == 1 {
		body = fmt.Sprintf("Chore due today: %s", due[0].Title)
	}

	payload := Payload{
		Title: "Chore reminder",
		Body:  body,
		URL:   "/chores",
		Tag:   "chore-daily",
	}

	// Exclude nobody, every member should see the reminder.
	s.send(ctx, householdID, 0, payload)

	s.mu.Lock()
	s.lastSent[householdID] = today
	s.mu.Unlock()
}

func (s *Scheduler) send(ctx context.Context, householdID, excludeUserID int64, payload Payload) {
	subs, err := s.push.ListByHousehold(householdID, excludeUserID)
	if err != nil {
		s.logger.Error("list subscriptions", "error", err)
		return
	}

	for _, sub := range subs {
		if err := s.service.Send(ctx, &sub, payload); err != nil {
			s.logger.Error("send chore reminder", "error", err, "subscription_id", sub.ID)
		}
	}
}
