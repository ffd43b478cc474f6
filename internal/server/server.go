package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/perabo/convivio/internal/email"
	"github.com/perabo/convivio/internal/filestore"
	"github.com/perabo/convivio/internal/handler"
	"github.com/perabo/convivio/internal/middleware"
	"github.com/perabo/convivio/internal/push"
	"github.com/perabo/convivio/internal/settlement"
	"github.com/perabo/convivio/internal/store"
	ws "github.com/perabo/convivio/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	householdH     *handler.HouseholdHandler
	expenseH       *handler.ExpenseHandler
	settlementH    *handler.SettlementHandler
	dashboardH     *handler.DashboardHandler
	choreH         *handler.ChoreHandler
	shoppingH      *handler.ShoppingHandler
	documentH      *handler.DocumentHandler
	pushH          *handler.PushHandler
	sessionStore   *store.SessionStore
	inviteStore    *store.InviteStore
	householdStore *store.HouseholdStore
	rateLimiter    *middleware.RateLimiter
	pushScheduler  *push.Scheduler
	logger         *slog.Logger
}

func New(
	db *sql.DB,
	emailClient *email.Client,
	files *filestore.Store,
	pushPublicKey, pushPrivateKey string,
	logger *slog.Logger,
) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	inviteStore := store.NewInviteStore(db)
	expenseStore := store.NewExpenseStore(db)
	settlementStore := store.NewSettlementStore(db)
	choreStore := store.NewChoreStore(db)
	shoppingStore := store.NewShoppingStore(db)
	documentStore := store.NewDocumentStore(db)
	pushStore := store.NewPushStore(db)

	settlementSvc := settlement.NewService(householdStore, expenseStore, settlementStore)

	var pushSvc *push.Service
	var notifier *push.Notifier
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if pushPublicKey != "" && pushPrivateKey != "" {
		pushSvc = push.NewService(pushPublicKey, pushPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, logger)
		pushSched = push.NewScheduler(pushSvc, pushStore, choreStore, logger)
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, inviteStore, emailClient, logger.With("component", "auth")),
		householdH:     handler.NewHouseholdHandler(householdStore, userStore, logger.With("component", "household")),
		expenseH:       handler.NewExpenseHandler(expenseStore, hub, logger.With("component", "expense")),
		settlementH:    handler.NewSettlementHandler(settlementSvc, settlementStore, userStore, hub, notifier, logger.With("component", "settlement")),
		dashboardH:     handler.NewDashboardHandler(settlementSvc, expenseStore, choreStore, shoppingStore, logger.With("component", "dashboard")),
		choreH:         handler.NewChoreHandler(choreStore, hub, logger.With("component", "chore")),
		shoppingH:      handler.NewShoppingHandler(shoppingStore, hub, logger.With("component", "shopping")),
		documentH:      handler.NewDocumentHandler(documentStore, files, hub, logger.With("component", "document")),
		pushH:          pushH,
		sessionStore:   sessionStore,
		inviteStore:    inviteStore,
		householdStore: householdStore,
		rateLimiter:    middleware.NewRateLimiter(),
		pushScheduler:  pushSched,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// InviteStore returns the invite code store for cleanup tasks.
func (s *Server) InviteStore() *store.InviteStore {
	return s.inviteStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PushScheduler returns the chore reminder scheduler, or nil when push is
// not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /invite/accept", s.rateLimitedHandler(s.authH.InviteAccept))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("POST /invite", s.authH.Invite)

	// Household
	mux.HandleFunc("GET /api/household", s.householdH.Get)
	mux.HandleFunc("PUT /api/household", s.householdH.Update)

	// Dashboard
	mux.HandleFunc("GET /api/dashboard", s.dashboardH.Get)

	// Expenses
	mux.HandleFunc("GET /api/expenses", s.expenseH.List)
	mux.HandleFunc("POST /api/expenses", s.expenseH.Create)
	mux.HandleFunc("PUT /api/expenses/{id}", s.expenseH.Update)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.expenseH.Delete)

	// Balance and settlements
	mux.HandleFunc("GET /api/balance", s.settlementH.Balance)
	mux.HandleFunc("POST /api/settlements", s.settlementH.Create)
	mux.HandleFunc("GET /api/settlements", s.settlementH.List)

	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)
	mux.HandleFunc("POST /api/chores/{id}/toggle", s.choreH.Toggle)

	// Shopping list
	mux.HandleFunc("GET /api/shopping", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping", s.shoppingH.Create)
	mux.HandleFunc("PUT /api/shopping/{id}", s.shoppingH.Update)
	mux.HandleFunc("DELETE /api/shopping/{id}", s.shoppingH.Delete)
	mux.HandleFunc("POST /api/shopping/{id}/toggle", s.shoppingH.Toggle)

	// Documents
	mux.HandleFunc("GET /api/documents", s.documentH.List)
	mux.HandleFunc("POST /api/documents", s.documentH.Upload)
	mux.HandleFunc("GET /api/documents/{id}/download", s.documentH.Download)
	mux.HandleFunc("DELETE /api/documents/{id}", s.documentH.Delete)

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}

	// Live sync
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
