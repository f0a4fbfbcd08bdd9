package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/requisitions/internal/notify"
	"github.com/erazemk/requisitions/internal/workflow"
)

// Options tunes the router. Zero values fall back to sensible defaults.
type Options struct {
	JWTSecret       string
	TokenTTL        time.Duration
	RequestTimeout  time.Duration
	LoginRatePerMin int
}

func (o *Options) setDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.LoginRatePerMin <= 0 {
		o.LoginRatePerMin = 10
	}
}

// NewRouter creates the API router with all endpoints registered. The event
// stream is only served when hub is non-nil.
func NewRouter(db *sql.DB, svc *workflow.Service, hub *notify.Hub, opts Options) http.Handler {
	opts.setDefaults()
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: opts.JWTSecret, TokenTTL: opts.TokenTTL}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{Service: svc}
	requestsHandler := &RequestsHandler{Service: svc}
	reassignmentsHandler := &ReassignmentsHandler{Service: svc}

	authMW := AuthMiddleware(opts.JWTSecret, db)
	timeout := middleware.Timeout(opts.RequestTimeout)
	loginLimit := newRateLimiter(opts.LoginRatePerMin).Limit

	// authed wraps a handler with authentication and the request timeout.
	authed := func(h http.HandlerFunc) http.Handler {
		return authMW(timeout(h))
	}

	// Public.
	mux.Handle("GET /api/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}))
	mux.Handle("POST /api/auth/login", loginLimit(timeout(http.HandlerFunc(authHandler.Login))))
	mux.Handle("POST /api/auth/register", loginLimit(timeout(http.HandlerFunc(authHandler.Register))))

	// Session.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/verify", authed(authHandler.Verify))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Directory.
	mux.Handle("GET /api/receivers", authed(usersHandler.Receivers))
	mux.Handle("GET /api/items/types", authed(itemsHandler.Types))
	mux.Handle("GET /api/items/{id}/history", authed(itemsHandler.GetHistory))

	// Requests.
	mux.Handle("GET /api/requests", authed(requestsHandler.List))
	mux.Handle("POST /api/requests", authed(requestsHandler.Create))
	mux.Handle("PUT /api/requests/{id}", authed(requestsHandler.Update))

	// Reassignments.
	mux.Handle("GET /api/reassignments", authed(reassignmentsHandler.List))
	mux.Handle("POST /api/reassignments/{itemID}/accept", authed(reassignmentsHandler.Accept))
	mux.Handle("POST /api/reassignments/{itemID}/reject", authed(reassignmentsHandler.Reject))

	// Events are long lived, so they skip the request timeout.
	if hub != nil {
		eventsHandler := &EventsHandler{Hub: hub}
		mux.Handle("GET /api/events", authMW(http.HandlerFunc(eventsHandler.Stream)))
	}

	return middleware.RequestID(middleware.RealIP(LoggingMiddleware(middleware.Recoverer(mux))))
}
