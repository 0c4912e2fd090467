package http

import (
	"LinkVault-Backend/internal/auth"
	"LinkVault-Backend/internal/config"
	"LinkVault-Backend/internal/repository"
	"LinkVault-Backend/internal/service"
	"LinkVault-Backend/pkg/useragent"
	"net/http"

	"go.uber.org/zap"
)

// Server wires the HTTP handlers and middleware into a routable handler.
type Server struct {
	linksHandler        *LinksHandler
	subscriptionHandler *SubscriptionHandler
	billingHandler      *BillingHandler
	shareHandler        *ShareHandler
	settingsHandler     *SettingsHandler
	cleanupHandler      *CleanupHandler
	healthHandler       *HealthHandler
	authMiddleware      *auth.Middleware
	log                 *zap.Logger
}

// NewServer creates the HTTP server wiring.
func NewServer(
	storage repository.Storage,
	linkService *service.LinkService,
	entitlement *service.EntitlementService,
	billing *service.BillingService,
	cleanup *service.CleanupService,
	verifier *auth.Verifier,
	cfg *config.Config,
	log *zap.Logger,
) *Server {
	classifier := useragent.NewClassifier()

	return &Server{
		linksHandler:        NewLinksHandler(storage, linkService, entitlement, log),
		subscriptionHandler: NewSubscriptionHandler(entitlement, log),
		billingHandler:      NewBillingHandler(billing, &cfg.Stripe, log),
		shareHandler:        NewShareHandler(storage, classifier, log),
		settingsHandler:     NewSettingsHandler(storage, log),
		cleanupHandler:      NewCleanupHandler(cleanup, cfg.Cleanup.CronSecret, log),
		healthHandler:       NewHealthHandler(storage, log),
		authMiddleware:      auth.NewMiddleware(verifier, log),
		log:                 log,
	}
}

// SetupRoutes registers all routes and returns the root handler.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Health checks (no auth)
	mux.HandleFunc("/health", s.healthHandler.Health)
	mux.HandleFunc("/ready", s.healthHandler.Ready)
	mux.HandleFunc("/metrics", s.healthHandler.Metrics)

	// Link endpoints (authenticated)
	mux.HandleFunc("/api/links", s.withCORS(s.authMiddleware.RequireAuth(s.handleLinksCollection)))
	mux.HandleFunc("/api/links/", s.withCORS(s.authMiddleware.RequireAuth(s.handleLinkItem)))

	// Entitlement endpoints (authenticated)
	mux.HandleFunc("/api/subscription/limits", s.withCORS(s.authMiddleware.RequireAuth(s.subscriptionHandler.GetLimits)))
	mux.HandleFunc("/api/ads/credit", s.withCORS(s.authMiddleware.RequireAuth(s.subscriptionHandler.AwardAdCredit)))

	// Billing endpoints; the webhook is authenticated by its signature
	mux.HandleFunc("/api/stripe/checkout", s.withCORS(s.authMiddleware.RequireAuth(s.billingHandler.CreateCheckout)))
	mux.HandleFunc("/api/stripe/customer-portal", s.withCORS(s.authMiddleware.RequireAuth(s.billingHandler.CreatePortal)))
	mux.HandleFunc("/api/stripe/webhook", s.billingHandler.Webhook)

	// Settings endpoints (authenticated)
	mux.HandleFunc("/api/settings", s.withCORS(s.authMiddleware.RequireAuth(s.handleSettings)))
	mux.HandleFunc("/api/settings/export", s.withCORS(s.authMiddleware.RequireAuth(s.settingsHandler.Export)))
	mux.HandleFunc("/api/settings/delete-all", s.withCORS(s.authMiddleware.RequireAuth(s.handleDeleteAll)))

	// Cleanup: GET is the cron-secret protected global sweep, POST the
	// per-user sweep behind the normal token
	mux.HandleFunc("/api/cleanup", s.withCORS(s.handleCleanup))

	// Public share endpoints (no auth)
	mux.HandleFunc("/api/share/", s.withCORS(s.shareHandler.GetShared))
	mux.HandleFunc("/api/track/", s.withCORS(s.shareHandler.TrackClick))

	return mux
}

// handleLinksCollection dispatches /api/links by HTTP method.
func (s *Server) handleLinksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.linksHandler.ListLinks(w, r)
	case http.MethodPost:
		s.linksHandler.CreateLink(w, r)
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleLinkItem dispatches /api/links/{id} by HTTP method.
func (s *Server) handleLinkItem(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		s.linksHandler.UpdateLink(w, r)
	case http.MethodDelete:
		s.linksHandler.DeleteLink(w, r)
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDeleteAll restricts the data wipe endpoint to DELETE.
func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.settingsHandler.DeleteAll(w, r)
}

// handleSettings dispatches /api/settings by HTTP method.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.settingsHandler.GetSettings(w, r)
	case http.MethodPut:
		s.settingsHandler.UpdateSettings(w, r)
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCleanup dispatches /api/cleanup by HTTP method. The two methods use
// different authentication schemes, so dispatch happens before auth.
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.cleanupHandler.RunSweep(w, r)
	case http.MethodPost:
		s.authMiddleware.RequireAuth(s.cleanupHandler.SweepUser)(w, r)
	default:
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) withCORS(handler http.HandlerFunc) http.HandlerFunc {
	return s.authMiddleware.CORS(handler)
}
