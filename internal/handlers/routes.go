package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	// The websocket is long-lived and stays outside the request timeout
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		if h.staticServer != nil {
			r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
		}

		// Public pages
		r.Get("/", h.handleIndex)
		r.Get("/p/{code}", h.handleParticipantPage)

		// Public API
		r.Get("/api/grid", h.handleGetGrid)
		r.Get("/api/game", h.handleGetGame)
		r.Get("/api/winners", h.handleGetWinners)
		r.Post("/api/participants", h.handleRegister)
		r.Get("/api/participants/{code}", h.handleGetParticipantView)
		r.Post("/api/squares/claim", h.handleClaimSquares)
		r.Post("/api/squares/release", h.handleReleaseSquares)
		r.Get("/api/props", h.handleGetPublicProps)
		r.Post("/api/props/{id}/answer", h.handleSubmitAnswer)
		r.Get("/api/leaderboard", h.handleGetLeaderboard)

		// Payment provider callback, authenticated by signature
		r.Post("/api/webhooks/payment", h.handlePaymentWebhook)

		// Auth routes (public)
		r.Get("/admin/login", h.handleLoginPage)
		r.Post("/admin/login", h.handleLogin)
		r.Post("/admin/logout", h.handleLogout)

		// Admin pages (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdminPage)
			r.Get("/admin", h.handleAdminDashboard)
			r.Get("/admin/grid", h.handleAdminGrid)
			r.Get("/admin/game", h.handleAdminGame)
			r.Get("/admin/props", h.handleAdminProps)
			r.Get("/admin/participants", h.handleAdminParticipants)
			r.Get("/admin/settings", h.handleAdminSettings)
		})

		// Admin API (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAdminAPI)

			// Pool
			r.Get("/api/admin/stats", h.handleGetStats)
			r.Get("/api/admin/settings", h.handleGetSettings)
			r.Put("/api/admin/settings", h.handleUpdateSettings)
			r.Post("/api/admin/settings", h.handleUpdateSettings)
			r.Post("/api/admin/reset", h.handleResetPool)
			r.Get("/api/admin/logging", h.handleGetLogging)
			r.Put("/api/admin/logging", h.handleSetLogging)

			// Participants
			r.Get("/api/admin/participants", h.handleGetParticipants)
			r.Put("/api/admin/participants/{id}", h.handleUpdateParticipant)
			r.Delete("/api/admin/participants/{id}", h.handleDeleteParticipant)
			r.Get("/api/admin/participants/{id}/qr", h.handleGetParticipantQR)
			r.Get("/api/admin/invite-qr", h.handleGetInviteQR)

			// Grid
			r.Put("/api/admin/squares", h.handleSetSquare)
			r.Post("/api/admin/squares/confirm", h.handleConfirmSquares)
			r.Post("/api/admin/squares/sweep", h.handleSweepReservations)
			r.Post("/api/admin/launch", h.handleLaunch)

			// Game
			r.Put("/api/admin/game", h.handleUpdateGame)
			r.Post("/api/admin/game/start", h.handleStartGame)
			r.Post("/api/admin/game/resume", h.handleResumeGame)
			r.Post("/api/admin/game/end-quarter", h.handleEndQuarter)
			r.Post("/api/admin/game/sync", h.handleSyncScore)

			// Props
			r.Get("/api/admin/props", h.handleGetProps)
			r.Post("/api/admin/props", h.handleCreateProp)
			r.Put("/api/admin/props/{id}", h.handleUpdateProp)
			r.Delete("/api/admin/props/{id}", h.handleDeleteProp)
			r.Post("/api/admin/props/{id}/status", h.handleSetPropStatus)
			r.Get("/api/admin/props/{id}/answers", h.handleGetPropAnswers)
			r.Post("/api/admin/props/{id}/grade", h.handleGradeProp)

			// Payments and notifications
			r.Get("/api/admin/payments", h.handleGetPayments)
			r.Post("/api/admin/payments", h.handleRecordPayment)
			r.Get("/api/admin/notifications", h.handleGetNotifications)
		})
	})

	return r
}
