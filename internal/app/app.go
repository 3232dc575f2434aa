package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/squarespool/internal/auth"
	"github.com/abrezinsky/squarespool/internal/config"
	"github.com/abrezinsky/squarespool/internal/handlers"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/pool"
	"github.com/abrezinsky/squarespool/internal/repository"
	"github.com/abrezinsky/squarespool/internal/services"
	"github.com/abrezinsky/squarespool/internal/websocket"
	"github.com/abrezinsky/squarespool/pkg/notify"
	"github.com/abrezinsky/squarespool/pkg/scoreboard"
)

const shutdownTimeout = 5 * time.Second

// App holds all application dependencies
type App struct {
	log           logger.Logger
	handlers      *handlers.Handlers
	repo          *repository.Repository
	settings      *services.SettingsService
	grid          *services.GridService
	notifications *services.NotificationService
	server        *http.Server
	cancelLoops   context.CancelFunc
	loops         sync.WaitGroup
	closeOnce     sync.Once
}

// New creates and initializes a new application instance
func New(log logger.Logger, cfg *config.Config, feed scoreboard.Client, templatesFS, staticFS fs.FS, adminAuth *auth.Auth) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// Initialize services
	settingsService := services.NewSettingsService(log, repo)
	participantService := services.NewParticipantService(log, repo, settingsService)
	gridService := services.NewGridService(log, repo, settingsService, pool.NewSeededRand(uint64(time.Now().UnixNano())))
	gameService := services.NewGameService(log, repo, settingsService)
	propService := services.NewPropService(log, repo)
	paymentService := services.NewPaymentService(log, repo, cfg.WebhookSecret)
	notificationService := services.NewNotificationService(log, repo, settingsService,
		cfg.NotifyMaxAttempts, cfg.NotifyBackoff, senders(log, cfg)...)
	scoreSyncService := services.NewScoreSyncService(log, feed, settingsService, gameService)

	gameService.SetNotifier(notificationService)

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, gameService)
	hub.Start()
	settingsService.SetBroadcaster(hub)
	gridService.SetBroadcaster(hub)
	gameService.SetBroadcaster(hub)
	propService.SetBroadcaster(hub)
	paymentService.SetBroadcaster(hub)

	// Create static file server
	staticServer := handlers.NewStaticServer(staticFS)

	h, err := handlers.New(handlers.Services{
		Participants:  participantService,
		Grid:          gridService,
		Game:          gameService,
		Props:         propService,
		Payments:      paymentService,
		Settings:      settingsService,
		Notifications: notificationService,
		ScoreSync:     scoreSyncService,
	}, templatesFS, staticServer, adminAuth, hub, log)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	a := &App{
		log:           log,
		handlers:      h,
		repo:          repo,
		settings:      settingsService,
		grid:          gridService,
		notifications: notificationService,
		server:        &http.Server{Handler: h.Router(), ReadHeaderTimeout: 10 * time.Second},
	}

	// Background loops stop on Close
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelLoops = cancel
	a.loops.Add(2)
	go func() {
		defer a.loops.Done()
		a.runReservationSweeper(ctx, cfg.ReservationSweepInterval)
	}()
	go func() {
		defer a.loops.Done()
		scoreSyncService.Run(ctx, cfg.ScorePollInterval)
	}()

	return a, nil
}

// senders builds the delivery channels that are configured
func senders(log logger.Logger, cfg *config.Config) []notify.Sender {
	var out []notify.Sender
	if cfg.Email.Enabled() {
		out = append(out, notify.NewEmailSender(cfg.Email.APIURL, cfg.Email.APIKey, cfg.Email.From, log))
		log.Info("Email notifications enabled", "from", cfg.Email.From)
	}
	if cfg.SMS.Enabled() {
		out = append(out, notify.NewSMSSender(cfg.SMS.APIURL, cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.From, log))
		log.Info("SMS notifications enabled", "from", cfg.SMS.From)
	}
	return out
}

// runReservationSweeper releases expired pending squares on every tick
func (a *App) runReservationSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := a.grid.SweepReservations(ctx)
			if err != nil {
				if ctx.Err() == nil {
					a.log.Warn("Reservation sweep failed", "error", err)
				}
				continue
			}
			if len(released) > 0 {
				a.log.Info("Released expired reservations", "squares", len(released))
			}
		}
	}
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Handlers exposes the HTTP handlers, used by the console to toggle logging
func (a *App) Handlers() *handlers.Handlers {
	return a.handlers
}

// Close performs graceful shutdown of app resources. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.cancelLoops != nil {
			a.cancelLoops()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.log.Warn("HTTP server shutdown incomplete", "error", err)
		}

		a.loops.Wait()
		a.notifications.Wait()
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	})
}

// Run starts the HTTP server and blocks until Close is called
func (a *App) Run(addr string) error {
	// Set default base URL if not configured, using detected LAN IP
	ip := getPreferredIP(realNetworkProvider{})
	baseURL := fmt.Sprintf("http://%s%s", ip, addr)
	a.setDefaultBaseURL(baseURL)

	a.log.Info("Server starting", "url", baseURL)
	a.log.Info("Admin URL", "url", baseURL+"/admin")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes)
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, _ := a.settings.GetBaseURL(ctx)

	if existing == "" || strings.Contains(existing, "localhost") {
		if err := a.settings.SetBaseURL(ctx, baseURL); err != nil {
			a.log.Warn("Failed to set default base_url", "error", err)
		} else {
			a.log.Info("Default base URL set", "url", baseURL)
		}
	}
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for phones on the same network
// to reach the pool. Private ranges win over public ones; localhost is the
// fallback.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
