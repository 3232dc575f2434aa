package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/squarespool/internal/auth"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/services"
	"github.com/abrezinsky/squarespool/internal/websocket"
)

// TestPassword is the admin password of handlers built by NewForTesting
const TestPassword = "test-password"

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// AdminPageData holds the data passed to admin templates
type AdminPageData struct {
	Title     string
	PageTitle string
	ActiveNav string
}

// PageData holds the data passed to public templates
type PageData struct {
	Title      string
	AccessCode string
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index             *template.Template
	Participant       *template.Template
	AdminLogin        *template.Template
	AdminDashboard    *template.Template
	AdminGrid         *template.Template
	AdminGame         *template.Template
	AdminProps        *template.Template
	AdminParticipants *template.Template
	AdminSettings     *template.Template
}

// Services groups the services the HTTP layer calls
type Services struct {
	Participants  services.ParticipantServicer
	Grid          services.GridServicer
	Game          services.GameServicer
	Props         services.PropServicer
	Payments      services.PaymentServicer
	Settings      services.SettingsServicer
	Notifications services.NotificationServicer
	ScoreSync     services.ScoreSyncServicer
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Services
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Log          logger.Logger
	validate     *validator.Validate
	templates    *Templates
	staticServer http.Handler
}

// New creates a new Handlers instance with all dependencies
func New(
	svc Services,
	templatesFS fs.FS,
	staticServer http.Handler,
	adminAuth *auth.Auth,
	hub *websocket.Hub,
	log logger.Logger,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Services:     svc,
		Auth:         adminAuth,
		Hub:          hub,
		Log:          log,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		templates:    templates,
		staticServer: staticServer,
	}, nil
}

// NewForTesting creates a Handlers instance without templates for testing API
// endpoints. The admin password is TestPassword.
func NewForTesting(svc Services, log logger.Logger) *Handlers {
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return &Handlers{
		Services: svc,
		Auth:     auth.NewFromHash(hash),
		Log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Index, err = template.ParseFS(templatesFS, "index.html"); err != nil {
		return nil, fmt.Errorf("index template: %w", err)
	}
	if t.Participant, err = template.ParseFS(templatesFS, "participant.html"); err != nil {
		return nil, fmt.Errorf("participant template: %w", err)
	}
	if t.AdminLogin, err = template.ParseFS(templatesFS, "admin/login.html"); err != nil {
		return nil, fmt.Errorf("admin login template: %w", err)
	}

	pages := []struct {
		name string
		dst  **template.Template
	}{
		{"dashboard", &t.AdminDashboard},
		{"grid", &t.AdminGrid},
		{"game", &t.AdminGame},
		{"props", &t.AdminProps},
		{"participants", &t.AdminParticipants},
		{"settings", &t.AdminSettings},
	}
	for _, p := range pages {
		if *p.dst, err = template.ParseFS(templatesFS, "admin/layout.html", "admin/"+p.name+".html"); err != nil {
			return nil, fmt.Errorf("admin %s template: %w", p.name, err)
		}
	}

	return t, nil
}
