package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/abrezinsky/squarespool/internal/app"
	"github.com/abrezinsky/squarespool/internal/auth"
	"github.com/abrezinsky/squarespool/internal/config"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/pkg/scoreboard"
	"github.com/abrezinsky/squarespool/web"
)

var (
	version = "dev"
)

func main() {
	// Flags mirror config keys; only flags set explicitly override config and env
	flag.Int("port", 8080, "HTTP server port")
	flag.String("db", "squares.db", "SQLite database path")
	flag.String("adminpw", "", "Admin password (auto-generated if not set)")
	flag.String("loglevel", "info", "Log level (debug, info, warn, error)")
	flag.String("logfmt", "text", "Log format (text, json)")
	configFile := flag.String("config", "", "Config file (default squarespool.yaml in the working directory, if present)")
	noAnimate := flag.Bool("noanimate", false, "Show logo only, skip the kickoff animation")
	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Squares - Super Bowl Squares Pool

Usage:
  squarespool [options]

Options:
  -port int      HTTP server port (default 8080)
  -db string     SQLite database path (default "squares.db")
  -adminpw str   Admin password (auto-generated if not set)
  -loglevel str  Log level: debug, info, warn, error (default "info")
  -logfmt str    Log format: text, json (default "text")
  -config path   Config file (yaml, json or toml)
  -noanimate     Show logo only, skip the kickoff animation
  -nokeyboard    Disable keyboard shortcuts
  -version       Show version and exit
  -help          Show this help message

Environment:
  Every option can also be set as %[1]s_<KEY>, e.g. %[1]s_PORT=9000,
  %[1]s_WEBHOOK_SECRET, %[1]s_EMAIL_API_URL, %[1]s_SMS_FROM.
  A .env file in the working directory is loaded first.
  Flags win over environment, which wins over the config file.

Keyboard Shortcuts (when enabled):
  a              Open admin page in browser
  h              Toggle HTTP request logging
  l              Cycle log level (debug → info → warn → error)
  q              Quit server
  ?              Show keyboard help

Examples:
  squarespool                          # Run on port 8080 with squares.db
  squarespool -port 9000               # Run on port 9000
  squarespool -db /data/bowl.db        # Use custom database path
  squarespool -adminpw secret123       # Use specific admin password
  squarespool -config pool.yaml        # Load settings from a file

`, config.EnvPrefix)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("squarespool %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile, flag.CommandLine)
	if err != nil {
		log.Fatal(err)
	}

	showBanner(os.Stdout, *noAnimate, 60*time.Millisecond)

	keyboard := !*noKeyboard && term.IsTerminal(int(os.Stdin.Fd()))

	var logOut io.Writer = os.Stdout
	if keyboard {
		logOut = crlfWriter{w: os.Stdout}
	}
	appLog := logger.NewWithOptions(logger.ParseLevel(cfg.LogLevel), logger.ParseFormat(cfg.LogFormat), logOut)

	// Setup admin authentication
	password := cfg.AdminPassword
	if password == "" {
		password = auth.GeneratePassword()
	}
	adminAuth, err := auth.New(password)
	if err != nil {
		log.Fatal("Failed to set up admin authentication:", err)
	}

	templatesFS, staticFS := web.GetTemplatesFS(), web.GetStaticFS()
	if err := web.Verify(templatesFS, staticFS); err != nil {
		log.Fatal("Embedded web files are incomplete:", err)
	}

	a, err := app.New(appLog, cfg, scoreboard.NewHTTPClient(appLog), templatesFS, staticFS, adminAuth)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}

	appLog.Info("Admin password", "password", password)
	if cfg.WebhookSecret == "" {
		appLog.Warn("No webhook secret configured; payment webhooks will be rejected")
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run(cfg.Addr())
	}()

	quit := make(chan struct{})
	if keyboard {
		c := newConsole(os.Stdout, appLog, fmt.Sprintf("http://localhost:%d/admin", cfg.Port))
		c.printHelp()
		go c.run(os.Stdin, quit)
	} else if *noKeyboard {
		fmt.Printf("\n%sKeyboard shortcuts disabled (use -nokeyboard=false to enable)%s\n\n", yellow, reset)
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			a.Close()
			log.Fatal(err)
		}
	case <-quit:
	case sig := <-signals:
		appLog.Info("Received signal, shutting down", "signal", sig.String())
	}

	a.Close()
	appLog.Info("Server stopped")
}
