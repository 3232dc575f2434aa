package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/abrezinsky/squarespool/internal/browser"
	"github.com/abrezinsky/squarespool/internal/logger"
)

// console handles single-key shortcuts typed into the server's terminal
type console struct {
	out      io.Writer
	log      *logger.SlogLogger
	adminURL string
	open     func(url string) error
}

func newConsole(out io.Writer, log *logger.SlogLogger, adminURL string) *console {
	return &console{out: out, log: log, adminURL: adminURL, open: browser.Open}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, strings.ReplaceAll(format, "\n", "\r\n"), args...)
}

// handleKey performs the action bound to key and reports whether the
// server should shut down
func (c *console) handleKey(key byte) bool {
	switch strings.ToLower(string(key)) {
	case "a":
		c.printf("%sOpening admin page in browser...%s\n", cyan, reset)
		if err := c.open(c.adminURL); err != nil {
			c.printf("%sError opening browser: %v%s\n", red, err, reset)
		}
	case "h":
		if c.log.IsHTTPLoggingEnabled() {
			c.log.DisableHTTPLogging()
			c.printf("%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			c.log.EnableHTTPLogging()
			c.printf("%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		next := nextLogLevel(c.log.GetLevel())
		c.log.SetLevel(next)
		c.printf("%sLog level: %s%s%s\n", green, yellow, strings.ToLower(next.String()), reset)
	case "q", "\x03":
		c.printf("%sShutting down server...%s\n", yellow, reset)
		return true
	case "?":
		c.printHelp()
	}
	return false
}

func (c *console) printHelp() {
	c.printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	c.printf("    %sa%s      - Open admin page in browser\n", cyan, reset)
	c.printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	c.printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	c.printf("    %sq%s      - Quit server\n", cyan, reset)
	c.printf("    %s?%s      - Show this help\n\n", cyan, reset)
}

// run reads keys from in until a quit key arrives or in fails. Stdin is put
// in raw mode for the duration when it is a terminal.
func (c *console) run(in *os.File, quit chan<- struct{}) {
	restore := func() {}
	if fd := int(in.Fd()); term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			c.log.Warn("Keyboard shortcuts unavailable", "error", err)
			return
		}
		restore = func() { term.Restore(fd, oldState) }
	}

	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if err != nil {
			restore()
			return
		}
		if n > 0 && c.handleKey(buf[0]) {
			// terminal must be usable again before main exits
			restore()
			close(quit)
			return
		}
	}
}

// nextLogLevel cycles debug -> info -> warn -> error -> debug
func nextLogLevel(current slog.Level) slog.Level {
	switch {
	case current < slog.LevelInfo:
		return slog.LevelInfo
	case current < slog.LevelWarn:
		return slog.LevelWarn
	case current < slog.LevelError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// crlfWriter translates bare newlines so log lines stay aligned while the
// terminal is in raw mode
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
