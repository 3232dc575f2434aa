package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// Commander is an interface for executing commands (for testing)
type Commander interface {
	Start(name string, args ...string) error
}

// RealCommander executes actual commands
type RealCommander struct{}

// Start launches the command without waiting for it
func (RealCommander) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

var defaultCommander Commander = RealCommander{}

// openers maps GOOS to the launcher command and the args placed before the URL
var openers = map[string][]string{
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"openbsd": {"xdg-open"},
	"darwin":  {"open"},
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
}

// Open opens the specified URL in the default browser
func Open(rawURL string) error {
	return OpenWithCommander(rawURL, defaultCommander, runtime.GOOS)
}

// OpenWithCommander opens the URL using the specified commander and OS (for testing).
// Only absolute http and https URLs are handed to the launcher.
func OpenWithCommander(rawURL string, commander Commander, goos string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("refusing to open %q: not an http(s) URL", rawURL)
	}

	opener, ok := openers[goos]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", goos)
	}

	args := append(append([]string{}, opener[1:]...), u.String())
	return commander.Start(opener[0], args...)
}
