package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	CookieName    = "squarespool_session"
	SessionExpiry = 24 * time.Hour
)

// ErrEmptyPassword is returned when no admin password is supplied
var ErrEmptyPassword = errors.New("admin password must not be empty")

// Football words for password generation
var footballWords = []string{
	"blitz", "huddle", "fumble", "safety", "punt",
	"kickoff", "endzone", "sack", "audible", "snap",
	"redzone", "hailmary", "lombardi", "gridiron", "pylon",
	"twominute", "fieldgoal", "touchback", "squares",
}

// Auth handles admin authentication
type Auth struct {
	hash     []byte
	sessions map[string]time.Time
	mu       sync.RWMutex
	now      func() time.Time
}

// New hashes the admin password and returns an Auth instance. The plain
// password is not retained.
func New(password string) (*Auth, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return NewFromHash(hash), nil
}

// NewFromHash creates an Auth from an existing bcrypt hash
func NewFromHash(hash []byte) *Auth {
	return &Auth{
		hash:     hash,
		sessions: make(map[string]time.Time),
		now:      time.Now,
	}
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		words[i] = footballWords[randomInt(len(footballWords))]
	}
	return strings.Join(words, "-")
}

// Login checks the password and returns a session token if it matches
func (a *Auth) Login(password string) (string, bool) {
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return "", false
	}

	token := generateToken()
	a.mu.Lock()
	a.sessions[token] = a.now().Add(SessionExpiry)
	a.mu.Unlock()

	return token, true
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession checks if a session token is valid
func (a *Auth) ValidateSession(token string) bool {
	a.mu.RLock()
	expiry, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return false
	}

	if a.now().After(expiry) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return false
	}

	return true
}

// SessionCount returns the number of stored sessions, expired ones included
func (a *Auth) SessionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// GetSessionFromRequest extracts and validates the session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return a.ValidateSession(cookie.Value)
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// randomInt returns a uniform random int in [0, max)
func randomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}
