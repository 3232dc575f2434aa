package scoreboard

import (
	"context"
	"sync"
)

// MockClient is a mock scoreboard client for testing
type MockClient struct {
	mu       sync.Mutex
	game     *Game
	fetchErr error
	calls    int
	lastURL  string
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithGame sets the game to return
func WithGame(g *Game) MockOption {
	return func(m *MockClient) {
		m.game = g
	}
}

// WithFetchError sets an error to return from FetchGame
func WithFetchError(err error) MockOption {
	return func(m *MockClient) {
		m.fetchErr = err
	}
}

// NewMockClient creates a new mock client. Without options it returns a
// pre-game KC vs PHI event.
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{game: DefaultMockGame()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultMockGame returns a game that has not started
func DefaultMockGame() *Game {
	return &Game{
		EventID: "401547417",
		Name:    "Kansas City Chiefs at Philadelphia Eagles",
		Scores:  map[string]int{"KC": 0, "PHI": 0},
		Clock:   "15:00",
		State:   StatePre,
		Status:  "STATUS_SCHEDULED",
	}
}

// FetchGame implements Client
func (m *MockClient) FetchGame(ctx context.Context, feedURL, eventID string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastURL = feedURL
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	g := *m.game
	g.Scores = make(map[string]int, len(m.game.Scores))
	for k, v := range m.game.Scores {
		g.Scores[k] = v
	}
	return &g, nil
}

// SetGame replaces the game returned by later fetches
func (m *MockClient) SetGame(g *Game) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.game = g
}

// SetFetchError replaces the error returned by later fetches
func (m *MockClient) SetFetchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

// Calls returns how many times FetchGame was called
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastURL returns the feed URL of the most recent fetch
func (m *MockClient) LastURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastURL
}

var _ Client = (*MockClient)(nil)
var _ Client = (*HTTPClient)(nil)
