// Package scoreboard provides a client for public sports scoreboard feeds.
package scoreboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abrezinsky/squarespool/internal/logger"
)

// Event states reported by the feed
const (
	StatePre  = "pre"
	StateIn   = "in"
	StatePost = "post"
)

// StatusHalftime is the status name the feed uses at halftime
const StatusHalftime = "STATUS_HALFTIME"

// FlexString is a string type that can be unmarshaled from either a string or a number.
// Scoreboard feeds are inconsistent about quoting scores and ids.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler for FlexString
func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	return fmt.Errorf("FlexString: cannot unmarshal %s", string(data))
}

// String returns the string value
func (f FlexString) String() string {
	return string(f)
}

// Int parses the value as an integer; empty is zero
func (f FlexString) Int() (int, error) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// Team identifies a competitor
type Team struct {
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}

// Competitor is one side of a game
type Competitor struct {
	HomeAway string     `json:"homeAway"`
	Score    FlexString `json:"score"`
	Team     Team       `json:"team"`
}

// StatusType describes where the game is
type StatusType struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Completed   bool   `json:"completed"`
	Description string `json:"description"`
}

// Status is the clock and period of a game
type Status struct {
	DisplayClock string     `json:"displayClock"`
	Period       int        `json:"period"`
	Type         StatusType `json:"type"`
}

// Competition holds the competitors and status of an event
type Competition struct {
	Competitors []Competitor `json:"competitors"`
	Status      Status       `json:"status"`
}

// Event is one game on the scoreboard
type Event struct {
	ID           FlexString    `json:"id"`
	Name         string        `json:"name"`
	ShortName    string        `json:"shortName"`
	Competitions []Competition `json:"competitions"`
	Status       Status        `json:"status"`
}

// Response is the scoreboard document
type Response struct {
	Events []Event `json:"events"`
}

// Game is the flattened view of one event
type Game struct {
	EventID   string
	Name      string
	Scores    map[string]int // by team abbreviation, upper case
	Period    int
	Clock     string
	State     string
	Status    string
	Completed bool
}

// Score returns the score of the team with the given abbreviation
func (g *Game) Score(team string) (int, bool) {
	s, ok := g.Scores[strings.ToUpper(strings.TrimSpace(team))]
	return s, ok
}

// Client defines the interface for scoreboard operations
type Client interface {
	// FetchGame reads the scoreboard at feedURL and returns the event with
	// eventID, or the first event when eventID is empty
	FetchGame(ctx context.Context, feedURL, eventID string) (*Game, error)
}

// HTTPClient is a real HTTP client for scoreboard feeds
type HTTPClient struct {
	httpClient *http.Client
	log        logger.Logger
}

// NewHTTPClient creates a new scoreboard HTTP client
func NewHTTPClient(log logger.Logger) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// NewHTTPClientWithHTTPClient creates a new scoreboard client with a custom http.Client
func NewHTTPClientWithHTTPClient(httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		httpClient: httpClient,
		log:        log,
	}
}

// FetchGame implements Client
func (c *HTTPClient) FetchGame(ctx context.Context, feedURL, eventID string) (*Game, error) {
	if _, err := url.ParseRequestURI(feedURL); err != nil {
		return nil, fmt.Errorf("invalid scoreboard URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to scoreboard: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Scoreboard response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoreboard returned status %d", resp.StatusCode)
	}

	var doc Response
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return Find(doc, eventID)
}

// Find picks an event out of a scoreboard document and flattens it
func Find(doc Response, eventID string) (*Game, error) {
	if len(doc.Events) == 0 {
		return nil, fmt.Errorf("scoreboard has no events")
	}
	ev := &doc.Events[0]
	if eventID != "" {
		ev = nil
		for i := range doc.Events {
			if doc.Events[i].ID.String() == eventID {
				ev = &doc.Events[i]
				break
			}
		}
		if ev == nil {
			return nil, fmt.Errorf("event %s not found on scoreboard", eventID)
		}
	}
	return flatten(*ev)
}

func flatten(ev Event) (*Game, error) {
	if len(ev.Competitions) == 0 {
		return nil, fmt.Errorf("event %s has no competition", ev.ID)
	}
	comp := ev.Competitions[0]
	status := comp.Status
	if status.Type.State == "" {
		status = ev.Status
	}

	g := &Game{
		EventID:   ev.ID.String(),
		Name:      ev.Name,
		Scores:    make(map[string]int, len(comp.Competitors)),
		Period:    status.Period,
		Clock:     status.DisplayClock,
		State:     status.Type.State,
		Status:    status.Type.Name,
		Completed: status.Type.Completed,
	}
	for _, c := range comp.Competitors {
		score, err := c.Score.Int()
		if err != nil {
			return nil, fmt.Errorf("invalid score %q for %s: %w", c.Score, c.Team.Abbreviation, err)
		}
		g.Scores[strings.ToUpper(c.Team.Abbreviation)] = score
	}
	return g, nil
}
