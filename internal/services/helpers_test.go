package services_test

import (
	"sync"
	"testing"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
	"github.com/abrezinsky/squarespool/internal/services"
	"github.com/abrezinsky/squarespool/internal/testutil"
)

// recordingBroadcaster captures broadcast messages
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (b *recordingBroadcaster) BroadcastMessage(msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, models.WSMessage{Type: msgType, Payload: payload})
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.messages))
	for i, m := range b.messages {
		out[i] = m.Type
	}
	return out
}

func (b *recordingBroadcaster) has(msgType string) bool {
	for _, t := range b.types() {
		if t == msgType {
			return true
		}
	}
	return false
}

// recordingNotifier captures settled quarters
type recordingNotifier struct {
	mu      sync.Mutex
	winners []models.QuarterWinner
}

func (n *recordingNotifier) QuarterSettled(w models.QuarterWinner) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.winners = append(n.winners, w)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.winners)
}

func newSettings(t *testing.T, repo repository.SettingsRepository) *services.SettingsService {
	t.Helper()
	return services.NewSettingsService(logger.New(), repo)
}

// expectKind fails unless err carries the wanted application error kind
func expectKind(t *testing.T, err error, kind errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := errors.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

// expectCode fails unless err carries the wanted error code
func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := errors.CodeOf(err); got != code {
		t.Fatalf("expected code %s, got %q (%v)", code, got, err)
	}
}

// launchedPool returns a fully sold, launched grid with identity numbers
func launchedPool(t *testing.T) (*repository.Repository, models.Participant, models.Participant) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	ann := testutil.CreateParticipant(t, repo, "ann")
	bob := testutil.CreateParticipant(t, repo, "bob")
	testutil.SellAllSquares(t, repo, ann, bob)
	testutil.Launch(t, repo, testutil.Identity, testutil.Identity)
	return repo, ann, bob
}
