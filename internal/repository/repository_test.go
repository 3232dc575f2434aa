package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/squarespool/internal/models"
)

// newTestRepo creates a new in-memory repository for testing.
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func addParticipant(t *testing.T, repo *Repository, name string) int64 {
	t.Helper()
	id, err := repo.CreateParticipant(context.Background(), models.Participant{
		Name:       name,
		Email:      name + "@example.com",
		AccessCode: "CODE-" + name,
	})
	if err != nil {
		t.Fatalf("CreateParticipant failed: %v", err)
	}
	return id
}

var identity = [models.GridSize]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

// ==================== Migration Tests ====================

func TestNew_SeedsGridAndGameState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	squares, err := repo.ListSquares(ctx)
	if err != nil {
		t.Fatalf("ListSquares failed: %v", err)
	}
	if len(squares) != 100 {
		t.Fatalf("expected 100 squares, got %d", len(squares))
	}
	for i, sq := range squares {
		if sq.Row != i/10 || sq.Col != i%10 {
			t.Fatalf("expected row-major order, got %s at %d", sq.Cell(), i)
		}
		if sq.Status != models.StatusAvailable || sq.OwnerID != nil || sq.RowNumber != nil {
			t.Fatalf("expected fresh square, got %+v", sq)
		}
	}

	g, err := repo.GetGameState(ctx)
	if err != nil {
		t.Fatalf("GetGameState failed: %v", err)
	}
	if g.Phase != models.PhasePreGame || g.Quarter != 0 || g.Clock != "15:00" {
		t.Errorf("expected pregame state, got %+v", g)
	}

	launched, err := repo.GetSetting(ctx, models.SettingNumbersLaunched)
	if err != nil || launched != "false" {
		t.Errorf("expected numbers_launched=false, got %q (%v)", launched, err)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/pool.db")
	if err == nil {
		t.Error("expected error for invalid database path")
	}
}

// ==================== Participant Tests ====================

func TestParticipant_CRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := addParticipant(t, repo, "alice")

	p, err := repo.GetParticipant(ctx, id)
	if err != nil {
		t.Fatalf("GetParticipant failed: %v", err)
	}
	if p.Name != "alice" || p.AccessCode != "CODE-alice" {
		t.Errorf("unexpected participant %+v", p)
	}
	if p.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	byCode, err := repo.GetParticipantByCode(ctx, "CODE-alice")
	if err != nil || byCode.ID != id {
		t.Fatalf("GetParticipantByCode: expected id %d, got %v (%v)", id, byCode, err)
	}

	p.Phone = "+15550100"
	p.NotifySMS = true
	if err := repo.UpdateParticipant(ctx, *p); err != nil {
		t.Fatalf("UpdateParticipant failed: %v", err)
	}
	p, _ = repo.GetParticipant(ctx, id)
	if p.Phone != "+15550100" || !p.NotifySMS {
		t.Errorf("expected update to persist, got %+v", p)
	}

	if err := repo.DeleteParticipant(ctx, id); err != nil {
		t.Fatalf("DeleteParticipant failed: %v", err)
	}
	if _, err := repo.GetParticipant(ctx, id); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCreateParticipant_DuplicateCode(t *testing.T) {
	repo := newTestRepo(t)
	addParticipant(t, repo, "bob")

	_, err := repo.CreateParticipant(context.Background(), models.Participant{Name: "bob2", AccessCode: "CODE-bob"})
	if err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestUpdateParticipant_NotFound(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.UpdateParticipant(context.Background(), models.Participant{ID: 999, Name: "ghost"})
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteParticipant_RefusedWhileOwningSquares(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "carol")

	if err := repo.ClaimSquares(ctx, id, []models.Cell{{Row: 0, Col: 0}}, 0, time.Now()); err != nil {
		t.Fatalf("ClaimSquares failed: %v", err)
	}
	if err := repo.DeleteParticipant(ctx, id); err != ErrOwnsSquares {
		t.Errorf("expected ErrOwnsSquares, got %v", err)
	}
}

func TestListParticipants_OrderedByName(t *testing.T) {
	repo := newTestRepo(t)
	addParticipant(t, repo, "zed")
	addParticipant(t, repo, "Amy")
	addParticipant(t, repo, "mike")

	list, err := repo.ListParticipants(context.Background())
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	names := []string{list[0].Name, list[1].Name, list[2].Name}
	if names[0] != "Amy" || names[1] != "mike" || names[2] != "zed" {
		t.Errorf("unexpected order %v", names)
	}

	n, err := repo.CountParticipants(context.Background())
	if err != nil || n != 3 {
		t.Errorf("expected 3 participants, got %d (%v)", n, err)
	}
}

// ==================== Square Tests ====================

func TestClaimSquares_ReservesAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "dave")

	cells := []models.Cell{{Row: 1, Col: 2}, {Row: 3, Col: 4}}
	if err := repo.ClaimSquares(ctx, id, cells, 0, time.Now()); err != nil {
		t.Fatalf("ClaimSquares failed: %v", err)
	}

	owned, err := repo.ListSquaresByOwner(ctx, id)
	if err != nil {
		t.Fatalf("ListSquaresByOwner failed: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected 2 squares, got %d", len(owned))
	}
	for _, sq := range owned {
		if sq.Status != models.StatusReserved || sq.OwnerName != "dave" || sq.ReservedAt == nil {
			t.Errorf("unexpected square %+v", sq)
		}
	}
}

func TestClaimSquares_AllOrNothing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	first := addParticipant(t, repo, "erin")
	second := addParticipant(t, repo, "frank")

	if err := repo.ClaimSquares(ctx, first, []models.Cell{{Row: 5, Col: 5}}, 0, time.Now()); err != nil {
		t.Fatalf("ClaimSquares failed: %v", err)
	}

	err := repo.ClaimSquares(ctx, second, []models.Cell{{Row: 5, Col: 4}, {Row: 5, Col: 5}}, 0, time.Now())
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if !errors.Is(err, ErrSquareUnavailable) {
		t.Error("expected error to wrap ErrSquareUnavailable")
	}
	if len(unavailable.Cells) != 1 || unavailable.Cells[0] != (models.Cell{Row: 5, Col: 5}) {
		t.Errorf("expected lost cell (5,5), got %v", unavailable.Cells)
	}

	// (5,4) must not have been taken by the failed batch
	sq, _ := repo.GetSquare(ctx, models.Cell{Row: 5, Col: 4})
	if sq.Status != models.StatusAvailable || sq.OwnerID != nil {
		t.Errorf("expected (5,4) to stay available, got %+v", sq)
	}
}

func TestClaimSquares_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const buyers = 8
	ids := make([]int64, buyers)
	for i := range ids {
		ids[i] = addParticipant(t, repo, fmt.Sprintf("buyer%d", i))
	}

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = repo.ClaimSquares(ctx, ids[i], []models.Cell{{Row: 7, Col: 7}}, 0, time.Now())
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSquareUnavailable):
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful claim, got %d", wins)
	}

	sq, _ := repo.GetSquare(ctx, models.Cell{Row: 7, Col: 7})
	if sq.OwnerID == nil {
		t.Fatal("expected square to have an owner")
	}
}

func TestClaimSquares_Limit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "gina")

	if err := repo.ClaimSquares(ctx, id, []models.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}}, 2, time.Now()); err != nil {
		t.Fatalf("ClaimSquares failed: %v", err)
	}
	err := repo.ClaimSquares(ctx, id, []models.Cell{{Row: 0, Col: 2}}, 2, time.Now())
	if err != ErrLimitExceeded {
		t.Errorf("expected ErrLimitExceeded, got %v", err)
	}
}

func TestClaimSquares_RefusedAfterLaunch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "hank")

	if err := repo.LaunchNumbers(ctx, identity, identity); err != nil {
		t.Fatalf("LaunchNumbers failed: %v", err)
	}
	err := repo.ClaimSquares(ctx, id, []models.Cell{{Row: 0, Col: 0}}, 0, time.Now())
	if err != ErrAlreadyLaunched {
		t.Errorf("expected ErrAlreadyLaunched, got %v", err)
	}
}

func TestReleaseSquares_OnlyOwnReservations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	owner := addParticipant(t, repo, "ivy")
	other := addParticipant(t, repo, "jack")

	cells := []models.Cell{{Row: 2, Col: 2}, {Row: 2, Col: 3}}
	if err := repo.ClaimSquares(ctx, owner, cells, 0, time.Now()); err != nil {
		t.Fatalf("ClaimSquares failed: %v", err)
	}

	n, err := repo.ReleaseSquares(ctx, other, cells)
	if err != nil || n != 0 {
		t.Fatalf("expected other participant to release nothing, got %d (%v)", n, err)
	}

	n, err = repo.ReleaseSquares(ctx, owner, cells[:1])
	if err != nil || n != 1 {
		t.Fatalf("expected 1 released, got %d (%v)", n, err)
	}
	sq, _ := repo.GetSquare(ctx, cells[0])
	if sq.Status != models.StatusAvailable || sq.OwnerID != nil {
		t.Errorf("expected released square to be available, got %+v", sq)
	}
}

func TestReleaseExpiredReservations(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "kate")

	old := time.Now().Add(-2 * time.Hour)
	if err := repo.ClaimSquares(ctx, id, []models.Cell{{Row: 4, Col: 4}}, 0, old); err != nil {
		t.Fatalf("ClaimSquares failed: %v", err)
	}
	if err := repo.ClaimSquares(ctx, id, []models.Cell{{Row: 4, Col: 5}}, 0, time.Now()); err != nil {
		t.Fatalf("ClaimSquares failed: %v", err)
	}

	released, err := repo.ReleaseExpiredReservations(ctx, time.Now().Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("ReleaseExpiredReservations failed: %v", err)
	}
	if len(released) != 1 || released[0] != (models.Cell{Row: 4, Col: 4}) {
		t.Fatalf("expected only (4,4) released, got %v", released)
	}

	sq, _ := repo.GetSquare(ctx, models.Cell{Row: 4, Col: 5})
	if sq.Status != models.StatusReserved {
		t.Errorf("expected fresh reservation to survive, got %s", sq.Status)
	}
}

func TestSetSquare_AvailableClearsOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "liam")
	cell := models.Cell{Row: 9, Col: 9}

	if err := repo.SetSquare(ctx, cell, &id, models.StatusConfirmed); err != nil {
		t.Fatalf("SetSquare failed: %v", err)
	}
	if err := repo.SetSquare(ctx, cell, &id, models.StatusAvailable); err != nil {
		t.Fatalf("SetSquare failed: %v", err)
	}
	sq, _ := repo.GetSquare(ctx, cell)
	if sq.OwnerID != nil || sq.Status != models.StatusAvailable {
		t.Errorf("expected owner cleared, got %+v", sq)
	}

	if err := repo.SetSquare(ctx, models.Cell{Row: 10, Col: 0}, nil, models.StatusAvailable); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for off-board cell, got %v", err)
	}
}

func TestConfirmSquares_OnlyPaid(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "mia")

	repo.SetSquare(ctx, models.Cell{Row: 0, Col: 0}, &id, models.StatusPaid)
	repo.SetSquare(ctx, models.Cell{Row: 0, Col: 1}, &id, models.StatusReserved)

	n, err := repo.ConfirmSquares(ctx, []models.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 confirmed, got %d (%v)", n, err)
	}
	counts, _ := repo.CountSquaresByStatus(ctx)
	if counts[models.StatusConfirmed] != 1 || counts[models.StatusReserved] != 1 || counts[models.StatusAvailable] != 98 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestLaunchNumbers_AtMostOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rows := [models.GridSize]int{3, 7, 0, 1, 2, 4, 5, 6, 8, 9}
	cols := [models.GridSize]int{9, 4, 1, 0, 2, 3, 5, 6, 7, 8}
	if err := repo.LaunchNumbers(ctx, rows, cols); err != nil {
		t.Fatalf("LaunchNumbers failed: %v", err)
	}
	if err := repo.LaunchNumbers(ctx, identity, identity); err != ErrAlreadyLaunched {
		t.Fatalf("expected ErrAlreadyLaunched, got %v", err)
	}

	squares, _ := repo.ListSquares(ctx)
	for _, sq := range squares {
		if *sq.RowNumber != rows[sq.Row] || *sq.ColNumber != cols[sq.Col] {
			t.Fatalf("square %s changed after second launch", sq.Cell())
		}
	}
}

func TestLaunchNumbers_ConcurrentLaunchHasOneWinner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.LaunchNumbers(ctx, identity, identity)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if err != ErrAlreadyLaunched {
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected one launch to win, got %d", ok)
	}
}

// ==================== Game Tests ====================

func TestSaveGameState_VersionCheck(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g, _ := repo.GetGameState(ctx)
	g.Phase, g.Quarter, g.AFCScore = models.PhaseLive, 1, 7
	v := g.Version

	saved, err := repo.SaveGameState(ctx, g, &v)
	if err != nil {
		t.Fatalf("SaveGameState failed: %v", err)
	}
	if saved.Version != v+1 || saved.AFCScore != 7 {
		t.Errorf("expected version %d and score 7, got %+v", v+1, saved)
	}

	// A second write with the old version is stale
	if _, err := repo.SaveGameState(ctx, g, &v); err != ErrStaleVersion {
		t.Errorf("expected ErrStaleVersion, got %v", err)
	}

	// Last-write-wins ignores the version but still bumps it
	g.AFCScore = 10
	saved, err = repo.SaveGameState(ctx, g, nil)
	if err != nil {
		t.Fatalf("SaveGameState failed: %v", err)
	}
	if saved.Version != v+2 || saved.AFCScore != 10 {
		t.Errorf("unexpected state %+v", saved)
	}
}

func TestSettleQuarter_UpsertsAndAdvances(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g, _ := repo.GetGameState(ctx)
	g.Phase, g.Quarter, g.AFCScore, g.NFCScore = models.PhaseLive, 1, 17, 14
	g, err := repo.SaveGameState(ctx, g, nil)
	if err != nil {
		t.Fatalf("SaveGameState failed: %v", err)
	}
	next := g
	next.Quarter = 2

	w := models.QuarterWinner{Quarter: 1, Row: 1, Col: 1, RowNumber: 7, ColNumber: 4, AFCScore: 17, NFCScore: 14, PrizeAmount: models.Dollars(1000)}
	saved, err := repo.SettleQuarter(ctx, w, next, g.Version)
	if err != nil {
		t.Fatalf("SettleQuarter failed: %v", err)
	}
	if saved.Quarter != 2 || saved.AFCScore != 17 || saved.Version != g.Version+1 {
		t.Errorf("expected Q2 with score kept and version bumped, got %+v", saved)
	}

	// Settling quarter 1 again overwrites rather than duplicating
	w.Row, w.RowNumber = 3, 0
	if _, err := repo.SettleQuarter(ctx, w, next, saved.Version); err != nil {
		t.Fatalf("second SettleQuarter failed: %v", err)
	}
	winners, _ := repo.ListQuarterWinners(ctx)
	if len(winners) != 1 {
		t.Fatalf("expected 1 winner record, got %d", len(winners))
	}
	if winners[0].Row != 3 || winners[0].PrizeAmount != models.Dollars(1000) || winners[0].OwnerID != nil {
		t.Errorf("unexpected winner %+v", winners[0])
	}
}

func TestSettleQuarter_ScoreChangedIsStale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g, _ := repo.GetGameState(ctx)
	g.Phase, g.Quarter, g.AFCScore = models.PhaseLive, 1, 7
	g, _ = repo.SaveGameState(ctx, g, nil)

	// a score written after the winner was computed
	fed := g
	fed.AFCScore = 10
	if _, err := repo.UpdateLiveScore(ctx, fed); err != nil {
		t.Fatalf("UpdateLiveScore failed: %v", err)
	}

	next := g
	next.Quarter = 2
	_, err := repo.SettleQuarter(ctx, models.QuarterWinner{Quarter: 1, AFCScore: 7}, next, g.Version)
	if err != ErrStaleVersion {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
	if winners, _ := repo.ListQuarterWinners(ctx); len(winners) != 0 {
		t.Errorf("expected no winner record, got %d", len(winners))
	}
	if after, _ := repo.GetGameState(ctx); after.Quarter != 1 || after.AFCScore != 10 {
		t.Errorf("expected Q1 at 10-0 untouched, got %+v", after)
	}
}

func TestUpdateLiveScore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g, _ := repo.GetGameState(ctx)
	g.Phase, g.Quarter = models.PhaseLive, 1
	g, _ = repo.SaveGameState(ctx, g, nil)

	fed := g
	fed.AFCScore, fed.NFCScore, fed.Clock, fed.Source = 3, 7, "6:21", "feed"
	saved, err := repo.UpdateLiveScore(ctx, fed)
	if err != nil {
		t.Fatalf("UpdateLiveScore failed: %v", err)
	}
	if saved.AFCScore != 3 || saved.NFCScore != 7 || saved.Clock != "6:21" || saved.Source != "feed" {
		t.Errorf("unexpected state %+v", saved)
	}
	if saved.Version != g.Version {
		t.Errorf("expected version %d kept, got %d", g.Version, saved.Version)
	}

	// a write for a period that is no longer in progress is refused
	fed.Quarter = 2
	if _, err := repo.UpdateLiveScore(ctx, fed); err != ErrStaleVersion {
		t.Errorf("expected ErrStaleVersion for another quarter, got %v", err)
	}
	fed.Quarter, fed.Phase = 1, models.PhaseFinal
	if _, err := repo.UpdateLiveScore(ctx, fed); err != ErrStaleVersion {
		t.Errorf("expected ErrStaleVersion for another phase, got %v", err)
	}
}

func TestSettleQuarter_StaleVersionWritesNothing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	g, _ := repo.GetGameState(ctx)
	next := g
	next.Quarter = 2

	_, err := repo.SettleQuarter(ctx, models.QuarterWinner{Quarter: 1}, next, g.Version+5)
	if err != ErrStaleVersion {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
	winners, _ := repo.ListQuarterWinners(ctx)
	if len(winners) != 0 {
		t.Errorf("expected no winner record, got %d", len(winners))
	}
	after, _ := repo.GetGameState(ctx)
	if after.Quarter != g.Quarter || after.Version != g.Version {
		t.Errorf("expected game state untouched, got %+v", after)
	}
}

// ==================== Prop Tests ====================

func createOpenProp(t *testing.T, repo *Repository, p models.PropBet) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := repo.CreateProp(ctx, p)
	if err != nil {
		t.Fatalf("CreateProp failed: %v", err)
	}
	if err := repo.SetPropStatus(ctx, id, models.PropDraft, models.PropOpen); err != nil {
		t.Fatalf("SetPropStatus failed: %v", err)
	}
	return id
}

func TestProp_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	line := 49.5

	id, err := repo.CreateProp(ctx, models.PropBet{
		Question: "Total points?", AnswerType: models.AnswerOverUnder, Line: &line, PointValue: 3,
	})
	if err != nil {
		t.Fatalf("CreateProp failed: %v", err)
	}
	p, err := repo.GetProp(ctx, id)
	if err != nil {
		t.Fatalf("GetProp failed: %v", err)
	}
	if p.Status != models.PropDraft || p.Line == nil || *p.Line != 49.5 || p.PointValue != 3 {
		t.Errorf("unexpected prop %+v", p)
	}

	mcID, _ := repo.CreateProp(ctx, models.PropBet{
		Question: "Coin toss?", AnswerType: models.AnswerMultipleChoice, Options: []string{"Heads", "Tails"}, DisplayOrder: -1,
	})
	props, _ := repo.ListProps(ctx)
	if len(props) != 2 || props[0].ID != mcID {
		t.Fatalf("expected display order to sort coin toss first, got %+v", props)
	}
	if len(props[0].Options) != 2 || props[0].Options[1] != "Tails" {
		t.Errorf("expected options to round-trip, got %v", props[0].Options)
	}
}

func TestUpdateProp_OnlyDraft(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := createOpenProp(t, repo, models.PropBet{Question: "Safety?", AnswerType: models.AnswerYesNo})
	err := repo.UpdateProp(ctx, models.PropBet{ID: id, Question: "Changed", AnswerType: models.AnswerYesNo})
	if err != ErrConflict {
		t.Errorf("expected ErrConflict editing an open prop, got %v", err)
	}
	if err := repo.UpdateProp(ctx, models.PropBet{ID: 999, Question: "x", AnswerType: models.AnswerYesNo}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetPropStatus_Conditional(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, _ := repo.CreateProp(ctx, models.PropBet{Question: "q", AnswerType: models.AnswerYesNo})
	if err := repo.SetPropStatus(ctx, id, models.PropOpen, models.PropLocked); err != ErrConflict {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if err := repo.SetPropStatus(ctx, 999, models.PropDraft, models.PropOpen); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertPropAnswer_ReplacesAndRequiresOpen(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := addParticipant(t, repo, "nina")
	id := createOpenProp(t, repo, models.PropBet{Question: "Safety?", AnswerType: models.AnswerYesNo})

	if err := repo.UpsertPropAnswer(ctx, id, pid, "yes", time.Now()); err != nil {
		t.Fatalf("UpsertPropAnswer failed: %v", err)
	}
	if err := repo.UpsertPropAnswer(ctx, id, pid, "no", time.Now()); err != nil {
		t.Fatalf("UpsertPropAnswer failed: %v", err)
	}
	answers, _ := repo.ListPropAnswers(ctx, id)
	if len(answers) != 1 || answers[0].Answer != "no" || answers[0].ParticipantName != "nina" {
		t.Fatalf("expected one replaced answer, got %+v", answers)
	}

	repo.SetPropStatus(ctx, id, models.PropOpen, models.PropLocked)
	if err := repo.UpsertPropAnswer(ctx, id, pid, "yes", time.Now()); err != ErrConflict {
		t.Errorf("expected ErrConflict on locked prop, got %v", err)
	}
}

func TestGradeProp_AllAnswersAndLeaderboard(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	alice := addParticipant(t, repo, "alice")
	bob := addParticipant(t, repo, "bob")
	id := createOpenProp(t, repo, models.PropBet{Question: "Safety?", AnswerType: models.AnswerYesNo, PointValue: 5})

	repo.UpsertPropAnswer(ctx, id, alice, "yes", time.Now())
	repo.UpsertPropAnswer(ctx, id, bob, "no", time.Now())

	graded, err := repo.GradeProp(ctx, id, "yes", func(a models.PropAnswer) models.PropAnswer {
		ok := a.Answer == "yes"
		a.IsCorrect = &ok
		if ok {
			a.PointsEarned = 5
		}
		return a
	}, time.Now())
	if err != nil {
		t.Fatalf("GradeProp failed: %v", err)
	}
	if len(graded) != 2 {
		t.Fatalf("expected 2 graded answers, got %d", len(graded))
	}

	p, _ := repo.GetProp(ctx, id)
	if p.Status != models.PropGraded || p.CorrectAnswer != "yes" || p.GradedAt == nil {
		t.Errorf("expected prop graded, got %+v", p)
	}

	answers, _ := repo.ListParticipantAnswers(ctx, alice)
	if len(answers) != 1 || answers[0].IsCorrect == nil || !*answers[0].IsCorrect || answers[0].PointsEarned != 5 {
		t.Errorf("unexpected graded answer %+v", answers)
	}

	board, err := repo.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(board) != 2 || board[0].ParticipantName != "alice" || board[0].Points != 5 || board[0].Correct != 1 {
		t.Errorf("unexpected leaderboard %+v", board)
	}
	if board[1].Points != 0 || board[1].Answered != 1 {
		t.Errorf("unexpected second entry %+v", board[1])
	}
}

func TestGradeProp_DraftRefused(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id, _ := repo.CreateProp(ctx, models.PropBet{Question: "q", AnswerType: models.AnswerYesNo})

	_, err := repo.GradeProp(ctx, id, "yes", func(a models.PropAnswer) models.PropAnswer { return a }, time.Now())
	if err != ErrConflict {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestLeaderboard_TiesOrderedByName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	zoe := addParticipant(t, repo, "zoe")
	adam := addParticipant(t, repo, "adam")
	id := createOpenProp(t, repo, models.PropBet{Question: "q", AnswerType: models.AnswerYesNo, PointValue: 1})
	repo.UpsertPropAnswer(ctx, id, zoe, "yes", time.Now())
	repo.UpsertPropAnswer(ctx, id, adam, "yes", time.Now())

	board, _ := repo.Leaderboard(ctx)
	if len(board) != 2 || board[0].ParticipantName != "adam" {
		t.Errorf("expected adam first on a tie, got %+v", board)
	}
}

func TestDeleteProp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	pid := addParticipant(t, repo, "olga")
	id := createOpenProp(t, repo, models.PropBet{Question: "q", AnswerType: models.AnswerYesNo})
	repo.UpsertPropAnswer(ctx, id, pid, "yes", time.Now())

	if err := repo.DeleteProp(ctx, id); err != nil {
		t.Fatalf("DeleteProp failed: %v", err)
	}
	if _, err := repo.GetProp(ctx, id); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.DeleteProp(ctx, id); err != ErrNotFound {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// ==================== Payment Tests ====================

func TestRecordPayment_AppliesAndIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	payer := addParticipant(t, repo, "paul")

	repo.ClaimSquares(ctx, payer, []models.Cell{{Row: 0, Col: 0}}, 0, time.Now())

	p := models.Payment{
		Reference:     "pi_123",
		ParticipantID: payer,
		Amount:        models.Dollars(20),
		Source:        "webhook",
		Cells:         []models.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}},
	}
	stored, dup, err := repo.RecordPayment(ctx, p)
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if dup || stored.Status != models.PaymentApplied || len(stored.Cells) != 2 {
		t.Fatalf("unexpected payment %+v (dup=%v)", stored, dup)
	}

	counts, _ := repo.CountSquaresByStatus(ctx)
	if counts[models.StatusPaid] != 2 {
		t.Fatalf("expected 2 paid squares, got %d", counts[models.StatusPaid])
	}

	// Duplicate delivery changes nothing
	repo.ConfirmSquares(ctx, []models.Cell{{Row: 0, Col: 0}})
	again, dup, err := repo.RecordPayment(ctx, p)
	if err != nil {
		t.Fatalf("duplicate RecordPayment failed: %v", err)
	}
	if !dup || again.ID != stored.ID {
		t.Errorf("expected duplicate of payment %d, got %+v", stored.ID, again)
	}
	sq, _ := repo.GetSquare(ctx, models.Cell{Row: 0, Col: 0})
	if sq.Status != models.StatusConfirmed {
		t.Errorf("expected duplicate not to touch squares, got %s", sq.Status)
	}
	list, _ := repo.ListPayments(ctx)
	if len(list) != 1 {
		t.Errorf("expected one payment stored, got %d", len(list))
	}
}

func TestRecordPayment_ConflictedCells(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	payer := addParticipant(t, repo, "quinn")
	other := addParticipant(t, repo, "rita")

	repo.ClaimSquares(ctx, other, []models.Cell{{Row: 3, Col: 3}}, 0, time.Now())

	stored, _, err := repo.RecordPayment(ctx, models.Payment{
		Reference:     "pi_456",
		ParticipantID: payer,
		Amount:        models.Dollars(20),
		Source:        "webhook",
		Cells:         []models.Cell{{Row: 3, Col: 3}, {Row: 3, Col: 4}},
	})
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if stored.Status != models.PaymentPartial {
		t.Errorf("expected partial payment, got %s", stored.Status)
	}
	if len(stored.Conflicted) != 1 || stored.Conflicted[0] != (models.Cell{Row: 3, Col: 3}) {
		t.Errorf("expected (3,3) conflicted, got %v", stored.Conflicted)
	}

	sq, _ := repo.GetSquare(ctx, models.Cell{Row: 3, Col: 3})
	if sq.OwnerID == nil || *sq.OwnerID != other || sq.Status != models.StatusReserved {
		t.Errorf("expected (3,3) to stay with its holder, got %+v", sq)
	}

	got, err := repo.GetPayment(ctx, "pi_456")
	if err != nil || len(got.Conflicted) != 1 {
		t.Errorf("expected stored conflicted cells, got %+v (%v)", got, err)
	}
	if _, err := repo.GetPayment(ctx, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ==================== Notification Tests ====================

func TestNotifications_InsertAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		n := models.Notification{
			ID:        fmt.Sprintf("n-%d", i),
			Channel:   "email",
			Recipient: "a@example.com",
			Subject:   "Q1 winner",
			Status:    "sent",
			Attempts:  1,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.InsertNotification(ctx, n); err != nil {
			t.Fatalf("InsertNotification failed: %v", err)
		}
	}

	list, err := repo.ListNotifications(ctx, 2)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "n-2" {
		t.Errorf("expected newest two notifications, got %+v", list)
	}
}

// ==================== Settings & Reset Tests ====================

func TestSettings_GetSetAll(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetSetting(ctx, "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.SetSettings(ctx, map[string]string{"afc_team": "KC", "nfc_team": "PHI"}); err != nil {
		t.Fatalf("SetSettings failed: %v", err)
	}
	all, err := repo.AllSettings(ctx)
	if err != nil {
		t.Fatalf("AllSettings failed: %v", err)
	}
	if all["afc_team"] != "KC" || all["nfc_team"] != "PHI" || all[models.SettingPoolName] != models.DefaultPoolName {
		t.Errorf("unexpected settings %v", all)
	}
}

func TestResetPool_Squares(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "sam")

	repo.SetSquare(ctx, models.Cell{Row: 0, Col: 0}, &id, models.StatusPaid)
	repo.LaunchNumbers(ctx, identity, identity)
	g, _ := repo.GetGameState(ctx)
	repo.SettleQuarter(ctx, models.QuarterWinner{Quarter: 1}, g, g.Version)

	if err := repo.ResetPool(ctx, []string{ResetSquares}); err != nil {
		t.Fatalf("ResetPool failed: %v", err)
	}

	squares, _ := repo.ListSquares(ctx)
	for _, sq := range squares {
		if sq.OwnerID != nil || sq.RowNumber != nil || sq.Status != models.StatusAvailable {
			t.Fatalf("expected square reset, got %+v", sq)
		}
	}
	if v, _ := repo.GetSetting(ctx, models.SettingNumbersLaunched); v != "false" {
		t.Errorf("expected launched flag cleared, got %q", v)
	}
	if winners, _ := repo.ListQuarterWinners(ctx); len(winners) != 0 {
		t.Errorf("expected winners cleared, got %d", len(winners))
	}
	if p, err := repo.GetParticipant(ctx, id); err != nil || p == nil {
		t.Error("expected participants to survive a squares reset")
	}
}

func TestResetPool_ParticipantsAndGame(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id := addParticipant(t, repo, "tom")
	repo.SetSquare(ctx, models.Cell{Row: 1, Col: 1}, &id, models.StatusPaid)

	g, _ := repo.GetGameState(ctx)
	g.Phase, g.Quarter, g.AFCScore = models.PhaseLive, 3, 21
	repo.SaveGameState(ctx, g, nil)

	if err := repo.ResetPool(ctx, []string{ResetParticipants, ResetGame}); err != nil {
		t.Fatalf("ResetPool failed: %v", err)
	}
	if n, _ := repo.CountParticipants(ctx); n != 0 {
		t.Errorf("expected no participants, got %d", n)
	}
	after, _ := repo.GetGameState(ctx)
	if after.Phase != models.PhasePreGame || after.AFCScore != 0 || after.Quarter != 0 {
		t.Errorf("expected game reset, got %+v", after)
	}
}

func TestResetPool_InvalidTarget(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.ResetPool(context.Background(), []string{"squares; DROP TABLE settings"})
	if err != ErrInvalidTable {
		t.Errorf("expected ErrInvalidTable, got %v", err)
	}
}
