package services_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
	"github.com/abrezinsky/squarespool/internal/repository/mock"
	"github.com/abrezinsky/squarespool/internal/services"
	"github.com/abrezinsky/squarespool/internal/testutil"
	"github.com/abrezinsky/squarespool/pkg/notify"
)

type notificationFixture struct {
	repo  *repository.Repository
	svc   *services.NotificationService
	email *notify.MockSender
	sms   *notify.MockSender
	ann   models.Participant
	bob   models.Participant
	dan   models.Participant
}

// setupNotifications registers ann and bob (email opt-in) and dan (SMS only)
func setupNotifications(t *testing.T, maxAttempts int) *notificationFixture {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	f := &notificationFixture{
		repo:  repo,
		email: notify.NewMockSender(notify.ChannelEmail),
		sms:   notify.NewMockSender(notify.ChannelSMS),
		ann:   testutil.CreateParticipant(t, repo, "ann"),
		bob:   testutil.CreateParticipant(t, repo, "bob"),
	}
	dan := models.Participant{Name: "dan", Phone: "+15550001111", NotifySMS: true, AccessCode: "T-DAN"}
	id, err := repo.CreateParticipant(context.Background(), dan)
	if err != nil {
		t.Fatalf("failed to create dan: %v", err)
	}
	dan.ID = id
	f.dan = dan
	f.svc = services.NewNotificationService(logger.New(), repo, newSettings(t, repo), maxAttempts, 0, f.email, f.sms)
	return f
}

func winnerFor(p *models.Participant, quarter int) models.QuarterWinner {
	w := models.QuarterWinner{
		Quarter:     quarter,
		Row:         7,
		Col:         4,
		RowNumber:   7,
		ColNumber:   4,
		AFCScore:    17,
		NFCScore:    14,
		PrizeAmount: models.Dollars(250),
	}
	if p != nil {
		w.OwnerID = &p.ID
		w.OwnerName = p.Name
	}
	return w
}

func TestNotificationService_DispatchWinnerAndBroadcast(t *testing.T) {
	f := setupNotifications(t, 3)
	ctx := context.Background()

	if err := f.svc.Dispatch(ctx, winnerFor(&f.ann, 2)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	sent := f.email.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(sent))
	}
	if sent[0].To != f.ann.Email || sent[0].Subject != models.DefaultPoolName+": you won Q2!" {
		t.Errorf("unexpected winner email: %+v", sent[0])
	}
	if !strings.Contains(sent[0].Body, "$250.00") {
		t.Errorf("expected prize in body, got %q", sent[0].Body)
	}
	if sent[1].To != f.bob.Email || sent[1].Subject != models.DefaultPoolName+": Q2 result" {
		t.Errorf("unexpected broadcast email: %+v", sent[1])
	}
	if !strings.Contains(sent[1].Body, "Winner: ann") {
		t.Errorf("expected winner name in broadcast, got %q", sent[1].Body)
	}
	if len(f.sms.Sent()) != 0 {
		t.Errorf("expected no SMS, got %d", len(f.sms.Sent()))
	}

	records, err := f.svc.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(records))
	}
	for _, r := range records {
		if r.Status != services.NotificationSent || r.Attempts != 1 || r.ID == "" {
			t.Errorf("unexpected audit record: %+v", r)
		}
	}
}

func TestNotificationService_SMSWinnerAndOvertime(t *testing.T) {
	f := setupNotifications(t, 3)

	if err := f.svc.Dispatch(context.Background(), winnerFor(&f.dan, models.OvertimeQuarter)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	sms := f.sms.Sent()
	if len(sms) != 1 || sms[0].To != f.dan.Phone {
		t.Fatalf("expected one SMS to dan, got %+v", sms)
	}
	if !strings.HasSuffix(sms[0].Subject, "you won Overtime!") {
		t.Errorf("unexpected SMS subject %q", sms[0].Subject)
	}
	if len(f.email.Sent()) != 2 {
		t.Errorf("expected broadcast to ann and bob, got %d emails", len(f.email.Sent()))
	}
}

func TestNotificationService_UnsoldWinnerOnlyBroadcasts(t *testing.T) {
	f := setupNotifications(t, 3)

	if err := f.svc.Dispatch(context.Background(), winnerFor(nil, 1)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	sent := f.email.Sent()
	if len(sent) != 2 {
		t.Fatalf("expected broadcast to ann and bob, got %d", len(sent))
	}
	for _, m := range sent {
		if !strings.Contains(m.Body, "nobody") {
			t.Errorf("expected unsold winner in body, got %q", m.Body)
		}
	}
}

func TestNotificationService_RetriesTemporaryFailures(t *testing.T) {
	f := setupNotifications(t, 3)
	ctx := context.Background()
	f.email.FailTimes(2, &notify.StatusError{Provider: "email", Status: 503})

	if err := f.svc.Dispatch(ctx, winnerFor(&f.ann, 1)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if f.email.Attempts() != 4 {
		t.Errorf("expected 3 attempts for ann and 1 for bob, got %d", f.email.Attempts())
	}
	if len(f.email.Sent()) != 2 {
		t.Errorf("expected both emails delivered, got %d", len(f.email.Sent()))
	}

	records, _ := f.svc.List(ctx, 10)
	var annRecord *models.Notification
	for i := range records {
		if records[i].Recipient == f.ann.Email {
			annRecord = &records[i]
		}
	}
	if annRecord == nil || annRecord.Attempts != 3 || annRecord.Status != services.NotificationSent {
		t.Errorf("expected ann's email sent on attempt 3, got %+v", annRecord)
	}
}

func TestNotificationService_GivesUpAfterMaxAttempts(t *testing.T) {
	f := setupNotifications(t, 3)
	ctx := context.Background()
	f.email.FailTimes(-1, stderrors.New("connection reset"))

	if err := f.svc.Dispatch(ctx, winnerFor(&f.ann, 1)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if f.email.Attempts() != 6 {
		t.Errorf("expected 3 attempts per recipient, got %d", f.email.Attempts())
	}

	records, _ := f.svc.List(ctx, 10)
	if len(records) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(records))
	}
	for _, r := range records {
		if r.Status != services.NotificationFailed || r.Attempts != 3 || r.Error != "connection reset" {
			t.Errorf("unexpected audit record: %+v", r)
		}
	}
}

func TestNotificationService_PermanentFailureIsNotRetried(t *testing.T) {
	f := setupNotifications(t, 5)
	f.email.FailTimes(-1, &notify.StatusError{Provider: "email", Status: 422, Body: "bad address"})

	if err := f.svc.Dispatch(context.Background(), winnerFor(&f.ann, 1)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if f.email.Attempts() != 2 {
		t.Errorf("expected one attempt per recipient, got %d", f.email.Attempts())
	}
}

func TestNotificationService_MissingSenderIsSkipped(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ann := testutil.CreateParticipant(t, repo, "ann")
	email := notify.NewMockSender(notify.ChannelEmail)
	svc := services.NewNotificationService(logger.New(), repo, newSettings(t, repo), 1, 0, email, nil)

	if _, err := repo.CreateParticipant(context.Background(), models.Participant{Name: "dan", Phone: "+15550001111", NotifySMS: true, AccessCode: "T-DAN"}); err != nil {
		t.Fatalf("CreateParticipant failed: %v", err)
	}
	if err := svc.Dispatch(context.Background(), winnerFor(&ann, 1)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	records, _ := svc.List(context.Background(), 10)
	if len(records) != 1 || records[0].Channel != notify.ChannelEmail {
		t.Errorf("expected only the email recorded, got %+v", records)
	}
}

func TestNotificationService_QuarterSettledRunsInBackground(t *testing.T) {
	f := setupNotifications(t, 1)

	f.svc.QuarterSettled(winnerFor(&f.bob, 3))
	f.svc.QuarterSettled(winnerFor(&f.ann, 4))
	f.svc.Wait()

	if len(f.email.Sent()) != 4 {
		t.Errorf("expected 4 emails after both dispatches, got %d", len(f.email.Sent()))
	}
}

func TestNotificationService_AuditFailureDoesNotStopDelivery(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	ann := testutil.CreateParticipant(t, realRepo, "ann")
	testutil.CreateParticipant(t, realRepo, "bob")
	mockRepo := mock.NewRepository(realRepo)
	mockRepo.InsertNotificationError = stderrors.New("disk full")
	email := notify.NewMockSender(notify.ChannelEmail)
	svc := services.NewNotificationService(logger.New(), mockRepo, newSettings(t, realRepo), 1, 0, email)

	if err := svc.Dispatch(context.Background(), winnerFor(&ann, 1)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(email.Sent()) != 2 {
		t.Errorf("expected both emails sent, got %d", len(email.Sent()))
	}
}

func TestNotificationService_DispatchListError(t *testing.T) {
	realRepo := testutil.NewTestRepository(t)
	mockRepo := mock.NewRepository(realRepo)
	mockRepo.ListParticipantsError = stderrors.New("database is locked")
	svc := services.NewNotificationService(logger.New(), mockRepo, newSettings(t, realRepo), 1, 0)

	if err := svc.Dispatch(context.Background(), winnerFor(nil, 1)); err == nil {
		t.Error("expected an error when participants cannot be listed")
	}
}
