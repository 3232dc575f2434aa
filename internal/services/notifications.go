package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/pkg/notify"
)

// Notification statuses
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationServiceRepository defines the repository methods needed by NotificationService
type NotificationServiceRepository interface {
	InsertNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	GetParticipant(ctx context.Context, id int64) (*models.Participant, error)
	ListParticipants(ctx context.Context) ([]models.Participant, error)
}

// NotificationService tells participants about settled quarters. Delivery
// happens in the background and never affects settlement.
type NotificationService struct {
	log         logger.Logger
	repo        NotificationServiceRepository
	settings    SettingsServicer
	senders     map[string]notify.Sender
	maxAttempts int
	backoff     time.Duration
	timeout     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	wg          sync.WaitGroup
}

// NewNotificationService creates a new NotificationService. Channels without
// a sender are skipped.
func NewNotificationService(log logger.Logger, repo NotificationServiceRepository, settings SettingsServicer, maxAttempts int, backoff time.Duration, senders ...notify.Sender) *NotificationService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	s := &NotificationService{
		log:         log,
		repo:        repo,
		settings:    settings,
		senders:     make(map[string]notify.Sender, len(senders)),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		timeout:     5 * time.Minute,
		sleep:       sleepContext,
	}
	for _, sender := range senders {
		if sender != nil {
			s.senders[sender.Channel()] = sender
		}
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// QuarterSettled implements QuarterNotifier. It returns immediately.
func (s *NotificationService) QuarterSettled(w models.QuarterWinner) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Dispatch(ctx, w); err != nil {
			s.log.Error("Winner notification failed", "quarter", w.Quarter, "error", err)
		}
	}()
}

// Wait blocks until every background dispatch has finished
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func periodLabel(quarter int) string {
	if quarter == models.OvertimeQuarter {
		return "Overtime"
	}
	return fmt.Sprintf("Q%d", quarter)
}

// Dispatch sends the winner message to the owner and the broadcast to every
// opted-in participant. Individual delivery failures are recorded and do not
// stop the rest.
func (s *NotificationService) Dispatch(ctx context.Context, w models.QuarterWinner) error {
	poolName := models.DefaultPoolName
	if ps, err := s.settings.Get(ctx); err == nil {
		poolName = ps.PoolName
	}
	period := periodLabel(w.Quarter)

	var ownerID int64
	if w.OwnerID != nil {
		ownerID = *w.OwnerID
		owner, err := s.repo.GetParticipant(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to load winner %d: %w", ownerID, err)
		}
		msg := notify.Message{
			Subject: fmt.Sprintf("%s: you won %s!", poolName, period),
			Body: fmt.Sprintf("Your square (row %d, column %d) matched %d-%d at the end of %s. Prize: %s.",
				w.RowNumber, w.ColNumber, w.AFCScore, w.NFCScore, period, w.PrizeAmount),
		}
		if owner.NotifyEmail && owner.Email != "" {
			msg.To = owner.Email
			s.deliver(ctx, notify.ChannelEmail, msg)
		}
		if owner.NotifySMS && owner.Phone != "" {
			msg.To = owner.Phone
			s.deliver(ctx, notify.ChannelSMS, msg)
		}
	}

	winnerName := w.OwnerName
	if winnerName == "" {
		winnerName = "nobody (unsold square)"
	}
	broadcast := notify.Message{
		Subject: fmt.Sprintf("%s: %s result", poolName, period),
		Body: fmt.Sprintf("%s ended %d-%d. Winning numbers %d and %d. Winner: %s. Prize: %s.",
			period, w.AFCScore, w.NFCScore, w.RowNumber, w.ColNumber, winnerName, w.PrizeAmount),
	}

	participants, err := s.repo.ListParticipants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	for _, p := range participants {
		if p.ID == ownerID || !p.NotifyEmail || p.Email == "" {
			continue
		}
		broadcast.To = p.Email
		s.deliver(ctx, notify.ChannelEmail, broadcast)
	}
	return nil
}

// deliver sends one message with exponential backoff and records the outcome
func (s *NotificationService) deliver(ctx context.Context, channel string, msg notify.Message) {
	sender, ok := s.senders[channel]
	if !ok {
		s.log.Debug("No sender configured, skipping", "channel", channel, "to", msg.To)
		return
	}

	var err error
	attempts := 0
	delay := s.backoff
	for attempts < s.maxAttempts {
		attempts++
		if err = sender.Send(ctx, msg); err == nil {
			break
		}
		var statusErr *notify.StatusError
		if stderrors.As(err, &statusErr) && !statusErr.Temporary() {
			break
		}
		if attempts < s.maxAttempts {
			s.log.Debug("Send failed, retrying", "channel", channel, "to", msg.To, "attempt", attempts, "error", err)
			if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
				break
			}
			delay *= 2
		}
	}

	record := models.Notification{
		ID:        uuid.NewString(),
		Channel:   channel,
		Recipient: msg.To,
		Subject:   msg.Subject,
		Status:    NotificationSent,
		Attempts:  attempts,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		record.Status = NotificationFailed
		record.Error = err.Error()
		s.log.Warn("Notification not delivered", "channel", channel, "to", msg.To, "attempts", attempts, "error", err)
	}
	if auditErr := s.repo.InsertNotification(context.WithoutCancel(ctx), record); auditErr != nil {
		s.log.Error("Failed to record notification", "id", record.ID, "error", auditErr)
	}
}

// List returns the most recent notification records
func (s *NotificationService) List(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	list, err := s.repo.ListNotifications(ctx, limit)
	if err != nil {
		return nil, translate(err)
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}
