// Package notify sends email and SMS messages through HTTP APIs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abrezinsky/squarespool/internal/logger"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Message is one outbound notification
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages over one channel
type Sender interface {
	Channel() string
	Send(ctx context.Context, msg Message) error
}

// StatusError is returned when the provider answers with a non-2xx status
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Status, e.Body)
}

// Temporary reports whether retrying may succeed
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func do(client *http.Client, req *http.Request, provider string) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Provider: provider, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// EmailSender posts JSON messages to a transactional email API
type EmailSender struct {
	apiURL     string
	apiKey     string
	from       string
	httpClient *http.Client
	log        logger.Logger
}

// NewEmailSender creates a new EmailSender
func NewEmailSender(apiURL, apiKey, from string, log logger.Logger) *EmailSender {
	return &EmailSender{
		apiURL:     apiURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// Channel implements Sender
func (s *EmailSender) Channel() string { return ChannelEmail }

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send implements Sender
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(emailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	s.log.Debug("Sending email", "to", msg.To, "subject", msg.Subject)
	return do(s.httpClient, req, "email API")
}

// SMSSender posts form-encoded messages to an SMS API using account
// credentials as basic auth
type SMSSender struct {
	apiURL     string
	accountSID string
	authToken  string
	from       string
	httpClient *http.Client
	log        logger.Logger
}

// NewSMSSender creates a new SMSSender
func NewSMSSender(apiURL, accountSID, authToken, from string, log logger.Logger) *SMSSender {
	return &SMSSender{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// Channel implements Sender
func (s *SMSSender) Channel() string { return ChannelSMS }

// Send implements Sender. The subject is prefixed to the body.
func (s *SMSSender) Send(ctx context.Context, msg Message) error {
	body := msg.Body
	if msg.Subject != "" {
		body = msg.Subject + ": " + body
	}
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.apiURL, url.PathEscape(s.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	s.log.Debug("Sending SMS", "to", msg.To)
	return do(s.httpClient, req, "SMS API")
}

var (
	_ Sender = (*EmailSender)(nil)
	_ Sender = (*SMSSender)(nil)
)
