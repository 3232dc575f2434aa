package notify

import (
	"context"
	"sync"
)

// MockSender records messages instead of sending them
type MockSender struct {
	mu       sync.Mutex
	channel  string
	sent     []Message
	attempts int
	failures int
	err      error
}

// NewMockSender creates a mock for a channel that always succeeds
func NewMockSender(channel string) *MockSender {
	return &MockSender{channel: channel}
}

// FailTimes makes the next n sends fail with err. A negative n fails every send.
func (m *MockSender) FailTimes(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.err = err
}

// Channel implements Sender
func (m *MockSender) Channel() string { return m.channel }

// Send implements Sender
func (m *MockSender) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failures != 0 {
		if m.failures > 0 {
			m.failures--
		}
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns the messages delivered so far
func (m *MockSender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

// Attempts returns how many sends were tried, including failures
func (m *MockSender) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

var _ Sender = (*MockSender)(nil)
