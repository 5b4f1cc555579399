package email

import (
	"context"
	"sync"
)

// MockSender records messages instead of sending them.
type MockSender struct {
	// Unconfigured makes Configured report false.
	Unconfigured bool
	// Err is returned from Send when set.
	Err error

	mu   sync.Mutex
	sent []Message
}

// Ensure MockSender implements Sender interface.
var _ Sender = (*MockSender)(nil)

// NewMockSender creates a configured mock sender.
func NewMockSender() *MockSender {
	return &MockSender{}
}

// Configured reports whether the mock pretends to have credentials.
func (m *MockSender) Configured() bool {
	return !m.Unconfigured
}

// Send records msg, or returns Err.
func (m *MockSender) Send(ctx context.Context, msg Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns the recorded messages.
func (m *MockSender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
