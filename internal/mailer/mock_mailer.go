package mailer

import (
	"sync"
)

// Email is the record MockMailer keeps for every Send call.
type Email struct {
	Recipient    string
	TemplateFile string
	Data         any
}

// MockMailer captures outgoing mail instead of delivering it. Confirmations
// are sent off the request path, so the test suites poll GetSentEmails until
// the background send lands.
type MockMailer struct {
	mu     sync.RWMutex
	emails []Email
}

func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

func (m *MockMailer) Send(recipient, templateFile string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = append(m.emails, Email{
		Recipient:    recipient,
		TemplateFile: templateFile,
		Data:         data,
	})

	return nil
}

// GetSentEmails returns a copy of everything captured so far.
func (m *MockMailer) GetSentEmails() []Email {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make([]Email, len(m.emails))
	copy(emails, m.emails)

	return emails
}

// Reset drops the captured emails between tests.
func (m *MockMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = nil
}
