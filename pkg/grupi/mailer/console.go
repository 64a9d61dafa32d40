package mailer

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ConsoleMailer writes messages to the log. Used in development when no
// Sendgrid key is configured.
type ConsoleMailer struct {
	FromEmail string
	FromName  string
}

var _ Mailer = (*ConsoleMailer)(nil)

func NewConsoleMailer(fromEmail, fromName string) *ConsoleMailer {
	return &ConsoleMailer{FromEmail: fromEmail, FromName: fromName}
}

func (m *ConsoleMailer) Send(msg Message) error {
	body := new(strings.Builder)
	fmt.Fprintf(body, "From: %s <%s>\r\n", m.FromName, m.FromEmail)
	fmt.Fprintf(body, "To: %s <%s>\r\n", msg.ToName, msg.ToEmail)
	fmt.Fprintf(body, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(body, "Subject: %s\r\n\r\n", msg.Subject)
	fmt.Fprintf(body, "%s\r\n", msg.Body)
	log.Println(body.String())
	return nil
}

// RecorderMailer captures messages in memory for tests.
type RecorderMailer struct {
	mu   sync.Mutex
	Sent []Message

	// FailNext makes the next Send return an error, for testing the
	// best-effort delivery path.
	FailNext error
}

var _ Mailer = (*RecorderMailer)(nil)

func (m *RecorderMailer) Send(msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// Messages returns a copy of everything recorded so far.
func (m *RecorderMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.Sent))
	copy(out, m.Sent)
	return out
}
