package mailer

// Message is a plain-text email to a single recipient.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Body    string
}

// Mailer is any service that can deliver a message out-of-band. Delivery is
// best-effort: callers must never roll back state when Send fails.
type Mailer interface {
	Send(msg Message) error
}
