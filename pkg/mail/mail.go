package mail

import "context"

// Message is a single outbound email.
type Message struct {
	ToAddress string
	ToName    string
	Subject   string
	TextBody  string
	HTMLBody  string
}

// Mailer delivers a single message. Implementations perform one attempt;
// retry scheduling belongs to the dispatch queue.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
