package mailer

import "context"

// Message is an outbound email. ThreadID and InReplyTo are optional; when
// set, the transport threads the message into the existing conversation.
type Message struct {
	To        string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string
}

// SendResult carries the identifiers the transport assigned. The core only
// keeps them to correlate a later inbound reply.
type SendResult struct {
	MessageID string `json:"id"`
	ThreadID  string `json:"threadId"`
}

// Sender delivers email. Implemented by the Gmail client and by test fakes.
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}
