// Package notify delivers overdue reminders. The ledger core only ever calls
// the Notifier interface; delivery mechanics (Kafka hand-off, SMTP) live here.
package notify

import (
	"context"
)

type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notice is the wire form of a reminder on the notices topic.
type Notice struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
