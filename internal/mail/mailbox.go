// Package mail provides mailbox search and the time-boxed verification-code
// waiter used to confirm bookings.
package mail

import (
	"context"
	"time"
)

// Message is one mail message as seen by the waiter. Body is the decoded
// text or HTML payload.
type Message struct {
	ID         string
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// Mailbox searches an external mailbox for messages matching the sender and
// subject filters, received at-or-after since. Ordering of the result is not
// part of the contract; callers pick by ReceivedAt.
type Mailbox interface {
	Search(ctx context.Context, since time.Time, sender, subject string) ([]Message, error)
}
