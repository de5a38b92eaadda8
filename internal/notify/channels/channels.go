// Package channels contains the delivery providers notifications are
// dispatched through. All senders are fire-and-log: no delivery-receipt
// feedback loop is modeled.
package channels

import (
	"context"

	"github.com/tribelabs/tribe/internal/database/types"
)

// Message is a rendered notification payload.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message to a recipient over one channel.
type Sender interface {
	Send(ctx context.Context, recipient *types.Recipient, msg Message) error
}
