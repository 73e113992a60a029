package notifier

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/pfrederiksen/theatre-alerts/internal/logger"
)

// Message is a rendered alert ready for delivery
type Message struct {
	Subject string
	HTML    string
	Text    string // optional plain-text alternative
	Count   int    // productions listed, for short-form channels
}

// Delivery is what the provider said about a send
type Delivery struct {
	StatusCode int
	Response   json.RawMessage
}

// Notifier delivers a rendered alert
type Notifier interface {
	Send(ctx context.Context, msg Message) (*Delivery, error)
}

// Multi sends through several notifiers in order. The first notifier is
// the primary channel: the returned Delivery is its own, nil when it
// failed. Every notifier is tried even after a failure, and any failure
// is reported in the error.
type Multi []Notifier

// Send implements Notifier
func (m Multi) Send(ctx context.Context, msg Message) (*Delivery, error) {
	var (
		primary  *Delivery
		firstErr error
		failed   int
	)
	for i, n := range m {
		d, err := n.Send(ctx, msg)
		if err != nil {
			failed++
			logger.Error("Notifier failed", logger.Fields{"index": i, "subject": msg.Subject}, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if i == 0 {
			primary = d
		}
	}

	if firstErr != nil {
		return primary, eris.Wrapf(firstErr, "%d of %d notifiers failed", failed, len(m))
	}
	return primary, nil
}
