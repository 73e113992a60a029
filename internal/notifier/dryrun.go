package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
)

// DryRunNotifier prints what would be sent without sending it
type DryRunNotifier struct {
	out io.Writer
}

// NewDryRunNotifier creates a dry-run notifier writing to out, or stdout
// when out is nil
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	if out == nil {
		out = os.Stdout
	}
	return &DryRunNotifier{out: out}
}

// Send implements Notifier
func (n *DryRunNotifier) Send(_ context.Context, msg Message) (*Delivery, error) {
	fmt.Fprintf(n.out, "--- Subject: %s ---\n", msg.Subject)
	if msg.Text != "" {
		fmt.Fprintln(n.out, msg.Text)
	} else {
		fmt.Fprintln(n.out, msg.HTML)
	}
	fmt.Fprintf(n.out, "\n(HTML: %d bytes)\n\n", len(msg.HTML))
	return &Delivery{}, nil
}
