// Package alert turns profitable opportunities into webhook notifications.
// A Dispatcher applies config-driven profit thresholds, suppresses repeat
// alerts for the same market pair through a cache-backed cooldown, and paces
// batch delivery to stay under webhook rate caps. Delivery failures are
// logged and never propagate into the scan.
package alert

import (
	"context"
	"fmt"
	"strings"
)

// Field is one labelled value in an alert. Discord renders fields as embed
// field objects; text channels render them as "Name: value" lines.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is one rendered alert, ready for delivery.
type Message struct {
	Title  string
	Body   string
	Fields []Field
}

// Text flattens the body and fields into a single string for senders without
// a structured field representation.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(m.Body)
	for _, f := range m.Fields {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	return b.String()
}

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers one alert message.
	Send(ctx context.Context, msg Message) error
	// Name returns a human-readable identifier for the sender (e.g. "discord").
	Name() string
}
