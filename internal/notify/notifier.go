// Package notify pushes operator alerts out to chat channels: spreads the
// scanner found, scans that failed, archives that failed. Delivery is
// best-effort; a dead webhook must never stall the scan loop that raised
// the alert.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Sender delivers one alert to a single channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs ("telegram", "discord").
	Name() string
}

// Notifier fans an alert out to every configured channel, subject to the
// operator's event subscription list.
type Notifier struct {
	senders []Sender
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewNotifier builds a Notifier delivering to senders. events is the
// subscription list; empty subscribes to every event type.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]struct{}, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = struct{}{}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the alert when its event type is subscribed. Unsubscribed
// events are dropped without contacting any channel.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allowed) > 0 {
		if _, ok := n.allowed[event]; !ok {
			n.logger.DebugContext(ctx, "alert suppressed",
				slog.String("event", event),
			)
			return nil
		}
	}
	return n.deliver(ctx, title, message)
}

// NotifyAll delivers the alert regardless of the subscription list.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.deliver(ctx, title, message)
}

// deliver sends to every channel. One channel failing does not stop the
// rest; all failures come back joined.
func (n *Notifier) deliver(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "alert delivery failed",
				slog.String("channel", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("channel", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: deliver: %w", errors.Join(errs...))
	}
	return nil
}
