// Package notify is the boundary to the outbound notification collaborator.
// Actual delivery (email, push) lives outside this service; the core only
// emits events and must never fail an operation because delivery failed.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// ConnectionEvent describes a connection-request change worth telling the
// recipient about.
type ConnectionEvent struct {
	FromFirstName string
	ToFirstName   string
	ToEmail       string
	Status        string
	Message       string
}

type Notifier interface {
	ConnectionUpdate(ctx context.Context, ev ConnectionEvent) error
	PendingReminder(ctx context.Context, email string, pending int) error
}

// LogNotifier records notifications in the log instead of delivering them.
// It stands in for the external email collaborator.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) ConnectionUpdate(_ context.Context, ev ConnectionEvent) error {
	n.log.Info().
		Str("to", ev.ToEmail).
		Str("status", ev.Status).
		Str("message", ev.Message).
		Msg("connection notification")
	return nil
}

func (n *LogNotifier) PendingReminder(_ context.Context, email string, pending int) error {
	n.log.Info().
		Str("to", email).
		Int("pending", pending).
		Msg("pending request reminder")
	return nil
}
