// Package notify fans alert notifications and scheduled digests out to chat
// platforms (Slack, Discord).
package notify

import (
	"context"
	"log"

	"github.com/zulandar/crewdeck/internal/models"
)

// Color constants for message severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Adapters are send-only: crewdeck pushes status out, it never
// reads chat back in.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Send delivers a message to the platform.
	Send(ctx context.Context, msg Message) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// Message is a notification formatted for display in chat.
type Message struct {
	Title    string  // headline (e.g. "Agent scout is blocked")
	Body     string  // detail text
	Severity string  // "info", "warning", "error", "success"
	Color    string  // sidebar color hint (e.g. "#36a64f" for success)
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed alongside a message.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "info":
		return ColorInfo
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// notificationSeverity maps a notification type to a message severity.
func notificationSeverity(typ string) string {
	switch typ {
	case models.NotifyAlert:
		return "error"
	case models.NotifyMention:
		return "warning"
	default:
		return "info"
	}
}

// FromNotification formats a dashboard notification as a chat message.
func FromNotification(n models.Notification) Message {
	severity := notificationSeverity(n.Type)
	msg := Message{
		Title:    n.Message,
		Severity: severity,
		Color:    severityColor(severity),
	}
	if n.Agent != "" {
		msg.Fields = append(msg.Fields, Field{Name: "Agent", Value: n.Agent, Short: true})
	}
	if n.Timestamp != "" {
		msg.Fields = append(msg.Fields, Field{Name: "When", Value: n.Timestamp, Short: true})
	}
	return msg
}

// Router fans messages out to every configured adapter. It implements the
// synchronizer's AlertSink.
type Router struct {
	adapters []Adapter
}

// NewRouter creates a Router over the given adapters. A router with no
// adapters is valid and drops everything.
func NewRouter(adapters ...Adapter) *Router {
	return &Router{adapters: adapters}
}

// Connect connects every adapter. The first failure aborts and is returned.
func (r *Router) Connect(ctx context.Context) error {
	for _, a := range r.adapters {
		if err := a.Connect(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Send delivers the message to every adapter. A failing adapter is logged
// and skipped so one dead platform does not silence the others.
func (r *Router) Send(ctx context.Context, msg Message) {
	for _, a := range r.adapters {
		if err := a.Send(ctx, msg); err != nil {
			log.Printf("notify: send: %v", err)
		}
	}
}

// Alert implements syncer.AlertSink.
func (r *Router) Alert(ctx context.Context, n models.Notification) {
	r.Send(ctx, FromNotification(n))
}

// Close closes every adapter, returning the first error seen.
func (r *Router) Close() error {
	var firstErr error
	for _, a := range r.adapters {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
