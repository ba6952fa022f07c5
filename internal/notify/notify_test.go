package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/zulandar/crewdeck/internal/models"
)

func TestFromNotification_SeverityMapping(t *testing.T) {
	cases := []struct {
		typ      string
		severity string
		color    string
	}{
		{models.NotifyAlert, "error", ColorError},
		{models.NotifyMention, "warning", ColorWarning},
		{models.NotifySystem, "info", ColorInfo},
		{"", "info", ColorInfo},
	}
	for _, tc := range cases {
		msg := FromNotification(models.Notification{Message: "hi", Type: tc.typ})
		if msg.Severity != tc.severity {
			t.Errorf("type %q: severity = %q, want %q", tc.typ, msg.Severity, tc.severity)
		}
		if msg.Color != tc.color {
			t.Errorf("type %q: color = %q, want %q", tc.typ, msg.Color, tc.color)
		}
	}
}

func TestFromNotification_Fields(t *testing.T) {
	msg := FromNotification(models.Notification{
		Message:   "Agent scout is blocked",
		Agent:     "scout",
		Timestamp: "2025-06-01T12:00:00Z",
		Type:      models.NotifyAlert,
	})
	if msg.Title != "Agent scout is blocked" {
		t.Errorf("title = %q", msg.Title)
	}
	if len(msg.Fields) != 2 {
		t.Fatalf("fields = %d, want agent and timestamp", len(msg.Fields))
	}
	if msg.Fields[0].Value != "scout" {
		t.Errorf("agent field = %q", msg.Fields[0].Value)
	}
}

func TestRouter_FansOut(t *testing.T) {
	a := NewMockAdapter()
	b := NewMockAdapter()
	router := NewRouter(a, b)

	if err := router.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	router.Send(context.Background(), Message{Title: "hello"})

	if a.SentCount() != 1 || b.SentCount() != 1 {
		t.Errorf("sent = %d/%d, want 1/1", a.SentCount(), b.SentCount())
	}
}

func TestRouter_FailingAdapterDoesNotSilenceOthers(t *testing.T) {
	a := NewMockAdapter()
	b := NewMockAdapter()
	router := NewRouter(a, b)

	if err := router.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	a.FailSends(fmt.Errorf("slack down"))
	router.Send(context.Background(), Message{Title: "hello"})

	if b.SentCount() != 1 {
		t.Errorf("healthy adapter sent = %d, want 1", b.SentCount())
	}
}

func TestRouter_AlertFormatsNotification(t *testing.T) {
	a := NewMockAdapter()
	router := NewRouter(a)
	if err := router.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	router.Alert(context.Background(), models.Notification{
		Message: "Agent scout is blocked",
		Type:    models.NotifyAlert,
	})

	msg, ok := a.LastSent()
	if !ok {
		t.Fatal("no message sent")
	}
	if msg.Title != "Agent scout is blocked" || msg.Severity != "error" {
		t.Errorf("message = %+v", msg)
	}
}

func TestRouter_EmptyIsNoOp(t *testing.T) {
	router := NewRouter()
	if err := router.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	router.Send(context.Background(), Message{Title: "dropped"})
	if err := router.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
