package memory

import (
	"context"
	"testing"

	"github.com/solacehq/solace/internal/chatstream"
)

func TestInMemoryTurnHistory(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		err := s.SaveTurn(ctx, TurnRecord{SessionID: "sess-1", Role: chatstream.RoleUser, Content: content})
		if err != nil {
			t.Fatalf("SaveTurn() error = %v", err)
		}
	}
	err := s.SaveTurn(ctx, TurnRecord{
		SessionID: "sess-1",
		Role:      chatstream.RoleAssistant,
		Content:   "reply",
		Emotion:   &chatstream.EmotionAnalysis{Emotion: "neutral", Intensity: 3, RiskLevel: chatstream.RiskLow},
	})
	if err != nil {
		t.Fatalf("SaveTurn() error = %v", err)
	}

	got, err := s.SessionHistory(ctx, "sess-1", 2)
	if err != nil {
		t.Fatalf("SessionHistory() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("history length = %d, want 2", len(got))
	}
	if got[0].Content != "three" || got[1].Content != "reply" {
		t.Fatalf("history = [%q, %q], want chronological tail", got[0].Content, got[1].Content)
	}
	if got[1].Emotion == nil || got[1].Emotion.RiskLevel != chatstream.RiskLow {
		t.Fatalf("assistant emotion not preserved: %+v", got[1].Emotion)
	}

	other, err := s.SessionHistory(ctx, "sess-2", 10)
	if err != nil {
		t.Fatalf("SessionHistory() error = %v", err)
	}
	if other != nil {
		t.Fatalf("unknown session history = %v, want nil", other)
	}
}

func TestInMemoryAlertLifecycle(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	err := s.InsertAlert(ctx, CrisisAlert{SessionID: "sess-1", Severity: chatstream.RiskHigh, Message: "i feel hopeless"})
	if err != nil {
		t.Fatalf("InsertAlert() error = %v", err)
	}

	open, err := s.OpenAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("OpenAlerts() error = %v", err)
	}
	if len(open) != 1 || open[0].Status != AlertOpen || open[0].ID == "" {
		t.Fatalf("open alerts = %+v, want one open alert with an ID", open)
	}

	if err := s.AcknowledgeAlert(ctx, open[0].ID); err != nil {
		t.Fatalf("AcknowledgeAlert() error = %v", err)
	}
	open, err = s.OpenAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("OpenAlerts() error = %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("open alerts after ack = %d, want 0", len(open))
	}

	if err := s.AcknowledgeAlert(ctx, "missing"); err != ErrAlertNotFound {
		t.Fatalf("AcknowledgeAlert(missing) = %v, want ErrAlertNotFound", err)
	}
}
