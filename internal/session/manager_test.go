package session

import (
	"context"
	"testing"
	"time"

	"github.com/solacehq/solace/internal/chatstream"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "en")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UserID != "u1" || got.Language != "en" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}
	if got.RiskLevel != chatstream.RiskLow || got.Escalated {
		t.Fatalf("new session = %+v, want low risk and not escalated", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
}

func TestManagerRiskNeverDowngrades(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("u1", "en")

	if err := m.RaiseRisk(s.ID, chatstream.RiskMedium); err != nil {
		t.Fatalf("RaiseRisk() error = %v", err)
	}
	if err := m.RaiseRisk(s.ID, chatstream.RiskHigh); err != nil {
		t.Fatalf("RaiseRisk() error = %v", err)
	}
	if err := m.RaiseRisk(s.ID, chatstream.RiskLow); err != nil {
		t.Fatalf("RaiseRisk() error = %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RiskLevel != chatstream.RiskHigh {
		t.Fatalf("RiskLevel = %q after low observation, want high", got.RiskLevel)
	}
	if !got.Escalated {
		t.Fatalf("session not escalated after high risk")
	}
}

func TestManagerRecordTurn(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create("", "en")
	for i := 0; i < 3; i++ {
		if err := m.RecordTurn(s.ID); err != nil {
			t.Fatalf("RecordTurn() error = %v", err)
		}
	}
	got, _ := m.Get(s.ID)
	if got.TurnCount != 3 {
		t.Fatalf("TurnCount = %d, want 3", got.TurnCount)
	}
	if err := m.RecordTurn("missing"); err != ErrNotFound {
		t.Fatalf("RecordTurn(missing) = %v, want ErrNotFound", err)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	s := m.Create("u1", "en")

	expired := make(chan *Session, 1)
	m.SetExpireHook(func(s *Session) { expired <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case e := <-expired:
		if e.ID != s.ID {
			t.Fatalf("expired session %q, want %q", e.ID, s.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("janitor never expired the session")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
}
