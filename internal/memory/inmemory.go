package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	turns  map[string][]TurnRecord
	alerts []CrisisAlert
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{turns: make(map[string][]TurnRecord)}
}

func (s *InMemoryStore) SaveTurn(_ context.Context, record TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.turns[record.SessionID] = append(s.turns[record.SessionID], record)
	return nil
}

func (s *InMemoryStore) SessionHistory(_ context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[sessionID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]TurnRecord, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) InsertAlert(_ context.Context, alert CrisisAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Status == "" {
		alert.Status = AlertOpen
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *InMemoryStore) OpenAlerts(_ context.Context, limit int) ([]CrisisAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := make([]CrisisAlert, 0, limit)
	for _, a := range s.alerts {
		if a.Status != AlertOpen {
			continue
		}
		out = append(out, a)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) AcknowledgeAlert(_ context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == alertID && s.alerts[i].Status == AlertOpen {
			s.alerts[i].Status = AlertAcknowledged
			return nil
		}
	}
	return ErrAlertNotFound
}

func (s *InMemoryStore) Close() error { return nil }
