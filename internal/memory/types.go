package memory

import (
	"context"
	"errors"
	"time"

	"github.com/solacehq/solace/internal/chatstream"
)

var ErrAlertNotFound = errors.New("crisis alert not found")

// TurnRecord stores a single user or assistant conversational turn.
type TurnRecord struct {
	ID        string                      `json:"id"`
	SessionID string                      `json:"session_id"`
	UserID    string                      `json:"user_id"`
	Role      string                      `json:"role"`
	Content   string                      `json:"content"`
	Emotion   *chatstream.EmotionAnalysis `json:"emotion,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

const (
	AlertOpen         = "open"
	AlertAcknowledged = "acknowledged"
)

// CrisisAlert records a medium or high risk detection for human follow-up.
type CrisisAlert struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists conversation history and crisis alerts.
type Store interface {
	SaveTurn(ctx context.Context, record TurnRecord) error
	SessionHistory(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error)
	InsertAlert(ctx context.Context, alert CrisisAlert) error
	OpenAlerts(ctx context.Context, limit int) ([]CrisisAlert, error)
	AcknowledgeAlert(ctx context.Context, alertID string) error
	Close() error
}
