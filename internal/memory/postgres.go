package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solacehq/solace/internal/chatstream"
)

// PostgresStore persists conversation history and crisis alerts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			emotion JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_session_created ON chat_turns (session_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS crisis_alerts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id TEXT NOT NULL DEFAULT '',
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_crisis_alerts_status_created ON crisis_alerts (status, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveTurn(ctx context.Context, record TurnRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var emotion []byte
	if record.Emotion != nil {
		var err error
		emotion, err = json.Marshal(record.Emotion)
		if err != nil {
			return fmt.Errorf("encode emotion: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_turns (id, session_id, user_id, role, content, emotion, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID,
		record.SessionID,
		record.UserID,
		record.Role,
		record.Content,
		emotion,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) SessionHistory(ctx context.Context, sessionID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, user_id, role, content, emotion, created_at
		 FROM chat_turns WHERE session_id=$1 ORDER BY created_at DESC LIMIT $2`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query session history: %w", err)
	}
	defer rows.Close()

	items := make([]TurnRecord, 0, limit)
	for rows.Next() {
		var r TurnRecord
		var emotion []byte
		if err := rows.Scan(&r.ID, &r.SessionID, &r.UserID, &r.Role, &r.Content, &emotion, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if len(emotion) > 0 {
			var e chatstream.EmotionAnalysis
			if err := json.Unmarshal(emotion, &e); err != nil {
				return nil, fmt.Errorf("decode emotion: %w", err)
			}
			r.Emotion = &e
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	// Reverse into chronological order for prompt coherence.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

func (s *PostgresStore) InsertAlert(ctx context.Context, alert CrisisAlert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.Status == "" {
		alert.Status = AlertOpen
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO crisis_alerts (id, session_id, user_id, severity, message, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		alert.ID,
		alert.SessionID,
		alert.UserID,
		alert.Severity,
		alert.Message,
		alert.Status,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PostgresStore) OpenAlerts(ctx context.Context, limit int) ([]CrisisAlert, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, user_id, severity, message, status, created_at
		 FROM crisis_alerts WHERE status=$1 ORDER BY created_at ASC LIMIT $2`,
		AlertOpen,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query open alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]CrisisAlert, 0, limit)
	for rows.Next() {
		var a CrisisAlert
		if err := rows.Scan(&a.ID, &a.SessionID, &a.UserID, &a.Severity, &a.Message, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rows: %w", err)
	}
	return alerts, nil
}

func (s *PostgresStore) AcknowledgeAlert(ctx context.Context, alertID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crisis_alerts SET status=$1 WHERE id=$2 AND status=$3`,
		AlertAcknowledged,
		alertID,
		AlertOpen,
	)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
