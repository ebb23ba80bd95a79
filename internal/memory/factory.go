package memory

import (
	"context"
	"strings"
)

// NewStore selects the turn and alert store for this deployment: Postgres
// when a database URL is configured, otherwise the in-memory store.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return NewPostgresStore(ctx, databaseURL)
	}
	return NewInMemoryStore(), nil
}
