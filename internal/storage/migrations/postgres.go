package migrations

import (
	"context"
	"fmt"

	"solana-atomic-arb/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are idempotent. Returns the names of the applied files.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	files, err := Postgres()
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(files))
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
	}

	return applied, nil
}
