package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// BlockRegistry reads pairwise block relationships. The block lifecycle is
// owned elsewhere; this core only asks whether an active block exists
// between an unordered pair.
type BlockRegistry struct {
	pool *pgxpool.Pool
}

// NewBlockRegistry constructs a BlockRegistry on the given pool.
func NewBlockRegistry(pool *pgxpool.Pool) *BlockRegistry {
	return &BlockRegistry{pool: pool}
}

// Exists reports whether an active block exists between userA and userB in
// either direction.
func (registry *BlockRegistry) Exists(ctx context.Context, userA, userB string) (bool, error) {
	var exists bool
	err := registry.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM blocks
			WHERE active
			  AND ((user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1))
		)
	`, userA, userB).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("block lookup: %w", err)
	}
	return exists, nil
}
