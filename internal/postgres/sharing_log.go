package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/ports"
)

// SharingLog is the thin write-through store for start/stop sharing markers.
type SharingLog struct {
	pool *pgxpool.Pool
}

// NewSharingLog constructs a SharingLog on the given pool.
func NewSharingLog(pool *pgxpool.Pool) *SharingLog {
	return &SharingLog{pool: pool}
}

// Append inserts one immutable log row.
func (log *SharingLog) Append(ctx context.Context, entry ports.SharingEntry) error {
	_, err := log.pool.Exec(ctx, `
		INSERT INTO sharing_log (ride_id, user_id, action, created_at)
		VALUES ($1, $2, $3, $4)
	`, entry.RideID, entry.UserID, string(entry.Action), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append sharing log: %w", err)
	}
	return nil
}
