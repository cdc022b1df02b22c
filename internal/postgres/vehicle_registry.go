package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
)

// VehicleRegistry supplies the ownership/capacity facts the lifecycle
// engine validates against. Vehicle CRUD lives in the surrounding system.
type VehicleRegistry struct {
	pool *pgxpool.Pool
}

// NewVehicleRegistry constructs a VehicleRegistry on the given pool.
func NewVehicleRegistry(pool *pgxpool.Pool) *VehicleRegistry {
	return &VehicleRegistry{pool: pool}
}

// Get fetches vehicle facts by id; a missing vehicle maps to ErrInvalidVehicle.
func (registry *VehicleRegistry) Get(ctx context.Context, vehicleID string) (ride.Vehicle, error) {
	var v ride.Vehicle
	err := registry.pool.QueryRow(ctx, `
		SELECT id, owner_id, capacity, active
		FROM vehicles
		WHERE id = $1
	`, vehicleID).Scan(&v.ID, &v.OwnerID, &v.Capacity, &v.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ride.Vehicle{}, ride.ErrInvalidVehicle
		}
		return ride.Vehicle{}, fmt.Errorf("vehicle lookup: %w", err)
	}
	return v, nil
}
