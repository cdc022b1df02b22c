package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/geo"
	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/ride"
)

// RideStore persists rides with embedded passenger sub-records using pgx
// and plain SQL. The ride row is the unit of locking: Mutate takes a row
// lock, applies the domain mutation, and writes everything back in one
// transaction, so the seat invariant can never be violated by interleaved
// writers.
type RideStore struct {
	uow *unitOfWork
}

// NewRideStore constructs a RideStore on the given pool.
func NewRideStore(pool *pgxpool.Pool) *RideStore {
	return &RideStore{uow: NewUnitOfWork(pool)}
}

// Create inserts the ride row, its passenger sub-records, and any audit
// entries already appended to the entity.
func (store *RideStore) Create(ctx context.Context, r *ride.Ride) error {
	return store.uow.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := MustTxFromContext(ctx)
		if err != nil {
			return err
		}

		origin, destination, stops, err := encodeWaypoints(r)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO rides (
				id, created_at, updated_at, driver_id, vehicle_id,
				origin, destination, stops, departure_time, price_per_seat,
				capacity_at_creation, available_seats, status,
				is_recurrent, recurrence_id
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NULLIF($15,''))
		`,
			r.ID, r.CreatedAt, r.UpdatedAt, r.DriverID, r.VehicleID,
			origin, destination, stops, r.DepartureTime, r.PricePerSeat,
			r.CapacityAtCreation, r.AvailableSeats, r.Status.String(),
			r.IsRecurrent, r.RecurrenceID,
		)
		if err != nil {
			return fmt.Errorf("insert ride: %w", err)
		}

		if err := writePassengers(ctx, tx, r); err != nil {
			return err
		}
		return writeAudit(ctx, tx, r)
	})
}

// Get fetches a ride with its passengers and audit history.
func (store *RideStore) Get(ctx context.Context, id string) (*ride.Ride, error) {
	var out *ride.Ride
	err := store.uow.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := MustTxFromContext(ctx)
		if err != nil {
			return err
		}
		out, err = loadRide(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mutate loads the ride under a row lock, applies fn, and persists the
// result in the same transaction. Serialization failures surface as
// ride.ErrConcurrencyConflict so callers can retry.
func (store *RideStore) Mutate(ctx context.Context, id string, fn func(*ride.Ride) error) (*ride.Ride, error) {
	var out *ride.Ride
	err := store.uow.WithinTx(ctx, func(ctx context.Context) error {
		tx, err := MustTxFromContext(ctx)
		if err != nil {
			return err
		}

		r, err := loadRide(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if err := fn(r); err != nil {
			return err
		}

		origin, destination, stops, err := encodeWaypoints(r)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE rides
			SET updated_at = $2, available_seats = $3, status = $4,
			    origin = $5, destination = $6, stops = $7,
			    departure_time = $8, price_per_seat = $9, vehicle_id = $10
			WHERE id = $1
		`, r.ID, r.UpdatedAt, r.AvailableSeats, r.Status.String(),
			origin, destination, stops, r.DepartureTime, r.PricePerSeat, r.VehicleID)
		if err != nil {
			return fmt.Errorf("update ride: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ride.ErrRideNotFound
		}

		if err := writePassengers(ctx, tx, r); err != nil {
			return err
		}
		if err := writeAudit(ctx, tx, r); err != nil {
			return err
		}

		out = r
		return nil
	})
	if err != nil {
		return nil, mapConflict(err)
	}
	return out, nil
}

// ----- row <-> entity helpers -----

func loadRide(ctx context.Context, tx pgx.Tx, id string, forUpdate bool) (*ride.Ride, error) {
	query := `
		SELECT id, created_at, updated_at, driver_id, vehicle_id,
		       origin, destination, stops, departure_time, price_per_seat,
		       capacity_at_creation, available_seats, status,
		       is_recurrent, COALESCE(recurrence_id, '')
		FROM rides
		WHERE id = $1`
	if forUpdate {
		query += `
		FOR UPDATE`
	}

	var (
		out                 ride.Ride
		origin, destination []byte
		stops               []byte
		status              string
	)
	err := tx.QueryRow(ctx, query, id).Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.DriverID, &out.VehicleID,
		&origin, &destination, &stops, &out.DepartureTime, &out.PricePerSeat,
		&out.CapacityAtCreation, &out.AvailableSeats, &status,
		&out.IsRecurrent, &out.RecurrenceID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ride.ErrRideNotFound
		}
		return nil, fmt.Errorf("select ride: %w", err)
	}
	out.Status = ride.Status(status)

	if err := json.Unmarshal(origin, &out.Origin); err != nil {
		return nil, fmt.Errorf("decode origin: %w", err)
	}
	if err := json.Unmarshal(destination, &out.Destination); err != nil {
		return nil, fmt.Errorf("decode destination: %w", err)
	}
	if len(stops) > 0 {
		if err := json.Unmarshal(stops, &out.Stops); err != nil {
			return nil, fmt.Errorf("decode stops: %w", err)
		}
	}

	// passengers in request order
	rows, err := tx.Query(ctx, `
		SELECT user_id, status, requested_at, managed_at
		FROM ride_passengers
		WHERE ride_id = $1
		ORDER BY requested_at, user_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("select passengers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p ride.Passenger
		var pstatus string
		if err := rows.Scan(&p.UserID, &pstatus, &p.RequestedAt, &p.ManagedAt); err != nil {
			return nil, fmt.Errorf("scan passenger: %w", err)
		}
		p.Status = ride.PassengerStatus(pstatus)
		out.Passengers = append(out.Passengers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	arows, err := tx.Query(ctx, `
		SELECT id, actor, action, detail, created_at
		FROM ride_audit
		WHERE ride_id = $1
		ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		var e ride.AuditEntry
		if err := arows.Scan(&e.ID, &e.Actor, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out.AuditHistory = append(out.AuditHistory, e)
	}
	if err := arows.Err(); err != nil {
		return nil, err
	}

	return &out, nil
}

// writePassengers upserts every sub-record; the (ride_id, user_id) primary
// key enforces the one-record-per-user invariant at the storage level too.
func writePassengers(ctx context.Context, tx pgx.Tx, r *ride.Ride) error {
	for i := range r.Passengers {
		p := &r.Passengers[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO ride_passengers (ride_id, user_id, status, requested_at, managed_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (ride_id, user_id)
			DO UPDATE SET status = EXCLUDED.status, managed_at = EXCLUDED.managed_at
		`, r.ID, p.UserID, p.Status.String(), p.RequestedAt, p.ManagedAt)
		if err != nil {
			return fmt.Errorf("upsert passenger: %w", err)
		}
	}
	return nil
}

// writeAudit inserts entries not yet persisted; rows are append-only.
func writeAudit(ctx context.Context, tx pgx.Tx, r *ride.Ride) error {
	for i := range r.AuditHistory {
		e := &r.AuditHistory[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO ride_audit (id, ride_id, actor, action, detail, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, e.ID, r.ID, e.Actor, e.Action, e.Detail, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
	}
	return nil
}

func encodeWaypoints(r *ride.Ride) (origin, destination, stops []byte, err error) {
	if origin, err = json.Marshal(r.Origin); err != nil {
		return nil, nil, nil, fmt.Errorf("encode origin: %w", err)
	}
	if destination, err = json.Marshal(r.Destination); err != nil {
		return nil, nil, nil, fmt.Errorf("encode destination: %w", err)
	}
	wp := r.Stops
	if wp == nil {
		wp = []geo.Waypoint{}
	}
	if stops, err = json.Marshal(wp); err != nil {
		return nil, nil, nil, fmt.Errorf("encode stops: %w", err)
	}
	return origin, destination, stops, nil
}

// mapConflict converts serialization/deadlock failures into the retryable
// domain conflict error.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return ride.ErrConcurrencyConflict
		}
	}
	return err
}
