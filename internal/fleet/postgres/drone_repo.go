// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/fleet"
)

const droneColumns = `id, owner_id, type_id, name, status, fuel_l, coord_x, coord_y, location_id,
		destination_id, task_origin_x, task_origin_y, task_started_at, task_eta_at,
		battery_remaining_sec, version, created_at`

// DroneRepository implements fleet.DroneRepository using PostgreSQL.
type DroneRepository struct {
	db DB
}

// NewDroneRepository creates a new DroneRepository.
func NewDroneRepository(db DB) *DroneRepository {
	return &DroneRepository{db: db}
}

// Get retrieves a drone by ID.
func (r *DroneRepository) Get(ctx context.Context, id ulid.ULID) (*fleet.Drone, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate retrieves a drone and locks its row for the surrounding transaction.
func (r *DroneRepository) GetForUpdate(ctx context.Context, id ulid.ULID) (*fleet.Drone, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *DroneRepository) get(ctx context.Context, id ulid.ULID, lock string) (*fleet.Drone, error) {
	q := conn(ctx, r.db)
	row := q.QueryRow(ctx, `SELECT `+droneColumns+` FROM drones WHERE id = $1`+lock, id.String())
	rec, err := scanDrone(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(fleet.CodeDroneNotFound).With("drone_id", id.String()).Wrap(fleet.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get drone").With("drone_id", id.String()).Wrap(err)
	}

	rows, err := q.Query(ctx,
		`SELECT drone_id, resource_id, quantity_kg FROM drone_inventory WHERE drone_id = $1`, id.String())
	if err != nil {
		return nil, oops.With("operation", "get inventory").With("drone_id", id.String()).Wrap(err)
	}
	inv, err := scanInventory(rows)
	if err != nil {
		return nil, oops.With("operation", "get inventory").With("drone_id", id.String()).Wrap(err)
	}
	return fleet.FromRecord(rec, inv[id])
}

// ListByOwner returns an owner's drones, oldest first.
func (r *DroneRepository) ListByOwner(ctx context.Context, owner ulid.ULID) ([]*fleet.Drone, error) {
	q := conn(ctx, r.db)
	rows, err := q.Query(ctx,
		`SELECT `+droneColumns+` FROM drones WHERE owner_id = $1 ORDER BY created_at, id`, owner.String())
	if err != nil {
		return nil, oops.With("operation", "list drones").With("owner_id", owner.String()).Wrap(err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (fleet.Record, error) {
		return scanDrone(row)
	})
	if err != nil {
		return nil, oops.With("operation", "scan drones").With("owner_id", owner.String()).Wrap(err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	invRows, err := q.Query(ctx, `
		SELECT i.drone_id, i.resource_id, i.quantity_kg
		FROM drone_inventory i JOIN drones d ON d.id = i.drone_id
		WHERE d.owner_id = $1
	`, owner.String())
	if err != nil {
		return nil, oops.With("operation", "list inventory").With("owner_id", owner.String()).Wrap(err)
	}
	inv, err := scanInventory(invRows)
	if err != nil {
		return nil, oops.With("operation", "list inventory").With("owner_id", owner.String()).Wrap(err)
	}

	out := make([]*fleet.Drone, 0, len(recs))
	for _, rec := range recs {
		d, err := fleet.FromRecord(rec, inv[rec.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ListDue returns the ids of drones whose task deadline is at or before now,
// earliest deadline first.
func (r *DroneRepository) ListDue(ctx context.Context, now time.Time) ([]ulid.ULID, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id FROM drones
		WHERE task_eta_at IS NOT NULL AND task_eta_at <= $1
		  AND status IN ('travelling', 'mining', 'emergency')
		ORDER BY task_eta_at, id
	`, now.Unix())
	if err != nil {
		return nil, oops.With("operation", "list due drones").Wrap(err)
	}
	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ulid.ULID, error) {
		var s string
		if err := row.Scan(&s); err != nil {
			return ulid.ULID{}, err
		}
		return ulid.Parse(s)
	})
	if err != nil {
		return nil, oops.With("operation", "scan due drones").Wrap(err)
	}
	return ids, nil
}

// Create persists a new drone and its inventory.
func (r *DroneRepository) Create(ctx context.Context, d *fleet.Drone) error {
	rec := fleet.ToRecord(d)
	rec.Version = 1
	err := atomically(ctx, r.db, func(q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO drones (`+droneColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`, rec.ID.String(), rec.OwnerID.String(), rec.TypeID, rec.Name, rec.Status, rec.FuelL,
			rec.X, rec.Y, rec.LocationID, rec.DestinationID, rec.OriginX, rec.OriginY,
			rec.StartedAt, rec.EtaAt, rec.BatteryRemainingSec, rec.Version, rec.CreatedAt)
		if err != nil {
			return err
		}
		return insertInventory(ctx, q, d.ID, d.Inventory)
	})
	if err != nil {
		return oops.With("operation", "create drone").With("drone_id", d.ID.String()).Wrap(err)
	}
	d.Version = 1
	return nil
}

// Save writes the drone and replaces its inventory. The update only applies
// if the stored version matches d.Version.
func (r *DroneRepository) Save(ctx context.Context, d *fleet.Drone) error {
	rec := fleet.ToRecord(d)
	err := atomically(ctx, r.db, func(q querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE drones SET status = $3, fuel_l = $4, coord_x = $5, coord_y = $6, location_id = $7,
				destination_id = $8, task_origin_x = $9, task_origin_y = $10, task_started_at = $11,
				task_eta_at = $12, battery_remaining_sec = $13, name = $14, version = version + 1
			WHERE id = $1 AND version = $2
		`, rec.ID.String(), rec.Version, rec.Status, rec.FuelL, rec.X, rec.Y, rec.LocationID,
			rec.DestinationID, rec.OriginX, rec.OriginY, rec.StartedAt, rec.EtaAt,
			rec.BatteryRemainingSec, rec.Name)
		if err != nil {
			return oops.With("operation", "update drone").Wrap(err)
		}
		if tag.RowsAffected() == 0 {
			return oops.Code(fleet.CodeConflict).
				With("version", rec.Version).
				Errorf("drone missing or modified concurrently")
		}
		if _, err := q.Exec(ctx, `DELETE FROM drone_inventory WHERE drone_id = $1`, rec.ID.String()); err != nil {
			return oops.With("operation", "clear inventory").Wrap(err)
		}
		return insertInventory(ctx, q, d.ID, d.Inventory)
	})
	if err != nil {
		return oops.With("drone_id", d.ID.String()).Wrap(err)
	}
	d.Version++
	return nil
}

func insertInventory(ctx context.Context, q querier, id ulid.ULID, inv fleet.Inventory) error {
	var resources []string
	var quantities []float64
	for _, res := range inv.Resources() {
		if inv[res] > 0 {
			resources = append(resources, res)
			quantities = append(quantities, inv[res])
		}
	}
	if len(resources) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		INSERT INTO drone_inventory (drone_id, resource_id, quantity_kg)
		SELECT $1, r, q FROM unnest($2::text[], $3::float8[]) AS t(r, q)
	`, id.String(), resources, quantities)
	if err != nil {
		return oops.With("operation", "insert inventory").Wrap(err)
	}
	return nil
}

func scanDrone(row pgx.Row) (fleet.Record, error) {
	var (
		rec            fleet.Record
		idStr, ownerID string
	)
	err := row.Scan(&idStr, &ownerID, &rec.TypeID, &rec.Name, &rec.Status, &rec.FuelL, &rec.X, &rec.Y,
		&rec.LocationID, &rec.DestinationID, &rec.OriginX, &rec.OriginY, &rec.StartedAt, &rec.EtaAt,
		&rec.BatteryRemainingSec, &rec.Version, &rec.CreatedAt)
	if err != nil {
		return fleet.Record{}, err
	}
	if rec.ID, err = ulid.Parse(idStr); err != nil {
		return fleet.Record{}, oops.Code(fleet.CodeDataIntegrity).With("id", idStr).Wrapf(err, "parse drone id")
	}
	if rec.OwnerID, err = ulid.Parse(ownerID); err != nil {
		return fleet.Record{}, oops.Code(fleet.CodeDataIntegrity).With("owner_id", ownerID).Wrapf(err, "parse owner id")
	}
	return rec, nil
}

func scanInventory(rows pgx.Rows) (map[ulid.ULID]fleet.Inventory, error) {
	defer rows.Close()
	out := make(map[ulid.ULID]fleet.Inventory)
	for rows.Next() {
		var (
			droneID, resource string
			qty               float64
		)
		if err := rows.Scan(&droneID, &resource, &qty); err != nil {
			return nil, err
		}
		id, err := ulid.Parse(droneID)
		if err != nil {
			return nil, oops.Code(fleet.CodeDataIntegrity).With("drone_id", droneID).Wrap(err)
		}
		if out[id] == nil {
			out[id] = fleet.Inventory{}
		}
		out[id][resource] = qty
	}
	return out, rows.Err()
}
