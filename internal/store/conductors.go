package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franpena/repartos/internal/model"
)

// CreateConductor creates a new conductor for a tenant.
func CreateConductor(ctx context.Context, db *sql.DB, ownerID int64, name, zone string) (*model.Conductor, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO conductors (owner_id, name, zone) VALUES (?, ?, ?)`,
		ownerID, name, zone,
	)
	if err != nil {
		return nil, fmt.Errorf("creating conductor: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting conductor id: %w", err)
	}

	return GetConductor(ctx, db, ownerID, id)
}

// GetConductor returns a conductor by ID, scoped to the owning tenant.
// Returns nil if the conductor does not exist or belongs to another tenant.
func GetConductor(ctx context.Context, db *sql.DB, ownerID, id int64) (*model.Conductor, error) {
	c := &model.Conductor{}
	err := db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, zone, active, created_at, deleted_at
		 FROM conductors WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Zone, &c.Active, &c.CreatedAt, &c.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting conductor: %w", err)
	}
	return c, nil
}

// ListConductors returns all non-deleted conductors of a tenant.
func ListConductors(ctx context.Context, db *sql.DB, ownerID int64) ([]model.Conductor, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, owner_id, name, zone, active, created_at, deleted_at
		 FROM conductors WHERE owner_id = ? AND deleted_at IS NULL ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conductors: %w", err)
	}
	defer rows.Close()

	var conductors []model.Conductor
	for rows.Next() {
		var c model.Conductor
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Zone, &c.Active, &c.CreatedAt, &c.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning conductor: %w", err)
		}
		conductors = append(conductors, c)
	}
	return conductors, rows.Err()
}

// UpdateConductor updates a conductor's name and zone, scoped to the tenant.
func UpdateConductor(ctx context.Context, db *sql.DB, ownerID, id int64, name, zone string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE conductors SET name = ?, zone = ?
		 WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`,
		name, zone, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("updating conductor: %w", err)
	}
	return nil
}

// DeleteConductor soft-deletes a conductor. Fails if packages are still
// assigned to it; bulk removal goes through the operations engine instead.
func DeleteConductor(ctx context.Context, db *sql.DB, ownerID, id int64) error {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM packages WHERE conductor_id = ?`, id,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking conductor packages: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("cannot delete conductor: still has %d packages assigned", count)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE conductors SET deleted_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting conductor: %w", err)
	}
	return nil
}
