package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franpena/repartos/internal/model"
)

// GetPackage returns a package by ID, scoped to the owning tenant via its
// conductor. Returns nil if the package does not exist or belongs to
// another tenant.
func GetPackage(ctx context.Context, db *sql.DB, ownerID, id int64) (*model.Package, error) {
	p := &model.Package{}
	var value sql.NullFloat64
	var proofMime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT p.id, p.conductor_id, p.tracking, p.category, p.state,
		        p.delivery_date, p.value, p.proof_mime, p.created_at, p.updated_at,
		        c.name AS conductor_name
		 FROM packages p
		 JOIN conductors c ON c.id = p.conductor_id
		 WHERE p.id = ? AND c.owner_id = ?`, id, ownerID,
	).Scan(&p.ID, &p.ConductorID, &p.Tracking, &p.Category, &p.State,
		&p.DeliveryDate, &value, &proofMime, &p.CreatedAt, &p.UpdatedAt,
		&p.ConductorName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting package: %w", err)
	}
	if value.Valid {
		p.Value = &value.Float64
	}
	p.ProofMime = proofMime.String
	return p, nil
}

// ListPackages returns a tenant's packages, optionally filtered by
// conductor, state and a tracking substring.
func ListPackages(ctx context.Context, db *sql.DB, ownerID int64, conductorID int64, state int, tracking string) ([]model.Package, error) {
	query := `SELECT p.id, p.conductor_id, p.tracking, p.category, p.state,
	                 p.delivery_date, p.value, p.proof_mime, p.created_at, p.updated_at,
	                 c.name AS conductor_name
	          FROM packages p
	          JOIN conductors c ON c.id = p.conductor_id
	          WHERE c.owner_id = ?`
	args := []any{ownerID}

	if conductorID > 0 {
		query += ` AND p.conductor_id = ?`
		args = append(args, conductorID)
	}
	if state >= 0 {
		query += ` AND p.state = ?`
		args = append(args, state)
	}
	if tracking != "" {
		query += ` AND p.tracking LIKE ?`
		args = append(args, "%"+tracking+"%")
	}

	query += ` ORDER BY p.delivery_date DESC, p.tracking`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	defer rows.Close()

	return scanPackages(rows)
}

// ListConductorPackages returns all packages assigned to one conductor.
func ListConductorPackages(ctx context.Context, db *sql.DB, ownerID, conductorID int64) ([]model.Package, error) {
	return ListPackages(ctx, db, ownerID, conductorID, -1, "")
}

// SetPackageProof stores a delivery-proof photo for a package, scoped to
// the owning tenant.
func SetPackageProof(ctx context.Context, db *sql.DB, ownerID, id int64, proof []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE packages SET proof = ?, proof_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
		proof, mime, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("setting package proof: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting package proof: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetPackageProof returns a package's delivery-proof photo and MIME type.
func GetPackageProof(ctx context.Context, db *sql.DB, ownerID, id int64) ([]byte, string, error) {
	var proof []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT p.proof, p.proof_mime
		 FROM packages p
		 JOIN conductors c ON c.id = p.conductor_id
		 WHERE p.id = ? AND c.owner_id = ?`, id, ownerID,
	).Scan(&proof, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting package proof: %w", err)
	}
	return proof, mime.String, nil
}

func scanPackages(rows *sql.Rows) ([]model.Package, error) {
	var packages []model.Package
	for rows.Next() {
		var p model.Package
		var value sql.NullFloat64
		var proofMime sql.NullString
		if err := rows.Scan(&p.ID, &p.ConductorID, &p.Tracking, &p.Category, &p.State,
			&p.DeliveryDate, &value, &proofMime, &p.CreatedAt, &p.UpdatedAt,
			&p.ConductorName); err != nil {
			return nil, fmt.Errorf("scanning package: %w", err)
		}
		if value.Valid {
			p.Value = &value.Float64
		}
		p.ProofMime = proofMime.String
		packages = append(packages, p)
	}
	return packages, rows.Err()
}
