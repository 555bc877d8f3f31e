package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franpena/repartos/internal/model"
)

// applyDeletePackage removes one package by tracking, capturing the full
// row (original id, timestamps, proof photo) so undo can restore it
// byte-for-byte.
func applyDeletePackage(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	tracking := req.SingleTracking
	if tracking == "" {
		tracking = req.Tracking
	}
	if tracking == "" {
		return nil, nil, validationf("single_tracking es obligatorio")
	}

	var snap DeleteSnapshotDetails
	var value sql.NullFloat64
	var proofMime sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT p.id, p.conductor_id, p.tracking, p.category, p.state,
		        p.delivery_date, p.value, p.proof, p.proof_mime, p.created_at, p.updated_at
		 FROM packages p
		 JOIN conductors c ON c.id = p.conductor_id
		 WHERE p.tracking = ? AND c.owner_id = ?`,
		tracking, tenantID,
	).Scan(&snap.PackageID, &snap.ConductorID, &snap.Tracking, &snap.Category, &snap.State,
		&snap.DeliveryDate, &value, &snap.Proof, &proofMime, &snap.CreatedAt, &snap.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("guía %s: %w", tracking, ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("capturing package: %w", err)
	}
	if value.Valid {
		snap.Value = &value.Float64
	}
	snap.ProofMime = proofMime.String

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM packages WHERE id = ?`, snap.PackageID); err != nil {
		return nil, nil, fmt.Errorf("deleting package: %w", err)
	}

	return &Result{
			Message:  fmt.Sprintf("Paquete %s eliminado", tracking),
			Affected: 1,
		}, &ledgerEntry{
			Type:        TypeDeletePackage,
			Description: fmt.Sprintf("Eliminación de paquete %s", tracking),
			Details:     snap,
			Affected:    1,
			CanUndo:     true,
		}, nil
}

// applyDelete covers the audit-only bulk-delete family. Every predicate is
// intersected with the tenant's conductor set before rows are removed.
// None of these capture row state; they are logged with can_undo=false.
func applyDelete(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	details := DeletePredicateDetails{Scope: string(req.Operation)}
	var description string
	var affected int64

	switch req.Operation {
	case TypeDeleteConductorPackages:
		if req.ConductorID <= 0 {
			return nil, nil, validationf("conductor_id es obligatorio")
		}
		c, err := ownedConductor(ctx, tx, tenantID, req.ConductorID)
		if err != nil {
			return nil, nil, err
		}
		result, err := tx.ExecContext(ctx,
			`DELETE FROM packages WHERE conductor_id = ?`, c.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("deleting conductor packages: %w", err)
		}
		affected, _ = result.RowsAffected()
		details.ConductorID = c.ID
		description = fmt.Sprintf("Eliminación de todos los paquetes de %s", c.Name)

	case TypeDeleteByDateRange:
		if !validDate(req.DateFrom) || !validDate(req.DateTo) {
			return nil, nil, validationf("date_from y date_to deben tener formato AAAA-MM-DD")
		}
		if req.DateFrom > req.DateTo {
			return nil, nil, validationf("date_from no puede ser posterior a date_to")
		}
		result, err := tx.ExecContext(ctx,
			`DELETE FROM packages WHERE delivery_date BETWEEN ? AND ?
			 AND conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
			req.DateFrom, req.DateTo, tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("deleting packages by date range: %w", err)
		}
		affected, _ = result.RowsAffected()
		details.DateFrom = req.DateFrom
		details.DateTo = req.DateTo
		description = fmt.Sprintf("Eliminación de paquetes entre %s y %s", req.DateFrom, req.DateTo)

	case TypeDeleteByState:
		if req.State == nil || !model.ValidState(*req.State) {
			return nil, nil, validationf("state debe ser 0, 1 o 2")
		}
		result, err := tx.ExecContext(ctx,
			`DELETE FROM packages WHERE state = ?
			 AND conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
			*req.State, tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("deleting packages by state: %w", err)
		}
		affected, _ = result.RowsAffected()
		details.State = req.State
		description = fmt.Sprintf("Eliminación de paquetes en estado %s", model.StateName(*req.State))

	case TypeDeleteBulkPackages:
		trackings := splitLines(req.BulkTrackings)
		if len(trackings) == 0 {
			return nil, nil, validationf("bulk_trackings es obligatorio")
		}
		for _, tracking := range trackings {
			result, err := tx.ExecContext(ctx,
				`DELETE FROM packages WHERE tracking = ?
				 AND conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
				tracking, tenantID)
			if err != nil {
				return nil, nil, fmt.Errorf("deleting package %s: %w", tracking, err)
			}
			n, _ := result.RowsAffected()
			affected += n
		}
		details.Trackings = trackings
		description = fmt.Sprintf("Eliminación masiva de %d guías", len(trackings))

	case TypeDeleteAllPackages:
		result, err := tx.ExecContext(ctx,
			`DELETE FROM packages
			 WHERE conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
			tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("deleting all packages: %w", err)
		}
		affected, _ = result.RowsAffected()
		description = "Eliminación de todos los paquetes"

	case TypeDeleteAllConductors:
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM packages
			 WHERE conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
			tenantID); err != nil {
			return nil, nil, fmt.Errorf("deleting conductor packages: %w", err)
		}
		result, err := tx.ExecContext(ctx,
			`DELETE FROM conductors WHERE owner_id = ?`, tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("deleting conductors: %w", err)
		}
		affected, _ = result.RowsAffected()
		description = "Eliminación de todos los conductores"

	case TypeNuclearReset:
		pkgs, err := tx.ExecContext(ctx,
			`DELETE FROM packages
			 WHERE conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
			tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("deleting all packages: %w", err)
		}
		conds, err := tx.ExecContext(ctx,
			`DELETE FROM conductors WHERE owner_id = ?`, tenantID)
		if err != nil {
			return nil, nil, fmt.Errorf("deleting all conductors: %w", err)
		}
		np, _ := pkgs.RowsAffected()
		nc, _ := conds.RowsAffected()
		affected = np + nc
		description = "Reinicio total de la cuenta"

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidOperation, req.Operation)
	}

	return &Result{
			Message:  fmt.Sprintf("%s: %d registros eliminados", description, affected),
			Affected: affected,
		}, &ledgerEntry{
			Type:        req.Operation,
			Description: description,
			Details:     details,
			Affected:    affected,
			CanUndo:     false,
		}, nil
}
