package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Undo reverses the most recent eligible ledger entry for a tenant. The
// lookup, the type-specific reverser, the atomic claim of the original
// entry and the append of the undo entry all run in one transaction; any
// failure rolls everything back and leaves the original entry eligible.
func Undo(ctx context.Context, db *sql.DB, tenantID int64) (*Result, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var opID int64
	var opType, details, description string
	err = tx.QueryRowContext(ctx,
		`SELECT id, operation_type, details, description
		 FROM operations WHERE tenant_id = ? AND can_undo = 1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, tenantID,
	).Scan(&opID, &opType, &details, &description)
	if err == sql.ErrNoRows {
		return nil, ErrNothingToUndo
	}
	if err != nil {
		return nil, fmt.Errorf("finding undoable operation: %w", err)
	}

	result, err := revert(ctx, tx, tenantID, Type(opType), details)
	if err != nil {
		return nil, err
	}

	// Claim the entry. The conditional update makes the claim atomic: if a
	// concurrent undo got here first, zero rows match and we roll back.
	claim, err := tx.ExecContext(ctx,
		`UPDATE operations SET can_undo = 0, undone_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND can_undo = 1`, opID)
	if err != nil {
		return nil, fmt.Errorf("claiming operation for undo: %w", err)
	}
	if n, err := claim.RowsAffected(); err != nil || n != 1 {
		return nil, fmt.Errorf("operation %d already claimed for undo", opID)
	}

	entry := &ledgerEntry{
		Type:        Type("undo_" + opType),
		Description: "Deshacer: " + description,
		Details:     UndoDetails{OriginalOperationID: opID, Result: result.Message},
		Affected:    result.Affected,
		CanUndo:     false,
	}
	if _, err := appendEntry(ctx, tx, tenantID, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing undo: %w", err)
	}

	slog.Info("operation undone", "tenant", tenantID,
		"operation", opID, "type", opType, "affected", result.Affected)
	return result, nil
}

// revert dispatches to the type-specific reverser. The switch is
// exhaustive over the reversible types; anything else carries
// can_undo=false in the ledger and can only reach here through a defect,
// which is reported rather than no-opped.
func revert(ctx context.Context, tx *sql.Tx, tenantID int64, opType Type, details string) (*Result, error) {
	switch opType {
	case TypeTransferPackages:
		return revertTransfer(ctx, tx, tenantID, details)
	case TypeChangeStates:
		return revertStates(ctx, tx, tenantID, details)
	case TypeUpdateDates:
		return revertDates(ctx, tx, tenantID, details)
	case TypeChangeTypes:
		return revertCategories(ctx, tx, tenantID, details)
	case TypeCreatePackage:
		return revertCreate(ctx, tx, tenantID, details)
	case TypeCreateBulkPackages:
		return revertBulkCreate(ctx, tx, tenantID, details)
	case TypeDeletePackage:
		return revertDelete(ctx, tx, tenantID, details)
	default:
		return nil, fmt.Errorf("operation type %q has no reverser", opType)
	}
}

func revertTransfer(ctx context.Context, tx *sql.Tx, tenantID int64, raw string) (*Result, error) {
	var d TransferDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decoding transfer details: %w", err)
	}
	if d.Scope == ScopeAll {
		return nil, &PolicyError{
			Reason: "una transferencia total no se puede deshacer: el conjunto de paquetes movidos no es reconstruible",
		}
	}
	if len(d.Trackings) == 0 {
		return nil, ErrNoPriorState
	}

	from, err := ownedConductor(ctx, tx, tenantID, d.FromConductorID)
	if err != nil {
		return nil, err
	}
	to, err := ownedConductor(ctx, tx, tenantID, d.ToConductorID)
	if err != nil {
		return nil, err
	}

	var affected int64
	for _, tracking := range d.Trackings {
		n, err := movePackage(ctx, tx, to.ID, from.ID, tracking)
		if err != nil {
			return nil, err
		}
		affected += n
	}
	if affected == 0 {
		return nil, fmt.Errorf("ninguna guía sigue asignada a %s: %w", to.Name, ErrNotFound)
	}

	return &Result{
		Message:  fmt.Sprintf("%d paquetes devueltos de %s a %s", affected, to.Name, from.Name),
		Affected: affected,
	}, nil
}

func revertStates(ctx context.Context, tx *sql.Tx, tenantID int64, raw string) (*Result, error) {
	var d StateRewriteDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decoding state details: %w", err)
	}
	if len(d.Previous) == 0 {
		return nil, ErrNoPriorState
	}

	var affected int64
	for _, p := range d.Previous {
		n, err := restoreField(ctx, tx, tenantID, p.PackageID, "state", p.State)
		if err != nil {
			return nil, err
		}
		affected += n
	}
	return &Result{
		Message:  fmt.Sprintf("%d paquetes restaurados a su estado anterior", affected),
		Affected: affected,
	}, nil
}

func revertDates(ctx context.Context, tx *sql.Tx, tenantID int64, raw string) (*Result, error) {
	var d DateRewriteDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decoding date details: %w", err)
	}
	if len(d.Previous) == 0 {
		return nil, ErrNoPriorState
	}

	var affected int64
	for _, p := range d.Previous {
		n, err := restoreField(ctx, tx, tenantID, p.PackageID, "delivery_date", p.Date)
		if err != nil {
			return nil, err
		}
		affected += n
	}
	return &Result{
		Message:  fmt.Sprintf("%d paquetes restaurados a su fecha anterior", affected),
		Affected: affected,
	}, nil
}

func revertCategories(ctx context.Context, tx *sql.Tx, tenantID int64, raw string) (*Result, error) {
	var d CategoryRewriteDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decoding category details: %w", err)
	}
	if len(d.Previous) == 0 {
		return nil, ErrNoPriorState
	}

	var affected int64
	for _, p := range d.Previous {
		n, err := restoreField(ctx, tx, tenantID, p.PackageID, "category", p.Category)
		if err != nil {
			return nil, err
		}
		affected += n
	}
	return &Result{
		Message:  fmt.Sprintf("%d paquetes restaurados a su tipo anterior", affected),
		Affected: affected,
	}, nil
}

// restoreField writes one captured old value back to a package, scoped to
// the tenant's conductor set. The column name comes from a fixed set of
// call sites, never from input.
func restoreField(ctx context.Context, tx *sql.Tx, tenantID, packageID int64, column string, old any) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE packages SET `+column+` = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
		old, packageID, tenantID)
	if err != nil {
		return 0, fmt.Errorf("restoring package %d: %w", packageID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("restoring package %d: %w", packageID, err)
	}
	return n, nil
}

func revertCreate(ctx context.Context, tx *sql.Tx, tenantID int64, raw string) (*Result, error) {
	var d CreateDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decoding create details: %w", err)
	}
	if d.PackageID == 0 {
		return nil, ErrNoPriorState
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM packages WHERE id = ?
		 AND conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
		d.PackageID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("deleting created package: %w", err)
	}
	affected, _ := result.RowsAffected()

	return &Result{
		Message:  fmt.Sprintf("Paquete %s eliminado", d.Tracking),
		Affected: affected,
	}, nil
}

func revertBulkCreate(ctx context.Context, tx *sql.Tx, tenantID int64, raw string) (*Result, error) {
	var d BulkCreateDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decoding bulk create details: %w", err)
	}
	if len(d.Trackings) == 0 {
		return nil, ErrNoPriorState
	}

	var affected int64
	for _, tracking := range d.Trackings {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM packages WHERE tracking = ?
			 AND conductor_id IN (SELECT id FROM conductors WHERE owner_id = ?)`,
			tracking, tenantID)
		if err != nil {
			return nil, fmt.Errorf("deleting package %s: %w", tracking, err)
		}
		n, _ := result.RowsAffected()
		affected += n
	}

	return &Result{
		Message:  fmt.Sprintf("%d paquetes de la carga masiva eliminados", affected),
		Affected: affected,
	}, nil
}

func revertDelete(ctx context.Context, tx *sql.Tx, tenantID int64, raw string) (*Result, error) {
	var d DeleteSnapshotDetails
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decoding delete snapshot: %w", err)
	}
	if d.PackageID == 0 {
		return nil, ErrNoPriorState
	}

	// The conductor must still exist and belong to the tenant for the row
	// to be restored under it.
	if _, err := ownedConductor(ctx, tx, tenantID, d.ConductorID); err != nil {
		return nil, err
	}

	var value any
	if d.Value != nil {
		value = *d.Value
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO packages (id, conductor_id, tracking, category, state,
		                       delivery_date, value, proof, proof_mime, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.PackageID, d.ConductorID, d.Tracking, d.Category, d.State,
		d.DeliveryDate, value, d.Proof, d.ProofMime, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("restoring deleted package: %w", err)
	}

	return &Result{
		Message:  fmt.Sprintf("Paquete %s restaurado", d.Tracking),
		Affected: 1,
	}, nil
}
