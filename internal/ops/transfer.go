package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// applyTransferPackages moves packages from one conductor to another.
// Scope "individual" moves one tracking, "bulk" an explicit list, "all"
// every package of the source. Individual and bulk transfers record the
// moved trackings so they can be reversed; a full-scope transfer records
// no list and is refused at undo time.
func applyTransferPackages(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	if req.ConductorID <= 0 || req.ConductorID2 <= 0 {
		return nil, nil, validationf("conductor_id y conductor_id_2 son obligatorios")
	}
	if req.ConductorID == req.ConductorID2 {
		return nil, nil, validationf("no se puede transferir al mismo conductor")
	}

	from, err := ownedConductor(ctx, tx, tenantID, req.ConductorID)
	if err != nil {
		return nil, nil, err
	}
	to, err := ownedConductor(ctx, tx, tenantID, req.ConductorID2)
	if err != nil {
		return nil, nil, err
	}

	var affected int64
	var moved []string

	switch req.TransferType {
	case ScopeAll:
		result, err := tx.ExecContext(ctx,
			`UPDATE packages SET conductor_id = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE conductor_id = ?`, to.ID, from.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("transferring packages: %w", err)
		}
		affected, _ = result.RowsAffected()

	case ScopeIndividual:
		if req.SingleTracking == "" {
			return nil, nil, validationf("single_tracking es obligatorio")
		}
		n, err := movePackage(ctx, tx, from.ID, to.ID, req.SingleTracking)
		if err != nil {
			return nil, nil, err
		}
		if n == 0 {
			return nil, nil, fmt.Errorf("guía %s: %w", req.SingleTracking, ErrNotFound)
		}
		affected = 1
		moved = []string{req.SingleTracking}

	case ScopeBulk:
		trackings := splitLines(req.BulkTrackings)
		if len(trackings) == 0 {
			return nil, nil, validationf("bulk_trackings es obligatorio")
		}
		for _, tracking := range trackings {
			n, err := movePackage(ctx, tx, from.ID, to.ID, tracking)
			if err != nil {
				return nil, nil, err
			}
			if n > 0 {
				affected += n
				moved = append(moved, tracking)
			}
		}
		if affected == 0 {
			return nil, nil, fmt.Errorf("ninguna de las guías pertenece a %s: %w", from.Name, ErrNotFound)
		}

	default:
		return nil, nil, validationf("transfer_type debe ser 'all', 'individual' o 'bulk'")
	}

	var details string
	if len(moved) > 0 {
		details = "Guías: " + strings.Join(moved, ", ")
	}

	return &Result{
			Message:  fmt.Sprintf("%d paquetes transferidos de %s a %s", affected, from.Name, to.Name),
			Affected: affected,
			Details:  details,
		}, &ledgerEntry{
			Type:        TypeTransferPackages,
			Description: fmt.Sprintf("Transferencia de %s a %s", from.Name, to.Name),
			Details: TransferDetails{
				FromConductorID: from.ID,
				ToConductorID:   to.ID,
				Scope:           req.TransferType,
				Trackings:       moved,
			},
			Affected: affected,
			CanUndo:  affected > 0,
		}, nil
}

// movePackage reassigns one tracking from one conductor to another.
// Returns the number of rows moved (0 or 1).
func movePackage(ctx context.Context, tx *sql.Tx, fromID, toID int64, tracking string) (int64, error) {
	result, err := tx.ExecContext(ctx,
		`UPDATE packages SET conductor_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE conductor_id = ? AND tracking = ?`,
		toID, fromID, tracking)
	if err != nil {
		return 0, fmt.Errorf("moving package %s: %w", tracking, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("moving package %s: %w", tracking, err)
	}
	return n, nil
}

// splitLines splits a newline-separated field into trimmed non-empty lines.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
