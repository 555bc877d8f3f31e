package ops

import (
	"context"
	"database/sql"
	"fmt"
)

// applyToggleConductors flips activity for the whole fleet: if every
// conductor of the tenant is active they are all deactivated, otherwise
// all are activated. No reverser is defined; running the toggle again is
// not guaranteed to restore the previous mix.
func applyToggleConductors(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, active FROM conductors WHERE owner_id = ? AND deleted_at IS NULL`,
		tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing conductors: %w", err)
	}
	var ids []int64
	allActive := true
	for rows.Next() {
		var id int64
		var active bool
		if err := rows.Scan(&id, &active); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scanning conductor: %w", err)
		}
		ids = append(ids, id)
		if !active {
			allActive = false
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("listing conductors: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil, validationf("no hay conductores registrados")
	}

	activate := !allActive
	result, err := tx.ExecContext(ctx,
		`UPDATE conductors SET active = ? WHERE owner_id = ? AND deleted_at IS NULL`,
		activate, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("toggling conductors: %w", err)
	}
	affected, _ := result.RowsAffected()

	verb := "desactivados"
	if activate {
		verb = "activados"
	}
	return &Result{
			Message:  fmt.Sprintf("%d conductores %s", affected, verb),
			Affected: affected,
		}, &ledgerEntry{
			Type:        TypeToggleConductors,
			Description: fmt.Sprintf("Conductores %s en bloque", verb),
			Details:     ToggleDetails{Activated: activate, ConductorIDs: ids},
			Affected:    affected,
			CanUndo:     false,
		}, nil
}
