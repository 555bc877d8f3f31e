package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franpena/repartos/internal/model"
)

// The three rewrite operations (state, date, category) share one shape:
// capture the per-package old value, then bulk-overwrite the field for
// every package of one conductor. The capture is what makes them
// reversible; a conductor with no packages is logged as non-undoable so
// undo can never degenerate into a silent no-op.

func applyChangeStates(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	if req.ConductorID <= 0 {
		return nil, nil, validationf("conductor_id es obligatorio")
	}
	if req.NewState == nil || !model.ValidState(*req.NewState) {
		return nil, nil, validationf("new_state debe ser 0, 1 o 2")
	}

	c, err := ownedConductor(ctx, tx, tenantID, req.ConductorID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, state FROM packages WHERE conductor_id = ?`, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("capturing package states: %w", err)
	}
	var previous []PriorState
	for rows.Next() {
		var p PriorState
		if err := rows.Scan(&p.PackageID, &p.State); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scanning package state: %w", err)
		}
		previous = append(previous, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("capturing package states: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE packages SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE conductor_id = ?`,
		*req.NewState, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("updating package states: %w", err)
	}
	affected, _ := result.RowsAffected()

	stateName := model.StateName(*req.NewState)
	return &Result{
			Message:  fmt.Sprintf("%d paquetes de %s marcados como %s", affected, c.Name, stateName),
			Affected: affected,
		}, &ledgerEntry{
			Type:        TypeChangeStates,
			Description: fmt.Sprintf("Cambio de estado a %s para %s", stateName, c.Name),
			Details: StateRewriteDetails{
				ConductorID: c.ID,
				NewState:    *req.NewState,
				Previous:    previous,
			},
			Affected: affected,
			CanUndo:  affected > 0,
		}, nil
}

func applyUpdateDates(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	if req.ConductorID <= 0 {
		return nil, nil, validationf("conductor_id es obligatorio")
	}
	if !validDate(req.NewDate) {
		return nil, nil, validationf("new_date debe tener formato AAAA-MM-DD")
	}

	c, err := ownedConductor(ctx, tx, tenantID, req.ConductorID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, delivery_date FROM packages WHERE conductor_id = ?`, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("capturing delivery dates: %w", err)
	}
	var previous []PriorDate
	for rows.Next() {
		var p PriorDate
		if err := rows.Scan(&p.PackageID, &p.Date); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scanning delivery date: %w", err)
		}
		previous = append(previous, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("capturing delivery dates: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE packages SET delivery_date = ?, updated_at = CURRENT_TIMESTAMP WHERE conductor_id = ?`,
		req.NewDate, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("updating delivery dates: %w", err)
	}
	affected, _ := result.RowsAffected()

	return &Result{
			Message:  fmt.Sprintf("%d paquetes de %s reprogramados para %s", affected, c.Name, req.NewDate),
			Affected: affected,
		}, &ledgerEntry{
			Type:        TypeUpdateDates,
			Description: fmt.Sprintf("Cambio de fecha a %s para %s", req.NewDate, c.Name),
			Details: DateRewriteDetails{
				ConductorID: c.ID,
				NewDate:     req.NewDate,
				Previous:    previous,
			},
			Affected: affected,
			CanUndo:  affected > 0,
		}, nil
}

func applyChangeTypes(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	if req.ConductorID <= 0 {
		return nil, nil, validationf("conductor_id es obligatorio")
	}
	if !model.ValidCategory(req.NewType) {
		return nil, nil, validationf("new_type debe ser 'prepago' o 'contraentrega'")
	}

	c, err := ownedConductor(ctx, tx, tenantID, req.ConductorID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, category FROM packages WHERE conductor_id = ?`, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("capturing package categories: %w", err)
	}
	var previous []PriorCategory
	for rows.Next() {
		var p PriorCategory
		if err := rows.Scan(&p.PackageID, &p.Category); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scanning package category: %w", err)
		}
		previous = append(previous, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("capturing package categories: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE packages SET category = ?, updated_at = CURRENT_TIMESTAMP WHERE conductor_id = ?`,
		req.NewType, c.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("updating package categories: %w", err)
	}
	affected, _ := result.RowsAffected()

	return &Result{
			Message:  fmt.Sprintf("%d paquetes de %s cambiados a %s", affected, c.Name, req.NewType),
			Affected: affected,
		}, &ledgerEntry{
			Type:        TypeChangeTypes,
			Description: fmt.Sprintf("Cambio de tipo a %s para %s", req.NewType, c.Name),
			Details: CategoryRewriteDetails{
				ConductorID: c.ID,
				NewCategory: req.NewType,
				Previous:    previous,
			},
			Affected: affected,
			CanUndo:  affected > 0,
		}, nil
}
