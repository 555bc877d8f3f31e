package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franpena/repartos/internal/model"
)

// ListOperations returns a tenant's full operation history, newest first.
func ListOperations(ctx context.Context, db *sql.DB, tenantID int64) ([]model.Operation, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, tenant_id, operation_type, description, details,
		        affected_records, can_undo, created_at, undone_at
		 FROM operations WHERE tenant_id = ?
		 ORDER BY created_at DESC, id DESC`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var operations []model.Operation
	for rows.Next() {
		var op model.Operation
		if err := rows.Scan(&op.ID, &op.TenantID, &op.Type, &op.Description, &op.Details,
			&op.AffectedRecords, &op.CanUndo, &op.CreatedAt, &op.UndoneAt); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		operations = append(operations, op)
	}
	return operations, rows.Err()
}

// GetOperation returns a single ledger entry by ID, scoped to the tenant.
func GetOperation(ctx context.Context, db *sql.DB, tenantID, id int64) (*model.Operation, error) {
	op := &model.Operation{}
	err := db.QueryRowContext(ctx,
		`SELECT id, tenant_id, operation_type, description, details,
		        affected_records, can_undo, created_at, undone_at
		 FROM operations WHERE id = ? AND tenant_id = ?`, id, tenantID,
	).Scan(&op.ID, &op.TenantID, &op.Type, &op.Description, &op.Details,
		&op.AffectedRecords, &op.CanUndo, &op.CreatedAt, &op.UndoneAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting operation: %w", err)
	}
	return op, nil
}

// CountOperations returns the number of ledger entries for a tenant.
func CountOperations(ctx context.Context, db *sql.DB, tenantID int64) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM operations WHERE tenant_id = ?`, tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting operations: %w", err)
	}
	return count, nil
}
