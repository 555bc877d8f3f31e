package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/franpena/repartos/internal/model"
)

// ledgerEntry is a pending history-ledger row produced by a handler.
// It is inserted in the same transaction as the handler's mutations.
type ledgerEntry struct {
	Type        Type
	Description string
	Details     any
	Affected    int64
	CanUndo     bool
}

// handler applies one operation type inside an open transaction. It must
// not commit or roll back; the dispatcher owns the transaction.
type handler func(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error)

// Apply dispatches an operation request for a tenant. The ownership check,
// pre-mutation capture, mutation and ledger append all run in a single
// transaction: a failure at any step rolls everything back and produces no
// ledger entry.
func Apply(ctx context.Context, db *sql.DB, tenantID int64, req Request) (*Result, error) {
	var h handler
	switch req.Operation {
	case TypeChangeStates:
		h = applyChangeStates
	case TypeTransferPackages:
		h = applyTransferPackages
	case TypeUpdateDates:
		h = applyUpdateDates
	case TypeChangeTypes:
		h = applyChangeTypes
	case TypeToggleConductors:
		h = applyToggleConductors
	case TypeRecalculateStats:
		h = applyRecalculateStats
	case TypeCreatePackage:
		h = applyCreatePackage
	case TypeCreateBulkPackages:
		h = applyCreateBulkPackages
	case TypeDeletePackage:
		h = applyDeletePackage
	case TypeDeleteConductorPackages, TypeDeleteByDateRange, TypeDeleteByState,
		TypeDeleteBulkPackages, TypeDeleteAllConductors, TypeDeleteAllPackages,
		TypeNuclearReset:
		h = applyDelete
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, req.Operation)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, entry, err := h(ctx, tx, tenantID, req)
	if err != nil {
		return nil, err
	}

	if entry != nil {
		if _, err := appendEntry(ctx, tx, tenantID, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing operation: %w", err)
	}

	slog.Info("operation applied", "tenant", tenantID,
		"type", req.Operation, "affected", result.Affected)
	return result, nil
}

// appendEntry inserts one ledger row inside the operation's transaction.
func appendEntry(ctx context.Context, tx *sql.Tx, tenantID int64, e *ledgerEntry) (int64, error) {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return 0, fmt.Errorf("encoding operation details: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO operations (tenant_id, operation_type, description, details, affected_records, can_undo)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tenantID, string(e.Type), e.Description, string(details), e.Affected, e.CanUndo,
	)
	if err != nil {
		return 0, fmt.Errorf("appending ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting ledger entry id: %w", err)
	}
	return id, nil
}

// ownedConductor verifies that a conductor exists, is not deleted, and
// belongs to the tenant. Handlers must call this before any mutation that
// targets a conductor; failure maps to ErrNotFound regardless of whether
// the conductor is missing or foreign.
func ownedConductor(ctx context.Context, tx *sql.Tx, tenantID, conductorID int64) (*model.Conductor, error) {
	c := &model.Conductor{}
	err := tx.QueryRowContext(ctx,
		`SELECT id, owner_id, name, zone, active, created_at
		 FROM conductors WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`,
		conductorID, tenantID,
	).Scan(&c.ID, &c.OwnerID, &c.Name, &c.Zone, &c.Active, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conductor %d: %w", conductorID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checking conductor ownership: %w", err)
	}
	return c, nil
}

// trackingExists reports whether a tracking code is already used within
// the tenant's conductor set. Runs inside the mutation transaction, so
// SQLite's single-writer model closes the check-then-insert race.
func trackingExists(ctx context.Context, tx *sql.Tx, tenantID int64, tracking string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM packages p
		 JOIN conductors c ON c.id = p.conductor_id
		 WHERE c.owner_id = ? AND p.tracking = ?`,
		tenantID, tracking,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking tracking uniqueness: %w", err)
	}
	return count > 0, nil
}

// validDate checks that s is a plain ISO date (YYYY-MM-DD).
func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
