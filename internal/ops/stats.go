package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/franpena/repartos/internal/model"
)

// statsQuery aggregates a tenant's packages: counts per state and
// cash-on-delivery value totals.
const statsQuery = `
SELECT COUNT(*),
       COALESCE(SUM(p.state = 0), 0),
       COALESCE(SUM(p.state = 1), 0),
       COALESCE(SUM(p.state = 2), 0),
       COALESCE(SUM(CASE WHEN p.category = ? THEN p.value END), 0),
       COALESCE(SUM(CASE WHEN p.category = ? AND p.state = 1 THEN p.value END), 0),
       COALESCE(SUM(CASE WHEN p.category = ? AND p.state = 0 THEN p.value END), 0),
       COALESCE(SUM(CASE WHEN p.category = ? AND p.state = 2 THEN p.value END), 0)
FROM packages p
JOIN conductors c ON c.id = p.conductor_id
WHERE c.owner_id = ?`

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryStats(ctx context.Context, q rowQuerier, tenantID int64) (*Stats, error) {
	s := &Stats{}
	cod := model.CategoryCOD
	err := q.QueryRowContext(ctx, statsQuery, cod, cod, cod, cod, tenantID).Scan(
		&s.TotalPackages, &s.NotDelivered, &s.Delivered, &s.Returned,
		&s.CODTotal, &s.CODCollected, &s.CODPending, &s.CODReturned)
	if err != nil {
		return nil, fmt.Errorf("aggregating stats: %w", err)
	}
	return s, nil
}

// ComputeStats returns the tenant's aggregation without logging anything.
// Used by the read-only stats endpoint.
func ComputeStats(ctx context.Context, db *sql.DB, tenantID int64) (*Stats, error) {
	return queryStats(ctx, db, tenantID)
}

// applyRecalculateStats runs the aggregation through the dispatcher. It
// mutates nothing; the ledger entry is audit-only and never undoable.
func applyRecalculateStats(ctx context.Context, tx *sql.Tx, tenantID int64, req Request) (*Result, *ledgerEntry, error) {
	s, err := queryStats(ctx, tx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	return &Result{
			Message: fmt.Sprintf(
				"%d paquetes: %d entregados, %d pendientes, %d devueltos; contraentrega recaudado $%.2f de $%.2f",
				s.TotalPackages, s.Delivered, s.NotDelivered, s.Returned,
				s.CODCollected, s.CODTotal),
			Affected: 0,
		}, &ledgerEntry{
			Type:        TypeRecalculateStats,
			Description: "Recálculo de estadísticas",
			Details:     s,
			Affected:    0,
			CanUndo:     false,
		}, nil
}
