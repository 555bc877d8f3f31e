package ops

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/franpena/repartos/internal/db"
	"github.com/franpena/repartos/internal/model"
	"github.com/franpena/repartos/internal/store"
)

func newTenant(t *testing.T, database *sql.DB, username string) int64 {
	t.Helper()
	u, err := store.CreateUser(context.Background(), database, username, "x")
	if err != nil {
		t.Fatalf("creating tenant %s: %v", username, err)
	}
	return u.ID
}

func newConductor(t *testing.T, database *sql.DB, ownerID int64, name string) *model.Conductor {
	t.Helper()
	c, err := store.CreateConductor(context.Background(), database, ownerID, name, "norte")
	if err != nil {
		t.Fatalf("creating conductor %s: %v", name, err)
	}
	return c
}

func newPackage(t *testing.T, database *sql.DB, conductorID int64, tracking, category string, state int, date string, value *float64) int64 {
	t.Helper()
	result, err := database.Exec(
		`INSERT INTO packages (conductor_id, tracking, category, state, delivery_date, value)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conductorID, tracking, category, state, date, value)
	if err != nil {
		t.Fatalf("creating package %s: %v", tracking, err)
	}
	id, _ := result.LastInsertId()
	return id
}

func packageCount(t *testing.T, database *sql.DB, conductorID int64) int {
	t.Helper()
	var count int
	err := database.QueryRow(
		`SELECT COUNT(*) FROM packages WHERE conductor_id = ?`, conductorID).Scan(&count)
	if err != nil {
		t.Fatalf("counting packages: %v", err)
	}
	return count
}

func packageField(t *testing.T, database *sql.DB, id int64, column string) string {
	t.Helper()
	var v string
	err := database.QueryRow(
		`SELECT `+column+` FROM packages WHERE id = ?`, id).Scan(&v)
	if err != nil {
		t.Fatalf("reading package %d %s: %v", id, column, err)
	}
	return v
}

func ledgerCount(t *testing.T, database *sql.DB, tenantID int64) int64 {
	t.Helper()
	count, err := store.CountOperations(context.Background(), database, tenantID)
	if err != nil {
		t.Fatalf("counting operations: %v", err)
	}
	return count
}

func latestOperation(t *testing.T, database *sql.DB, tenantID int64) *model.Operation {
	t.Helper()
	operations, err := store.ListOperations(context.Background(), database, tenantID)
	if err != nil {
		t.Fatalf("listing operations: %v", err)
	}
	if len(operations) == 0 {
		t.Fatal("expected at least one operation")
	}
	return &operations[0]
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestApplyUnknownOperation(t *testing.T) {
	database := db.NewTestDB(t)
	tenant := newTenant(t, database, "ana")

	_, err := Apply(context.Background(), database, tenant, Request{Operation: "explode"})
	if !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation, got %v", err)
	}
	if n := ledgerCount(t, database, tenant); n != 0 {
		t.Errorf("failed apply must not log, got %d entries", n)
	}
}

func TestTenantIsolation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	owner := newTenant(t, database, "ana")
	intruder := newTenant(t, database, "eva")
	c := newConductor(t, database, owner, "Carlos")
	newPackage(t, database, c.ID, "GUIA-001", model.CategoryPrepaid, 0, "2026-09-01", nil)

	requests := []Request{
		{Operation: TypeChangeStates, ConductorID: c.ID, NewState: intPtr(1)},
		{Operation: TypeUpdateDates, ConductorID: c.ID, NewDate: "2026-09-15"},
		{Operation: TypeChangeTypes, ConductorID: c.ID, NewType: model.CategoryCOD},
		{Operation: TypeDeleteConductorPackages, ConductorID: c.ID},
		{Operation: TypeCreatePackage, ConductorID: c.ID, Tracking: "GUIA-XYZ99", Category: model.CategoryPrepaid},
	}

	for _, req := range requests {
		_, err := Apply(ctx, database, intruder, req)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound for foreign conductor, got %v", req.Operation, err)
		}
	}

	// Zero mutations and zero ledger entries for the intruder.
	if got := packageField(t, database, 1, "state"); got != "0" {
		t.Errorf("package state changed by foreign tenant: %s", got)
	}
	if n := ledgerCount(t, database, intruder); n != 0 {
		t.Errorf("foreign tenant logged %d entries", n)
	}

	// Deleting a foreign package by tracking also reads as not found.
	_, err := Apply(ctx, database, intruder, Request{Operation: TypeDeletePackage, SingleTracking: "GUIA-001"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting foreign package, got %v", err)
	}
	if packageCount(t, database, c.ID) != 1 {
		t.Error("foreign tenant deleted a package")
	}
}

func TestChangeStatesScenario(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant := newTenant(t, database, "ana")
	a := newConductor(t, database, tenant, "Carlos")
	newConductor(t, database, tenant, "Berta")

	ids := []int64{
		newPackage(t, database, a.ID, "GUIA-001", model.CategoryPrepaid, 0, "2026-09-01", nil),
		newPackage(t, database, a.ID, "GUIA-002", model.CategoryPrepaid, 0, "2026-09-01", nil),
		newPackage(t, database, a.ID, "GUIA-003", model.CategoryCOD, 0, "2026-09-01", floatPtr(50)),
	}

	result, err := Apply(ctx, database, tenant, Request{
		Operation: TypeChangeStates, ConductorID: a.ID, NewState: intPtr(model.StateDelivered),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Affected != 3 {
		t.Errorf("expected 3 affected, got %d", result.Affected)
	}
	for _, id := range ids {
		if got := packageField(t, database, id, "state"); got != "1" {
			t.Errorf("package %d: expected state 1, got %s", id, got)
		}
	}

	entry := latestOperation(t, database, tenant)
	if entry.Type != string(TypeChangeStates) || !entry.CanUndo {
		t.Errorf("expected undoable change_states entry, got %+v", entry)
	}

	// Undo restores all three and flips the entry exactly once.
	undoResult, err := Undo(ctx, database, tenant)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if undoResult.Affected != 3 {
		t.Errorf("expected undo to affect 3, got %d", undoResult.Affected)
	}
	for _, id := range ids {
		if got := packageField(t, database, id, "state"); got != "0" {
			t.Errorf("package %d: expected state 0 after undo, got %s", id, got)
		}
	}

	original, _ := store.GetOperation(ctx, database, tenant, entry.ID)
	if original.CanUndo || original.UndoneAt == nil {
		t.Errorf("expected claimed entry, got can_undo=%v undone_at=%v", original.CanUndo, original.UndoneAt)
	}

	undoEntry := latestOperation(t, database, tenant)
	if undoEntry.Type != "undo_change_states" || undoEntry.CanUndo {
		t.Errorf("expected terminal undo_change_states entry, got %+v", undoEntry)
	}
}

func TestUpdateDatesRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant := newTenant(t, database, "ana")
	c := newConductor(t, database, tenant, "Carlos")
	id := newPackage(t, database, c.ID, "GUIA-001", model.CategoryPrepaid, 0, "2026-09-01", nil)

	if _, err := Apply(ctx, database, tenant, Request{
		Operation: TypeUpdateDates, ConductorID: c.ID, NewDate: "2026-10-20",
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := packageField(t, database, id, "delivery_date"); got != "2026-10-20" {
		t.Errorf("expected 2026-10-20, got %s", got)
	}

	if _, err := Undo(ctx, database, tenant); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := packageField(t, database, id, "delivery_date"); got != "2026-09-01" {
		t.Errorf("expected restored 2026-09-01, got %s", got)
	}
}

func TestChangeTypesRoundTrip(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant := newTenant(t, database, "ana")
	c := newConductor(t, database, tenant, "Carlos")
	id := newPackage(t, database, c.ID, "GUIA-001", model.CategoryPrepaid, 0, "2026-09-01", nil)

	if _, err := Apply(ctx, database, tenant, Request{
		Operation: TypeChangeTypes, ConductorID: c.ID, NewType: model.CategoryCOD,
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := packageField(t, database, id, "category"); got != model.CategoryCOD {
		t.Errorf("expected contraentrega, got %s", got)
	}

	if _, err := Undo(ctx, database, tenant); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := packageField(t, database, id, "category"); got != model.CategoryPrepaid {
		t.Errorf("expected restored prepago, got %s", got)
	}
}

func TestChangeStatesEmptyConductorNotUndoable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant := newTenant(t, database, "ana")
	c := newConductor(t, database, tenant, "Carlos")

	result, err := Apply(ctx, database, tenant, Request{
		Operation: TypeChangeStates, ConductorID: c.ID, NewState: intPtr(1),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Affected != 0 {
		t.Errorf("expected 0 affected, got %d", result.Affected)
	}

	entry := latestOperation(t, database, tenant)
	if entry.CanUndo {
		t.Error("empty rewrite must not be undoable")
	}
}

func TestRewriteValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	tenant := newTenant(t, database, "ana")
	c := newConductor(t, database, tenant, "Carlos")

	tests := []Request{
		{Operation: TypeChangeStates, NewState: intPtr(1)},                      // missing conductor
		{Operation: TypeChangeStates, ConductorID: c.ID},                        // missing state
		{Operation: TypeChangeStates, ConductorID: c.ID, NewState: intPtr(7)},   // bad state
		{Operation: TypeUpdateDates, ConductorID: c.ID, NewDate: "20-20-2026"},  // bad date
		{Operation: TypeChangeTypes, ConductorID: c.ID, NewType: "mystery"},     // bad category
	}
	for _, req := range tests {
		_, err := Apply(ctx, database, tenant, req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%+v: expected ValidationError, got %v", req, err)
		}
	}
	if n := ledgerCount(t, database, tenant); n != 0 {
		t.Errorf("validation failures must not log, got %d entries", n)
	}
}

func TestToggleConductors(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant := newTenant(t, database, "ana")
	newConductor(t, database, tenant, "Carlos")
	newConductor(t, database, tenant, "Berta")

	// All start active: toggle deactivates everyone.
	result, err := Apply(ctx, database, tenant, Request{Operation: TypeToggleConductors})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Affected != 2 {
		t.Errorf("expected 2 affected, got %d", result.Affected)
	}

	var active int
	database.QueryRow(`SELECT COUNT(*) FROM conductors WHERE owner_id = ? AND active = 1`, tenant).Scan(&active)
	if active != 0 {
		t.Errorf("expected all inactive, %d still active", active)
	}

	// Mixed (all inactive counts as not-all-active): toggle activates everyone.
	if _, err := Apply(ctx, database, tenant, Request{Operation: TypeToggleConductors}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	database.QueryRow(`SELECT COUNT(*) FROM conductors WHERE owner_id = ? AND active = 1`, tenant).Scan(&active)
	if active != 2 {
		t.Errorf("expected all active, got %d", active)
	}

	entry := latestOperation(t, database, tenant)
	if entry.CanUndo {
		t.Error("toggle must not be undoable")
	}
}

func TestRecalculateStats(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant := newTenant(t, database, "ana")
	c := newConductor(t, database, tenant, "Carlos")
	newPackage(t, database, c.ID, "GUIA-001", model.CategoryCOD, model.StateDelivered, "2026-09-01", floatPtr(100))
	newPackage(t, database, c.ID, "GUIA-002", model.CategoryCOD, model.StateNotDelivered, "2026-09-01", floatPtr(40))
	newPackage(t, database, c.ID, "GUIA-003", model.CategoryPrepaid, model.StateReturned, "2026-09-01", nil)

	stats, err := ComputeStats(ctx, database, tenant)
	if err != nil {
		t.Fatalf("ComputeStats: %v", err)
	}
	if stats.TotalPackages != 3 || stats.Delivered != 1 || stats.NotDelivered != 1 || stats.Returned != 1 {
		t.Errorf("unexpected counts: %+v", stats)
	}
	if stats.CODTotal != 140 || stats.CODCollected != 100 || stats.CODPending != 40 {
		t.Errorf("unexpected COD totals: %+v", stats)
	}

	// Through the dispatcher it also leaves an audit entry.
	result, err := Apply(ctx, database, tenant, Request{Operation: TypeRecalculateStats})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Affected != 0 {
		t.Errorf("stats must not mutate, got affected=%d", result.Affected)
	}
	entry := latestOperation(t, database, tenant)
	if entry.Type != string(TypeRecalculateStats) || entry.CanUndo {
		t.Errorf("expected audit-only stats entry, got %+v", entry)
	}
}

func TestDeleteFamilyScoping(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant := newTenant(t, database, "ana")
	other := newTenant(t, database, "eva")
	mine := newConductor(t, database, tenant, "Carlos")
	theirs := newConductor(t, database, other, "Ajeno")

	newPackage(t, database, mine.ID, "GUIA-001", model.CategoryPrepaid, 0, "2026-09-01", nil)
	newPackage(t, database, mine.ID, "GUIA-002", model.CategoryPrepaid, 1, "2026-09-05", nil)
	newPackage(t, database, theirs.ID, "GUIA-900", model.CategoryPrepaid, 0, "2026-09-01", nil)

	// delete_by_state only touches the tenant's rows.
	result, err := Apply(ctx, database, tenant, Request{
		Operation: TypeDeleteByState, State: intPtr(0),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Affected != 1 {
		t.Errorf("expected 1 deleted, got %d", result.Affected)
	}
	if packageCount(t, database, theirs.ID) != 1 {
		t.Error("delete_by_state crossed the tenant boundary")
	}

	// delete_by_date_range, also tenant-scoped.
	if _, err := Apply(ctx, database, tenant, Request{
		Operation: TypeDeleteByDateRange, DateFrom: "2026-09-01", DateTo: "2026-09-30",
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if packageCount(t, database, mine.ID) != 0 {
		t.Error("expected all of tenant's packages deleted")
	}
	if packageCount(t, database, theirs.ID) != 1 {
		t.Error("delete_by_date_range crossed the tenant boundary")
	}

	// Bulk deletes are logged for audit but never undoable.
	entry := latestOperation(t, database, tenant)
	if entry.CanUndo {
		t.Error("bulk delete must not be undoable")
	}
	if _, err := Undo(ctx, database, tenant); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestNuclearReset(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tenant := newTenant(t, database, "ana")
	other := newTenant(t, database, "eva")
	mine := newConductor(t, database, tenant, "Carlos")
	theirs := newConductor(t, database, other, "Ajeno")
	newPackage(t, database, mine.ID, "GUIA-001", model.CategoryPrepaid, 0, "2026-09-01", nil)
	newPackage(t, database, theirs.ID, "GUIA-900", model.CategoryPrepaid, 0, "2026-09-01", nil)

	result, err := Apply(ctx, database, tenant, Request{Operation: TypeNuclearReset})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Affected != 2 { // 1 package + 1 conductor
		t.Errorf("expected 2 affected, got %d", result.Affected)
	}

	var conductors int
	database.QueryRow(`SELECT COUNT(*) FROM conductors WHERE owner_id = ?`, tenant).Scan(&conductors)
	if conductors != 0 {
		t.Errorf("expected 0 conductors, got %d", conductors)
	}
	if packageCount(t, database, theirs.ID) != 1 {
		t.Error("nuclear reset crossed the tenant boundary")
	}

	// The ledger survives the reset.
	if n := ledgerCount(t, database, tenant); n != 1 {
		t.Errorf("expected ledger to survive, got %d entries", n)
	}
}
