package api

import (
	"database/sql"
	"net/http"

	"github.com/franpena/repartos/internal/model"
	"github.com/franpena/repartos/internal/ops"
	"github.com/franpena/repartos/internal/store"
)

// OperationsHandler exposes the bulk-mutation engine: apply, undo and the
// history ledger.
type OperationsHandler struct {
	DB *sql.DB
}

// Apply handles POST /api/operations.
func (h *OperationsHandler) Apply(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	if tenant == 0 {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req ops.Request
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := ops.Apply(r.Context(), h.DB, tenant, req)
	if err != nil {
		opsError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": result.Message,
		"details": result.Details,
	})
}

// Undo handles POST /api/operations/undo. No request body beyond the
// tenant identity.
func (h *OperationsHandler) Undo(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	if tenant == 0 {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	result, err := ops.Undo(r.Context(), h.DB, tenant)
	if err != nil {
		opsError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": result.Message,
		"details": result.Details,
	})
}

// History handles GET /api/operations: the tenant's ledger, newest first.
func (h *OperationsHandler) History(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	if tenant == 0 {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	operations, err := store.ListOperations(r.Context(), h.DB, tenant)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list operations")
		return
	}
	if operations == nil {
		operations = []model.Operation{}
	}
	jsonResponse(w, http.StatusOK, operations)
}

// Stats handles GET /api/stats: the read-only aggregation, without a
// ledger entry.
func (h *OperationsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tenant := tenantID(r)
	if tenant == 0 {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	stats, err := ops.ComputeStats(r.Context(), h.DB, tenant)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}
