package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/franpena/repartos/internal/model"
	"github.com/franpena/repartos/internal/store"
)

// ConductorsHandler handles conductor CRUD endpoints (tenant-scoped).
type ConductorsHandler struct {
	DB *sql.DB
}

type conductorRequest struct {
	Name string `json:"name"`
	Zone string `json:"zone"`
}

// List handles GET /api/conductors.
func (h *ConductorsHandler) List(w http.ResponseWriter, r *http.Request) {
	conductors, err := store.ListConductors(r.Context(), h.DB, tenantID(r))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list conductors")
		return
	}
	if conductors == nil {
		conductors = []model.Conductor{}
	}
	jsonResponse(w, http.StatusOK, conductors)
}

// Create handles POST /api/conductors.
func (h *ConductorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req conductorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	conductor, err := store.CreateConductor(r.Context(), h.DB, tenantID(r), req.Name, req.Zone)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create conductor")
		return
	}

	jsonResponse(w, http.StatusCreated, conductor)
}

// Get handles GET /api/conductors/{id}.
func (h *ConductorsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid conductor id")
		return
	}

	conductor, err := store.GetConductor(r.Context(), h.DB, tenantID(r), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get conductor")
		return
	}
	if conductor == nil {
		jsonError(w, http.StatusNotFound, "conductor not found")
		return
	}
	jsonResponse(w, http.StatusOK, conductor)
}

// Update handles PUT /api/conductors/{id}.
func (h *ConductorsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid conductor id")
		return
	}

	var req conductorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	existing, err := store.GetConductor(r.Context(), h.DB, tenantID(r), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update conductor")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "conductor not found")
		return
	}

	if err := store.UpdateConductor(r.Context(), h.DB, tenantID(r), id, req.Name, req.Zone); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to update conductor")
		return
	}

	conductor, err := store.GetConductor(r.Context(), h.DB, tenantID(r), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get conductor")
		return
	}
	jsonResponse(w, http.StatusOK, conductor)
}

// Delete handles DELETE /api/conductors/{id}.
func (h *ConductorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid conductor id")
		return
	}

	existing, err := store.GetConductor(r.Context(), h.DB, tenantID(r), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete conductor")
		return
	}
	if existing == nil {
		jsonError(w, http.StatusNotFound, "conductor not found")
		return
	}

	if err := store.DeleteConductor(r.Context(), h.DB, tenantID(r), id); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "conductor deleted"})
}

// GetPackages handles GET /api/conductors/{id}/packages.
func (h *ConductorsHandler) GetPackages(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid conductor id")
		return
	}

	conductor, err := store.GetConductor(r.Context(), h.DB, tenantID(r), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get conductor")
		return
	}
	if conductor == nil {
		jsonError(w, http.StatusNotFound, "conductor not found")
		return
	}

	packages, err := store.ListConductorPackages(r.Context(), h.DB, tenantID(r), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list packages")
		return
	}
	if packages == nil {
		packages = []model.Package{}
	}
	jsonResponse(w, http.StatusOK, packages)
}
