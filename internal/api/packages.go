package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/franpena/repartos/internal/imaging"
	"github.com/franpena/repartos/internal/model"
	"github.com/franpena/repartos/internal/store"
)

// maxProofSize limits delivery-proof uploads to 10 MB.
const maxProofSize = 10 << 20

// PackagesHandler handles package read endpoints and delivery-proof photos.
// Package mutations go through the operations engine, not this handler.
type PackagesHandler struct {
	DB *sql.DB
}

// List handles GET /api/packages with optional conductor_id, state and
// tracking filters.
func (h *PackagesHandler) List(w http.ResponseWriter, r *http.Request) {
	var conductorID int64
	state := -1

	if v := r.URL.Query().Get("conductor_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid conductor_id")
			return
		}
		conductorID = id
	}
	if v := r.URL.Query().Get("state"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil || !model.ValidState(s) {
			jsonError(w, http.StatusBadRequest, "invalid state")
			return
		}
		state = s
	}
	tracking := r.URL.Query().Get("tracking")

	packages, err := store.ListPackages(r.Context(), h.DB, tenantID(r), conductorID, state, tracking)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list packages")
		return
	}
	if packages == nil {
		packages = []model.Package{}
	}
	jsonResponse(w, http.StatusOK, packages)
}

// Get handles GET /api/packages/{id}.
func (h *PackagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	pkg, err := store.GetPackage(r.Context(), h.DB, tenantID(r), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get package")
		return
	}
	if pkg == nil {
		jsonError(w, http.StatusNotFound, "package not found")
		return
	}
	jsonResponse(w, http.StatusOK, pkg)
}

// UploadProof handles PUT /api/packages/{id}/proof.
func (h *PackagesHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	result, err := imaging.Process(http.MaxBytesReader(w, r.Body, maxProofSize))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = store.SetPackageProof(r.Context(), h.DB, tenantID(r), id, result.Data, result.MIME)
	if errors.Is(err, sql.ErrNoRows) {
		jsonError(w, http.StatusNotFound, "package not found")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store proof")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "proof stored"})
}

// GetProof handles GET /api/packages/{id}/proof.
func (h *PackagesHandler) GetProof(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid package id")
		return
	}

	proof, mime, err := store.GetPackageProof(r.Context(), h.DB, tenantID(r), id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get proof")
		return
	}
	if len(proof) == 0 {
		jsonError(w, http.StatusNotFound, "no proof for package")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	w.Write(proof)
}
