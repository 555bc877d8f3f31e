package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/franpena/repartos/internal/ops"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// jsonErrorDetails writes a JSON error response with a details field.
func jsonErrorDetails(w http.ResponseWriter, status int, message, details string) {
	jsonResponse(w, status, map[string]string{"error": message, "details": details})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// opsError maps an operations-engine error to an HTTP response. Validation,
// ownership and policy failures are the caller's fault (400); anything else
// is a store failure (500) and only a generic message leaves the boundary.
func opsError(w http.ResponseWriter, err error) {
	var ve *ops.ValidationError
	var pe *ops.PolicyError

	switch {
	case errors.As(err, &ve):
		jsonErrorDetails(w, http.StatusBadRequest, "solicitud inválida", ve.Msg)
	case errors.As(err, &pe):
		jsonErrorDetails(w, http.StatusBadRequest, "operación no permitida", pe.Reason)
	case errors.Is(err, ops.ErrInvalidOperation):
		jsonErrorDetails(w, http.StatusBadRequest, "operación desconocida", err.Error())
	case errors.Is(err, ops.ErrNotFound):
		jsonErrorDetails(w, http.StatusBadRequest, "no encontrado", err.Error())
	case errors.Is(err, ops.ErrNothingToUndo):
		jsonError(w, http.StatusBadRequest, "No hay operaciones para deshacer")
	case errors.Is(err, ops.ErrNoPriorState):
		jsonErrorDetails(w, http.StatusBadRequest, "no se puede deshacer",
			"la operación no guardó el estado anterior")
	default:
		slog.Error("operation failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "error interno")
	}
}
