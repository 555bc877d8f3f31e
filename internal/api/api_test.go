package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/franpena/repartos/internal/db"
	"github.com/franpena/repartos/internal/model"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database, testSecret))
	t.Cleanup(server.Close)
	return server, database
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var fields map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&fields)
	return resp, fields
}

// signup registers an account and returns a fresh session token.
func signup(t *testing.T, server *httptest.Server, username string) string {
	t.Helper()

	creds := map[string]string{"username": username, "password": "secret123"}
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", creds)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d", resp.StatusCode)
	}

	resp, fields := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", creds)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	var token string
	if err := json.Unmarshal(fields["token"], &token); err != nil {
		t.Fatalf("decoding token: %v", err)
	}
	return token
}

func createConductor(t *testing.T, server *httptest.Server, token, name string) int64 {
	t.Helper()
	resp, fields := doJSON(t, http.MethodPost, server.URL+"/api/conductors", token,
		map[string]string{"name": name, "zone": "norte"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create conductor: status %d", resp.StatusCode)
	}
	var id int64
	if err := json.Unmarshal(fields["id"], &id); err != nil {
		t.Fatalf("decoding conductor id: %v", err)
	}
	return id
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	server, _ := newTestServer(t)

	for _, endpoint := range []string{"/api/operations", "/api/conductors", "/api/stats"} {
		resp, err := http.Get(server.URL + endpoint)
		if err != nil {
			t.Fatalf("GET %s: %v", endpoint, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s: expected 401, got %d", endpoint, resp.StatusCode)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "",
		map[string]string{"username": "ana", "password": "corta"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("short password: expected 400, got %d", resp.StatusCode)
	}

	signup(t, server, "ana")
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "",
		map[string]string{"username": "ana", "password": "secret123"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate username: expected 400, got %d", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	server, _ := newTestServer(t)
	signup(t, server, "ana")

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "ana", "password": "wrong-pass"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, _ := newTestServer(t)
	token := signup(t, server, "ana")

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/auth/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/conductors", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token still accepted: status %d", resp.StatusCode)
	}
}

func TestOperationsFlow(t *testing.T) {
	server, _ := newTestServer(t)
	token := signup(t, server, "ana")
	conductorID := createConductor(t, server, token, "Carlos")

	// Apply a create_package operation.
	resp, fields := doJSON(t, http.MethodPost, server.URL+"/api/operations", token, map[string]any{
		"operation":    "create_package",
		"conductor_id": conductorID,
		"tracking":     "GUIA-12345",
		"category":     model.CategoryPrepaid,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply: status %d", resp.StatusCode)
	}
	var success bool
	if err := json.Unmarshal(fields["success"], &success); err != nil || !success {
		t.Errorf("expected success=true, got %s", fields["success"])
	}

	// The package is visible through the read API.
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/packages?tracking=GUIA-12345", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list packages: status %d", resp.StatusCode)
	}

	// The ledger holds exactly one entry.
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/operations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	histResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer histResp.Body.Close()
	var history []model.Operation
	if err := json.NewDecoder(histResp.Body).Decode(&history); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(history) != 1 || history[0].Type != "create_package" || !history[0].CanUndo {
		t.Errorf("unexpected history: %+v", history)
	}

	// Undo, then a second undo hits the empty-ledger message.
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/operations/undo", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("undo: status %d", resp.StatusCode)
	}

	resp, fields = doJSON(t, http.MethodPost, server.URL+"/api/operations/undo", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second undo: expected 400, got %d", resp.StatusCode)
	}
	var errMsg string
	if err := json.Unmarshal(fields["error"], &errMsg); err != nil || errMsg != "No hay operaciones para deshacer" {
		t.Errorf("unexpected error message: %s", fields["error"])
	}
}

func TestOperationsCrossTenant(t *testing.T) {
	server, _ := newTestServer(t)
	anaToken := signup(t, server, "ana")
	evaToken := signup(t, server, "eva")
	conductorID := createConductor(t, server, anaToken, "Carlos")

	// Another tenant cannot target the conductor through an operation.
	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/operations", evaToken, map[string]any{
		"operation":    "create_package",
		"conductor_id": conductorID,
		"tracking":     "GUIA-12345",
		"category":     model.CategoryPrepaid,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for foreign conductor, got %d", resp.StatusCode)
	}

	// Nor read it.
	resp, _ = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/conductors/%d", server.URL, conductorID), evaToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for foreign conductor, got %d", resp.StatusCode)
	}

	// Each tenant sees only their own history.
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/operations", nil)
	req.Header.Set("Authorization", "Bearer "+evaToken)
	histResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	defer histResp.Body.Close()
	var history []model.Operation
	if err := json.NewDecoder(histResp.Body).Decode(&history); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("foreign tenant sees %d entries", len(history))
	}
}

func TestApplyValidationErrorResponse(t *testing.T) {
	server, _ := newTestServer(t)
	token := signup(t, server, "ana")
	conductorID := createConductor(t, server, token, "Carlos")

	resp, fields := doJSON(t, http.MethodPost, server.URL+"/api/operations", token, map[string]any{
		"operation":    "create_package",
		"conductor_id": conductorID,
		"tracking":     "x", // too short
		"category":     model.CategoryPrepaid,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var errMsg string
	if err := json.Unmarshal(fields["error"], &errMsg); err != nil || errMsg != "solicitud inválida" {
		t.Errorf("unexpected error message: %s", fields["error"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	token := signup(t, server, "ana")
	conductorID := createConductor(t, server, token, "Carlos")

	if resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/operations", token, map[string]any{
		"operation":    "create_package",
		"conductor_id": conductorID,
		"tracking":     "GUIA-12345",
		"category":     model.CategoryCOD,
		"value":        80.0,
	}); resp.StatusCode != http.StatusOK {
		t.Fatalf("apply: status %d", resp.StatusCode)
	}

	resp, fields := doJSON(t, http.MethodGet, server.URL+"/api/stats", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: status %d", resp.StatusCode)
	}
	var total int64
	if err := json.Unmarshal(fields["total_packages"], &total); err != nil || total != 1 {
		t.Errorf("expected 1 total package, got %s", fields["total_packages"])
	}
	var codTotal float64
	if err := json.Unmarshal(fields["cod_total"], &codTotal); err != nil || codTotal != 80 {
		t.Errorf("expected cod_total 80, got %s", fields["cod_total"])
	}
}

func TestChangePassword(t *testing.T) {
	server, _ := newTestServer(t)
	token := signup(t, server, "ana")

	resp, _ := doJSON(t, http.MethodPut, server.URL+"/api/auth/password", token,
		map[string]string{"current_password": "wrong", "new_password": "nuevaclave1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong current password: expected 401, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPut, server.URL+"/api/auth/password", token,
		map[string]string{"current_password": "secret123", "new_password": "nuevaclave1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("change password: status %d", resp.StatusCode)
	}

	// The old password no longer works.
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "ana", "password": "secret123"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("old password still accepted: status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "ana", "password": "nuevaclave1"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("new password rejected: status %d", resp.StatusCode)
	}
}
