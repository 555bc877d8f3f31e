package api

import (
	"database/sql"
	"net/http"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	conductorsHandler := &ConductorsHandler{DB: db}
	packagesHandler := &PackagesHandler{DB: db}
	operationsHandler := &OperationsHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)

	// Public: account creation and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Session.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Bulk operations, undo, and the history ledger.
	mux.Handle("POST /api/operations", authMW(http.HandlerFunc(operationsHandler.Apply)))
	mux.Handle("POST /api/operations/undo", authMW(http.HandlerFunc(operationsHandler.Undo)))
	mux.Handle("GET /api/operations", authMW(http.HandlerFunc(operationsHandler.History)))
	mux.Handle("GET /api/stats", authMW(http.HandlerFunc(operationsHandler.Stats)))

	// Conductors.
	mux.Handle("GET /api/conductors", authMW(http.HandlerFunc(conductorsHandler.List)))
	mux.Handle("POST /api/conductors", authMW(http.HandlerFunc(conductorsHandler.Create)))
	mux.Handle("GET /api/conductors/{id}", authMW(http.HandlerFunc(conductorsHandler.Get)))
	mux.Handle("PUT /api/conductors/{id}", authMW(http.HandlerFunc(conductorsHandler.Update)))
	mux.Handle("DELETE /api/conductors/{id}", authMW(http.HandlerFunc(conductorsHandler.Delete)))
	mux.Handle("GET /api/conductors/{id}/packages", authMW(http.HandlerFunc(conductorsHandler.GetPackages)))

	// Packages (reads and delivery proofs; mutations go through operations).
	mux.Handle("GET /api/packages", authMW(http.HandlerFunc(packagesHandler.List)))
	mux.Handle("GET /api/packages/{id}", authMW(http.HandlerFunc(packagesHandler.Get)))
	mux.Handle("PUT /api/packages/{id}/proof", authMW(http.HandlerFunc(packagesHandler.UploadProof)))
	mux.Handle("GET /api/packages/{id}/proof", authMW(http.HandlerFunc(packagesHandler.GetProof)))

	return mux
}
