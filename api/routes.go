package api

import (
	"net/http"

	"traktshelf/handlers"

	"github.com/gorilla/mux"
)

// corsMiddleware allows Stremio clients on any origin to reach the addon.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts all endpoints onto the provided router.
func Register(
	r *mux.Router,
	catalogHandler *handlers.CatalogHandler,
	tokensHandler *handlers.TokensHandler,
	maintenanceHandler *handlers.MaintenanceHandler,
) {
	r.Use(corsMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// Addon endpoints, matching the URL shapes Stremio generates.
	r.HandleFunc("/manifest.json", catalogHandler.Manifest).Methods(http.MethodGet)
	r.HandleFunc("/configure", catalogHandler.Configure).Methods(http.MethodGet)

	// Operational API.
	apiRouter := r.PathPrefix("/api").Subrouter()
	if tokensHandler != nil {
		apiRouter.HandleFunc("/tokens", tokensHandler.Save).Methods(http.MethodPost)
		apiRouter.HandleFunc("/tokens/{userID}", tokensHandler.Get).Methods(http.MethodGet)
		apiRouter.HandleFunc("/tokens/{userID}", tokensHandler.Delete).Methods(http.MethodDelete)
	}
	apiRouter.HandleFunc("/maintenance/sweep", maintenanceHandler.RunSweep).Methods(http.MethodPost)

	// User-configured addon routes come last so the config segment cannot
	// shadow the fixed paths above.
	r.HandleFunc("/{userConfig}/manifest.json", catalogHandler.UserManifest).Methods(http.MethodGet)
	r.HandleFunc("/{userConfig}/catalog/{type}/{id}.json", catalogHandler.Catalog).Methods(http.MethodGet)
}
