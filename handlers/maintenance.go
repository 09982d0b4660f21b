package handlers

import (
	"log"
	"net/http"

	"traktshelf/internal/cache"
)

// MaintenanceHandler triggers a cache sweep on demand. The scheduled sweep
// runs from main; this endpoint exists for operators.
type MaintenanceHandler struct {
	maint *cache.Maintenance
}

func NewMaintenanceHandler(maint *cache.Maintenance) *MaintenanceHandler {
	return &MaintenanceHandler{maint: maint}
}

// RunSweep runs one sweep and reports how many entries were reclaimed.
func (h *MaintenanceHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	reclaimed, err := h.maint.RunSweep(r.Context())
	if err != nil {
		log.Printf("[maintenance] sweep: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reclaimed": reclaimed})
}
