package handler

import (
	"net/http"
	"runtime"
	"time"

	"labstock-api/internal/repository"
	"labstock-api/pkg/apierror"
	"labstock-api/pkg/response"
)

// AdminHandler handles operational stats requests.
type AdminHandler struct {
	ledgerRepo repository.LedgerRepository
	dbType     string
	adminKey   string
	startTime  time.Time
}

// NewAdminHandler creates a new admin handler. If adminKey is empty the
// stats endpoint is disabled.
func NewAdminHandler(ledgerRepo repository.LedgerRepository, dbType, adminKey string) *AdminHandler {
	return &AdminHandler{
		ledgerRepo: ledgerRepo,
		dbType:     dbType,
		adminKey:   adminKey,
		startTime:  time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.adminKey == "" || r.Header.Get("X-Admin-Key") != h.adminKey {
		response.Error(w, apierror.Forbidden(""))
		return
	}

	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"num_goroutine": runtime.NumGoroutine(),
	}

	if h.ledgerRepo != nil {
		dbStats, err := h.ledgerRepo.Stats(r.Context())
		if err != nil {
			stats["database"] = map[string]interface{}{"error": err.Error()}
		} else {
			stats["database"] = dbStats
		}
	}

	response.OK(w, stats)
}
