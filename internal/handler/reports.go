package handler

import (
	"net/http"
	"strconv"

	"labstock-api/internal/ledger"
	"labstock-api/internal/middleware"
	"labstock-api/pkg/apierror"
	"labstock-api/pkg/response"
)

// ReportHandler serves the dashboard views derived from ledger state.
type ReportHandler struct {
	ledger *ledger.Ledger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(l *ledger.Ledger) *ReportHandler {
	return &ReportHandler{ledger: l}
}

// LowStock handles GET /api/v1/reports/low-stock
func (h *ReportHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	if _, err := h.ledger.Items(r.Context(), session.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	items := h.ledger.LowStockItems(session.UserID)
	response.List(w, items, len(items))
}

// Expiring handles GET /api/v1/reports/expiring?days=30
func (h *ReportHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	days := ledger.DefaultExpiryWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(w, apierror.BadRequest("days must be a positive integer"))
			return
		}
		days = parsed
	}

	if _, err := h.ledger.Items(r.Context(), session.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	items := h.ledger.ExpiringItems(session.UserID, days)
	response.List(w, items, len(items))
}

// Summary handles GET /api/v1/reports/summary
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	summary, err := h.ledger.Summary(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, summary)
}
