package handler

import (
	"net/http"

	"labstock-api/internal/ledger"
	"labstock-api/internal/middleware"
	"labstock-api/pkg/apierror"
	"labstock-api/pkg/response"
)

// TransactionHandler handles transaction log HTTP requests.
type TransactionHandler struct {
	ledger *ledger.Ledger
}

// NewTransactionHandler creates a new transaction handler.
func NewTransactionHandler(l *ledger.Ledger) *TransactionHandler {
	return &TransactionHandler{ledger: l}
}

// List handles GET /api/v1/transactions
//
// Returns the most recent transactions, newest first, bounded to the
// in-memory history limit.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	txns, err := h.ledger.Transactions(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.List(w, txns, len(txns))
}
