package handler

import (
	"encoding/json"
	"net/http"

	"labstock-api/internal/ledger"
	"labstock-api/internal/middleware"
	"labstock-api/pkg/apierror"
	"labstock-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ItemHandler handles inventory item HTTP requests.
type ItemHandler struct {
	ledger *ledger.Ledger
}

// NewItemHandler creates a new item handler.
func NewItemHandler(l *ledger.Ledger) *ItemHandler {
	return &ItemHandler{ledger: l}
}

// List handles GET /api/v1/items
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	items, err := h.ledger.Items(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.List(w, items, len(items))
}

// Create handles POST /api/v1/items
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	var input ledger.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	item, err := h.ledger.AddItem(r.Context(), session.UserID, session.Email, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.Created(w, item)
}

// Get handles GET /api/v1/items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.ledger.Items(r.Context(), session.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	item := h.ledger.ItemByID(session.UserID, id)
	if item == nil {
		response.Error(w, apierror.NotFound("item not found"))
		return
	}
	response.OK(w, item)
}

// Update handles PATCH /api/v1/items/{id}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	var update ledger.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	item, err := h.ledger.UpdateItem(r.Context(), session.UserID, chi.URLParam(r, "id"), update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, item)
}

// Delete handles DELETE /api/v1/items/{id}
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	err := h.ledger.DeleteItem(r.Context(), session.UserID, session.Email, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.NoContent(w)
}

// QuantityRequest represents the request body for a quantity update.
type QuantityRequest struct {
	Quantity float64 `json:"quantity"`
	Reason   string  `json:"reason"`
}

// SetQuantity handles PUT /api/v1/items/{id}/quantity
func (h *ItemHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	var req QuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	txn, err := h.ledger.SetQuantity(r.Context(), session.UserID, session.Email,
		chi.URLParam(r, "id"), req.Quantity, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response.OK(w, txn)
}
