package handler

import (
	"net/http"

	"plumbstore/internal/model"
	"plumbstore/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CartHandler handles cart ledger requests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// CartTotalResponse is returned by the cart total endpoint.
type CartTotalResponse struct {
	Total decimal.Decimal `json:"total"`
}

// ClearCartResponse is returned by DELETE /api/cart.
type ClearCartResponse struct {
	Message string `json:"message"`
	Removed int64  `json:"removed"`
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Add handles POST /api/cart. A new line answers 201, an increment 200.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req model.AddToCartRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	line, created, err := h.service.AddItem(r.Context(), actor, req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, line)
}

// List handles GET /api/cart/{id}, where id is the user whose cart is read.
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := int64Param(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid user ID", h.logger)
		return
	}

	lines, err := h.service.ListCart(r.Context(), actor, userID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// Total handles GET /api/cart/{id}/total, where id is the user.
func (h *CartHandler) Total(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := int64Param(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid user ID", h.logger)
		return
	}

	total, err := h.service.GetTotal(r.Context(), actor, userID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, CartTotalResponse{Total: total})
}

// Update handles PATCH /api/cart/{id}, where id is the cart line.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	lineID, ok := int64Param(r, "id")
	if !ok {
		respondError(w, model.ErrCartLineNotFound, h.logger)
		return
	}

	var req model.UpdateCartLineRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	line, err := h.service.SetQuantity(r.Context(), actor, lineID, req.Quantity)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// Remove handles DELETE /api/cart/{id}, where id is the cart line.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	lineID, ok := int64Param(r, "id")
	if !ok {
		respondError(w, model.ErrCartLineNotFound, h.logger)
		return
	}

	if err := h.service.RemoveItem(r.Context(), actor, lineID); err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "item removed from cart"})
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	removed, err := h.service.ClearCart(r.Context(), actor)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, ClearCartResponse{Message: "cart emptied", Removed: removed})
}
