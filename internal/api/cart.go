package api

import (
	"net/http"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/services"
)

// GetCartHandler handles GET /api/v1/cart
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	cart, err := a.cart.ReadCart(r.Context(), actor(r).AccountID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", cart)
}

// AddToCartHandler handles POST /api/v1/cart/add
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if !decode(r, &req) {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid request body")
		return
	}
	total, err := a.cart.AddLine(r.Context(), actor(r).AccountID, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Product added to cart", map[string]int{"total_quantity": total})
}

// RemoveFromCartHandler handles POST /api/v1/cart/remove
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RemoveFromCartRequest
	if !decode(r, &req) {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid request body")
		return
	}
	cart, err := a.cart.RemoveLine(r.Context(), actor(r).AccountID, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Product removed from cart", cart)
}

// AdjustCartHandler handles PATCH /api/v1/cart/{lineId}
func (a *App) AdjustCartHandler(w http.ResponseWriter, r *http.Request) {
	lineID, ok := pathID(r, "lineId")
	if !ok {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid cart item ID")
		return
	}
	var req models.AdjustCartRequest
	if !decode(r, &req) {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid request body")
		return
	}
	cart, err := a.cart.AdjustQuantity(r.Context(), actor(r).AccountID, lineID, req.Action)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Cart updated", cart)
}
