package api

import (
	"net/http"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/services"
)

// ListProductsHandler handles GET /api/v1/products
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := a.catalog.ListProducts(r.Context(), queryInt(q, "limit", 20), queryInt(q, "offset", 0))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", products)
}

// GetProductHandler handles GET /api/v1/products/{id}
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid product ID")
		return
	}
	product, err := a.catalog.GetProduct(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", product)
}

// ListReviewsHandler handles GET /api/v1/products/{id}/reviews
func (a *App) ListReviewsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid product ID")
		return
	}
	q := r.URL.Query()
	page, err := a.ratings.ListReviews(r.Context(), id, services.ReviewQuery{
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Page:   queryInt(q, "page", 1),
		Size:   queryInt(q, "size", 10),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

// AddReviewHandler handles POST /api/v1/products/{id}/reviews
func (a *App) AddReviewHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid product ID")
		return
	}
	var req models.AddReviewRequest
	if !decode(r, &req) {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid request body")
		return
	}
	review, err := a.ratings.RecordReview(r.Context(), actor(r), id, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Review added successfully", review)
}

// RemoveReviewHandler handles DELETE /api/v1/products/{id}/reviews/{reviewId}
func (a *App) RemoveReviewHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	reviewID, ok2 := pathID(r, "reviewId")
	if !ok || !ok2 {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid product or review ID")
		return
	}
	if err := a.ratings.RemoveReview(r.Context(), actor(r), id, reviewID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Review deleted successfully", nil)
}
