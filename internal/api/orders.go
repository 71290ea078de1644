package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/SigNoz/retail-order-engine/internal/models"
	"github.com/SigNoz/retail-order-engine/internal/services"
)

// Form fields posted by the payment gateway after a successful payment.
const (
	fieldGatewayOrderID = "razorpay_order_id"
	fieldPaymentID      = "razorpay_payment_id"
	fieldSignature      = "razorpay_signature"
)

// PlaceOrderHandler handles POST /api/v1/orders
func (a *App) PlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PlaceOrderRequest
	if !decode(r, &req) {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid request body")
		return
	}
	res, err := a.checkout.PlaceOrder(r.Context(), actor(r).AccountID, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	msg := "Your order has been placed successfully."
	if res.Intent != nil {
		msg = "Order created, complete the payment to place it."
	}
	writeSuccess(w, http.StatusCreated, msg, res)
}

// PaymentKeyHandler handles GET /api/v1/checkout/key
func (a *App) PaymentKeyHandler(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "", map[string]string{"key": a.checkout.PaymentKey()})
}

// VerifyPaymentHandler handles POST /api/v1/checkout/verify?account_id=
// The gateway posts its receipt as a form; JSON is accepted too. On success
// the browser is sent to the frontend when one is configured.
func (a *App) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(r.URL.Query().Get("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		writeFailure(w, http.StatusUnauthorized, services.KindForbidden, "Unauthorized user, no account provided!")
		return
	}
	form, ok := formValues(r, fieldGatewayOrderID, fieldPaymentID, fieldSignature)
	if !ok {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid request body")
		return
	}

	order, err := a.checkout.VerifyPayment(r.Context(), accountID,
		form[fieldGatewayOrderID], form[fieldPaymentID], form[fieldSignature])
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if a.config.FrontendURL != "" {
		target := strings.TrimRight(a.config.FrontendURL, "/") +
			"/payment-success?reference=" + url.QueryEscape(form[fieldPaymentID])
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	writeSuccess(w, http.StatusOK, "Payment verified, your order has been placed.", order)
}

// GetOrderHandler handles GET /api/v1/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid order ID")
		return
	}
	order, err := a.orders.GetOrder(r.Context(), actor(r), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", order)
}

func orderQuery(q url.Values) services.OrderQuery {
	return services.OrderQuery{
		Status: q.Get("status"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Page:   queryInt(q, "page", 1),
		Size:   queryInt(q, "size", 10),
	}
}

// ListOrdersHandler handles GET /api/v1/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	page, err := a.orders.ListOrders(r.Context(), actor(r), orderQuery(r.URL.Query()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

// ListAllOrdersHandler handles GET /api/v1/admin/orders
func (a *App) ListAllOrdersHandler(w http.ResponseWriter, r *http.Request) {
	page, err := a.orders.ListAllOrders(r.Context(), actor(r), orderQuery(r.URL.Query()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

// CancelOrderHandler handles POST /api/v1/orders/{id}/cancel
func (a *App) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid order ID")
		return
	}
	order, err := a.orders.Cancel(r.Context(), actor(r), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Order cancelled successfully", order)
}

// UpdateOrderStatusHandler handles PUT /api/v1/orders/{id}/status
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid order ID")
		return
	}
	var req models.UpdateOrderStatusRequest
	if !decode(r, &req) {
		writeFailure(w, http.StatusBadRequest, services.KindValidation, "Invalid request body")
		return
	}
	order, err := a.orders.AdvanceStatus(r.Context(), actor(r), id, req.Status)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Order status updated", order)
}
