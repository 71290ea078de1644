package services

import "github.com/SigNoz/retail-order-engine/internal/models"

// Actor is the authenticated caller of an operation
type Actor struct {
	AccountID int64
	Role      models.Role
}

// CanManageOrders reports whether actor may act on any account's orders.
func CanManageOrders(actor Actor) bool {
	return actor.Role == models.RoleAdmin || actor.Role == models.RoleManager
}

// OwnsOrder reports whether o belongs to actor.
func OwnsOrder(actor Actor, o *models.Order) bool {
	return actor.AccountID != 0 && o.AccountID == actor.AccountID
}

// CanModerateReviews reports whether actor may remove other accounts' reviews.
func CanModerateReviews(actor Actor) bool {
	return actor.Role == models.RoleAdmin || actor.Role == models.RoleManager
}
