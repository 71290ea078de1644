package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the privilege level of an account as issued by the account directory.
type Role string

const (
	RoleUser    Role = "User"
	RoleManager Role = "Manager"
	RoleAdmin   Role = "Admin"
)

// Account is the identity that owns a cart and an address book
type Account struct {
	ID        int64      `json:"id" db:"id"`
	FirstName string     `json:"first_name" db:"first_name"`
	LastName  string     `json:"last_name" db:"last_name"`
	Email     string     `json:"email" db:"email"`
	Role      Role       `json:"role" db:"role"`
	Addresses []Address  `json:"addresses"`
	Cart      []CartLine `json:"cart"`
}

// Address returns the saved address with the given id.
func (a *Account) Address(id int64) (Address, bool) {
	for _, addr := range a.Addresses {
		if addr.ID == id {
			return addr, true
		}
	}
	return Address{}, false
}

// TotalQuantity sums the quantities of every cart line.
func (a *Account) TotalQuantity() int {
	total := 0
	for _, line := range a.Cart {
		total += line.Quantity
	}
	return total
}

// FindLine returns the index of the cart line keyed by product and variant, or -1.
func (a *Account) FindLine(productID int64, color, size string) int {
	for i, line := range a.Cart {
		if line.ProductID == productID && line.Color == color && line.Size == size {
			return i
		}
	}
	return -1
}

// Address is a saved delivery address. Orders keep a copy of it.
type Address struct {
	ID        int64  `json:"id" db:"id"`
	AccountID int64  `json:"-" db:"account_id"`
	Line      string `json:"address" db:"line"`
	City      string `json:"city" db:"city"`
	Landmark  string `json:"landmark,omitempty" db:"landmark"`
	Pincode   string `json:"pincode,omitempty" db:"pincode"`
	Phone     string `json:"number" db:"phone"`
	IsDefault bool   `json:"is_default" db:"is_default"`
}

// CartLine is one pending (product, variant, quantity) entry of an account's cart
type CartLine struct {
	ID        int64  `json:"id" db:"id"`
	AccountID int64  `json:"-" db:"account_id"`
	ProductID int64  `json:"product_id" db:"product_id"`
	Quantity  int    `json:"quantity" db:"quantity"`
	Color     string `json:"color" db:"color"`
	Size      string `json:"size" db:"size"`
}

// Product is a catalog record. InStock and AverageRating are derived from
// StockCount and Ratings and must only change together with them.
type Product struct {
	ID            int64           `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	Category      string          `json:"category" db:"category"`
	OriginalPrice decimal.Decimal `json:"original_price" db:"original_price"`
	SalePrice     decimal.Decimal `json:"sale_price" db:"sale_price"`
	StockCount    int             `json:"stock_count" db:"stock_count"`
	InStock       bool            `json:"in_stock" db:"in_stock"`
	BoughtCounter int64           `json:"bought_counter" db:"bought_counter"`
	Ratings       RatingHistogram `json:"ratings"`
	AverageRating float64         `json:"average_rating" db:"average_rating"`
	Images        []string        `json:"images"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// PrimaryImage returns the first image or an empty string.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// CommitPurchase applies an inventory commit for qty units: stock is
// decremented and clamped at zero, InStock is recomputed and BoughtCounter
// grows by qty.
func (p *Product) CommitPurchase(qty int) {
	if qty <= 0 {
		return
	}
	p.StockCount -= qty
	if p.StockCount < 0 {
		p.StockCount = 0
	}
	p.InStock = p.StockCount > 0
	p.BoughtCounter += int64(qty)
}

// RecordRating adds one rating to the histogram and refreshes AverageRating.
func (p *Product) RecordRating(rating int) error {
	if err := p.Ratings.Add(rating); err != nil {
		return err
	}
	p.AverageRating = p.Ratings.Average()
	return nil
}

// RemoveRating takes one rating out of the histogram and refreshes
// AverageRating. underflow reports that the bucket was already empty.
func (p *Product) RemoveRating(rating int) (underflow bool, err error) {
	underflow, err = p.Ratings.Remove(rating)
	if err != nil {
		return false, err
	}
	p.AverageRating = p.Ratings.Average()
	return underflow, nil
}

// Review is a stored product review
type Review struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	AccountID int64     `json:"account_id" db:"account_id"`
	Rating    int       `json:"rating" db:"rating"`
	Text      string    `json:"review" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CartLineView is a cart line resolved against the current catalog.
type CartLineView struct {
	ID         int64           `json:"id"`
	ProductID  int64           `json:"product_id"`
	Title      string          `json:"title"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	StockCount int             `json:"stock_count"`
	Image      string          `json:"image,omitempty"`
	Quantity   int             `json:"quantity"`
	Color      string          `json:"color"`
	Size       string          `json:"size"`
}

// CartView represents a cart with its resolved lines
type CartView struct {
	Lines         []CartLineView `json:"cart"`
	TotalQuantity int            `json:"total_quantity"`
}

// UnknownProductTitle is shown for cart lines whose product no longer exists.
const UnknownProductTitle = "Unknown Product"

// AddToCartRequest represents a request to add a line to the cart
type AddToCartRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

// RemoveFromCartRequest identifies a cart line by product and variant
type RemoveFromCartRequest struct {
	ProductID int64  `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
}

// AdjustCartRequest carries the direction of a quantity adjustment
type AdjustCartRequest struct {
	Action string `json:"action"`
}

// PlaceOrderRequest represents a checkout request
type PlaceOrderRequest struct {
	AddressID     int64  `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
}

// UpdateOrderStatusRequest carries the target status of a privileged update
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// AddReviewRequest represents a new review
type AddReviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}
