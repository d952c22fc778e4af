package model

import "time"

// Order status values reported by the order backend.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

// Identity is the authenticated user's session record. At most one Identity
// is active at a time; the zero value is never used (absence is a nil pointer).
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token,omitempty"`
}

// Product is the canonical product model. Instances are produced by the
// normalize package and never mutated afterwards; callers re-fetch rather
// than patch.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	InStock     bool    `json:"in_stock"`
}

// CartLine is one product in the cart. Snapshot is captured at add time and
// intentionally not refreshed from later catalog fetches.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Snapshot  Product `json:"snapshot"`
	Quantity  int     `json:"quantity"`
}

// Subtotal returns the line's contribution to the cart total.
func (l CartLine) Subtotal() float64 {
	return l.Snapshot.Price * float64(l.Quantity)
}

// WishlistEntry is one saved product. Membership is keyed by ProductID.
type WishlistEntry struct {
	ProductID string  `json:"product_id"`
	Snapshot  Product `json:"snapshot"`
}

// OrderItem is one line of a placed order as reported by the backend.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is a read-only projection from the order backend.
type Order struct {
	ID          string      `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	Status      string      `json:"status"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"total_amount"`
}

// ViewRecord is one entry of a user's product view history.
type ViewRecord struct {
	ProductID       string    `json:"product_id"`
	ViewedAt        time.Time `json:"viewed_at"`
	DurationSeconds int       `json:"view_duration"`
	Product         *Product  `json:"product,omitempty"`
}
