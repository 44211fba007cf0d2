package models

import (
	"time"

	"github.com/gocql/gocql"
)

// Statuts possibles d'une commande
const (
	OrderStatusPlaced    = "placed"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// OrderItem est un instantané pris au moment de l'achat : le prix unitaire,
// le prix remisé et le prix coupon ne bougent plus jamais après la commande.
type OrderItem struct {
	ProductID   gocql.UUID `json:"product_id"`
	ProductName string     `json:"product_name"`
	UnitPrice   int64      `json:"unit_price"`
	// Prix remisé hors coupon, nil si le produit n'était pas en promotion
	DiscountPrice *int64 `json:"discount_price,omitempty"`
	// Prix après application d'un coupon produit, nil si aucun coupon
	CouponPrice *int64 `json:"coupon_price,omitempty"`
	Quantity    int    `json:"quantity"`
}

type Order struct {
	ID               gocql.UUID  `json:"id"`
	UserID           string      `json:"user_id"`
	Status           string      `json:"status"`
	Items            []OrderItem `json:"items"`
	ShippingFee      int64       `json:"shipping_fee"`
	ShippingDiscount int64       `json:"shipping_discount"`
	CreatedAt        time.Time   `json:"created_at"`
}
