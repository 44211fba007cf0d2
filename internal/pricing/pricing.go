// Package pricing réconcilie le prix d'une commande à partir des instantanés
// de ses lignes. Calcul pur en unité mineure (int64) : même entrée, même
// sortie, aucune dépendance à l'horloge ou à la locale.
package pricing

import "novea_back_end/internal/models"

// Summary détaille le total payable d'une commande.
// Toujours recalculé depuis la commande, jamais persisté.
type Summary struct {
	Subtotal         int64 `json:"subtotal"`
	CouponDiscount   int64 `json:"coupon_discount"`
	ShippingFee      int64 `json:"shipping_fee"`
	ShippingDiscount int64 `json:"shipping_discount"`
	Total            int64 `json:"total"`
}

// EffectiveUnitPrice retourne le prix unitaire réellement payé pour une ligne.
// Précédence : prix coupon, sinon prix remisé, sinon prix catalogue.
// Seule source de vérité — aucun appelant ne refait ce calcul.
func EffectiveUnitPrice(item models.OrderItem) int64 {
	if item.CouponPrice != nil {
		return *item.CouponPrice
	}
	return PreCouponUnitPrice(item)
}

// PreCouponUnitPrice retourne le prix unitaire avant coupon :
// prix remisé si présent, sinon prix catalogue.
func PreCouponUnitPrice(item models.OrderItem) int64 {
	if item.DiscountPrice != nil {
		return *item.DiscountPrice
	}
	return item.UnitPrice
}

// Subtotal additionne les lignes au prix avant coupon : l'effet des coupons
// est rapporté séparément dans CouponDiscount, jamais fondu dans le sous-total.
func Subtotal(order models.Order) int64 {
	var total int64
	for _, item := range order.Items {
		total += PreCouponUnitPrice(item) * int64(item.Quantity)
	}
	return total
}

// CouponDiscount agrège la réduction des lignes portant un coupon.
// Les lignes sans coupon contribuent 0.
func CouponDiscount(order models.Order) int64 {
	var discount int64
	for _, item := range order.Items {
		if item.CouponPrice != nil {
			discount += (PreCouponUnitPrice(item) - *item.CouponPrice) * int64(item.Quantity)
		}
	}
	return discount
}

// Total = sous-total + frais de port − remise port − remise coupons.
// Un total négatif (coupons dépassant commande + port) est ramené à 0.
func Total(order models.Order) int64 {
	total := Subtotal(order) + order.ShippingFee - order.ShippingDiscount - CouponDiscount(order)
	if total < 0 {
		total = 0
	}
	return total
}

// Summarize produit le détail complet du prix d'une commande
func Summarize(order models.Order) Summary {
	return Summary{
		Subtotal:         Subtotal(order),
		CouponDiscount:   CouponDiscount(order),
		ShippingFee:      order.ShippingFee,
		ShippingDiscount: order.ShippingDiscount,
		Total:            Total(order),
	}
}
