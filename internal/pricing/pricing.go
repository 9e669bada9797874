// Package pricing is the single authority for promotion, pack and cart
// price math. Every surface that shows or charges a price (admin API,
// checkout, WhatsApp responder, catalog sync) goes through this package
// so displayed and persisted totals can never drift apart.
package pricing

import (
	"math"
	"time"

	"github.com/openmercato/mercato/internal/domain"
)

// Quote is the resolved price of one product after promotion lookup.
type Quote struct {
	OriginalPrice   float64 `json:"original_price"`
	FinalPrice      float64 `json:"final_price"`
	HasPromotion    bool    `json:"has_promotion"`
	PromotionId     int64   `json:"promotion_id,string"`
	PromotionType   string  `json:"promotion_type"`
	DiscountAmount  float64 `json:"discount_amount"`
	DiscountPercent float64 `json:"discount_percent"`
}

// BundleQuote is the resolved price of a pack versus buying its items
// individually. DiscountAmount can be negative for a misconfigured pack
// whose bundle price exceeds the itemized price; that is surfaced, not
// rejected.
type BundleQuote struct {
	IndividualPrice float64 `json:"individual_price"`
	BundlePrice     float64 `json:"bundle_price"`
	DiscountAmount  float64 `json:"discount_amount"`
	DiscountPercent float64 `json:"discount_percent"`
}

// CartLine is one entry of an in-progress sale.
type CartLine struct {
	Kind     string         `json:"kind"` // domain.SaleLineProduct or domain.SaleLinePack
	Product  domain.Product `json:"product"`
	Pack     domain.Pack    `json:"pack"`
	Quantity int            `json:"quantity"`
}

// CartTotals is the accumulated cart result. Total equals Subtotal,
// there is no separate tax or fee step.
type CartTotals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// Resolver prices products and packs against a promotion snapshot loaded
// from the database. Now is pinned at construction so one request prices
// every line against the same instant.
type Resolver struct {
	promotions []domain.Promotion
	products   map[int64]domain.Product
	now        time.Time
}

func NewResolver(promotions []domain.Promotion, products []domain.Product, now time.Time) *Resolver {
	idx := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return &Resolver{promotions: promotions, products: idx, now: now}
}

// Applicable reports whether promo can apply to product productId at
// instant now: enabled, targeting the product, and inside its optional
// validity window. Malformed rows simply fail to match.
func Applicable(promo domain.Promotion, productId int64, now time.Time) bool {
	if promo.ProductId != productId {
		return false
	}
	if promo.Status != "enabled" {
		return false
	}
	if promo.StartAt != nil && now.Before(*promo.StartAt) {
		return false
	}
	if promo.EndAt != nil && now.After(*promo.EndAt) {
		return false
	}
	switch promo.Type {
	case domain.PromotionPercent, domain.PromotionFixed, domain.PromotionAmount:
		return true
	}
	return false
}

// apply computes the post-promotion price, floored at zero.
func apply(promo domain.Promotion, price float64) float64 {
	var final float64
	switch promo.Type {
	case domain.PromotionPercent:
		final = price * (1 - promo.Value/100)
	case domain.PromotionFixed:
		final = promo.Value
	case domain.PromotionAmount:
		final = price - promo.Value
	default:
		final = price
	}
	return math.Max(0, final)
}

// Resolve finds the applicable promotion for product and returns its
// quote. An applicable promotion always applies, even a fixed price
// above the list price; when several apply the lowest final price wins,
// ties broken by lowest promotion ID, so the result is independent of
// query row order.
func (r *Resolver) Resolve(product domain.Product) Quote {
	return Resolve(product, r.promotions, r.now)
}

// Resolve is the promotion resolver over an explicit promotion list.
func Resolve(product domain.Product, promotions []domain.Promotion, now time.Time) Quote {
	quote := Quote{
		OriginalPrice: product.Price,
		FinalPrice:    product.Price,
	}

	for _, promo := range promotions {
		if !Applicable(promo, product.ID, now) {
			continue
		}
		final := apply(promo, product.Price)
		if quote.HasPromotion {
			if final > quote.FinalPrice {
				continue
			}
			if final == quote.FinalPrice && promo.ID >= quote.PromotionId {
				continue
			}
		}
		quote.HasPromotion = true
		quote.PromotionId = promo.ID
		quote.PromotionType = promo.Type
		quote.FinalPrice = final
	}

	if quote.HasPromotion {
		quote.DiscountAmount = quote.OriginalPrice - quote.FinalPrice
		if quote.OriginalPrice > 0 {
			quote.DiscountPercent = quote.DiscountAmount / quote.OriginalPrice * 100
		}
	}
	return quote
}

// ResolveBundle computes the itemized versus bundle price of a pack.
// Items referencing unknown products contribute zero to the itemized
// price rather than failing the quote.
func (r *Resolver) ResolveBundle(pack domain.Pack) BundleQuote {
	quote := BundleQuote{BundlePrice: pack.Price}
	for _, item := range pack.Items {
		product, found := r.products[item.ProductId]
		if !found {
			continue
		}
		quote.IndividualPrice += product.Price * float64(item.Quantity)
	}
	quote.DiscountAmount = quote.IndividualPrice - quote.BundlePrice
	if quote.IndividualPrice > 0 {
		quote.DiscountPercent = quote.DiscountAmount / quote.IndividualPrice * 100
	}
	return quote
}

// Offerable reports whether every product referenced by the pack
// currently has stock on hand, and whether the pack is inside its
// validity window.
func (r *Resolver) Offerable(pack domain.Pack) bool {
	if pack.Status != "enabled" {
		return false
	}
	if pack.StartAt != nil && r.now.Before(*pack.StartAt) {
		return false
	}
	if pack.EndAt != nil && r.now.After(*pack.EndAt) {
		return false
	}
	for _, item := range pack.Items {
		product, found := r.products[item.ProductId]
		if !found || product.Stock <= 0 {
			return false
		}
	}
	return true
}

// Accumulate folds cart lines into totals. The fold is a plain sum so
// the result is independent of line order. Product lines price through
// Resolve, pack lines charge the fixed bundle price; pack discount is
// the itemized saving when the referenced products are known.
func (r *Resolver) Accumulate(lines []CartLine) CartTotals {
	var totals CartTotals
	for _, line := range lines {
		qty := float64(line.Quantity)
		switch line.Kind {
		case domain.SaleLinePack:
			bundle := r.ResolveBundle(line.Pack)
			totals.Subtotal += line.Pack.Price * qty
			if bundle.DiscountAmount > 0 {
				totals.Discount += bundle.DiscountAmount * qty
			}
		default:
			quote := r.Resolve(line.Product)
			totals.Subtotal += quote.FinalPrice * qty
			totals.Discount += quote.DiscountAmount * qty
		}
	}
	totals.Total = totals.Subtotal
	return totals
}

// Round2 rounds a money amount to cents for display and persistence.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
