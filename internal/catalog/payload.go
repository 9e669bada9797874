// Package catalog pushes the product catalog to the hosted commerce
// graph so the WhatsApp/Facebook shop mirrors the store's inventory.
package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/pricing"
)

// ProductData is the per-product upsert payload for the commerce graph.
// Prices travel as minor units (cents).
type ProductData struct {
	RetailerID          string   `json:"retailer_id"`
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	Price               int64    `json:"price"`
	Currency            string   `json:"currency"`
	Availability        string   `json:"availability"`
	Condition           string   `json:"condition"`
	Category            string   `json:"category,omitempty"`
	Inventory           int      `json:"inventory"`
	ImageURL            string   `json:"image_url,omitempty"`
	AdditionalImageURLs []string `json:"additional_image_urls,omitempty"`
	SalePrice           int64    `json:"sale_price,omitempty"`
	SalePriceStartDate  string   `json:"sale_price_start_date,omitempty"`
	SalePriceEndDate    string   `json:"sale_price_end_date,omitempty"`
}

// MinorUnits converts a main-unit price to integer cents.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// retailerID is the stable cross-system product key: the SKU when the
// product has one, the numeric ID otherwise.
func retailerID(p domain.Product) string {
	if p.Sku != "" {
		return p.Sku
	}
	return strconv.FormatInt(p.ID, 10)
}

func availability(p domain.Product) string {
	if p.Stock > 0 {
		return "in stock"
	}
	return "out of stock"
}

// BuildProductData assembles the upsert payload. When an active
// promotion resolves for the product its discounted price is published
// as the sale price, bounded by the promotion window when one is set.
func BuildProductData(p domain.Product, categoryName, currency string, promotions []domain.Promotion, now time.Time) ProductData {
	data := ProductData{
		RetailerID:   retailerID(p),
		Name:         p.Name,
		Description:  p.Description,
		Price:        MinorUnits(p.Price),
		Currency:     currency,
		Availability: availability(p),
		Condition:    "new",
		Category:     categoryName,
		Inventory:    p.Stock,
		ImageURL:     p.ImageUrl,
	}

	if p.ExtraImages != "" {
		for _, raw := range strings.Split(p.ExtraImages, ",") {
			if url := strings.TrimSpace(raw); url != "" {
				data.AdditionalImageURLs = append(data.AdditionalImageURLs, url)
			}
		}
	}

	quote := pricing.Resolve(p, promotions, now)
	if quote.HasPromotion && quote.FinalPrice < p.Price {
		data.SalePrice = MinorUnits(quote.FinalPrice)
		for _, promo := range promotions {
			if promo.ID != quote.PromotionId {
				continue
			}
			if promo.StartAt != nil {
				data.SalePriceStartDate = promo.StartAt.Format(time.RFC3339)
			}
			if promo.EndAt != nil {
				data.SalePriceEndDate = promo.EndAt.Format(time.RFC3339)
			}
		}
	}

	return data
}
