package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openmercato/mercato/internal/domain"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), MinorUnits(19.99))
	assert.Equal(t, int64(100), MinorUnits(1))
	assert.Equal(t, int64(0), MinorUnits(0))
	// float noise must not lose a cent
	assert.Equal(t, int64(1010), MinorUnits(10.1))
}

func TestBuildProductData(t *testing.T) {
	product := domain.Product{
		ID:          7,
		Sku:         "CAF-001",
		Name:        "Cafe Americano",
		Description: "250g molido",
		Price:       150.50,
		Stock:       12,
		ImageUrl:    "https://img.example.com/cafe.jpg",
		ExtraImages: "https://img.example.com/a.jpg, https://img.example.com/b.jpg",
	}

	data := BuildProductData(product, "Bebidas", "MXN", nil, now)
	assert.Equal(t, "CAF-001", data.RetailerID)
	assert.Equal(t, int64(15050), data.Price)
	assert.Equal(t, "MXN", data.Currency)
	assert.Equal(t, "in stock", data.Availability)
	assert.Equal(t, "new", data.Condition)
	assert.Equal(t, "Bebidas", data.Category)
	assert.Equal(t, 12, data.Inventory)
	assert.Equal(t, []string{"https://img.example.com/a.jpg", "https://img.example.com/b.jpg"}, data.AdditionalImageURLs)
	assert.Zero(t, data.SalePrice)
}

func TestBuildProductDataOutOfStockAndNoSku(t *testing.T) {
	product := domain.Product{ID: 9, Name: "Te", Price: 20, Stock: 0}
	data := BuildProductData(product, "", "MXN", nil, now)
	assert.Equal(t, "9", data.RetailerID)
	assert.Equal(t, "out of stock", data.Availability)
	assert.Zero(t, data.Inventory)
}

func TestBuildProductDataSalePriceWindow(t *testing.T) {
	start := now.Add(-time.Hour)
	end := now.Add(48 * time.Hour)
	product := domain.Product{ID: 7, Sku: "CAF-001", Name: "Cafe", Price: 100, Stock: 3}
	promotions := []domain.Promotion{
		{ID: 1, ProductId: 7, Type: domain.PromotionPercent, Value: 25, Status: "enabled", StartAt: &start, EndAt: &end},
	}

	data := BuildProductData(product, "", "MXN", promotions, now)
	assert.Equal(t, int64(10000), data.Price)
	assert.Equal(t, int64(7500), data.SalePrice)
	assert.Equal(t, start.Format(time.RFC3339), data.SalePriceStartDate)
	assert.Equal(t, end.Format(time.RFC3339), data.SalePriceEndDate)
}

func TestBuildProductDataExpiredPromotionIgnored(t *testing.T) {
	past := now.Add(-time.Hour)
	product := domain.Product{ID: 7, Name: "Cafe", Price: 100, Stock: 3}
	promotions := []domain.Promotion{
		{ID: 1, ProductId: 7, Type: domain.PromotionPercent, Value: 25, Status: "enabled", EndAt: &past},
	}

	data := BuildProductData(product, "", "MXN", promotions, now)
	assert.Zero(t, data.SalePrice)
	assert.Empty(t, data.SalePriceEndDate)
}
