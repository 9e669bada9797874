package checkout

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/pkg/common"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "checkout.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	products := []domain.Product{
		{ID: 1, Name: "Cafe molido", Price: 15, Stock: 10, Status: common.ENABLED},
		{ID: 2, Name: "Azucar", Price: 12.5, Stock: 5, Status: common.ENABLED},
		{ID: 3, Name: "Taza", Price: 100, Stock: 2, Status: common.ENABLED},
	}
	require.NoError(t, db.Create(&products).Error)

	pack := domain.Pack{
		ID: 50, Name: "Desayuno", Price: 20, Status: common.ENABLED,
		Items: []domain.PackItem{
			{ID: 51, PackId: 50, ProductId: 2, Quantity: 2},
		},
	}
	require.NoError(t, db.Create(&pack).Error)
}

func TestCommitHappyPath(t *testing.T) {
	db := setupDB(t)
	seedCatalog(t, db)
	bus := EventBus.New()

	var saleEvents []int64
	var stockEvents []int64
	require.NoError(t, bus.Subscribe(EventSaleCreated, func(id int64) { saleEvents = append(saleEvents, id) }))
	require.NoError(t, bus.Subscribe(EventStockChanged, func(id int64) { stockEvents = append(stockEvents, id) }))

	svc := NewService(db, bus)
	sale, err := svc.Commit(context.Background(), Request{
		CustomerName: "Ana",
		PayMethod:    "cash",
		ClientTotal:  65, // 3*15 + 1*20
		Lines: []LineInput{
			{Kind: domain.SaleLineProduct, ProductId: 1, Quantity: 3},
			{Kind: domain.SaleLinePack, PackId: 50, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 65.0, sale.Total)
	assert.Equal(t, 65.0, sale.Subtotal)
	// pack saves 25 itemized - 20 bundle
	assert.Equal(t, 5.0, sale.Discount)
	assert.NotEmpty(t, sale.SaleNo)

	var details []domain.SaleDetail
	require.NoError(t, db.Where("sale_id = ?", sale.ID).Find(&details).Error)
	require.Len(t, details, 2)

	var p1, p2 domain.Product
	require.NoError(t, db.First(&p1, 1).Error)
	require.NoError(t, db.First(&p2, 2).Error)
	assert.Equal(t, 7, p1.Stock)
	// pack line consumed 2 units of product 2
	assert.Equal(t, 3, p2.Stock)

	assert.Equal(t, []int64{sale.ID}, saleEvents)
	assert.ElementsMatch(t, []int64{1, 2}, stockEvents)
}

func TestCommitAppliesPromotion(t *testing.T) {
	db := setupDB(t)
	seedCatalog(t, db)

	end := time.Now().Add(time.Hour)
	require.NoError(t, db.Create(&domain.Promotion{
		ID: 70, ProductId: 3, Type: domain.PromotionFixed, Value: 75, Status: common.ENABLED, EndAt: &end,
	}).Error)

	svc := NewService(db, nil)
	sale, err := svc.Commit(context.Background(), Request{
		Lines: []LineInput{{Kind: domain.SaleLineProduct, ProductId: 3, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 75.0, sale.Total)
	assert.Equal(t, 25.0, sale.Discount)

	var detail domain.SaleDetail
	require.NoError(t, db.Where("sale_id = ?", sale.ID).First(&detail).Error)
	assert.Equal(t, 75.0, detail.UnitPrice)
	assert.Equal(t, 100.0, detail.ListPrice)
}

func TestCommitInsufficientStockRollsBack(t *testing.T) {
	db := setupDB(t)
	seedCatalog(t, db)

	svc := NewService(db, nil)
	_, err := svc.Commit(context.Background(), Request{
		Lines: []LineInput{
			{Kind: domain.SaleLineProduct, ProductId: 1, Quantity: 3},
			{Kind: domain.SaleLineProduct, ProductId: 3, Quantity: 5}, // only 2 on hand
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// nothing persisted, nothing decremented
	var sales, details int64
	db.Model(&domain.Sale{}).Count(&sales)
	db.Model(&domain.SaleDetail{}).Count(&details)
	assert.Zero(t, sales)
	assert.Zero(t, details)

	var p1 domain.Product
	require.NoError(t, db.First(&p1, 1).Error)
	assert.Equal(t, 10, p1.Stock)
}

func TestCommitTotalMismatchRejected(t *testing.T) {
	db := setupDB(t)
	seedCatalog(t, db)

	svc := NewService(db, nil)
	_, err := svc.Commit(context.Background(), Request{
		ClientTotal: 9.99,
		Lines:       []LineInput{{Kind: domain.SaleLineProduct, ProductId: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrTotalMismatch)
}

func TestCommitPackOutOfStockMember(t *testing.T) {
	db := setupDB(t)
	seedCatalog(t, db)
	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", 2).Update("stock", 0).Error)

	svc := NewService(db, nil)
	_, err := svc.Commit(context.Background(), Request{
		Lines: []LineInput{{Kind: domain.SaleLinePack, PackId: 50, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrPackNotOfferable)
}

func TestQuoteEmptyCart(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)
	_, err := svc.Quote(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyCart)
}
