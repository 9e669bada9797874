package alert

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openmercato/mercato/config"
	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/pkg/common"
)

func setup(t *testing.T) (*gorm.DB, *DedupStore) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "alert.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Product{}))

	dedup, err := OpenDedupStore(filepath.Join(t.TempDir(), "dedup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dedup.Close() })
	return db, dedup
}

func TestDedupStoreCycle(t *testing.T) {
	_, dedup := setup(t)

	first, err := dedup.MarkNotified(42)
	require.NoError(t, err)
	assert.True(t, first)

	// second mark in the same cycle is not first
	first, err = dedup.MarkNotified(42)
	require.NoError(t, err)
	assert.False(t, first)
	assert.True(t, dedup.IsNotified(42))

	require.NoError(t, dedup.Clear(42))
	assert.False(t, dedup.IsNotified(42))

	// cleared product re-arms
	first, err = dedup.MarkNotified(42)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestOnStockChangedMarksAndRearms(t *testing.T) {
	db, dedup := setup(t)
	require.NoError(t, db.Create(&domain.Product{
		ID: 1, Name: "Cafe", Stock: 2, StockMin: 3, Status: common.ENABLED,
	}).Error)

	n := NewNotifier(db, dedup, config.SmtpConfig{}, 5)

	n.OnStockChanged(1)
	assert.True(t, dedup.IsNotified(1))

	// restock above threshold clears the mark
	require.NoError(t, db.Model(&domain.Product{}).Where("id = ?", 1).Update("stock", 10).Error)
	n.OnStockChanged(1)
	assert.False(t, dedup.IsNotified(1))
}

func TestFallbackThreshold(t *testing.T) {
	db, dedup := setup(t)
	// no StockMin on the product, fallback of 5 applies
	require.NoError(t, db.Create(&domain.Product{
		ID: 2, Name: "Te", Stock: 4, Status: common.ENABLED,
	}).Error)

	n := NewNotifier(db, dedup, config.SmtpConfig{}, 5)
	n.OnStockChanged(2)
	assert.True(t, dedup.IsNotified(2))
}

func TestLowStockProducts(t *testing.T) {
	db, dedup := setup(t)
	require.NoError(t, db.Create(&[]domain.Product{
		{ID: 1, Name: "A", Stock: 1, StockMin: 3, Status: common.ENABLED},
		{ID: 2, Name: "B", Stock: 50, StockMin: 3, Status: common.ENABLED},
		{ID: 3, Name: "C", Stock: 0, StockMin: 1, Status: "disabled"},
	}).Error)

	n := NewNotifier(db, dedup, config.SmtpConfig{}, 5)
	low, err := n.LowStockProducts()
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, int64(1), low[0].ID)
}

func TestDigestWithoutSmtp(t *testing.T) {
	db, dedup := setup(t)
	require.NoError(t, db.Create(&domain.Product{
		ID: 1, Name: "A", Stock: 1, StockMin: 3, Status: common.ENABLED,
	}).Error)

	n := NewNotifier(db, dedup, config.SmtpConfig{}, 5)
	msg, err := n.Digest(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg, "smtp not configured")
}
