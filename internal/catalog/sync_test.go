package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
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

func setupSyncDB(t *testing.T, products int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))

	for i := 1; i <= products; i++ {
		require.NoError(t, db.Create(&domain.Product{
			ID: int64(i), Name: fmt.Sprintf("Producto %d", i), Price: 10, Stock: 3, Status: common.ENABLED,
		}).Error)
	}
	return db
}

func TestSyncAllPushesEveryProduct(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, "{}")
	}))
	defer srv.Close()

	db := setupSyncDB(t, 5)
	syncer := NewSyncer(db, config.CatalogConfig{
		CatalogID:   "cat1",
		AccessToken: "token",
		Currency:    "MXN",
		BaseURL:     srv.URL,
		SyncWorkers: 2,
	})

	// every upsert must have finished by the time the run reports
	msg, err := syncer.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "synced 5 products, 0 failed", msg)
	assert.Equal(t, int64(5), atomic.LoadInt64(&hits))

	var logs int64
	db.Model(&domain.CatalogSyncLog{}).Count(&logs)
	assert.Equal(t, int64(5), logs)
}

func TestSyncAllRecordsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"message":"bad token","code":190}}`)
	}))
	defer srv.Close()

	db := setupSyncDB(t, 2)
	syncer := NewSyncer(db, config.CatalogConfig{
		CatalogID:   "cat1",
		AccessToken: "token",
		BaseURL:     srv.URL,
		SyncWorkers: 2,
	})

	msg, err := syncer.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "synced 0 products, 2 failed", msg)

	var failed int64
	db.Model(&domain.CatalogSyncLog{}).Where("result = ?", "failed").Count(&failed)
	assert.Equal(t, int64(2), failed)
}

func TestSyncAllNotConfigured(t *testing.T) {
	db := setupSyncDB(t, 1)
	syncer := NewSyncer(db, config.CatalogConfig{})
	msg, err := syncer.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "catalog sync not configured", msg)
}
