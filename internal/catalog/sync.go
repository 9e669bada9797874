package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guonaihong/gout"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/config"
	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/pkg/common"
	"github.com/openmercato/mercato/pkg/metrics"
)

// Syncer performs per-product upserts against the commerce graph and
// the bulk sync-all loop the scheduler drives.
type Syncer struct {
	db      *gorm.DB
	cfg     config.CatalogConfig
	timeout time.Duration
}

func NewSyncer(db *gorm.DB, cfg config.CatalogConfig) *Syncer {
	return &Syncer{db: db, cfg: cfg, timeout: 15 * time.Second}
}

// Enabled reports whether catalog sync is configured.
func (s *Syncer) Enabled() bool {
	return s.cfg.CatalogID != "" && s.cfg.AccessToken != ""
}

type batchRequest struct {
	Method string      `json:"method"`
	Data   ProductData `json:"data"`
}

type itemsBatch struct {
	ItemType string         `json:"item_type"`
	Requests []batchRequest `json:"requests"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// UpsertProduct pushes one product to the commerce catalog and records
// the outcome in catalog_sync_log.
func (s *Syncer) UpsertProduct(ctx context.Context, product domain.Product) error {
	if !s.Enabled() {
		return errors.New("catalog sync not configured")
	}

	var categoryName string
	if product.CategoryId != 0 {
		var category domain.Category
		if err := s.db.First(&category, product.CategoryId).Error; err == nil {
			categoryName = category.Name
		}
	}

	var promotions []domain.Promotion
	s.db.Where("product_id = ? AND status = ?", product.ID, common.ENABLED).Find(&promotions)

	data := BuildProductData(product, categoryName, s.cfg.Currency, promotions, time.Now())
	err := s.post(ctx, data)

	logRow := domain.CatalogSyncLog{
		ID:        common.UUIDint64(),
		ProductId: product.ID,
		Result:    "ok",
	}
	if err != nil {
		logRow.Result = "failed"
		logRow.Message = err.Error()
	}
	if dbErr := s.db.Create(&logRow).Error; dbErr != nil {
		zap.L().Warn("failed to record catalog sync log", zap.Error(dbErr))
	}
	metrics.Record(metrics.MetricCatalogSync, 1)
	return err
}

func (s *Syncer) post(ctx context.Context, data ProductData) error {
	endpoint := fmt.Sprintf("%s/%s/items_batch", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.CatalogID)
	payload := itemsBatch{
		ItemType: "PRODUCT_ITEM",
		Requests: []batchRequest{{Method: "UPDATE", Data: data}},
	}

	var code int
	var apiErr graphError
	err := gout.POST(endpoint).
		WithContext(ctx).
		SetTimeout(s.timeout).
		SetHeader(gout.H{"Authorization": "Bearer " + s.cfg.AccessToken}).
		SetJSON(payload).
		Code(&code).
		BindJSON(&apiErr).
		Do()
	if err != nil {
		return err
	}
	if code >= 300 {
		return errors.Errorf("graph api status %d: %s", code, apiErr.Error.Message)
	}
	return nil
}

// SyncAll pushes every enabled in-stock product. Upserts run on a small
// worker pool, submissions are spaced by the configured delay so the
// graph rate limit is never hammered, and per-product failures are
// recorded without aborting the run.
func (s *Syncer) SyncAll(ctx context.Context) (string, error) {
	if !s.Enabled() {
		return "catalog sync not configured", nil
	}

	var products []domain.Product
	if err := s.db.Where("status = ? AND stock > 0", common.ENABLED).Find(&products).Error; err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "no in-stock products to sync", nil
	}

	workers := s.cfg.SyncWorkers
	if workers <= 0 {
		workers = 4
	}
	delay := time.Duration(s.cfg.SyncDelayMs) * time.Millisecond

	pool, err := ants.NewPool(workers)
	if err != nil {
		return "", err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var okCount, failCount int64
	for _, product := range products {
		if ctx.Err() != nil {
			break
		}
		p := product
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := s.UpsertProduct(ctx, p); err != nil {
				atomic.AddInt64(&failCount, 1)
				zap.L().Warn("catalog upsert failed",
					zap.Int64("product_id", p.ID), zap.Error(err))
				return
			}
			atomic.AddInt64(&okCount, 1)
		}); err != nil {
			wg.Done()
			atomic.AddInt64(&failCount, 1)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	wg.Wait()

	message := fmt.Sprintf("synced %d products, %d failed", atomic.LoadInt64(&okCount), atomic.LoadInt64(&failCount))
	zap.L().Info("catalog sync completed", zap.String("result", message))
	return message, nil
}
