// Package metrics records service counters (http requests, sales) into
// an embedded tstorage time-series partition under the workdir.
package metrics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/nakabonne/tstorage"
)

const (
	MetricHTTPRequest = "http_request"
	MetricSaleCount   = "sale_count"
	MetricSaleAmount  = "sale_amount"
	MetricWebhookMsg  = "webhook_message"
	MetricCatalogSync = "catalog_sync"
)

var (
	storage tstorage.Storage
	mux     sync.RWMutex
)

// InitMetrics opens the metrics partition under workdir/data/metrics.
func InitMetrics(workdir string) error {
	s, err := tstorage.NewStorage(
		tstorage.WithDataPath(filepath.Join(workdir, "data", "metrics")),
		tstorage.WithTimestampPrecision(tstorage.Seconds),
		tstorage.WithPartitionDuration(24*time.Hour),
	)
	if err != nil {
		return err
	}
	mux.Lock()
	storage = s
	mux.Unlock()
	return nil
}

// Record appends one sample to the named metric. Safe to call before
// InitMetrics; samples are dropped until the storage is open.
func Record(metric string, value float64) {
	mux.RLock()
	s := storage
	mux.RUnlock()
	if s == nil {
		return
	}
	_ = s.InsertRows([]tstorage.Row{
		{
			Metric:    metric,
			DataPoint: tstorage.DataPoint{Timestamp: time.Now().Unix(), Value: value},
		},
	})
}

// Query returns the datapoints of metric between start and end (unix seconds).
func Query(metric string, start, end int64) ([]*tstorage.DataPoint, error) {
	mux.RLock()
	s := storage
	mux.RUnlock()
	if s == nil {
		return nil, nil
	}
	points, err := s.Select(metric, nil, start, end)
	if err != nil {
		if err == tstorage.ErrNoDataPoints {
			return nil, nil
		}
		return nil, err
	}
	return points, nil
}

// Close flushes and closes the metrics storage.
func Close() error {
	mux.Lock()
	defer mux.Unlock()
	if storage == nil {
		return nil
	}
	err := storage.Close()
	storage = nil
	return err
}
