package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/pkg/common"
)

// Scheduler task types
const (
	TaskCatalogSync     = "catalog_sync"
	TaskPromotionExpiry = "promotion_expiry"
	TaskLowStockDigest  = "low_stock_digest"
)

// StartSchedulerService runs enabled schedulers periodically
func (a *Application) StartSchedulerService(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.runSchedulers(ctx)
			}
		}
	}()
}

// runSchedulers executes enabled schedulers whose next run time has passed
func (a *Application) runSchedulers(ctx context.Context) {
	var schedulers []domain.StoreScheduler
	a.gormDB.Where("status = ?", common.ENABLED).Find(&schedulers)
	now := time.Now()
	for _, sched := range schedulers {
		if sched.NextRunAt.IsZero() || now.After(sched.NextRunAt) || now.Equal(sched.NextRunAt) {
			a.runScheduler(ctx, &sched)
			a.gormDB.Model(&domain.StoreScheduler{}).Where("id = ?", sched.ID).
				Update("next_run_at", now.Add(time.Duration(sched.Interval)*time.Second))
		}
	}
}

func (a *Application) runScheduler(ctx context.Context, sched *domain.StoreScheduler) {
	var message string
	var err error

	switch sched.TaskType {
	case TaskPromotionExpiry:
		message, err = a.runPromotionExpiry()
	default:
		fn, ok := a.taskFor(sched.TaskType)
		if !ok {
			zap.L().Warn("no task registered for scheduler",
				zap.String("task_type", sched.TaskType), zap.Int64("scheduler_id", sched.ID))
			return
		}
		message, err = fn(ctx)
	}

	result := "success"
	if err != nil {
		result = "failed"
		message = err.Error()
		zap.L().Error("scheduler task failed",
			zap.String("task_type", sched.TaskType), zap.Error(err))
	} else {
		zap.L().Info("scheduler task completed",
			zap.String("task_type", sched.TaskType), zap.String("message", message))
	}

	a.gormDB.Model(&domain.StoreScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at":  time.Now(),
		"last_result":  result,
		"last_message": message,
	})
}

// runPromotionExpiry disables promotions whose end date has passed, so
// an expired rule can never be picked up again by any pricing query.
func (a *Application) runPromotionExpiry() (string, error) {
	res := a.gormDB.Model(&domain.Promotion{}).
		Where("status = ? AND end_at IS NOT NULL AND end_at < ?", common.ENABLED, time.Now()).
		Update("status", common.DISABLED)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		zap.L().Info("expired promotions disabled", zap.Int64("count", res.RowsAffected))
	}
	return "expired promotions disabled", nil
}

// RunSchedulerNow triggers a scheduler execution immediately by ID
func (a *Application) RunSchedulerNow(id int64) error {
	var sched domain.StoreScheduler
	if err := a.gormDB.First(&sched, id).Error; err != nil {
		return err
	}

	a.runScheduler(context.Background(), &sched)

	now := time.Now()
	a.gormDB.Model(&domain.StoreScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at": now,
		"next_run_at": now.Add(time.Duration(sched.Interval) * time.Second),
	})
	return nil
}
