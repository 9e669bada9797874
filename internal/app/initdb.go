package app

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/pkg/common"
)

func (a *Application) checkSuper() {
	const superUsername = "admin"
	const defaultPassword = "mercato"

	hashedPassword, err := common.HashPassword(defaultPassword)
	if err != nil {
		zap.L().Error("failed to hash default password", zap.Error(err))
		return
	}

	var operator domain.SysOpr
	err = a.gormDB.Where("username = ?", superUsername).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Realname:  "administrator",
			Mobile:    "0000",
			Email:     "N/A",
			Username:  superUsername,
			Password:  hashedPassword,
			Level:     "super",
			Status:    common.ENABLED,
			Remark:    "super",
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.Password) == ""
	resetLevel := !strings.EqualFold(operator.Level, "super")
	resetStatus := !strings.EqualFold(operator.Status, common.ENABLED)

	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = hashedPassword
	}
	if resetLevel {
		updates["level"] = "super"
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.SysOpr{}).Where("id = ?", operator.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("username", superUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("levelReset", resetLevel),
		zap.Bool("statusEnabled", resetStatus))
}

// settingSchema one default system setting definition
type settingSchema struct {
	Key         string
	Default     string
	Description string
}

var defaultSettings = []settingSchema{
	{"store.name", "Mercato", "Store display name used in receipts and messages"},
	{"store.currency", "MXN", "ISO currency code for pricing and catalog sync"},
	{"store.phone", "", "Store WhatsApp phone in E.164 form"},
	{"stock.low_threshold", "5", "Fallback low stock threshold when a product defines none"},
	{"checkout.total_tolerance", "0.01", "Max allowed gap between client and server cart totals"},
	{"responder.greeting", "Hola! Escribe *ayuda* para ver las opciones.", "WhatsApp responder greeting line"},
	{"responder.max_results", "10", "Max products listed per responder reply"},
	{"alert.digest_enabled", "false", "Send the daily low stock digest email"},
}

func (a *Application) checkSettings() {
	// Iterate over all configuration definitions, checking and initializing missing entries
	for sortid, schema := range defaultSettings {
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid config key format", zap.String("key", schema.Key))
			continue
		}

		category := parts[0]
		name := parts[1]

		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)

		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     common.UUIDint64(),
				Sort:   sortid,
				Type:   category,
				Name:   name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", schema.Key),
				zap.String("default", schema.Default))
		}
	}
}

// checkDefaultCategory ensures at least one category exists so products
// created from the admin UI always have a valid target.
func (a *Application) checkDefaultCategory() {
	var count int64
	a.gormDB.Model(&domain.Category{}).Count(&count)
	if count > 0 {
		return
	}
	if err := a.gormDB.Create(&domain.Category{
		ID:     common.UUIDint64(),
		Name:   "General",
		Sort:   0,
		Status: common.ENABLED,
		Remark: "Default category",
	}).Error; err != nil {
		zap.L().Error("failed to create default category", zap.Error(err))
	} else {
		zap.L().Info("initialized default category")
	}
}

// checkSchedulers initializes default scheduled tasks
func (a *Application) checkSchedulers() {
	defaultSchedulers := []domain.StoreScheduler{
		{
			Name:     "Commerce Catalog Sync",
			TaskType: TaskCatalogSync,
			Interval: 3600, // 1 hour
			Status:   common.ENABLED,
			Remark:   "Pushes all in-stock products to the commerce catalog",
		},
		{
			Name:     "Promotion Expiry",
			TaskType: TaskPromotionExpiry,
			Interval: 600, // 10 minutes
			Status:   common.ENABLED,
			Remark:   "Disables promotions whose end date has passed",
		},
		{
			Name:     "Low Stock Digest",
			TaskType: TaskLowStockDigest,
			Interval: 86400, // daily
			Status:   common.DISABLED,
			Remark:   "Emails a digest of products at or below their low stock threshold",
		},
	}

	for _, sched := range defaultSchedulers {
		var count int64
		a.gormDB.Model(&domain.StoreScheduler{}).
			Where("task_type = ?", sched.TaskType).
			Count(&count)

		if count == 0 {
			sched.ID = common.UUIDint64()
			sched.NextRunAt = time.Now().Add(time.Duration(sched.Interval) * time.Second)
			if err := a.gormDB.Create(&sched).Error; err != nil {
				zap.L().Error("failed to create default scheduler",
					zap.String("name", sched.Name),
					zap.Error(err))
			} else {
				zap.L().Info("initialized default scheduler",
					zap.String("name", sched.Name),
					zap.String("task_type", sched.TaskType))
			}
		}
	}
}
