package app

import (
	"context"

	"github.com/asaskevich/EventBus"
	"github.com/openmercato/mercato/config"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SettingsProvider provides system settings access
type SettingsProvider interface {
	GetSettingsStringValue(category, key string) string
	GetSettingsInt64Value(category, key string) int64
	GetSettingsBoolValue(category, key string) bool
	SaveSettings(settings map[string]interface{}) error
}

// BusProvider provides the in-process event bus used as the realtime
// change-notification channel between checkout, stock and alerting.
type BusProvider interface {
	Bus() EventBus.Bus
}

// TaskFunc is one scheduler task run. It returns a short human readable
// result message stored on the scheduler row.
type TaskFunc func(ctx context.Context) (string, error)

// TaskRegistry lets other packages contribute scheduler task types
// without import cycles back into app.
type TaskRegistry interface {
	RegisterTask(taskType string, fn TaskFunc)
}

// AppContext combines all provider interfaces for full application context.
// Services should depend on specific providers or this combined interface.
type AppContext interface {
	DBProvider
	ConfigProvider
	SettingsProvider
	BusProvider
	TaskRegistry

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// RunSchedulerNow triggers a scheduler execution immediately by ID
	RunSchedulerNow(id int64) error
}
