package app

import (
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/pkg/common"
)

// ConfigManager reads and writes DB-backed system settings with a small
// read-through cache. Values are stored as strings and converted on read.
type ConfigManager struct {
	app      *Application
	mux      sync.RWMutex
	cache    map[string]string
	cachedAt time.Time
	ttl      time.Duration
}

func NewConfigManager(a *Application) *ConfigManager {
	return &ConfigManager{
		app:   a,
		cache: make(map[string]string),
		ttl:   30 * time.Second,
	}
}

func (m *ConfigManager) load() map[string]string {
	m.mux.RLock()
	if time.Since(m.cachedAt) < m.ttl && len(m.cache) > 0 {
		defer m.mux.RUnlock()
		return m.cache
	}
	m.mux.RUnlock()

	var rows []domain.SysConfig
	if err := m.app.DB().Find(&rows).Error; err != nil {
		zap.L().Error("failed to load sys_config", zap.Error(err))
		return m.cache
	}

	fresh := make(map[string]string, len(rows))
	for _, row := range rows {
		fresh[row.Type+"."+row.Name] = row.Value
	}

	m.mux.Lock()
	m.cache = fresh
	m.cachedAt = time.Now()
	m.mux.Unlock()
	return fresh
}

func (m *ConfigManager) GetString(category, key string) string {
	return m.load()[category+"."+key]
}

func (m *ConfigManager) GetInt64(category, key string) int64 {
	return cast.ToInt64(m.load()[category+"."+key])
}

func (m *ConfigManager) GetBool(category, key string) bool {
	return cast.ToBool(m.load()[category+"."+key])
}

func (m *ConfigManager) GetFloat64(category, key string) float64 {
	return cast.ToFloat64(m.load()[category+"."+key])
}

// Save upserts a flat map of "category.key" -> value settings.
func (m *ConfigManager) Save(settings map[string]interface{}) error {
	var flat map[string]string
	if err := mapstructure.WeakDecode(settings, &flat); err != nil {
		return err
	}

	for key, value := range flat {
		category, name, ok := splitKey(key)
		if !ok {
			continue
		}
		var count int64
		m.app.DB().Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).Count(&count)
		if count == 0 {
			if err := m.app.DB().Create(&domain.SysConfig{
				ID:    common.UUIDint64(),
				Type:  category,
				Name:  name,
				Value: value,
			}).Error; err != nil {
				return err
			}
			continue
		}
		if err := m.app.DB().Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Updates(map[string]interface{}{"value": value, "updated_at": time.Now()}).Error; err != nil {
			return err
		}
	}

	m.mux.Lock()
	m.cachedAt = time.Time{}
	m.mux.Unlock()
	return nil
}

func splitKey(key string) (category, name string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:], i > 0 && i < len(key)-1
		}
	}
	return "", "", false
}
