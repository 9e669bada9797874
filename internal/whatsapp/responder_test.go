package whatsapp

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openmercato/mercato/config"
	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/pkg/common"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "wa.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))

	categories := []domain.Category{
		{ID: 1, Name: "Bebidas", Status: common.ENABLED},
		{ID: 2, Name: "Panadería", Status: common.ENABLED},
	}
	require.NoError(t, db.Create(&categories).Error)

	end := time.Now().Add(24 * time.Hour)
	products := []domain.Product{
		{ID: 10, CategoryId: 1, Name: "Cafe Americano", Price: 30, Stock: 8, Status: common.ENABLED},
		{ID: 11, CategoryId: 1, Name: "Te Verde", Price: 25, Stock: 0, Status: common.ENABLED},
		{ID: 12, CategoryId: 2, Name: "Concha", Price: 12, Stock: 20, Status: common.ENABLED},
		{ID: 13, CategoryId: 1, Name: "Café Capuchino", Price: 35, Stock: 5, Status: common.ENABLED},
	}
	require.NoError(t, db.Create(&products).Error)
	require.NoError(t, db.Create(&domain.Promotion{
		ID: 90, ProductId: 12, Type: domain.PromotionPercent, Value: 50, Status: common.ENABLED, EndAt: &end,
	}).Error)
	return db
}

func newResponder(db *gorm.DB) *Responder {
	return NewResponder(db, "Tienda Prueba", "Hola!", 10)
}

func TestReplyCatalogSkipsOutOfStock(t *testing.T) {
	r := newResponder(setupDB(t))
	reply, rule := r.Reply("catalogo")
	assert.Equal(t, RuleCatalog, rule)
	assert.Contains(t, reply, "Cafe Americano")
	assert.Contains(t, reply, "Concha")
	assert.NotContains(t, reply, "Te Verde")
}

func TestReplyPromotionsShowsDiscountedPrice(t *testing.T) {
	r := newResponder(setupDB(t))
	reply, rule := r.Reply("promociones")
	assert.Equal(t, RulePromotions, rule)
	assert.Contains(t, reply, "Concha")
	// both original and final price shown
	assert.Contains(t, reply, "12")
	assert.Contains(t, reply, "6")
	assert.NotContains(t, reply, "Cafe Americano")
}

func TestReplyCategoriesAndCategoryName(t *testing.T) {
	r := newResponder(setupDB(t))

	reply, rule := r.Reply("categorias")
	assert.Equal(t, RuleCategories, rule)
	assert.Contains(t, reply, "Bebidas")
	assert.Contains(t, reply, "Panadería")

	// accent-insensitive category match
	reply, rule = r.Reply("panaderia")
	assert.Equal(t, RuleCategory, rule)
	assert.Contains(t, reply, "Concha")
}

func TestReplyFallbackSearch(t *testing.T) {
	r := newResponder(setupDB(t))

	reply, rule := r.Reply("americano")
	assert.Equal(t, RuleSearch, rule)
	assert.Contains(t, reply, "Cafe Americano")

	// nothing matches, help fallback
	_, rule = r.Reply("xyzzy no existe")
	assert.Equal(t, RuleFallback, rule)
}

func TestReplySearchAccentInsensitive(t *testing.T) {
	r := newResponder(setupDB(t))

	// unaccented query finds the accented stored name
	reply, rule := r.Reply("capuchino")
	assert.Equal(t, RuleSearch, rule)
	assert.Contains(t, reply, "Café Capuchino")

	// accented query matches both accented and unaccented names
	reply, rule = r.Reply("café")
	assert.Equal(t, RuleSearch, rule)
	assert.Contains(t, reply, "Café Capuchino")
	assert.Contains(t, reply, "Cafe Americano")
}

func TestReplyHelp(t *testing.T) {
	r := newResponder(setupDB(t))
	reply, rule := r.Reply("ayuda")
	assert.Equal(t, RuleHelp, rule)
	assert.Contains(t, reply, "catalogo")
	assert.Contains(t, reply, "promociones")
}

func TestVerifyHandler(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, config.WhatsappConfig{VerifyToken: "secreto"}, newResponder(db))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=secreto&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, svc.VerifyHandler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	// wrong token is rejected without echoing the challenge
	req = httptest.NewRequest(http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=otro&hub.challenge=12345", nil)
	rec = httptest.NewRecorder()
	require.NoError(t, svc.VerifyHandler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReceiveHandlerDedup(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, config.WhatsappConfig{}, newResponder(db))
	e := echo.New()

	payload := `{"entry":[{"changes":[{"value":{"messages":[{"id":"wamid.1","from":"5215550001111","type":"text","text":{"body":"catalogo"}}]}}]}]}`

	deliver := func() {
		req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		require.NoError(t, svc.ReceiveHandler(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	deliver()
	deliver() // redelivery of the same message id

	var count int64
	db.Model(&domain.WebhookMessage{}).Count(&count)
	assert.Equal(t, int64(1), count)

	var logged domain.WebhookMessage
	require.NoError(t, db.First(&logged).Error)
	assert.Equal(t, RuleCatalog, logged.Matched)
	assert.Equal(t, "5215550001111", logged.From)
}

func TestDeepLink(t *testing.T) {
	link := DeepLink("+52 1 555 000 1111", "Hola, me interesa el catálogo")
	assert.True(t, strings.HasPrefix(link, "https://wa.me/5215550001111?text="))
	assert.NotContains(t, link, " ")

	assert.Equal(t, "https://wa.me/5215550001111", DeepLink("5215550001111", ""))
}
