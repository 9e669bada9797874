package adminapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/internal/checkout"
	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
)

type stockAdjustPayload struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

func registerStockRoutes() {
	webserver.ApiGET("/crm/stock/low", listLowStock)
	webserver.ApiPOST("/crm/stock/:id/adjust", adjustStock)
}

// listLowStock returns products at or below their alert threshold.
func listLowStock(c echo.Context) error {
	threshold := GetApp(c).GetSettingsInt64Value("stock", "low_threshold")
	if threshold <= 0 {
		threshold = 5
	}
	var rows []domain.Product
	err := GetDB(c).
		Where("status = ?", "enabled").
		Where("(stock_min > 0 AND stock <= stock_min) OR (stock_min = 0 AND stock <= ?)", threshold).
		Order("stock ASC").
		Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query stock", err.Error())
	}
	return ok(c, rows)
}

// adjustStock applies a relative stock correction (recount, spoilage,
// restock). Negative adjustments carry the same floor guard as checkout,
// and the stock.changed event re-arms or fires the low stock alert.
func adjustStock(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload stockAdjustPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse adjustment", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var product domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&product).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}

	query := GetDB(c).Model(&domain.Product{}).Where("id = ?", id)
	if payload.Delta < 0 {
		query = query.Where("stock >= ?", -payload.Delta)
	}
	res := query.Updates(map[string]interface{}{
		"stock":      gorm.Expr("stock + ?", payload.Delta),
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to adjust stock", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", "Adjustment would take stock below zero", nil)
	}

	GetApp(c).Bus().Publish(checkout.EventStockChanged, id)
	addOprLog(c, "adjust_stock", fmt.Sprintf("product=%d delta=%+d %s", id, payload.Delta, payload.Reason))

	GetDB(c).Where("id = ?", id).First(&product)
	return ok(c, product)
}
