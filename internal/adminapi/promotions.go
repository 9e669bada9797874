package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
	"github.com/openmercato/mercato/pkg/common"
)

type promotionPayload struct {
	ProductId   int64   `json:"product_id,string" validate:"required"`
	Type        string  `json:"type" validate:"required,oneof=percent fixed amount"`
	Value       float64 `json:"value" validate:"gte=0"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	StartAt     string  `json:"start_at" validate:"omitempty"`
	EndAt       string  `json:"end_at" validate:"omitempty"`
	Status      string  `json:"status" validate:"omitempty,oneof=enabled disabled"`
}

func registerPromotionRoutes() {
	webserver.ApiGET("/crm/promotions", listPromotions)
	webserver.ApiGET("/crm/promotions/:id", getPromotion)
	webserver.ApiPOST("/crm/promotions", createPromotion)
	webserver.ApiPUT("/crm/promotions/:id", updatePromotion)
	webserver.ApiDELETE("/crm/promotions/:id", deletePromotion)
}

var promotionSortColumns = map[string]string{
	"id":         "id",
	"product_id": "product_id",
	"start_at":   "start_at",
	"end_at":     "end_at",
	"created_at": "created_at",
}

// parsePromotionWindow accepts any common date layout for the optional
// validity bounds; an empty string keeps the bound open.
func parsePromotionWindow(payload promotionPayload) (start, end *time.Time, err error) {
	if s := strings.TrimSpace(payload.StartAt); s != "" {
		t, perr := dateparse.ParseLocal(s)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid start_at: %s", s)
		}
		start = &t
	}
	if s := strings.TrimSpace(payload.EndAt); s != "" {
		t, perr := dateparse.ParseLocal(s)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid end_at: %s", s)
		}
		end = &t
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("end_at before start_at")
	}
	return start, end, nil
}

func validatePromotionRule(payload promotionPayload) error {
	if payload.Type == domain.PromotionPercent && payload.Value > 100 {
		// >100% still floors at zero during resolution, but reject the
		// obvious data-entry mistake at the door
		return fmt.Errorf("percent value over 100")
	}
	return nil
}

func listPromotions(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Promotion{})
	if productId := strings.TrimSpace(c.QueryParam("product_id")); productId != "" {
		db = db.Where("product_id = ?", productId)
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if c.QueryParam("active") == "true" {
		now := time.Now()
		db = db.Where("status = ?", common.ENABLED).
			Where("start_at IS NULL OR start_at <= ?", now).
			Where("end_at IS NULL OR end_at >= ?", now)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query promotions", err.Error())
	}
	var rows []domain.Promotion
	if err := db.Order(sortColumn(c, promotionSortColumns, "id")).
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query promotions", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getPromotion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid promotion ID", nil)
	}
	var promo domain.Promotion
	if err := GetDB(c).Where("id = ?", id).First(&promo).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Promotion not found", nil)
	}
	return ok(c, promo)
}

func createPromotion(c echo.Context) error {
	var payload promotionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse promotion", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if err := validatePromotionRule(payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_RULE", err.Error(), nil)
	}

	var product domain.Product
	if err := GetDB(c).Where("id = ?", payload.ProductId).First(&product).Error; err != nil {
		return fail(c, http.StatusBadRequest, "UNKNOWN_PRODUCT", "Target product does not exist", nil)
	}

	start, end, err := parsePromotionWindow(payload)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
	}

	now := time.Now()
	promo := domain.Promotion{
		ID:          common.UUIDint64(),
		ProductId:   payload.ProductId,
		Type:        payload.Type,
		Value:       payload.Value,
		Description: payload.Description,
		StartAt:     start,
		EndAt:       end,
		Status:      common.IfEmptyStr(payload.Status, common.ENABLED),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := GetDB(c).Create(&promo).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create promotion", err.Error())
	}
	addOprLog(c, "create_promotion", fmt.Sprintf("%s %s on %s", promo.Type, promotionValueDesc(promo), product.Name))
	return ok(c, promo)
}

func promotionValueDesc(promo domain.Promotion) string {
	if promo.Type == domain.PromotionPercent {
		return fmt.Sprintf("%.0f%%", promo.Value)
	}
	return fmt.Sprintf("%.2f", promo.Value)
}

func updatePromotion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid promotion ID", nil)
	}
	var promo domain.Promotion
	if err := GetDB(c).Where("id = ?", id).First(&promo).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Promotion not found", nil)
	}

	var payload promotionPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse promotion", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if err := validatePromotionRule(payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_RULE", err.Error(), nil)
	}

	start, end, err := parsePromotionWindow(payload)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
	}

	promo.ProductId = payload.ProductId
	promo.Type = payload.Type
	promo.Value = payload.Value
	promo.Description = payload.Description
	promo.StartAt = start
	promo.EndAt = end
	promo.Status = common.IfEmptyStr(payload.Status, promo.Status)
	promo.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&promo).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update promotion", err.Error())
	}
	addOprLog(c, "update_promotion", fmt.Sprintf("id=%d", promo.ID))
	return ok(c, promo)
}

func deletePromotion(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid promotion ID", nil)
	}
	if err := GetDB(c).Where("id = ?", id).Delete(&domain.Promotion{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete promotion", err.Error())
	}
	addOprLog(c, "delete_promotion", fmt.Sprintf("id=%d", id))
	return ok(c, map[string]interface{}{"id": id})
}
