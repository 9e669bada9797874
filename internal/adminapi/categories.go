package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
	"github.com/openmercato/mercato/pkg/common"
)

type categoryPayload struct {
	Name   string `json:"name" validate:"required,min=1,max=100"`
	Sort   int    `json:"sort" validate:"gte=0"`
	Status string `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Remark string `json:"remark" validate:"omitempty,max=500"`
}

func registerCategoryRoutes() {
	webserver.ApiGET("/crm/categories", listCategories)
	webserver.ApiPOST("/crm/categories", createCategory)
	webserver.ApiPUT("/crm/categories/:id", updateCategory)
	webserver.ApiDELETE("/crm/categories/:id", deleteCategory)
}

func listCategories(c echo.Context) error {
	db := GetDB(c).Model(&domain.Category{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = searchLike(db, "name", q)
	}
	var rows []domain.Category
	if err := db.Order("sort ASC, name ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	return ok(c, rows)
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	name := strings.TrimSpace(payload.Name)
	var count int64
	GetDB(c).Model(&domain.Category{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "DUPLICATE_NAME", "Category name already exists", nil)
	}

	now := time.Now()
	category := domain.Category{
		ID:        common.UUIDint64(),
		Name:      name,
		Sort:      payload.Sort,
		Status:    common.IfEmptyStr(payload.Status, common.ENABLED),
		Remark:    payload.Remark,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := GetDB(c).Create(&category).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}
	addOprLog(c, "create_category", category.Name)
	return ok(c, category)
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var category domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&category).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Category not found", nil)
	}

	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	category.Name = strings.TrimSpace(payload.Name)
	category.Sort = payload.Sort
	category.Status = common.IfEmptyStr(payload.Status, category.Status)
	category.Remark = payload.Remark
	category.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&category).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", err.Error())
	}
	addOprLog(c, "update_category", category.Name)
	return ok(c, category)
}

func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	// products keep working without a category, they just lose the grouping
	var inUse int64
	GetDB(c).Model(&domain.Product{}).Where("category_id = ?", id).Count(&inUse)
	if inUse > 0 {
		return fail(c, http.StatusConflict, "CATEGORY_IN_USE",
			fmt.Sprintf("Category is assigned to %d products", inUse), nil)
	}

	if err := GetDB(c).Where("id = ?", id).Delete(&domain.Category{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", err.Error())
	}
	addOprLog(c, "delete_category", fmt.Sprintf("id=%d", id))
	return ok(c, map[string]interface{}{"id": id})
}
