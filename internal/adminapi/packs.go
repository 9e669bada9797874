package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/pricing"
	"github.com/openmercato/mercato/internal/webserver"
	"github.com/openmercato/mercato/pkg/common"
)

type packItemPayload struct {
	ProductId int64 `json:"product_id,string" validate:"required"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type packPayload struct {
	Name     string            `json:"name" validate:"required,min=1,max=200"`
	Price    float64           `json:"price" validate:"gte=0"`
	ImageUrl string            `json:"image_url" validate:"omitempty,max=1024"`
	StartAt  string            `json:"start_at" validate:"omitempty"`
	EndAt    string            `json:"end_at" validate:"omitempty"`
	Status   string            `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Remark   string            `json:"remark" validate:"omitempty,max=500"`
	Items    []packItemPayload `json:"items" validate:"required,min=1,dive"`
}

func registerPackRoutes() {
	webserver.ApiGET("/crm/packs", listPacks)
	webserver.ApiGET("/crm/packs/:id", getPack)
	webserver.ApiGET("/crm/packs/:id/quote", getPackQuote)
	webserver.ApiPOST("/crm/packs", createPack)
	webserver.ApiPUT("/crm/packs/:id", updatePack)
	webserver.ApiDELETE("/crm/packs/:id", deletePack)
}

func parsePackWindow(startAt, endAt string) (start, end *time.Time, err error) {
	if s := strings.TrimSpace(startAt); s != "" {
		t, perr := dateparse.ParseLocal(s)
		if perr != nil {
			return nil, nil, fmt.Errorf("invalid start_at: %s", s)
		}
		start = &t
	}
	if s := strings.TrimSpace(endAt); s != "" {
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

// checkPackProducts verifies every member product exists.
func checkPackProducts(c echo.Context, items []packItemPayload) error {
	for _, item := range items {
		var count int64
		GetDB(c).Model(&domain.Product{}).Where("id = ?", item.ProductId).Count(&count)
		if count == 0 {
			return fmt.Errorf("product %d does not exist", item.ProductId)
		}
	}
	return nil
}

func listPacks(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Pack{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = searchLike(db, "name", q)
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query packs", err.Error())
	}
	var rows []domain.Pack
	if err := db.Preload("Items").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query packs", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getPack(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid pack ID", nil)
	}
	var pack domain.Pack
	if err := GetDB(c).Preload("Items").Where("id = ?", id).First(&pack).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Pack not found", nil)
	}
	return ok(c, pack)
}

// getPackQuote returns the bundle quote: combined member list price,
// bundle price, savings and whether the pack is currently offerable.
func getPackQuote(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid pack ID", nil)
	}
	var pack domain.Pack
	if err := GetDB(c).Preload("Items").Where("id = ?", id).First(&pack).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Pack not found", nil)
	}

	productIds := make([]int64, 0, len(pack.Items))
	for _, item := range pack.Items {
		productIds = append(productIds, item.ProductId)
	}
	var products []domain.Product
	GetDB(c).Where("id IN ?", productIds).Find(&products)

	resolver := pricing.NewResolver(nil, products, time.Now())
	return ok(c, echo.Map{
		"pack":      pack,
		"quote":     resolver.ResolveBundle(pack),
		"offerable": resolver.Offerable(pack),
	})
}

func createPack(c echo.Context) error {
	var payload packPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse pack", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if err := checkPackProducts(c, payload.Items); err != nil {
		return fail(c, http.StatusBadRequest, "UNKNOWN_PRODUCT", err.Error(), nil)
	}

	start, end, err := parsePackWindow(payload.StartAt, payload.EndAt)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
	}

	now := time.Now()
	pack := domain.Pack{
		ID:        common.UUIDint64(),
		Name:      strings.TrimSpace(payload.Name),
		Price:     payload.Price,
		ImageUrl:  strings.TrimSpace(payload.ImageUrl),
		StartAt:   start,
		EndAt:     end,
		Status:    common.IfEmptyStr(payload.Status, common.ENABLED),
		Remark:    payload.Remark,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, item := range payload.Items {
		pack.Items = append(pack.Items, domain.PackItem{
			ID:        common.UUIDint64(),
			PackId:    pack.ID,
			ProductId: item.ProductId,
			Quantity:  item.Quantity,
		})
	}
	if err := GetDB(c).Create(&pack).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create pack", err.Error())
	}
	addOprLog(c, "create_pack", pack.Name)
	return ok(c, pack)
}

func updatePack(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid pack ID", nil)
	}
	var pack domain.Pack
	if err := GetDB(c).Preload("Items").Where("id = ?", id).First(&pack).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Pack not found", nil)
	}

	var payload packPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse pack", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if err := checkPackProducts(c, payload.Items); err != nil {
		return fail(c, http.StatusBadRequest, "UNKNOWN_PRODUCT", err.Error(), nil)
	}

	start, end, err := parsePackWindow(payload.StartAt, payload.EndAt)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_WINDOW", err.Error(), nil)
	}

	pack.Name = strings.TrimSpace(payload.Name)
	pack.Price = payload.Price
	pack.ImageUrl = strings.TrimSpace(payload.ImageUrl)
	pack.StartAt = start
	pack.EndAt = end
	pack.Status = common.IfEmptyStr(payload.Status, pack.Status)
	pack.Remark = payload.Remark
	pack.UpdatedAt = time.Now()

	// item lines are replaced wholesale
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pack_id = ?", pack.ID).Delete(&domain.PackItem{}).Error; err != nil {
			return err
		}
		items := make([]domain.PackItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, domain.PackItem{
				ID:        common.UUIDint64(),
				PackId:    pack.ID,
				ProductId: item.ProductId,
				Quantity:  item.Quantity,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		pack.Items = items
		return tx.Omit("Items").Save(&pack).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update pack", err.Error())
	}
	addOprLog(c, "update_pack", pack.Name)
	return ok(c, pack)
}

func deletePack(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid pack ID", nil)
	}
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pack_id = ?", id).Delete(&domain.PackItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.Pack{}).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete pack", err.Error())
	}
	addOprLog(c, "delete_pack", fmt.Sprintf("id=%d", id))
	return ok(c, map[string]interface{}{"id": id})
}
