package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/pricing"
	"github.com/openmercato/mercato/internal/webserver"
	"github.com/openmercato/mercato/pkg/common"
)

type productPayload struct {
	CategoryId  int64   `json:"category_id,string"`
	Sku         string  `json:"sku" validate:"omitempty,max=64"`
	Barcode     string  `json:"barcode" validate:"omitempty,max=64"`
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"omitempty,max=2000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	StockMin    int     `json:"stock_min" validate:"gte=0"`
	ImageUrl    string  `json:"image_url" validate:"omitempty,max=1024"`
	ExtraImages string  `json:"extra_images" validate:"omitempty,max=4096"`
	Status      string  `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Remark      string  `json:"remark" validate:"omitempty,max=500"`
}

// registerProductRoutes registers product CRUD and export endpoints
func registerProductRoutes() {
	webserver.ApiGET("/crm/products", listProducts)
	webserver.ApiGET("/crm/products/export", exportProducts)
	webserver.ApiGET("/crm/products/:id", getProduct)
	webserver.ApiGET("/crm/products/:id/quote", getProductQuote)
	webserver.ApiPOST("/crm/products", createProduct)
	webserver.ApiPUT("/crm/products/:id", updateProduct)
	webserver.ApiDELETE("/crm/products/:id", deleteProduct)
}

var productSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func productQuery(c echo.Context) *gorm.DB {
	db := GetDB(c).Model(&domain.Product{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = searchLike(db, "name", q)
	}
	if barcode := strings.TrimSpace(c.QueryParam("barcode")); barcode != "" {
		db = db.Where("barcode = ?", barcode)
	}
	if categoryId := strings.TrimSpace(c.QueryParam("category_id")); categoryId != "" {
		db = db.Where("category_id = ?", categoryId)
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	return db
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := productQuery(c)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Order(sortColumn(c, productSortColumns, "id")).
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}

// getProductQuote returns the product with its resolved promotion price,
// the one pricing path every display variant derives from.
func getProductQuote(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}

	var promotions []domain.Promotion
	GetDB(c).Where("product_id = ? AND status = ?", p.ID, common.ENABLED).Find(&promotions)
	quote := pricing.Resolve(p, promotions, time.Now())

	return ok(c, echo.Map{"product": p, "quote": quote})
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	stock := 0
	if payload.Stock != nil {
		stock = *payload.Stock
	}
	now := time.Now()
	p := domain.Product{
		ID:          common.UUIDint64(),
		CategoryId:  payload.CategoryId,
		Sku:         strings.TrimSpace(payload.Sku),
		Barcode:     strings.TrimSpace(payload.Barcode),
		Name:        strings.TrimSpace(payload.Name),
		Description: payload.Description,
		Price:       payload.Price,
		Stock:       stock,
		StockMin:    payload.StockMin,
		ImageUrl:    strings.TrimSpace(payload.ImageUrl),
		ExtraImages: strings.TrimSpace(payload.ExtraImages),
		Status:      common.IfEmptyStr(payload.Status, common.ENABLED),
		Remark:      payload.Remark,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := GetDB(c).Create(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	addOprLog(c, "create_product", p.Name)
	return ok(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	p.CategoryId = payload.CategoryId
	p.Sku = strings.TrimSpace(payload.Sku)
	p.Barcode = strings.TrimSpace(payload.Barcode)
	p.Name = strings.TrimSpace(payload.Name)
	p.Description = payload.Description
	p.Price = payload.Price
	if payload.Stock != nil {
		p.Stock = *payload.Stock
	}
	p.StockMin = payload.StockMin
	p.ImageUrl = strings.TrimSpace(payload.ImageUrl)
	p.ExtraImages = strings.TrimSpace(payload.ExtraImages)
	p.Status = common.IfEmptyStr(payload.Status, p.Status)
	p.Remark = payload.Remark
	p.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	addOprLog(c, "update_product", p.Name)
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := GetDB(c).Where("id = ?", id).Delete(&domain.Product{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}
	addOprLog(c, "delete_product", fmt.Sprintf("id=%d", id))
	return ok(c, map[string]interface{}{"id": id})
}

// productExportRow flattens a product for CSV/Excel export.
type productExportRow struct {
	ID       int64   `csv:"id"`
	Sku      string  `csv:"sku"`
	Barcode  string  `csv:"barcode"`
	Name     string  `csv:"name"`
	Price    float64 `csv:"price"`
	Stock    int     `csv:"stock"`
	StockMin int     `csv:"stock_min"`
	Status   string  `csv:"status"`
}

func exportProducts(c echo.Context) error {
	var rows []domain.Product
	if err := productQuery(c).Order("id ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	export := make([]productExportRow, 0, len(rows))
	for _, p := range rows {
		export = append(export, productExportRow{
			ID: p.ID, Sku: p.Sku, Barcode: p.Barcode, Name: p.Name,
			Price: p.Price, Stock: p.Stock, StockMin: p.StockMin, Status: p.Status,
		})
	}

	if c.QueryParam("format") == "xlsx" {
		file := excelize.NewFile()
		sheet := "Products"
		file.SetSheetName("Sheet1", sheet)
		headers := []string{"ID", "SKU", "Barcode", "Name", "Price", "Stock", "StockMin", "Status"}
		for i, h := range headers {
			file.SetCellValue(sheet, fmt.Sprintf("%c1", 'A'+i), h)
		}
		for i, row := range export {
			file.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), row.ID)
			file.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), row.Sku)
			file.SetCellValue(sheet, fmt.Sprintf("C%d", i+2), row.Barcode)
			file.SetCellValue(sheet, fmt.Sprintf("D%d", i+2), row.Name)
			file.SetCellValue(sheet, fmt.Sprintf("E%d", i+2), row.Price)
			file.SetCellValue(sheet, fmt.Sprintf("F%d", i+2), row.Stock)
			file.SetCellValue(sheet, fmt.Sprintf("G%d", i+2), row.StockMin)
			file.SetCellValue(sheet, fmt.Sprintf("H%d", i+2), row.Status)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.xlsx"`)
		c.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Response().WriteHeader(http.StatusOK)
		return file.Write(c.Response())
	}

	data, err := gocsv.MarshalString(&export)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to render csv", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="products.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(data))
}
