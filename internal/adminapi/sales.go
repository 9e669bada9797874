package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/openmercato/mercato/internal/checkout"
	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
)

func registerSaleRoutes() {
	webserver.ApiGET("/pos/sales", listSales)
	webserver.ApiGET("/pos/sales/:id", getSale)
	webserver.ApiPOST("/pos/quote", quoteCart)
	webserver.ApiPOST("/pos/checkout", commitCheckout)
}

var saleSortColumns = map[string]string{
	"id":         "id",
	"sale_no":    "sale_no",
	"total":      "total",
	"created_at": "created_at",
}

func listSales(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Sale{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = searchLike(db, "sale_no", q)
	}
	if customerId := strings.TrimSpace(c.QueryParam("customer_id")); customerId != "" {
		db = db.Where("customer_id = ?", customerId)
	}
	if from := strings.TrimSpace(c.QueryParam("from")); from != "" {
		db = db.Where("created_at >= ?", from)
	}
	if to := strings.TrimSpace(c.QueryParam("to")); to != "" {
		db = db.Where("created_at <= ?", to)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}
	var rows []domain.Sale
	if err := db.Order(sortColumn(c, saleSortColumns, "created_at")).
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getSale(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid sale ID", nil)
	}
	var sale domain.Sale
	if err := GetDB(c).Preload("Details").Where("id = ?", id).First(&sale).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Sale not found", nil)
	}
	return ok(c, sale)
}

type quotePayload struct {
	Lines []checkout.LineInput `json:"lines" validate:"required,min=1,dive"`
}

// quoteCart prices the cart without committing, so the POS screen can
// show the exact total the commit will charge.
func quoteCart(c echo.Context) error {
	var payload quotePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	result, err := checkoutService.Quote(c.Request().Context(), payload.Lines)
	if err != nil {
		return failCheckout(c, err)
	}
	return ok(c, result)
}

func commitCheckout(c echo.Context) error {
	var req checkout.Request
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse checkout", err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return handleValidationError(c, err)
	}

	sale, err := checkoutService.Commit(c.Request().Context(), req)
	if err != nil {
		return failCheckout(c, err)
	}
	addOprLog(c, "checkout", sale.SaleNo)
	return ok(c, sale)
}

// failCheckout maps checkout sentinel errors onto stable API codes.
func failCheckout(c echo.Context, err error) error {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		return fail(c, http.StatusBadRequest, "EMPTY_CART", "Cart has no lines", nil)
	case errors.Is(err, checkout.ErrBadQuantity):
		return fail(c, http.StatusBadRequest, "BAD_QUANTITY", "Line quantity must be positive", err.Error())
	case errors.Is(err, checkout.ErrProductNotFound):
		return fail(c, http.StatusBadRequest, "PRODUCT_NOT_FOUND", "A cart product is unknown or disabled", err.Error())
	case errors.Is(err, checkout.ErrPackNotOfferable):
		return fail(c, http.StatusConflict, "PACK_NOT_OFFERABLE", "A cart pack is not currently offerable", err.Error())
	case errors.Is(err, checkout.ErrInsufficientStock):
		return fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", "Not enough stock to fulfil the cart", err.Error())
	case errors.Is(err, checkout.ErrTotalMismatch):
		return fail(c, http.StatusConflict, "TOTAL_MISMATCH", "Cart total changed, re-quote and retry", err.Error())
	default:
		return fail(c, http.StatusInternalServerError, "CHECKOUT_ERROR", "Checkout failed", err.Error())
	}
}
