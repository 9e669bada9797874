package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
	"github.com/openmercato/mercato/internal/whatsapp"
	"github.com/openmercato/mercato/pkg/common"
)

type customerPayload struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"omitempty,max=500"`
	Remark  string `json:"remark" validate:"omitempty,max=500"`
}

func registerCustomerRoutes() {
	webserver.ApiGET("/crm/customers", listCustomers)
	webserver.ApiGET("/crm/customers/:id", getCustomer)
	webserver.ApiGET("/crm/customers/:id/deeplink", getCustomerDeepLink)
	webserver.ApiPOST("/crm/customers", createCustomer)
	webserver.ApiPUT("/crm/customers/:id", updateCustomer)
	webserver.ApiDELETE("/crm/customers/:id", deleteCustomer)
}

var customerSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
}

func listCustomers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Customer{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = searchLike(db, "name", q)
	}
	if phone := strings.TrimSpace(c.QueryParam("phone")); phone != "" {
		db = db.Where("phone = ?", phone)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", err.Error())
	}
	var rows []domain.Customer
	if err := db.Order(sortColumn(c, customerSortColumns, "id")).
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query customers", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getCustomer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}
	var customer domain.Customer
	if err := GetDB(c).Where("id = ?", id).First(&customer).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
	}
	return ok(c, customer)
}

// getCustomerDeepLink builds a wa.me link that opens a chat with the
// customer, optionally pre-filled with ?text=.
func getCustomerDeepLink(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}
	var customer domain.Customer
	if err := GetDB(c).Where("id = ?", id).First(&customer).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
	}
	if strings.TrimSpace(customer.Phone) == "" {
		return fail(c, http.StatusBadRequest, "NO_PHONE", "Customer has no phone number", nil)
	}
	return ok(c, echo.Map{
		"url": whatsapp.DeepLink(customer.Phone, c.QueryParam("text")),
	})
}

func createCustomer(c echo.Context) error {
	var payload customerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse customer", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	now := time.Now()
	customer := domain.Customer{
		ID:        common.UUIDint64(),
		Name:      strings.TrimSpace(payload.Name),
		Phone:     strings.TrimSpace(payload.Phone),
		Email:     strings.TrimSpace(payload.Email),
		Address:   payload.Address,
		Remark:    payload.Remark,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := GetDB(c).Create(&customer).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create customer", err.Error())
	}
	addOprLog(c, "create_customer", customer.Name)
	return ok(c, customer)
}

func updateCustomer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}
	var customer domain.Customer
	if err := GetDB(c).Where("id = ?", id).First(&customer).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
	}

	var payload customerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse customer", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	customer.Name = strings.TrimSpace(payload.Name)
	customer.Phone = strings.TrimSpace(payload.Phone)
	customer.Email = strings.TrimSpace(payload.Email)
	customer.Address = payload.Address
	customer.Remark = payload.Remark
	customer.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&customer).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update customer", err.Error())
	}
	addOprLog(c, "update_customer", customer.Name)
	return ok(c, customer)
}

func deleteCustomer(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid customer ID", nil)
	}
	if err := GetDB(c).Where("id = ?", id).Delete(&domain.Customer{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete customer", err.Error())
	}
	addOprLog(c, "delete_customer", fmt.Sprintf("id=%d", id))
	return ok(c, map[string]interface{}{"id": id})
}
