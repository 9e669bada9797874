package adminapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openmercato/mercato/internal/domain"
	"github.com/openmercato/mercato/internal/webserver"
)

type sendMessagePayload struct {
	Phone string `json:"phone" validate:"required,min=8,max=32"`
	Body  string `json:"body" validate:"required,min=1,max=4000"`
}

func registerWhatsappRoutes() {
	// webhook endpoints stay public, the provider cannot carry a bearer token
	webserver.PubGET("/webhook/whatsapp", whatsappService.VerifyHandler)
	webserver.PubPOST("/webhook/whatsapp", whatsappService.ReceiveHandler)

	webserver.ApiGET("/whatsapp/messages", listWebhookMessages)
	webserver.ApiPOST("/whatsapp/send", sendWhatsappMessage)
	webserver.ApiPOST("/catalog/sync", triggerCatalogSync)
	webserver.ApiGET("/catalog/logs", listCatalogLogs)
}

func listWebhookMessages(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.WebhookMessage{})
	if from := strings.TrimSpace(c.QueryParam("from")); from != "" {
		db = db.Where(`"from" = ?`, from)
	}
	if rule := strings.TrimSpace(c.QueryParam("rule")); rule != "" {
		db = db.Where("matched = ?", rule)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query messages", err.Error())
	}
	var rows []domain.WebhookMessage
	if err := db.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query messages", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

// sendWhatsappMessage lets an operator push a one-off outbound text.
func sendWhatsappMessage(c echo.Context) error {
	var payload sendMessagePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse message", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	client := whatsappService.Client()
	if !client.Enabled() {
		return fail(c, http.StatusConflict, "SENDER_DISABLED", "Outbound messaging is not configured", nil)
	}
	if err := client.SendText(c.Request().Context(), payload.Phone, payload.Body); err != nil {
		return fail(c, http.StatusBadGateway, "SEND_FAILED", "Message delivery failed", err.Error())
	}
	addOprLog(c, "whatsapp_send", payload.Phone)
	return ok(c, nil)
}

// triggerCatalogSync runs a full commerce catalog push in the background
// and returns immediately.
func triggerCatalogSync(c echo.Context) error {
	if !catalogSyncer.Enabled() {
		return fail(c, http.StatusConflict, "SYNC_DISABLED", "Catalog sync is not configured", nil)
	}
	go func() {
		// detached from the request context, the sync outlives the response
		_, _ = catalogSyncer.SyncAll(context.Background())
	}()
	addOprLog(c, "catalog_sync", "manual trigger")
	return ok(c, echo.Map{"started": true})
}

func listCatalogLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.CatalogSyncLog{})
	if productId := strings.TrimSpace(c.QueryParam("product_id")); productId != "" {
		db = db.Where("product_id = ?", productId)
	}
	if result := strings.TrimSpace(c.QueryParam("result")); result != "" {
		db = db.Where("result = ?", result)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sync logs", err.Error())
	}
	var rows []domain.CatalogSyncLog
	if err := db.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sync logs", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}
