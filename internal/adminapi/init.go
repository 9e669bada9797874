package adminapi

import (
	"github.com/openmercato/mercato/internal/catalog"
	"github.com/openmercato/mercato/internal/checkout"
	"github.com/openmercato/mercato/internal/whatsapp"
)

var (
	checkoutService *checkout.Service
	whatsappService *whatsapp.Service
	catalogSyncer   *catalog.Syncer
)

// Deps carries the service singletons the handlers call into.
type Deps struct {
	Checkout *checkout.Service
	Whatsapp *whatsapp.Service
	Catalog  *catalog.Syncer
}

// Init stores the service dependencies and registers every route group
// on the web server. Call after webserver.Init.
func Init(deps Deps) {
	checkoutService = deps.Checkout
	whatsappService = deps.Whatsapp
	catalogSyncer = deps.Catalog

	registerAuthRoutes()
	registerProductRoutes()
	registerCategoryRoutes()
	registerPromotionRoutes()
	registerPackRoutes()
	registerCustomerRoutes()
	registerSaleRoutes()
	registerStockRoutes()
	registerReportRoutes()
	registerSettingsRoutes()
	registerStatusRoutes()
	registerWhatsappRoutes()
}
