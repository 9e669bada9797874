package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOpr{},
	&SysOprLog{},
	&StoreScheduler{},
	// Catalog
	&Category{},
	&Product{},
	&Promotion{},
	&Pack{},
	&PackItem{},
	// Sales
	&Customer{},
	&Sale{},
	&SaleDetail{},
	// Messaging
	&WebhookMessage{},
	&CatalogSyncLog{},
}
