package domain

import "time"

// Catalog module related models

// Product storefront catalog item
type Product struct {
	ID          int64     `json:"id,string" form:"id"`                   // Primary key ID
	CategoryId  int64     `json:"category_id,string" form:"category_id"` // Category ID
	Sku         string    `json:"sku" form:"sku"`                        // Stock keeping unit
	Barcode     string    `json:"barcode" form:"barcode"`                // Optional EAN/UPC barcode
	Name        string    `json:"name" form:"name"`                      // Display name
	Description string    `json:"description" form:"description"`        // Long description
	Price       float64   `json:"price" form:"price"`                    // Unit price in main currency units
	Stock       int       `json:"stock" form:"stock"`                    // Units on hand
	StockMin    int       `json:"stock_min" form:"stock_min"`            // Low stock alert threshold
	ImageUrl    string    `json:"image_url" form:"image_url"`            // Primary image URL
	ExtraImages string    `json:"extra_images" form:"extra_images"`      // Comma separated secondary image URLs
	Status      string    `json:"status" form:"status"`                  // enabled/disabled
	Remark      string    `json:"remark" form:"remark"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}

// Category product grouping, also used by the WhatsApp responder menu
type Category struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `json:"name" form:"name"`
	Sort      int       `json:"sort" form:"sort"`
	Status    string    `json:"status" form:"status"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "category"
}
