package domain

import "time"

// Sale detail line kinds
const (
	SaleLineProduct = "product"
	SaleLinePack    = "pack"
)

// Sale a completed checkout. Immutable after creation: there is no edit
// or void flow, corrections are new compensating sales.
type Sale struct {
	ID           int64     `json:"id,string" form:"id"`
	SaleNo       string    `json:"sale_no" form:"sale_no" gorm:"uniqueIndex;size:64"` // Human readable receipt number
	OperatorId   int64     `json:"operator_id,string" form:"operator_id"`
	CustomerId   int64     `json:"customer_id,string" form:"customer_id"`
	CustomerName string    `json:"customer_name" form:"customer_name"`
	Subtotal     float64   `json:"subtotal" form:"subtotal"` // Sum of line totals before discount
	Discount     float64   `json:"discount" form:"discount"` // Promotion + pack discount amount
	Total        float64   `json:"total" form:"total"`       // Amount charged
	PayMethod    string    `json:"pay_method" form:"pay_method"`
	Remark       string    `json:"remark" form:"remark"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Details []SaleDetail `json:"details" gorm:"foreignKey:SaleId"`
}

// TableName Specify table name
func (Sale) TableName() string {
	return "sale"
}

// SaleDetail one line of a sale, snapshotting the price charged at sale
// time so later catalog edits never rewrite history.
type SaleDetail struct {
	ID        int64   `json:"id,string" form:"id"`
	SaleId    int64   `json:"sale_id,string" form:"sale_id" gorm:"index"`
	Kind      string  `json:"kind" form:"kind"`                    // product/pack
	ProductId int64   `json:"product_id,string" form:"product_id"` // set when Kind == product
	PackId    int64   `json:"pack_id,string" form:"pack_id"`       // set when Kind == pack
	Name      string  `json:"name" form:"name"`                    // Snapshot of product/pack name
	Quantity  int     `json:"quantity" form:"quantity"`
	UnitPrice float64 `json:"unit_price" form:"unit_price"` // Price charged per unit after promotion
	ListPrice float64 `json:"list_price" form:"list_price"` // Undiscounted unit price
	Total     float64 `json:"total" form:"total"`           // UnitPrice * Quantity
}

// TableName Specify table name
func (SaleDetail) TableName() string {
	return "sale_detail"
}

// Customer storefront customer record
type Customer struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `json:"name" form:"name"`
	Phone     string    `json:"phone" form:"phone" gorm:"index"` // WhatsApp phone in E.164 form
	Email     string    `json:"email" form:"email"`
	Address   string    `json:"address" form:"address"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Customer) TableName() string {
	return "customer"
}
