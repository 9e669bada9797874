package domain

import "time"

// Promotion types. A promotion is a time-bounded discount rule attached
// to exactly one product.
const (
	PromotionPercent = "percent" // price * (1 - value/100)
	PromotionFixed   = "fixed"   // final price = value
	PromotionAmount  = "amount"  // max(0, price - value)
)

// Promotion discount rule for a single product
type Promotion struct {
	ID          int64      `json:"id,string" form:"id"`                  // Primary key ID
	ProductId   int64      `json:"product_id,string" form:"product_id"` // Target product ID
	Type        string     `json:"type" form:"type"`                    // percent/fixed/amount
	Value       float64    `json:"value" form:"value"`                  // Rule value, meaning depends on Type
	Description string     `json:"description" form:"description"`
	StartAt     *time.Time `json:"start_at" form:"start_at"` // Optional validity window start
	EndAt       *time.Time `json:"end_at" form:"end_at"`     // Optional validity window end
	Status      string     `json:"status" form:"status"`     // enabled/disabled
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName Specify table name
func (Promotion) TableName() string {
	return "promotion"
}

// Pack fixed bundle of products sold at one combined price
type Pack struct {
	ID        int64      `json:"id,string" form:"id"`
	Name      string     `json:"name" form:"name"`
	Price     float64    `json:"price" form:"price"` // Bundle price
	ImageUrl  string     `json:"image_url" form:"image_url"`
	StartAt   *time.Time `json:"start_at" form:"start_at"` // Optional validity window
	EndAt     *time.Time `json:"end_at" form:"end_at"`
	Status    string     `json:"status" form:"status"`
	Remark    string     `json:"remark" form:"remark"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Items []PackItem `json:"items" gorm:"foreignKey:PackId"`
}

// TableName Specify table name
func (Pack) TableName() string {
	return "pack"
}

// PackItem one product line inside a pack
type PackItem struct {
	ID        int64 `json:"id,string" form:"id"`
	PackId    int64 `json:"pack_id,string" form:"pack_id" gorm:"index"`
	ProductId int64 `json:"product_id,string" form:"product_id"`
	Quantity  int   `json:"quantity" form:"quantity"`
}

// TableName Specify table name
func (PackItem) TableName() string {
	return "pack_item"
}
