package domain

import "time"

// System module related models

// SysConfig system config
type SysConfig struct {
	ID        int64     `json:"id,string" form:"id"`
	Sort      int       `json:"sort" form:"sort"`
	Type      string    `json:"type" form:"type"` // Config category
	Name      string    `json:"name" form:"name"`
	Value     string    `json:"value" form:"value"`
	Remark    string    `json:"remark" form:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysConfig) TableName() string {
	return "sys_config"
}

// SysOpr back-office operator account
type SysOpr struct {
	ID        int64     `json:"id,string" form:"id"`
	Realname  string    `json:"realname" form:"realname"`
	Mobile    string    `json:"mobile" form:"mobile"`
	Email     string    `json:"email" form:"email"`
	Username  string    `json:"username" form:"username" gorm:"uniqueIndex;size:64"`
	Password  string    `json:"-" form:"password"` // bcrypt hash, never serialized
	Level     string    `json:"level" form:"level"` // super/opr
	Status    string    `json:"status" form:"status"`
	Remark    string    `json:"remark" form:"remark"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (SysOpr) TableName() string {
	return "sys_opr"
}

// SysOprLog operator action audit trail
type SysOprLog struct {
	ID        int64     `json:"id,string" form:"id"`
	OprName   string    `json:"opr_name" form:"opr_name"`
	OprIp     string    `json:"opr_ip" form:"opr_ip"`
	OptAction string    `json:"opt_action" form:"opt_action"`
	OptDesc   string    `json:"opt_desc" form:"opt_desc"`
	OptTime   time.Time `json:"opt_time" form:"opt_time"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}

// StoreScheduler scheduler task data model for managing periodic jobs
type StoreScheduler struct {
	ID          int64     `json:"id,string" form:"id"`
	Name        string    `json:"name" form:"name"`
	TaskType    string    `json:"task_type" form:"task_type"` // catalog_sync, promotion_expiry, low_stock_digest
	Interval    int       `json:"interval" form:"interval"`   // Interval in seconds
	Status      string    `json:"status" form:"status"`
	LastRunAt   time.Time `json:"last_run_at"`
	NextRunAt   time.Time `json:"next_run_at"`
	LastResult  string    `json:"last_result" form:"last_result"`
	LastMessage string    `json:"last_message" form:"last_message"`
	Remark      string    `json:"remark" form:"remark"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (StoreScheduler) TableName() string {
	return "store_scheduler"
}

// WebhookMessage processed inbound WhatsApp message, kept for idempotent
// webhook delivery (providers redeliver on slow responses).
type WebhookMessage struct {
	ID        int64     `json:"id,string" form:"id"`
	MessageId string    `json:"message_id" gorm:"uniqueIndex;size:128"` // Provider message id
	From      string    `json:"from"`                                   // Sender phone
	Body      string    `json:"body"`                                   // Inbound text
	Matched   string    `json:"matched"`                                // Responder rule that handled it
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (WebhookMessage) TableName() string {
	return "webhook_message"
}

// CatalogSyncLog result of one per-product commerce catalog upsert
type CatalogSyncLog struct {
	ID        int64     `json:"id,string" form:"id"`
	ProductId int64     `json:"product_id,string" gorm:"index"`
	Result    string    `json:"result"` // ok/failed
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (CatalogSyncLog) TableName() string {
	return "catalog_sync_log"
}
