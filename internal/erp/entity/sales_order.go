package entity

import (
	"time"
)

// SalesOrderStatus 销售订单状态
const (
	SOStatusPending   = "pending"
	SOStatusConfirmed = "confirmed"
	SOStatusAllocated = "allocated"
	SOStatusOnHold    = "on_hold"
	SOStatusPicking   = "picking"
	SOStatusShipped   = "shipped"
	SOStatusCompleted = "completed"
	SOStatusCancelled = "cancelled"
)

// SalesOrder 销售订单
// allocated_at 记录最近一次分配完成时间，用于计算撤销窗口
type SalesOrder struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrgID       string     `json:"org_id" gorm:"type:uuid;not null;index"`
	SOCode      string     `json:"so_code" gorm:"size:50;not null;uniqueIndex"`
	CustomerID  string     `json:"customer_id" gorm:"type:uuid;index"`
	Status      string     `json:"status" gorm:"size:20;not null;default:pending"`
	Currency    string     `json:"currency" gorm:"size:10;not null;default:PLN"`
	OrderDate   *time.Time `json:"order_date"`
	AllocatedAt *time.Time `json:"allocated_at"`
	Notes       string     `json:"notes" gorm:"type:text"`
	CreatedBy   string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	Lines []SOLine `json:"lines,omitempty" gorm:"foreignKey:SOID"`
}

func (SalesOrder) TableName() string {
	return "erp_sales_orders"
}

// SOLine 销售订单明细行
// 不变式: 0 <= quantity_allocated <= quantity_ordered
type SOLine struct {
	ID                string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	SOID              string    `json:"so_id" gorm:"type:uuid;not null;index"`
	ProductID         string    `json:"product_id" gorm:"type:uuid;not null"`
	ProductCode       string    `json:"product_code" gorm:"size:64"`
	ProductName       string    `json:"product_name" gorm:"size:128"`
	QuantityOrdered   float64   `json:"quantity_ordered" gorm:"type:decimal(12,4);not null"`
	QuantityAllocated float64   `json:"quantity_allocated" gorm:"type:decimal(12,4);not null;default:0"`
	Unit              string    `json:"unit" gorm:"size:20;not null;default:pcs"`
	UnitPrice         float64   `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	BackorderFlag     bool      `json:"backorder_flag" gorm:"not null;default:false"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	SalesOrder *SalesOrder `json:"sales_order,omitempty" gorm:"foreignKey:SOID"`
}

func (SOLine) TableName() string {
	return "erp_so_lines"
}
