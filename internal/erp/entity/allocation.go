package entity

import (
	"time"
)

// PickingStrategy 拣货策略
const (
	StrategyFIFO = "FIFO"
	StrategyFEFO = "FEFO"
)

// AuditAction 分配审计动作
const (
	AuditActionAllocate = "allocate"
	AuditActionRelease  = "release"
)

// InventoryAllocation 库存分配记录 - 某批次的一部分数量被承诺给某订单行
// 释放时硬删除，同时恢复批次的 available_qty
type InventoryAllocation struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrgID          string    `json:"org_id" gorm:"type:uuid;not null;index"`
	SOLineID       string    `json:"so_line_id" gorm:"type:uuid;not null;index"`
	LicensePlateID string    `json:"license_plate_id" gorm:"type:uuid;not null;index"`
	Quantity       float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	AllocatedBy    string    `json:"allocated_by" gorm:"size:64;not null"`
	AllocatedAt    time.Time `json:"allocated_at" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`

	SOLine       *SOLine       `json:"so_line,omitempty" gorm:"foreignKey:SOLineID"`
	LicensePlate *LicensePlate `json:"license_plate,omitempty" gorm:"foreignKey:LicensePlateID"`
}

func (InventoryAllocation) TableName() string {
	return "erp_inventory_allocations"
}

// AllocationAudit 分配/释放审计记录
type AllocationAudit struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrgID     string    `json:"org_id" gorm:"type:uuid;not null;index"`
	SOID      string    `json:"so_id" gorm:"type:uuid;not null;index"`
	Action    string    `json:"action" gorm:"size:20;not null"`
	Reason    string    `json:"reason" gorm:"type:text"`
	Quantity  float64   `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	CreatedBy string    `json:"created_by" gorm:"size:64;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (AllocationAudit) TableName() string {
	return "erp_allocation_audits"
}

// BackorderSignal 缺货信号 - 分配后仍未满足的需求，作为结果负载向下游转发，不落表
type BackorderSignal struct {
	SOLineID     string    `json:"so_line_id"`
	ProductID    string    `json:"product_id"`
	ShortfallQty float64   `json:"shortfall_qty"`
	CreatedAt    time.Time `json:"created_at"`
}
