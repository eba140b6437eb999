package entity

import (
	"time"
)

// LPStatus 库存批次生命周期状态
const (
	LPStatusAvailable = "available"
	LPStatusReserved  = "reserved"
	LPStatusBlocked   = "blocked"
	LPStatusConsumed  = "consumed"
	LPStatusShipped   = "shipped"
)

// QAStatus 质检状态
const (
	QAStatusPassed     = "passed"
	QAStatusPending    = "pending"
	QAStatusFailed     = "failed"
	QAStatusQuarantine = "quarantine"
)

// LicensePlate 库存批次（LP）- 某产品在某库位的一个可追溯数量单元
// 只有 status=available 且 qa_status=passed 的批次才能参与新的分配
type LicensePlate struct {
	ID           string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrgID        string     `json:"org_id" gorm:"type:uuid;not null;index"`
	LPNumber     string     `json:"lp_number" gorm:"size:50;not null;uniqueIndex"`
	ProductID    string     `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity     float64    `json:"quantity" gorm:"type:decimal(12,4);not null;default:0"`
	AvailableQty float64    `json:"available_qty" gorm:"type:decimal(12,4);not null;default:0"`
	Unit         string     `json:"unit" gorm:"size:20;not null;default:pcs"`
	LocationID   string     `json:"location_id" gorm:"type:uuid"`
	WarehouseID  string     `json:"warehouse_id" gorm:"type:uuid;index"`
	BatchNo      string     `json:"batch_no" gorm:"size:50;index"`
	ExpiryDate   *time.Time `json:"expiry_date"`
	QAStatus     string     `json:"qa_status" gorm:"size:20;not null;default:pending"`
	Status       string     `json:"status" gorm:"size:20;not null;default:available"`
	CreatedAt    time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`

	Warehouse *Warehouse         `json:"warehouse,omitempty" gorm:"foreignKey:WarehouseID"`
	Location  *WarehouseLocation `json:"location,omitempty" gorm:"foreignKey:LocationID"`
}

func (LicensePlate) TableName() string {
	return "erp_license_plates"
}

// DayStart 截断到当天零点，保质期按自然日比较
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Allocatable 是否可参与新分配
// 保质期按自然日判断：当天到期的批次当天仍可分配
func (lp *LicensePlate) Allocatable(today time.Time) bool {
	if lp.Status != LPStatusAvailable || lp.QAStatus != QAStatusPassed {
		return false
	}
	if lp.ExpiryDate != nil && lp.ExpiryDate.Before(DayStart(today)) {
		return false
	}
	return lp.AvailableQty > 0
}
