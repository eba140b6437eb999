package entity

import (
	"time"
)

// 发货设置默认值（组织未配置时生效）
const (
	DefaultAllocationThresholdPct = 80.0
	DefaultPickingStrategy        = StrategyFIFO
	DefaultFefoWarningDays        = 7
)

// ShippingSettings 组织级发货设置
type ShippingSettings struct {
	ID                     string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrgID                  string    `json:"org_id" gorm:"type:uuid;not null;uniqueIndex"`
	AllocationThresholdPct float64   `json:"allocation_threshold_pct" gorm:"type:decimal(5,2);not null;default:80"`
	DefaultPickingStrategy string    `json:"default_picking_strategy" gorm:"size:10;not null;default:FIFO"`
	FefoWarningDays        int       `json:"fefo_warning_days" gorm:"not null;default:7"`
	AutoAllocateOnConfirm  bool      `json:"auto_allocate_on_confirm" gorm:"not null;default:false"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (ShippingSettings) TableName() string {
	return "erp_shipping_settings"
}

// DefaultShippingSettings 组织未配置时的回退设置
func DefaultShippingSettings(orgID string) *ShippingSettings {
	return &ShippingSettings{
		OrgID:                  orgID,
		AllocationThresholdPct: DefaultAllocationThresholdPct,
		DefaultPickingStrategy: DefaultPickingStrategy,
		FefoWarningDays:        DefaultFefoWarningDays,
	}
}
