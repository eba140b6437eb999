package entity

import (
	"time"
)

// Product 产品主数据（分配引擎只关心拣货策略覆盖和保质期配置）
type Product struct {
	ID              string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrgID           string     `json:"org_id" gorm:"type:uuid;not null;index"`
	Code            string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name            string     `json:"name" gorm:"size:128;not null"`
	Unit            string     `json:"unit" gorm:"size:20;not null;default:pcs"`
	PickingStrategy string     `json:"picking_strategy" gorm:"size:10"` // 空=跟随组织默认
	ShelfLifeDays   int        `json:"shelf_life_days" gorm:"default:0"`
	Status          string     `json:"status" gorm:"size:20;not null;default:active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at" gorm:"index"`
}

func (Product) TableName() string {
	return "erp_products"
}
