package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有ERP表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&Warehouse{},
		&WarehouseZone{},
		&WarehouseLocation{},
		&Product{},

		// 库存
		&LicensePlate{},

		// 销售
		&SalesOrder{},
		&SOLine{},

		// 分配
		&InventoryAllocation{},
		&AllocationAudit{},

		// 设置
		&ShippingSettings{},
	)
}
