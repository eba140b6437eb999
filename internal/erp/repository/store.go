package repository

import (
	"context"
	"errors"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 分配引擎持久化端口的 gorm/postgres 实现
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction 在数据库事务内执行 fn，fn 收到绑定事务连接的 Store
func (s *Store) Transaction(ctx context.Context, fn func(tx service.AllocationStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) GetSalesOrder(ctx context.Context, orgID, soID string) (*entity.SalesOrder, error) {
	var so entity.SalesOrder
	err := s.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ? AND org_id = ? AND deleted_at IS NULL", soID, orgID).
		First(&so).Error
	if err != nil {
		return nil, err
	}
	return &so, nil
}

func (s *Store) UpdateSalesOrderStatus(ctx context.Context, orgID, soID, status string, allocatedAt *time.Time) error {
	return s.db.WithContext(ctx).Model(&entity.SalesOrder{}).
		Where("id = ? AND org_id = ?", soID, orgID).
		Updates(map[string]interface{}{"status": status, "allocated_at": allocatedAt}).Error
}

func (s *Store) UpdateLineAllocation(ctx context.Context, lineID string, quantityAllocated float64, backorder bool) error {
	return s.db.WithContext(ctx).Model(&entity.SOLine{}).
		Where("id = ?", lineID).
		Updates(map[string]interface{}{"quantity_allocated": quantityAllocated, "backorder_flag": backorder}).Error
}

// AvailableLots 按策略排序返回可分配批次
// FIFO: 最早入库优先; FEFO: 最早过期优先，无保质期的批次排最后
func (s *Store) AvailableLots(ctx context.Context, orgID, productID, strategy string, today time.Time) ([]entity.LicensePlate, error) {
	query := s.db.WithContext(ctx).Model(&entity.LicensePlate{}).
		Where("org_id = ? AND product_id = ?", orgID, productID).
		Where("status = ? AND qa_status = ?", entity.LPStatusAvailable, entity.QAStatusPassed).
		Where("available_qty > 0").
		Where("expiry_date IS NULL OR expiry_date >= ?", entity.DayStart(today)).
		Where("deleted_at IS NULL")

	switch strategy {
	case entity.StrategyFEFO:
		query = query.Order("expiry_date ASC NULLS LAST").Order("created_at ASC").Order("id ASC")
	default:
		query = query.Order("created_at ASC").Order("id ASC")
	}

	var lots []entity.LicensePlate
	err := query.Find(&lots).Error
	return lots, err
}

func (s *Store) GetLicensePlate(ctx context.Context, orgID, lpID string) (*entity.LicensePlate, error) {
	var lp entity.LicensePlate
	err := s.db.WithContext(ctx).
		Where("id = ? AND org_id = ? AND deleted_at IS NULL", lpID, orgID).
		First(&lp).Error
	if err != nil {
		return nil, err
	}
	return &lp, nil
}

// ClaimLot 行级锁下扣减批次可用量，返回实际占用量
// SKIP LOCKED: 批次被并发请求持锁时不等待，按占用失败处理（返回0），由上层继续下一批次
func (s *Store) ClaimLot(ctx context.Context, orgID, lpID string, qty float64) (float64, error) {
	var claimed float64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lp entity.LicensePlate
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id = ? AND org_id = ? AND deleted_at IS NULL", lpID, orgID).
			First(&lp).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		claimed = qty
		if lp.AvailableQty < claimed {
			claimed = lp.AvailableQty
		}
		if claimed <= 0 {
			claimed = 0
			return nil
		}
		return tx.Model(&entity.LicensePlate{}).Where("id = ?", lpID).
			UpdateColumn("available_qty", gorm.Expr("available_qty - ?", claimed)).Error
	})
	if err != nil {
		return 0, err
	}
	return claimed, nil
}

// RestoreLot 归还占用量
func (s *Store) RestoreLot(ctx context.Context, orgID, lpID string, qty float64) error {
	return s.db.WithContext(ctx).Model(&entity.LicensePlate{}).
		Where("id = ? AND org_id = ?", lpID, orgID).
		UpdateColumn("available_qty", gorm.Expr("available_qty + ?", qty)).Error
}

func (s *Store) CreateAllocation(ctx context.Context, alloc *entity.InventoryAllocation) error {
	return s.db.WithContext(ctx).Create(alloc).Error
}

func (s *Store) ListOrderAllocations(ctx context.Context, orgID, soID string) ([]entity.InventoryAllocation, error) {
	var allocs []entity.InventoryAllocation
	err := s.db.WithContext(ctx).
		Joins("JOIN erp_so_lines ON erp_so_lines.id = erp_inventory_allocations.so_line_id").
		Where("erp_so_lines.so_id = ? AND erp_inventory_allocations.org_id = ?", soID, orgID).
		Order("erp_inventory_allocations.created_at ASC").
		Find(&allocs).Error
	return allocs, err
}

// DeleteOrderAllocations 释放时硬删除订单的全部分配记录
func (s *Store) DeleteOrderAllocations(ctx context.Context, orgID, soID string) error {
	sub := s.db.Model(&entity.SOLine{}).Select("id").Where("so_id = ?", soID)
	return s.db.WithContext(ctx).
		Where("org_id = ? AND so_line_id IN (?)", orgID, sub).
		Delete(&entity.InventoryAllocation{}).Error
}

func (s *Store) CreateAudit(ctx context.Context, audit *entity.AllocationAudit) error {
	return s.db.WithContext(ctx).Create(audit).Error
}

// GetProductStrategy 返回产品级拣货策略覆盖，产品不存在或未覆盖时为空串
func (s *Store) GetProductStrategy(ctx context.Context, orgID, productID string) (string, error) {
	var p entity.Product
	err := s.db.WithContext(ctx).Select("picking_strategy").
		Where("id = ? AND org_id = ? AND deleted_at IS NULL", productID, orgID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return p.PickingStrategy, nil
}

// GetShippingSettings 组织未配置时返回 nil
func (s *Store) GetShippingSettings(ctx context.Context, orgID string) (*entity.ShippingSettings, error) {
	var settings entity.ShippingSettings
	err := s.db.WithContext(ctx).Where("org_id = ?", orgID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}
