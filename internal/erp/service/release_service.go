package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/apperr"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReleaseService 分配释放/撤销
// 撤销窗口只是建议性的：窗口过期后显式释放仍然可用
type ReleaseService struct {
	store  AllocationStore
	authz  Authorizer
	logger *zap.Logger
	now    func() time.Time
}

func NewReleaseService(store AllocationStore, authz Authorizer, logger *zap.Logger) *ReleaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReleaseService{store: store, authz: authz, logger: logger, now: time.Now}
}

// ReleaseResult 释放结果
type ReleaseResult struct {
	SalesOrderID        string  `json:"sales_order_id"`
	AllocationsReleased int     `json:"allocations_released"`
	InventoryFreed      float64 `json:"inventory_freed"`
	UndoWindowExpired   bool    `json:"undo_window_expired"`
}

// ReleaseAllocation 释放订单的全部分配：删除分配记录、恢复批次可用量、
// 清零各行已分配量和缺货标记、订单回到 confirmed，并写入带原因的审计记录
func (s *ReleaseService) ReleaseAllocation(ctx context.Context, org OrgContext, soID, reason, userID string) (*ReleaseResult, error) {
	ok, err := s.authz.HasAllocationPermission(ctx, userID, org.OrgID)
	if err != nil {
		return nil, fmt.Errorf("授权检查失败: %w", err)
	}
	if !ok {
		return nil, apperr.Forbidden("insufficient permissions for allocation release")
	}

	result := &ReleaseResult{SalesOrderID: soID}

	err = s.store.Transaction(ctx, func(tx AllocationStore) error {
		so, err := tx.GetSalesOrder(ctx, org.OrgID, soID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.NotFound("sales order"), err)
			}
			return fmt.Errorf("读取销售订单失败: %w", err)
		}

		if so.AllocatedAt != nil {
			result.UndoWindowExpired = IsUndoWindowExpired(*so.AllocatedAt, s.now())
		}

		freed, count, err := releaseOrderTx(ctx, tx, so, userID, reason)
		if err != nil {
			return err
		}
		if count == 0 {
			return apperr.InvalidStatus("sales order has no active allocations to release")
		}
		result.InventoryFreed = freed
		result.AllocationsReleased = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("allocation released",
		zap.String("so_id", soID),
		zap.String("reason", reason),
		zap.Float64("inventory_freed", result.InventoryFreed),
	)
	return result, nil
}

// IsUndoWindowExpired 撤销窗口是否已过，边界恰好在5分钟：不超过视为未过期
func IsUndoWindowExpired(allocatedAt, now time.Time) bool {
	return now.Sub(allocatedAt) > UndoWindow
}

// releaseOrderTx 在事务内释放订单的全部分配，供释放与强制重分配共用
// 没有分配记录时返回 count=0 而不报错，由调用方决定语义
func releaseOrderTx(ctx context.Context, tx AllocationStore, so *entity.SalesOrder, userID, reason string) (float64, int, error) {
	allocs, err := tx.ListOrderAllocations(ctx, so.OrgID, so.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("读取分配记录失败: %w", err)
	}
	if len(allocs) == 0 {
		return 0, 0, nil
	}

	var freed float64
	for _, a := range allocs {
		if err := tx.RestoreLot(ctx, so.OrgID, a.LicensePlateID, a.Quantity); err != nil {
			return 0, 0, fmt.Errorf("恢复批次可用量失败: %w", err)
		}
		freed += a.Quantity
	}
	if err := tx.DeleteOrderAllocations(ctx, so.OrgID, so.ID); err != nil {
		return 0, 0, fmt.Errorf("删除分配记录失败: %w", err)
	}
	for i := range so.Lines {
		if err := tx.UpdateLineAllocation(ctx, so.Lines[i].ID, 0, false); err != nil {
			return 0, 0, fmt.Errorf("清零订单行失败: %w", err)
		}
	}
	if err := tx.UpdateSalesOrderStatus(ctx, so.OrgID, so.ID, entity.SOStatusConfirmed, nil); err != nil {
		return 0, 0, fmt.Errorf("重置订单状态失败: %w", err)
	}
	if err := tx.CreateAudit(ctx, &entity.AllocationAudit{
		ID:        uuid.New().String(),
		OrgID:     so.OrgID,
		SOID:      so.ID,
		Action:    entity.AuditActionRelease,
		Reason:    reason,
		Quantity:  freed,
		CreatedBy: userID,
		CreatedAt: time.Now(),
	}); err != nil {
		return 0, 0, fmt.Errorf("写入审计记录失败: %w", err)
	}
	return freed, len(allocs), nil
}
