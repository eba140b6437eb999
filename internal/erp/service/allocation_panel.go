package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/apperr"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"gorm.io/gorm"
)

// PanelLine 分配面板的行数据：当前分配 + 候选批次
type PanelLine struct {
	Line          entity.SOLine                `json:"line"`
	Strategy      string                       `json:"strategy"`
	AvailableLots []AvailableLot               `json:"available_lots"`
	Allocations   []entity.InventoryAllocation `json:"allocations"`
}

// AllocationPanel 订单分配面板数据
type AllocationPanel struct {
	SalesOrderID string            `json:"sales_order_id"`
	SOCode       string            `json:"so_code"`
	Status       string            `json:"status"`
	AllocatedAt  *time.Time        `json:"allocated_at"`
	UndoUntil    *time.Time        `json:"undo_until"`
	UndoOffered  bool              `json:"undo_offered"`
	Lines        []PanelLine       `json:"lines"`
	Summary      AllocationSummary `json:"summary"`
}

// GetAllocationPanel 组装订单的分配视图：各行候选批次、已有分配和汇总
func (s *AllocationService) GetAllocationPanel(ctx context.Context, org OrgContext, soID string) (*AllocationPanel, error) {
	so, err := s.store.GetSalesOrder(ctx, org.OrgID, soID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.NotFound("sales order"), err)
		}
		return nil, fmt.Errorf("读取销售订单失败: %w", err)
	}

	allocs, err := s.store.ListOrderAllocations(ctx, org.OrgID, soID)
	if err != nil {
		return nil, fmt.Errorf("读取分配记录失败: %w", err)
	}
	byLine := make(map[string][]entity.InventoryAllocation)
	for _, a := range allocs {
		byLine[a.SOLineID] = append(byLine[a.SOLineID], a)
	}

	panel := &AllocationPanel{
		SalesOrderID: so.ID,
		SOCode:       so.SOCode,
		Status:       so.Status,
		AllocatedAt:  so.AllocatedAt,
		Summary:      CalculateAllocationSummary(so.Lines),
	}
	if so.AllocatedAt != nil {
		until := so.AllocatedAt.Add(UndoWindow)
		panel.UndoUntil = &until
		panel.UndoOffered = !IsUndoWindowExpired(*so.AllocatedAt, s.now())
	}

	for _, line := range so.Lines {
		strategy, err := s.strategy.GetPickingStrategy(ctx, org.OrgID, line.ProductID)
		if err != nil {
			return nil, err
		}
		lots, err := s.lotPool.GetAvailableLots(ctx, org, line.ProductID, strategy)
		if err != nil {
			return nil, err
		}
		la := byLine[line.ID]
		if la == nil {
			la = []entity.InventoryAllocation{}
		}
		panel.Lines = append(panel.Lines, PanelLine{
			Line:          line,
			Strategy:      strategy,
			AvailableLots: lots,
			Allocations:   la,
		})
	}
	return panel, nil
}
