package service

import (
	"context"
	"fmt"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
)

// AvailableLot 候选批次及其分配注解
type AvailableLot struct {
	entity.LicensePlate
	ExpiryDaysRemaining *int   `json:"expiry_days_remaining"`
	IsSuggested         bool   `json:"is_suggested"`
	IsFefoWarning       bool   `json:"is_fefo_warning"`
	Reason              string `json:"reason,omitempty"`
}

// LotPoolService 可分配批次读取（只读）
type LotPoolService struct {
	store AllocationStore
	now   func() time.Time
}

func NewLotPoolService(store AllocationStore) *LotPoolService {
	return &LotPoolService{store: store, now: time.Now}
}

// GetAvailableLots 返回某产品按策略排序的可分配批次
// 排除 status≠available、qa_status≠passed、已过期的批次；无库存返回空列表，不是错误
// FIFO: created_at 升序；FEFO: expiry_date 升序（空过期最后），created_at 次级排序
func (s *LotPoolService) GetAvailableLots(ctx context.Context, org OrgContext, productID, strategy string) ([]AvailableLot, error) {
	now := s.now()
	lots, err := s.store.AvailableLots(ctx, org.OrgID, productID, strategy, now)
	if err != nil {
		return nil, fmt.Errorf("查询可分配批次失败: %w", err)
	}

	result := make([]AvailableLot, 0, len(lots))
	for _, lp := range lots {
		if lp.AvailableQty <= 0 {
			continue
		}
		al := AvailableLot{LicensePlate: lp}
		if days, ok := CalculateExpiryDaysRemaining(lp.ExpiryDate, now); ok {
			d := days
			al.ExpiryDaysRemaining = &d
			al.IsFefoWarning = days < org.FefoWarningDays
		}
		if len(result) == 0 {
			al.IsSuggested = true
			al.Reason = suggestionReason(strategy, lp)
		}
		result = append(result, al)
	}
	return result, nil
}

func suggestionReason(strategy string, lp entity.LicensePlate) string {
	if strategy == entity.StrategyFEFO && lp.ExpiryDate != nil {
		return fmt.Sprintf("FEFO: expires %s", lp.ExpiryDate.Format("2006-01-02"))
	}
	if strategy == entity.StrategyFIFO {
		return "FIFO: oldest inventory"
	}
	return "First available"
}
