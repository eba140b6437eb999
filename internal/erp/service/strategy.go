package service

import (
	"context"
	"fmt"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
)

// StrategyService 拣货策略解析
type StrategyService struct {
	store AllocationStore
}

func NewStrategyService(store AllocationStore) *StrategyService {
	return &StrategyService{store: store}
}

// GetPickingStrategy 解析生效策略：产品级覆盖 > 组织默认 > FIFO
func (s *StrategyService) GetPickingStrategy(ctx context.Context, orgID, productID string) (string, error) {
	strategy, err := s.store.GetProductStrategy(ctx, orgID, productID)
	if err != nil {
		return "", fmt.Errorf("读取产品策略失败: %w", err)
	}
	if strategy == entity.StrategyFIFO || strategy == entity.StrategyFEFO {
		return strategy, nil
	}

	settings, err := s.store.GetShippingSettings(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("读取发货设置失败: %w", err)
	}
	if settings != nil {
		if d := settings.DefaultPickingStrategy; d == entity.StrategyFIFO || d == entity.StrategyFEFO {
			return d, nil
		}
	}
	return entity.StrategyFIFO, nil
}
