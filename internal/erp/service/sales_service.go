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

// SalesService 销售订单管理
type SalesService struct {
	repo     SalesStore
	settings *SettingsService
	alloc    *AllocationService
	logger   *zap.Logger
}

func NewSalesService(repo SalesStore, settings *SettingsService, alloc *AllocationService, logger *zap.Logger) *SalesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesService{repo: repo, settings: settings, alloc: alloc, logger: logger}
}

type CreateSORequest struct {
	CustomerID string         `json:"customer_id"`
	Currency   string         `json:"currency"`
	Notes      string         `json:"notes"`
	Lines      []CreateSOLine `json:"lines" binding:"required,min=1,dive"`
}

type CreateSOLine struct {
	ProductID   string  `json:"product_id" binding:"required"`
	ProductCode string  `json:"product_code"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
}

// CreateSO 创建销售订单
func (s *SalesService) CreateSO(ctx context.Context, orgID string, req CreateSORequest, userID string) (*entity.SalesOrder, error) {
	now := time.Now()
	code := fmt.Sprintf("SO-%s%04d", now.Format("20060102"), now.UnixNano()%10000)
	currency := req.Currency
	if currency == "" {
		currency = "PLN"
	}

	so := &entity.SalesOrder{
		ID:         uuid.New().String(),
		OrgID:      orgID,
		SOCode:     code,
		CustomerID: req.CustomerID,
		Status:     entity.SOStatusPending,
		Currency:   currency,
		OrderDate:  &now,
		Notes:      req.Notes,
		CreatedBy:  userID,
	}
	for _, l := range req.Lines {
		unit := l.Unit
		if unit == "" {
			unit = "pcs"
		}
		so.Lines = append(so.Lines, entity.SOLine{
			ID:              uuid.New().String(),
			SOID:            so.ID,
			ProductID:       l.ProductID,
			ProductCode:     l.ProductCode,
			ProductName:     l.ProductName,
			QuantityOrdered: l.Quantity,
			Unit:            unit,
			UnitPrice:       l.UnitPrice,
		})
	}

	if err := s.repo.CreateSO(ctx, so); err != nil {
		return nil, fmt.Errorf("创建销售订单失败: %w", err)
	}
	return so, nil
}

// GetSO 读取订单（带明细行）
func (s *SalesService) GetSO(ctx context.Context, orgID, id string) (*entity.SalesOrder, error) {
	so, err := s.repo.GetSOByID(ctx, orgID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.NotFound("sales order"), err)
		}
		return nil, fmt.Errorf("读取销售订单失败: %w", err)
	}
	return so, nil
}

func (s *SalesService) ListSOs(ctx context.Context, params SOListParams) ([]entity.SalesOrder, int64, error) {
	return s.repo.ListSOs(ctx, params)
}

// ConfirmSO 确认订单；组织开启 auto_allocate_on_confirm 时在同一请求内自动分配
func (s *SalesService) ConfirmSO(ctx context.Context, orgID, id, userID string) (*entity.SalesOrder, *AllocationResult, error) {
	so, err := s.GetSO(ctx, orgID, id)
	if err != nil {
		return nil, nil, err
	}
	if so.Status != entity.SOStatusPending {
		return nil, nil, apperr.InvalidStatus(fmt.Sprintf("sales order status %s does not allow confirmation", so.Status))
	}
	so.Status = entity.SOStatusConfirmed
	if err := s.repo.UpdateSOStatus(ctx, orgID, id, entity.SOStatusConfirmed); err != nil {
		return nil, nil, fmt.Errorf("确认销售订单失败: %w", err)
	}

	autoAllocate, err := s.settings.AutoAllocateOnConfirm(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	if !autoAllocate {
		return so, nil, nil
	}

	org, err := s.settings.OrgContext(ctx, orgID)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.alloc.AllocateSalesOrder(ctx, org, id, AllocateRequest{}, userID)
	if err != nil {
		// 确认已生效，自动分配失败不回滚确认，由调用方手动重试
		s.logger.Warn("auto allocation on confirm failed", zap.String("so_id", id), zap.Error(err))
		return so, nil, nil
	}
	so.Status = result.Status.NewStatus
	return so, result, nil
}
