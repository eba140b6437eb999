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

// UndoWindow 分配后提供"快速撤销"入口的时间窗口
const UndoWindow = 5 * time.Minute

// AllocationService 分配执行器 - 对一张销售订单的所有行做事务性分配
type AllocationService struct {
	store    AllocationStore
	strategy *StrategyService
	lotPool  *LotPoolService
	authz    Authorizer
	sink     BackorderSink
	logger   *zap.Logger
	now      func() time.Time
}

func NewAllocationService(store AllocationStore, strategy *StrategyService, lotPool *LotPoolService, authz Authorizer, sink BackorderSink, logger *zap.Logger) *AllocationService {
	if sink == nil {
		sink = NopBackorderSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{
		store:    store,
		strategy: strategy,
		lotPool:  lotPool,
		authz:    authz,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// AllocateRequest 分配请求
// manual_lines 非空时进入手动模式：只认领调用方明确指定的批次
// strategy 非空时覆盖产品/组织默认策略，对本次调用的所有行生效
type AllocateRequest struct {
	Force              bool         `json:"force"`
	HoldIfInsufficient bool         `json:"hold_if_insufficient"`
	Strategy           string       `json:"strategy"`
	ManualLines        []ManualLine `json:"manual_lines"`
}

type ManualLine struct {
	LineID string       `json:"line_id" binding:"required"`
	Picks  []ManualPick `json:"picks" binding:"required,min=1"`
}

type ManualPick struct {
	LicensePlateID string  `json:"license_plate_id" binding:"required"`
	Quantity       float64 `json:"quantity" binding:"required,gt=0"`
}

// allocationMode 分配模式的内部表示：Auto 或 Manual(行->指定批次)
// strategy 非空时覆盖本次调用的策略解析
type allocationMode struct {
	manual   bool
	strategy string
	picks    map[string][]ManualPick
}

// LineResult 单行分配结果
type LineResult struct {
	LineID            string                       `json:"line_id"`
	ProductID         string                       `json:"product_id"`
	QuantityOrdered   float64                      `json:"quantity_ordered"`
	QuantityAllocated float64                      `json:"quantity_allocated"`
	BackorderQty      float64                      `json:"backorder_qty"`
	Strategy          string                       `json:"strategy,omitempty"`
	Allocations       []entity.InventoryAllocation `json:"allocations"`
}

// StatusChange 订单状态变化
type StatusChange struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// AllocationResult 分配调用的完整结果
type AllocationResult struct {
	SalesOrderID string                   `json:"sales_order_id"`
	SOCode       string                   `json:"so_code"`
	AllocatedAt  time.Time                `json:"allocated_at"`
	UndoUntil    time.Time                `json:"undo_until"`
	Lines        []LineResult             `json:"lines"`
	Summary      AllocationSummary        `json:"summary"`
	Status       StatusChange             `json:"status"`
	Backorders   []entity.BackorderSignal `json:"backorders,omitempty"`
	Warnings     []string                 `json:"warnings,omitempty"`
}

// AllocateSalesOrder 为订单分配库存批次
// 事务边界覆盖该调用的全部行分配；中途任何持久化失败整体回滚，由调用方重试
// 已满足的行直接跳过，重复调用只处理剩余缺口（幂等）
func (s *AllocationService) AllocateSalesOrder(ctx context.Context, org OrgContext, soID string, req AllocateRequest, userID string) (*AllocationResult, error) {
	ok, err := s.authz.HasAllocationPermission(ctx, userID, org.OrgID)
	if err != nil {
		return nil, fmt.Errorf("授权检查失败: %w", err)
	}
	if !ok {
		return nil, apperr.Forbidden("insufficient permissions for allocation")
	}

	mode, err := parseMode(req)
	if err != nil {
		return nil, err
	}

	allocatedAt := s.now()
	result := &AllocationResult{
		SalesOrderID: soID,
		AllocatedAt:  allocatedAt,
		UndoUntil:    allocatedAt.Add(UndoWindow),
	}
	var signals []entity.BackorderSignal

	err = s.store.Transaction(ctx, func(tx AllocationStore) error {
		so, err := tx.GetSalesOrder(ctx, org.OrgID, soID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Wrap(apperr.NotFound("sales order"), err)
			}
			return fmt.Errorf("读取销售订单失败: %w", err)
		}

		switch so.Status {
		case entity.SOStatusConfirmed, entity.SOStatusAllocated, entity.SOStatusOnHold:
		default:
			return apperr.InvalidStatus(fmt.Sprintf("sales order status %s does not allow allocation", so.Status))
		}

		if req.Force {
			// 强制重分配：先释放再重新分配，同一事务内完成
			if _, _, err := releaseOrderTx(ctx, tx, so, userID, "force re-allocation"); err != nil {
				return err
			}
			for i := range so.Lines {
				so.Lines[i].QuantityAllocated = 0
				so.Lines[i].BackorderFlag = false
			}
		}

		result.SOCode = so.SOCode
		result.Status.OldStatus = so.Status

		var totalClaimed float64
		for i := range so.Lines {
			line := &so.Lines[i]
			lr, claimed, err := s.allocateLine(ctx, tx, org, line, mode, userID, allocatedAt)
			if err != nil {
				return err
			}
			totalClaimed += claimed
			if lr.BackorderQty > 0 && lr.processed {
				signals = append(signals, entity.BackorderSignal{
					SOLineID:     line.ID,
					ProductID:    line.ProductID,
					ShortfallQty: lr.BackorderQty,
					CreatedAt:    allocatedAt,
				})
			}
			result.Lines = append(result.Lines, lr.LineResult)
		}

		result.Summary = CalculateAllocationSummary(so.Lines)

		newStatus := entity.SOStatusConfirmed
		if result.Summary.FulfillmentPct >= org.ThresholdPct {
			newStatus = entity.SOStatusAllocated
		} else if req.HoldIfInsufficient {
			newStatus = entity.SOStatusOnHold
		}
		if err := tx.UpdateSalesOrderStatus(ctx, org.OrgID, soID, newStatus, &allocatedAt); err != nil {
			return fmt.Errorf("更新订单状态失败: %w", err)
		}
		result.Status.NewStatus = newStatus

		return tx.CreateAudit(ctx, &entity.AllocationAudit{
			ID:        uuid.New().String(),
			OrgID:     org.OrgID,
			SOID:      soID,
			Action:    entity.AuditActionAllocate,
			Quantity:  totalClaimed,
			CreatedBy: userID,
			CreatedAt: allocatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	// 事务提交后再对外发信号，引擎内部不做旁路I/O
	result.Backorders = signals
	for _, sig := range signals {
		if err := s.sink.Publish(ctx, sig); err != nil {
			s.logger.Warn("backorder signal publish failed",
				zap.String("so_line_id", sig.SOLineID), zap.Error(err))
		}
	}

	if result.Summary.FulfillmentPct < 100 {
		result.Warnings = append(result.Warnings, "under-allocated")
	}

	s.logger.Info("sales order allocation completed",
		zap.String("so_id", soID),
		zap.String("status", result.Status.NewStatus),
		zap.Float64("fulfillment_pct", result.Summary.FulfillmentPct),
		zap.Int("backorders", len(signals)),
	)
	return result, nil
}

type lineOutcome struct {
	LineResult
	processed bool
}

// allocateLine 处理一个订单行：确定剩余需求，按策略认领批次，计算缺口
func (s *AllocationService) allocateLine(ctx context.Context, tx AllocationStore, org OrgContext, line *entity.SOLine, mode allocationMode, userID string, allocatedAt time.Time) (lineOutcome, float64, error) {
	out := lineOutcome{LineResult: LineResult{
		LineID:          line.ID,
		ProductID:       line.ProductID,
		QuantityOrdered: line.QuantityOrdered,
		Allocations:     []entity.InventoryAllocation{},
	}}

	remaining := CalculateBackorderQty(line.QuantityOrdered, line.QuantityAllocated)
	if remaining <= 0 {
		// 已满足的行不再处理
		out.QuantityAllocated = line.QuantityAllocated
		return out, 0, nil
	}

	if mode.manual {
		picks, ok := mode.picks[line.ID]
		if !ok {
			// 手动模式只处理调用方指定的行
			out.QuantityAllocated = line.QuantityAllocated
			out.BackorderQty = remaining
			return out, 0, nil
		}
		claimed, allocs, err := s.claimManual(ctx, tx, org, line, picks, remaining, userID, allocatedAt)
		if err != nil {
			return out, 0, err
		}
		out.processed = true
		out.Allocations = allocs
		return s.finishLine(ctx, tx, line, out, claimed)
	}

	strategy := mode.strategy
	if strategy == "" {
		resolved, err := s.strategy.GetPickingStrategy(ctx, org.OrgID, line.ProductID)
		if err != nil {
			return out, 0, err
		}
		strategy = resolved
	}
	out.Strategy = strategy

	lots, err := tx.AvailableLots(ctx, org.OrgID, line.ProductID, strategy, allocatedAt)
	if err != nil {
		return out, 0, fmt.Errorf("查询候选批次失败: %w", err)
	}

	var claimed float64
	var allocs []entity.InventoryAllocation
	for _, lot := range lots {
		if remaining-claimed <= 0 {
			break
		}
		want := remaining - claimed
		if lot.AvailableQty < want {
			want = lot.AvailableQty
		}
		if want <= 0 {
			continue
		}
		// 并发竞争下实际认领量可能小于请求量，竞争失败方顺延到下一个候选批次
		got, err := tx.ClaimLot(ctx, org.OrgID, lot.ID, want)
		if err != nil {
			return out, 0, fmt.Errorf("认领批次失败: %w", err)
		}
		if got <= 0 {
			continue
		}
		alloc := entity.InventoryAllocation{
			ID:             uuid.New().String(),
			OrgID:          org.OrgID,
			SOLineID:       line.ID,
			LicensePlateID: lot.ID,
			Quantity:       got,
			AllocatedBy:    userID,
			AllocatedAt:    allocatedAt,
		}
		if err := tx.CreateAllocation(ctx, &alloc); err != nil {
			return out, 0, fmt.Errorf("写入分配记录失败: %w", err)
		}
		allocs = append(allocs, alloc)
		claimed += got
	}

	out.processed = true
	out.Allocations = allocs
	return s.finishLine(ctx, tx, line, out, claimed)
}

// claimManual 手动模式：校验并认领调用方指定的批次数量
// 指定总量不得超过行的剩余需求，始终保持 quantity_allocated ≤ quantity_ordered
func (s *AllocationService) claimManual(ctx context.Context, tx AllocationStore, org OrgContext, line *entity.SOLine, picks []ManualPick, remaining float64, userID string, allocatedAt time.Time) (float64, []entity.InventoryAllocation, error) {
	var requested float64
	for _, pick := range picks {
		requested += pick.Quantity
	}
	if requested > remaining {
		return 0, nil, apperr.Validation(fmt.Sprintf("manual picks total %.4f exceeds remaining %.4f on line %s", requested, remaining, line.ID))
	}

	var claimed float64
	var allocs []entity.InventoryAllocation
	for _, pick := range picks {
		lp, err := tx.GetLicensePlate(ctx, org.OrgID, pick.LicensePlateID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, nil, apperr.Wrap(apperr.NotFound("license plate"), err)
			}
			return 0, nil, fmt.Errorf("读取批次失败: %w", err)
		}
		if lp.ProductID != line.ProductID {
			return 0, nil, apperr.Validation(fmt.Sprintf("license plate %s does not match line product", lp.LPNumber))
		}
		if !lp.Allocatable(allocatedAt) {
			return 0, nil, apperr.NoAvailableInventory(fmt.Sprintf("license plate %s has no allocatable inventory", lp.LPNumber))
		}
		if pick.Quantity > lp.AvailableQty {
			return 0, nil, apperr.Validation(fmt.Sprintf("requested qty %.4f exceeds available %.4f on %s", pick.Quantity, lp.AvailableQty, lp.LPNumber))
		}
		got, err := tx.ClaimLot(ctx, org.OrgID, lp.ID, pick.Quantity)
		if err != nil {
			return 0, nil, fmt.Errorf("认领批次失败: %w", err)
		}
		if got < pick.Quantity {
			// 并发竞争导致可用量不足，手动模式按校验失败处理，整单回滚
			return 0, nil, apperr.Validation(fmt.Sprintf("requested qty %.4f exceeds available on %s", pick.Quantity, lp.LPNumber))
		}
		alloc := entity.InventoryAllocation{
			ID:             uuid.New().String(),
			OrgID:          org.OrgID,
			SOLineID:       line.ID,
			LicensePlateID: lp.ID,
			Quantity:       got,
			AllocatedBy:    userID,
			AllocatedAt:    allocatedAt,
		}
		if err := tx.CreateAllocation(ctx, &alloc); err != nil {
			return 0, nil, fmt.Errorf("写入分配记录失败: %w", err)
		}
		allocs = append(allocs, alloc)
		claimed += got
	}
	return claimed, allocs, nil
}

// finishLine 落库行级结果并计算缺口
func (s *AllocationService) finishLine(ctx context.Context, tx AllocationStore, line *entity.SOLine, out lineOutcome, claimed float64) (lineOutcome, float64, error) {
	line.QuantityAllocated += claimed
	shortfall := CalculateBackorderQty(line.QuantityOrdered, line.QuantityAllocated)
	line.BackorderFlag = shortfall > 0
	if err := tx.UpdateLineAllocation(ctx, line.ID, line.QuantityAllocated, line.BackorderFlag); err != nil {
		return out, 0, fmt.Errorf("更新订单行失败: %w", err)
	}
	out.QuantityAllocated = line.QuantityAllocated
	out.BackorderQty = shortfall
	return out, claimed, nil
}

// parseMode 将松散的请求负载提前校验为严格的内部模式表示
func parseMode(req AllocateRequest) (allocationMode, error) {
	if req.Strategy != "" && req.Strategy != entity.StrategyFIFO && req.Strategy != entity.StrategyFEFO {
		return allocationMode{}, apperr.Validation(fmt.Sprintf("unknown picking strategy %q", req.Strategy))
	}
	if len(req.ManualLines) == 0 {
		return allocationMode{strategy: req.Strategy}, nil
	}
	mode := allocationMode{manual: true, strategy: req.Strategy}
	picks := make(map[string][]ManualPick, len(req.ManualLines))
	for _, ml := range req.ManualLines {
		if ml.LineID == "" {
			return allocationMode{}, apperr.Validation("manual line is missing line_id")
		}
		if len(ml.Picks) == 0 {
			return allocationMode{}, apperr.Validation("manual line has no picks")
		}
		if _, dup := picks[ml.LineID]; dup {
			return allocationMode{}, apperr.Validation("duplicate manual line " + ml.LineID)
		}
		seen := make(map[string]bool, len(ml.Picks))
		for _, p := range ml.Picks {
			if p.LicensePlateID == "" {
				return allocationMode{}, apperr.Validation("manual pick is missing license_plate_id")
			}
			if p.Quantity <= 0 {
				return allocationMode{}, apperr.Validation("manual pick quantity must be positive")
			}
			if seen[p.LicensePlateID] {
				return allocationMode{}, apperr.Validation("duplicate license plate in manual line " + ml.LineID)
			}
			seen[p.LicensePlateID] = true
		}
		picks[ml.LineID] = ml.Picks
	}
	mode.picks = picks
	return mode, nil
}
