package service

import (
	"context"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/auth"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
)

// AllocationStore 分配引擎的持久化端口
// 生产实现基于 gorm/postgres（repository.Store），单元测试用内存实现（testutil.MemStore）
// ClaimLot/RestoreLot 是 Lot.available_qty 唯一的变更入口
type AllocationStore interface {
	// Transaction 在一个事务内执行 fn；fn 返回错误则整体回滚
	Transaction(ctx context.Context, fn func(tx AllocationStore) error) error

	GetSalesOrder(ctx context.Context, orgID, soID string) (*entity.SalesOrder, error)
	UpdateSalesOrderStatus(ctx context.Context, orgID, soID, status string, allocatedAt *time.Time) error
	UpdateLineAllocation(ctx context.Context, lineID string, quantityAllocated float64, backorder bool) error

	// AvailableLots 返回按策略排序的可分配批次（排除过期/QA未通过/非available）
	AvailableLots(ctx context.Context, orgID, productID, strategy string, today time.Time) ([]entity.LicensePlate, error)
	GetLicensePlate(ctx context.Context, orgID, lpID string) (*entity.LicensePlate, error)

	// ClaimLot 原子地占用批次可用数量，返回实际占用量（并发竞争下可能小于请求量，可能为0）
	ClaimLot(ctx context.Context, orgID, lpID string, qty float64) (float64, error)
	// RestoreLot 归还占用量
	RestoreLot(ctx context.Context, orgID, lpID string, qty float64) error

	CreateAllocation(ctx context.Context, alloc *entity.InventoryAllocation) error
	ListOrderAllocations(ctx context.Context, orgID, soID string) ([]entity.InventoryAllocation, error)
	DeleteOrderAllocations(ctx context.Context, orgID, soID string) error

	CreateAudit(ctx context.Context, audit *entity.AllocationAudit) error

	// GetProductStrategy 返回产品级策略覆盖，未设置时为空串
	GetProductStrategy(ctx context.Context, orgID, productID string) (string, error)
	// GetShippingSettings 组织未配置时返回默认设置
	GetShippingSettings(ctx context.Context, orgID string) (*entity.ShippingSettings, error)
}

// OrgContext 每次引擎调用显式携带的组织上下文，不在引擎内部隐式解析
type OrgContext struct {
	OrgID           string
	ThresholdPct    float64
	DefaultStrategy string
	FefoWarningDays int
}

// Authorizer 授权协作方接口
type Authorizer interface {
	HasAllocationPermission(ctx context.Context, userID, orgID string) (bool, error)
}

// RoleAuthorizer 基于JWT角色声明的授权实现
type RoleAuthorizer struct {
	Allowed map[string]bool
}

// NewRoleAuthorizer 创建角色授权器
func NewRoleAuthorizer(roles ...string) *RoleAuthorizer {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return &RoleAuthorizer{Allowed: allowed}
}

func (a *RoleAuthorizer) HasAllocationPermission(ctx context.Context, userID, orgID string) (bool, error) {
	id, ok := auth.FromContext(ctx)
	if !ok || id.UserID != userID || id.OrgID != orgID {
		return false, nil
	}
	return a.Allowed[id.Role], nil
}

// BackorderSink 缺货信号出站端口，由调用方转发到消息通道
type BackorderSink interface {
	Publish(ctx context.Context, signal entity.BackorderSignal) error
}

// NopBackorderSink 丢弃信号（未配置redis时使用）
type NopBackorderSink struct{}

func (NopBackorderSink) Publish(ctx context.Context, signal entity.BackorderSignal) error {
	return nil
}
