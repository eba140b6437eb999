package service

import (
	"context"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
)

// SOListParams 销售订单列表查询参数
type SOListParams struct {
	OrgID   string
	Status  string
	Keyword string
	Page    int
	Size    int
}

// LPListParams 库存批次列表查询参数
type LPListParams struct {
	OrgID       string
	ProductID   string
	WarehouseID string
	Status      string
	QAStatus    string
	Page        int
	Size        int
}

// SalesStore 销售订单持久化端口
type SalesStore interface {
	CreateSO(ctx context.Context, so *entity.SalesOrder) error
	GetSOByID(ctx context.Context, orgID, id string) (*entity.SalesOrder, error)
	ListSOs(ctx context.Context, params SOListParams) ([]entity.SalesOrder, int64, error)
	UpdateSOStatus(ctx context.Context, orgID, id, status string) error
}

// LicensePlateStore 库存批次持久化端口
type LicensePlateStore interface {
	Create(ctx context.Context, lp *entity.LicensePlate) error
	GetByID(ctx context.Context, orgID, id string) (*entity.LicensePlate, error)
	List(ctx context.Context, params LPListParams) ([]entity.LicensePlate, int64, error)
}
