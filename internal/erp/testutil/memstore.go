// Package testutil 提供分配引擎测试用的内存存储和身份辅助函数
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/auth"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"gorm.io/gorm"
)

// MemStore AllocationStore/SalesStore/LicensePlateStore/SettingsWriter 的内存实现
// 每个操作独立持锁（近似行级锁语义），Transaction 通过快照实现回滚
type MemStore struct {
	mu       sync.Mutex
	orders   map[string]*entity.SalesOrder
	lots     map[string]*entity.LicensePlate
	products map[string]*entity.Product
	settings map[string]*entity.ShippingSettings
	allocs   []entity.InventoryAllocation
	audits   []entity.AllocationAudit
}

func NewMemStore() *MemStore {
	return &MemStore{
		orders:   make(map[string]*entity.SalesOrder),
		lots:     make(map[string]*entity.LicensePlate),
		products: make(map[string]*entity.Product),
		settings: make(map[string]*entity.ShippingSettings),
	}
}

type memSnapshot struct {
	orders   map[string]*entity.SalesOrder
	lots     map[string]*entity.LicensePlate
	settings map[string]*entity.ShippingSettings
	allocs   []entity.InventoryAllocation
	audits   []entity.AllocationAudit
}

func copyOrder(so *entity.SalesOrder) *entity.SalesOrder {
	cp := *so
	cp.Lines = make([]entity.SOLine, len(so.Lines))
	copy(cp.Lines, so.Lines)
	sort.Slice(cp.Lines, func(i, j int) bool {
		if cp.Lines[i].CreatedAt.Equal(cp.Lines[j].CreatedAt) {
			return cp.Lines[i].ID < cp.Lines[j].ID
		}
		return cp.Lines[i].CreatedAt.Before(cp.Lines[j].CreatedAt)
	})
	return &cp
}

func (m *MemStore) snapshot() memSnapshot {
	snap := memSnapshot{
		orders:   make(map[string]*entity.SalesOrder, len(m.orders)),
		lots:     make(map[string]*entity.LicensePlate, len(m.lots)),
		settings: make(map[string]*entity.ShippingSettings, len(m.settings)),
		allocs:   append([]entity.InventoryAllocation(nil), m.allocs...),
		audits:   append([]entity.AllocationAudit(nil), m.audits...),
	}
	for id, so := range m.orders {
		snap.orders[id] = copyOrder(so)
	}
	for id, lp := range m.lots {
		cp := *lp
		snap.lots[id] = &cp
	}
	for org, s := range m.settings {
		cp := *s
		snap.settings[org] = &cp
	}
	return snap
}

func (m *MemStore) restore(snap memSnapshot) {
	m.orders = snap.orders
	m.lots = snap.lots
	m.settings = snap.settings
	m.allocs = snap.allocs
	m.audits = snap.audits
}

// Transaction fn 返回错误时整体回滚到调用前的快照
// 快照回滚没有事务间隔离：失败事务会连带丢弃并发事务在其间提交的写入
// 测试里并发场景只竞争 ClaimLot（单操作持锁），不要并发执行多个 Transaction
func (m *MemStore) Transaction(ctx context.Context, fn func(tx service.AllocationStore) error) error {
	m.mu.Lock()
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemStore) GetSalesOrder(ctx context.Context, orgID, soID string) (*entity.SalesOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.orders[soID]
	if !ok || so.OrgID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	return copyOrder(so), nil
}

func (m *MemStore) UpdateSalesOrderStatus(ctx context.Context, orgID, soID, status string, allocatedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.orders[soID]
	if !ok || so.OrgID != orgID {
		return nil
	}
	so.Status = status
	so.AllocatedAt = allocatedAt
	return nil
}

func (m *MemStore) UpdateLineAllocation(ctx context.Context, lineID string, quantityAllocated float64, backorder bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, so := range m.orders {
		for i := range so.Lines {
			if so.Lines[i].ID == lineID {
				so.Lines[i].QuantityAllocated = quantityAllocated
				so.Lines[i].BackorderFlag = backorder
				return nil
			}
		}
	}
	return nil
}

func (m *MemStore) AvailableLots(ctx context.Context, orgID, productID, strategy string, today time.Time) ([]entity.LicensePlate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lots []entity.LicensePlate
	for _, lp := range m.lots {
		if lp.OrgID != orgID || lp.ProductID != productID || lp.DeletedAt != nil {
			continue
		}
		if !lp.Allocatable(today) {
			continue
		}
		lots = append(lots, *lp)
	}
	sortLots(lots, strategy)
	return lots, nil
}

// sortLots FIFO: 最早入库优先; FEFO: 最早过期优先，无保质期的排最后
func sortLots(lots []entity.LicensePlate, strategy string) {
	sort.Slice(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if strategy == entity.StrategyFEFO {
			switch {
			case a.ExpiryDate == nil && b.ExpiryDate != nil:
				return false
			case a.ExpiryDate != nil && b.ExpiryDate == nil:
				return true
			case a.ExpiryDate != nil && b.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (m *MemStore) GetLicensePlate(ctx context.Context, orgID, lpID string) (*entity.LicensePlate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lp, ok := m.lots[lpID]
	if !ok || lp.OrgID != orgID || lp.DeletedAt != nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *lp
	return &cp, nil
}

func (m *MemStore) ClaimLot(ctx context.Context, orgID, lpID string, qty float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lp, ok := m.lots[lpID]
	if !ok || lp.OrgID != orgID {
		return 0, nil
	}
	claimed := qty
	if lp.AvailableQty < claimed {
		claimed = lp.AvailableQty
	}
	if claimed <= 0 {
		return 0, nil
	}
	lp.AvailableQty -= claimed
	return claimed, nil
}

func (m *MemStore) RestoreLot(ctx context.Context, orgID, lpID string, qty float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lp, ok := m.lots[lpID]; ok && lp.OrgID == orgID {
		lp.AvailableQty += qty
	}
	return nil
}

func (m *MemStore) CreateAllocation(ctx context.Context, alloc *entity.InventoryAllocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocs = append(m.allocs, *alloc)
	return nil
}

func (m *MemStore) ListOrderAllocations(ctx context.Context, orgID, soID string) ([]entity.InventoryAllocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lineIDs := m.orderLineIDs(soID)
	var out []entity.InventoryAllocation
	for _, a := range m.allocs {
		if a.OrgID == orgID && lineIDs[a.SOLineID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemStore) DeleteOrderAllocations(ctx context.Context, orgID, soID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lineIDs := m.orderLineIDs(soID)
	kept := m.allocs[:0]
	for _, a := range m.allocs {
		if a.OrgID == orgID && lineIDs[a.SOLineID] {
			continue
		}
		kept = append(kept, a)
	}
	m.allocs = kept
	return nil
}

func (m *MemStore) orderLineIDs(soID string) map[string]bool {
	ids := make(map[string]bool)
	if so, ok := m.orders[soID]; ok {
		for _, l := range so.Lines {
			ids[l.ID] = true
		}
	}
	return ids
}

func (m *MemStore) CreateAudit(ctx context.Context, audit *entity.AllocationAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *audit)
	return nil
}

func (m *MemStore) GetProductStrategy(ctx context.Context, orgID, productID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok || p.OrgID != orgID {
		return "", nil
	}
	return p.PickingStrategy, nil
}

func (m *MemStore) GetShippingSettings(ctx context.Context, orgID string) (*entity.ShippingSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[orgID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemStore) UpsertShippingSettings(ctx context.Context, settings *entity.ShippingSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *settings
	m.settings[settings.OrgID] = &cp
	return nil
}

// --- SalesStore ---

func (m *MemStore) CreateSO(ctx context.Context, so *entity.SalesOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[so.ID] = copyOrder(so)
	return nil
}

func (m *MemStore) GetSOByID(ctx context.Context, orgID, id string) (*entity.SalesOrder, error) {
	return m.GetSalesOrder(ctx, orgID, id)
}

func (m *MemStore) ListSOs(ctx context.Context, params service.SOListParams) ([]entity.SalesOrder, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sos []entity.SalesOrder
	for _, so := range m.orders {
		if so.OrgID != params.OrgID {
			continue
		}
		if params.Status != "" && so.Status != params.Status {
			continue
		}
		if params.Keyword != "" && !strings.Contains(so.SOCode, params.Keyword) {
			continue
		}
		sos = append(sos, *copyOrder(so))
	}
	sort.Slice(sos, func(i, j int) bool { return sos[i].CreatedAt.After(sos[j].CreatedAt) })
	return sos, int64(len(sos)), nil
}

func (m *MemStore) UpdateSOStatus(ctx context.Context, orgID, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if so, ok := m.orders[id]; ok && so.OrgID == orgID {
		so.Status = status
	}
	return nil
}

// --- LicensePlateStore ---

func (m *MemStore) Create(ctx context.Context, lp *entity.LicensePlate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *lp
	m.lots[lp.ID] = &cp
	return nil
}

func (m *MemStore) GetByID(ctx context.Context, orgID, id string) (*entity.LicensePlate, error) {
	return m.GetLicensePlate(ctx, orgID, id)
}

func (m *MemStore) List(ctx context.Context, params service.LPListParams) ([]entity.LicensePlate, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lps []entity.LicensePlate
	for _, lp := range m.lots {
		if lp.OrgID != params.OrgID || lp.DeletedAt != nil {
			continue
		}
		if params.ProductID != "" && lp.ProductID != params.ProductID {
			continue
		}
		if params.WarehouseID != "" && lp.WarehouseID != params.WarehouseID {
			continue
		}
		if params.Status != "" && lp.Status != params.Status {
			continue
		}
		if params.QAStatus != "" && lp.QAStatus != params.QAStatus {
			continue
		}
		lps = append(lps, *lp)
	}
	sort.Slice(lps, func(i, j int) bool { return lps[i].CreatedAt.After(lps[j].CreatedAt) })
	return lps, int64(len(lps)), nil
}

// --- 测试播种与观察 ---

func (m *MemStore) SeedOrder(so *entity.SalesOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[so.ID] = copyOrder(so)
}

func (m *MemStore) SeedLot(lp *entity.LicensePlate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *lp
	m.lots[lp.ID] = &cp
}

func (m *MemStore) SeedProduct(p *entity.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
}

func (m *MemStore) SeedSettings(s *entity.ShippingSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.settings[s.OrgID] = &cp
}

// LotQty 返回批次当前可用量
func (m *MemStore) LotQty(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lp, ok := m.lots[id]; ok {
		return lp.AvailableQty
	}
	return 0
}

// Order 返回订单当前快照
func (m *MemStore) Order(id string) *entity.SalesOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if so, ok := m.orders[id]; ok {
		return copyOrder(so)
	}
	return nil
}

// Audits 返回全部审计记录
func (m *MemStore) Audits() []entity.AllocationAudit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.AllocationAudit(nil), m.audits...)
}

// AllocationCount 返回当前分配记录总数
func (m *MemStore) AllocationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.allocs)
}

// IdentityCtx 构造带身份的请求上下文
func IdentityCtx(userID, orgID, role string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{UserID: userID, OrgID: orgID, Role: role})
}

// Org 构造使用默认发货设置的组织上下文
func Org(orgID string) service.OrgContext {
	return service.OrgContext{
		OrgID:           orgID,
		ThresholdPct:    entity.DefaultAllocationThresholdPct,
		DefaultStrategy: entity.DefaultPickingStrategy,
		FefoWarningDays: entity.DefaultFefoWarningDays,
	}
}
