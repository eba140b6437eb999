package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/apperr"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

func newAllocator(mem *testutil.MemStore) *service.AllocationService {
	strategy := service.NewStrategyService(mem)
	lotPool := service.NewLotPoolService(mem)
	authz := service.NewRoleAuthorizer("admin", "manager", "warehouse")
	return service.NewAllocationService(mem, strategy, lotPool, authz, service.NopBackorderSink{}, nil)
}

func seedOrder(mem *testutil.MemStore, id, status string, lines ...entity.SOLine) {
	base := time.Now().Add(-time.Hour)
	for i := range lines {
		lines[i].SOID = id
		lines[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}
	mem.SeedOrder(&entity.SalesOrder{
		ID:     id,
		OrgID:  testOrg,
		SOCode: "SO-" + id,
		Status: status,
		Lines:  lines,
	})
}

func TestAllocateFullyFromTwoLots(t *testing.T) {
	mem := testutil.NewMemStore()
	base := time.Now().Add(-48 * time.Hour)
	seedLot(mem, "lot-1", "prod-1", 60, base, nil)
	seedLot(mem, "lot-2", "prod-1", 40, base.Add(time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)

	assert.Equal(t, entity.SOStatusConfirmed, result.Status.OldStatus)
	assert.Equal(t, entity.SOStatusAllocated, result.Status.NewStatus)
	assert.Equal(t, 100.0, result.Summary.TotalAllocated)
	assert.True(t, result.Summary.AllocationComplete)
	assert.Empty(t, result.Backorders)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, result.AllocatedAt.Add(5*time.Minute), result.UndoUntil)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, 100.0, result.Lines[0].QuantityAllocated)
	assert.Equal(t, 0.0, result.Lines[0].BackorderQty)
	require.Len(t, result.Lines[0].Allocations, 2)
	// FIFO: 先用最早入库的 lot-1
	assert.Equal(t, "lot-1", result.Lines[0].Allocations[0].LicensePlateID)
	assert.Equal(t, 60.0, result.Lines[0].Allocations[0].Quantity)
	assert.Equal(t, "lot-2", result.Lines[0].Allocations[1].LicensePlateID)
	assert.Equal(t, 40.0, result.Lines[0].Allocations[1].Quantity)

	assert.Equal(t, 0.0, mem.LotQty("lot-1"))
	assert.Equal(t, 0.0, mem.LotQty("lot-2"))

	so := mem.Order("so-1")
	assert.Equal(t, entity.SOStatusAllocated, so.Status)
	require.NotNil(t, so.AllocatedAt)
	assert.Equal(t, 100.0, so.Lines[0].QuantityAllocated)
	assert.False(t, so.Lines[0].BackorderFlag)

	audits := mem.Audits()
	require.Len(t, audits, 1)
	assert.Equal(t, entity.AuditActionAllocate, audits[0].Action)
	assert.Equal(t, 100.0, audits[0].Quantity)
}

func TestAllocatePartialCreatesBackorder(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 60, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)

	// 60% < 80% 阈值，未要求挂起时回到 confirmed
	assert.Equal(t, entity.SOStatusConfirmed, result.Status.NewStatus)
	assert.Equal(t, 60.0, result.Summary.TotalAllocated)
	assert.Equal(t, 40.0, result.Summary.TotalShortfall)
	assert.Contains(t, result.Warnings, "under-allocated")

	require.Len(t, result.Backorders, 1)
	assert.Equal(t, "line-1", result.Backorders[0].SOLineID)
	assert.Equal(t, 40.0, result.Backorders[0].ShortfallQty)

	so := mem.Order("so-1")
	assert.True(t, so.Lines[0].BackorderFlag)
}

func TestAllocateThresholdBoundary(t *testing.T) {
	// 85% >= 80% 阈值 → allocated
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 85, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.SOStatusAllocated, result.Status.NewStatus)
	assert.Equal(t, 85.0, result.Summary.FulfillmentPct)
}

func TestAllocateHoldIfInsufficient(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 10, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1",
		service.AllocateRequest{HoldIfInsufficient: true}, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.SOStatusOnHold, result.Status.NewStatus)
}

func TestAllocateRerunIsIdempotentWhenSatisfied(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 100, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)
	require.Equal(t, 1, mem.AllocationCount())

	// 再次执行：已满足的行不再产生分配
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, mem.AllocationCount())
	assert.Equal(t, 100.0, result.Summary.TotalAllocated)
	assert.Equal(t, 0.0, mem.LotQty("lot-1"))
}

func TestAllocateRerunTopsUpShortfall(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 60, time.Now().Add(-2*time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)

	// 新批次入库后重跑，只补剩余缺口
	seedLot(mem, "lot-2", "prod-1", 50, time.Now(), nil)
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.Summary.TotalAllocated)
	assert.Equal(t, entity.SOStatusAllocated, result.Status.NewStatus)
	assert.Equal(t, 10.0, mem.LotQty("lot-2"))
	assert.Equal(t, 2, mem.AllocationCount())
}

func TestAllocateForceReallocates(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-old", "prod-1", 60, time.Now().Add(-2*time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)
	require.Equal(t, 0.0, mem.LotQty("lot-old"))

	// 强制重分配：先释放旧分配再整体重跑
	seedLot(mem, "lot-new", "prod-1", 100, time.Now().Add(-3*time.Hour), nil)
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1",
		service.AllocateRequest{Force: true}, testUser)
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.Summary.TotalAllocated)
	// lot-new 入库更早，FIFO 下整单走 lot-new，lot-old 的占用被归还
	assert.Equal(t, 60.0, mem.LotQty("lot-old"))
	assert.Equal(t, 0.0, mem.LotQty("lot-new"))
	assert.Equal(t, 1, mem.AllocationCount())
}

func TestAllocateManualPicks(t *testing.T) {
	mem := testutil.NewMemStore()
	base := time.Now().Add(-48 * time.Hour)
	seedLot(mem, "lot-1", "prod-1", 60, base, nil)
	seedLot(mem, "lot-2", "prod-1", 50, base.Add(time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 70})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	req := service.AllocateRequest{ManualLines: []service.ManualLine{{
		LineID: "line-1",
		Picks: []service.ManualPick{
			{LicensePlateID: "lot-2", Quantity: 50},
			{LicensePlateID: "lot-1", Quantity: 20},
		},
	}}}
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", req, testUser)
	require.NoError(t, err)

	assert.Equal(t, 70.0, result.Summary.TotalAllocated)
	assert.Equal(t, 0.0, mem.LotQty("lot-2"))
	assert.Equal(t, 40.0, mem.LotQty("lot-1"))
}

func TestAllocateManualOverClaimRollsBack(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 30, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	req := service.AllocateRequest{ManualLines: []service.ManualLine{{
		LineID: "line-1",
		Picks:  []service.ManualPick{{LicensePlateID: "lot-1", Quantity: 50}},
	}}}
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", req, testUser)
	require.Error(t, err)

	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, e.Code)

	// 整体回滚：批次和订单都不变
	assert.Equal(t, 30.0, mem.LotQty("lot-1"))
	assert.Equal(t, 0, mem.AllocationCount())
	so := mem.Order("so-1")
	assert.Equal(t, entity.SOStatusConfirmed, so.Status)
	assert.Equal(t, 0.0, so.Lines[0].QuantityAllocated)
}

func TestAllocateManualPicksExceedingOrderedRejected(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 100, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 70})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	// 批次有足够库存，但指定总量超过行的订购量
	req := service.AllocateRequest{ManualLines: []service.ManualLine{{
		LineID: "line-1",
		Picks:  []service.ManualPick{{LicensePlateID: "lot-1", Quantity: 80}},
	}}}
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", req, testUser)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, e.Code)

	assert.Equal(t, 100.0, mem.LotQty("lot-1"))
	assert.Equal(t, 0, mem.AllocationCount())
	so := mem.Order("so-1")
	assert.Equal(t, 0.0, so.Lines[0].QuantityAllocated)
}

func TestAllocateManualTopUpLimitedToRemaining(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 100, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusAllocated,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 70, QuantityAllocated: 50})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	// 已分配50，剩余需求20：指定30要被拒绝，指定20可通过
	over := service.AllocateRequest{ManualLines: []service.ManualLine{{
		LineID: "line-1",
		Picks:  []service.ManualPick{{LicensePlateID: "lot-1", Quantity: 30}},
	}}}
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", over, testUser)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, e.Code)

	exact := service.AllocateRequest{ManualLines: []service.ManualLine{{
		LineID: "line-1",
		Picks:  []service.ManualPick{{LicensePlateID: "lot-1", Quantity: 20}},
	}}}
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", exact, testUser)
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, 70.0, result.Lines[0].QuantityAllocated)
	assert.Equal(t, 80.0, mem.LotQty("lot-1"))
}

func TestAllocateRequestStrategyOverridesResolver(t *testing.T) {
	mem := testutil.NewMemStore()
	base := time.Now().Add(-48 * time.Hour)
	// FIFO 会先取最早入库的 lot-old；FEFO 先取最早过期的 lot-soon
	seedLot(mem, "lot-old", "prod-1", 100, base, daysFromNow(30))
	seedLot(mem, "lot-soon", "prod-1", 100, base.Add(time.Hour), daysFromNow(5))
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 40})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	req := service.AllocateRequest{Strategy: entity.StrategyFEFO}
	result, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", req, testUser)
	require.NoError(t, err)

	require.Len(t, result.Lines, 1)
	assert.Equal(t, entity.StrategyFEFO, result.Lines[0].Strategy)
	require.Len(t, result.Lines[0].Allocations, 1)
	assert.Equal(t, "lot-soon", result.Lines[0].Allocations[0].LicensePlateID)
	assert.Equal(t, 60.0, mem.LotQty("lot-soon"))
	assert.Equal(t, 100.0, mem.LotQty("lot-old"))
}

func TestAllocateManualWrongProduct(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-other", "prod-2", 30, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 10})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	req := service.AllocateRequest{ManualLines: []service.ManualLine{{
		LineID: "line-1",
		Picks:  []service.ManualPick{{LicensePlateID: "lot-other", Quantity: 10}},
	}}}
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", req, testUser)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, e.Code)
}

func TestAllocateForbiddenRole(t *testing.T) {
	mem := testutil.NewMemStore()
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 10})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "viewer")
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeForbidden, e.Code)
}

func TestAllocateCrossOrgIsNotFound(t *testing.T) {
	mem := testutil.NewMemStore()
	mem.SeedOrder(&entity.SalesOrder{
		ID: "so-foreign", OrgID: "org-2", SOCode: "SO-X", Status: entity.SOStatusConfirmed,
		Lines: []entity.SOLine{{ID: "line-x", SOID: "so-foreign", ProductID: "prod-1", QuantityOrdered: 10}},
	})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-foreign", service.AllocateRequest{}, testUser)
	require.Error(t, err)

	// 跨组织访问表现为 404，不泄露资源存在性
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, e.Code)
}

func TestAllocateInvalidStatus(t *testing.T) {
	mem := testutil.NewMemStore()
	seedOrder(mem, "so-1", entity.SOStatusPending,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 10})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidStatus, e.Code)
}

func TestAllocateUnknownStrategyRejected(t *testing.T) {
	mem := testutil.NewMemStore()
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 10})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1",
		service.AllocateRequest{Strategy: "LIFO"}, testUser)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, e.Code)
}

func TestAllocateConcurrentClaimsNeverOversell(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 50, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-a", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-a", ProductID: "prod-1", QuantityOrdered: 50})
	seedOrder(mem, "so-b", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-b", ProductID: "prod-1", QuantityOrdered: 50})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")

	var wg sync.WaitGroup
	results := make([]*service.AllocationResult, 2)
	errs := make([]error, 2)
	for i, soID := range []string{"so-a", "so-b"} {
		wg.Add(1)
		go func(i int, soID string) {
			defer wg.Done()
			results[i], errs[i] = svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), soID, service.AllocateRequest{}, testUser)
		}(i, soID)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	total := results[0].Summary.TotalAllocated + results[1].Summary.TotalAllocated
	assert.Equal(t, 50.0, total)
	assert.Equal(t, 0.0, mem.LotQty("lot-1"))
}
