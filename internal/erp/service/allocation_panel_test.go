package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllocationPanel(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 60, time.Now().Add(-2*time.Hour), nil)
	seedLot(mem, "lot-2", "prod-1", 50, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	_, err := svc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)

	panel, err := svc.GetAllocationPanel(ctx, testutil.Org(testOrg), "so-1")
	require.NoError(t, err)

	assert.Equal(t, "so-1", panel.SalesOrderID)
	assert.Equal(t, entity.SOStatusAllocated, panel.Status)
	require.NotNil(t, panel.AllocatedAt)
	require.NotNil(t, panel.UndoUntil)
	assert.True(t, panel.UndoOffered)
	assert.Equal(t, panel.AllocatedAt.Add(5*time.Minute), *panel.UndoUntil)

	require.Len(t, panel.Lines, 1)
	pl := panel.Lines[0]
	assert.Equal(t, entity.StrategyFIFO, pl.Strategy)
	require.Len(t, pl.Allocations, 2)
	// lot-1 已耗尽，候选批次只剩 lot-2 的余量
	require.Len(t, pl.AvailableLots, 1)
	assert.Equal(t, "lot-2", pl.AvailableLots[0].ID)
	assert.Equal(t, 10.0, pl.AvailableLots[0].AvailableQty)

	assert.Equal(t, 100.0, panel.Summary.TotalAllocated)
	assert.True(t, panel.Summary.AllocationComplete)
}

func TestGetAllocationPanelBeforeAllocation(t *testing.T) {
	mem := testutil.NewMemStore()
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", QuantityOrdered: 100})

	svc := newAllocator(mem)
	ctx := context.Background()
	panel, err := svc.GetAllocationPanel(ctx, testutil.Org(testOrg), "so-1")
	require.NoError(t, err)

	assert.Nil(t, panel.AllocatedAt)
	assert.Nil(t, panel.UndoUntil)
	assert.False(t, panel.UndoOffered)
	require.Len(t, panel.Lines, 1)
	assert.Empty(t, panel.Lines[0].Allocations)
	assert.Empty(t, panel.Lines[0].AvailableLots)
	assert.Equal(t, 0.0, panel.Summary.FulfillmentPct)
}

func TestAllocationReport(t *testing.T) {
	mem := testutil.NewMemStore()
	seedLot(mem, "lot-1", "prod-1", 100, time.Now().Add(-time.Hour), nil)
	seedOrder(mem, "so-1", entity.SOStatusConfirmed,
		entity.SOLine{ID: "line-1", ProductID: "prod-1", ProductCode: "P-001", QuantityOrdered: 40})

	alloc := newAllocator(mem)
	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	_, err := alloc.AllocateSalesOrder(ctx, testutil.Org(testOrg), "so-1", service.AllocateRequest{}, testUser)
	require.NoError(t, err)

	report := service.NewReportService(alloc)
	f, filename, err := report.AllocationReport(ctx, testutil.Org(testOrg), "so-1")
	require.NoError(t, err)
	assert.Equal(t, "allocation-SO-so-1.xlsx", filename)

	product, err := f.GetCellValue("Allocation", "B2")
	require.NoError(t, err)
	assert.Equal(t, "P-001", product)
	allocated, err := f.GetCellValue("Allocation", "D2")
	require.NoError(t, err)
	assert.Equal(t, "40", allocated)
}
