package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/apperr"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSales(mem *testutil.MemStore) *service.SalesService {
	settings := service.NewSettingsService(mem, mem, nil)
	alloc := newAllocator(mem)
	return service.NewSalesService(mem, settings, alloc, nil)
}

func TestCreateSODefaults(t *testing.T) {
	mem := testutil.NewMemStore()
	svc := newSales(mem)

	req := service.CreateSORequest{
		CustomerID: "cust-1",
		Lines: []service.CreateSOLine{
			{ProductID: "prod-1", Quantity: 10},
		},
	}
	so, err := svc.CreateSO(context.Background(), testOrg, req, testUser)
	require.NoError(t, err)

	assert.Equal(t, entity.SOStatusPending, so.Status)
	assert.True(t, strings.HasPrefix(so.SOCode, "SO-"))
	assert.Equal(t, "PLN", so.Currency)
	assert.Equal(t, testOrg, so.OrgID)
	require.Len(t, so.Lines, 1)
	assert.Equal(t, "pcs", so.Lines[0].Unit)
	assert.Equal(t, 10.0, so.Lines[0].QuantityOrdered)
	assert.Equal(t, 0.0, so.Lines[0].QuantityAllocated)

	stored, err := svc.GetSO(context.Background(), testOrg, so.ID)
	require.NoError(t, err)
	assert.Equal(t, so.SOCode, stored.SOCode)
}

func TestGetSOCrossOrgIsNotFound(t *testing.T) {
	mem := testutil.NewMemStore()
	svc := newSales(mem)

	so, err := svc.CreateSO(context.Background(), testOrg, service.CreateSORequest{
		Lines: []service.CreateSOLine{{ProductID: "prod-1", Quantity: 1}},
	}, testUser)
	require.NoError(t, err)

	_, err = svc.GetSO(context.Background(), "org-2", so.ID)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, e.Code)
}

func TestConfirmSO(t *testing.T) {
	mem := testutil.NewMemStore()
	svc := newSales(mem)

	so, err := svc.CreateSO(context.Background(), testOrg, service.CreateSORequest{
		Lines: []service.CreateSOLine{{ProductID: "prod-1", Quantity: 10}},
	}, testUser)
	require.NoError(t, err)

	confirmed, result, err := svc.ConfirmSO(context.Background(), testOrg, so.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.SOStatusConfirmed, confirmed.Status)
	assert.Nil(t, result)

	// 重复确认被拒绝
	_, _, err = svc.ConfirmSO(context.Background(), testOrg, so.ID, testUser)
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeInvalidStatus, e.Code)
}

func TestConfirmSOAutoAllocates(t *testing.T) {
	mem := testutil.NewMemStore()
	mem.SeedSettings(&entity.ShippingSettings{
		OrgID:                  testOrg,
		AllocationThresholdPct: 80,
		DefaultPickingStrategy: entity.StrategyFIFO,
		FefoWarningDays:        7,
		AutoAllocateOnConfirm:  true,
	})
	seedLot(mem, "lot-1", "prod-1", 100, time.Now().Add(-time.Hour), nil)

	svc := newSales(mem)
	so, err := svc.CreateSO(context.Background(), testOrg, service.CreateSORequest{
		Lines: []service.CreateSOLine{{ProductID: "prod-1", Quantity: 10}},
	}, testUser)
	require.NoError(t, err)

	ctx := testutil.IdentityCtx(testUser, testOrg, "warehouse")
	confirmed, result, err := svc.ConfirmSO(ctx, testOrg, so.ID, testUser)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, entity.SOStatusAllocated, confirmed.Status)
	assert.Equal(t, 10.0, result.Summary.TotalAllocated)
	assert.Equal(t, 90.0, mem.LotQty("lot-1"))
}

func TestConfirmSOAutoAllocateFailureKeepsConfirm(t *testing.T) {
	mem := testutil.NewMemStore()
	mem.SeedSettings(&entity.ShippingSettings{
		OrgID:                  testOrg,
		AllocationThresholdPct: 80,
		DefaultPickingStrategy: entity.StrategyFIFO,
		FefoWarningDays:        7,
		AutoAllocateOnConfirm:  true,
	})

	svc := newSales(mem)
	so, err := svc.CreateSO(context.Background(), testOrg, service.CreateSORequest{
		Lines: []service.CreateSOLine{{ProductID: "prod-1", Quantity: 10}},
	}, testUser)
	require.NoError(t, err)

	// 无分配权限身份：自动分配失败，但确认不回滚
	ctx := testutil.IdentityCtx(testUser, testOrg, "viewer")
	confirmed, result, err := svc.ConfirmSO(ctx, testOrg, so.ID, testUser)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, entity.SOStatusConfirmed, confirmed.Status)
	assert.Equal(t, entity.SOStatusConfirmed, mem.Order(so.ID).Status)
}
