package service_test

import (
	"testing"
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/service"
	"github.com/stretchr/testify/assert"
)

func TestCalculateBackorderQty(t *testing.T) {
	assert.Equal(t, 40.0, service.CalculateBackorderQty(100, 60))
	assert.Equal(t, 0.0, service.CalculateBackorderQty(100, 100))
	assert.Equal(t, 0.0, service.CalculateBackorderQty(100, 120))
	assert.Equal(t, 0.0, service.CalculateBackorderQty(0, 0))
	assert.Equal(t, 2.5, service.CalculateBackorderQty(10, 7.5))
}

func TestCalculateFulfillmentPct(t *testing.T) {
	lines := []entity.SOLine{
		{QuantityOrdered: 100, QuantityAllocated: 100},
		{QuantityOrdered: 100, QuantityAllocated: 70},
	}
	assert.Equal(t, 85.0, service.CalculateFulfillmentPct(lines))

	// 空需求按完全履约处理
	assert.Equal(t, 100.0, service.CalculateFulfillmentPct(nil))
	assert.Equal(t, 100.0, service.CalculateFulfillmentPct([]entity.SOLine{{QuantityOrdered: 0}}))

	// 两位小数，四舍五入
	third := []entity.SOLine{{QuantityOrdered: 3, QuantityAllocated: 1}}
	assert.Equal(t, 33.33, service.CalculateFulfillmentPct(third))
	twoThirds := []entity.SOLine{{QuantityOrdered: 3, QuantityAllocated: 2}}
	assert.Equal(t, 66.67, service.CalculateFulfillmentPct(twoThirds))
}

func TestCalculateExpiryDaysRemaining(t *testing.T) {
	asOf := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	_, ok := service.CalculateExpiryDaysRemaining(nil, asOf)
	assert.False(t, ok)

	in5 := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	days, ok := service.CalculateExpiryDaysRemaining(&in5, asOf)
	assert.True(t, ok)
	assert.Equal(t, 5, days)

	today := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	days, ok = service.CalculateExpiryDaysRemaining(&today, asOf)
	assert.True(t, ok)
	assert.Equal(t, 0, days)

	past := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	days, ok = service.CalculateExpiryDaysRemaining(&past, asOf)
	assert.True(t, ok)
	assert.Equal(t, -2, days)
}

func TestCalculateAllocationSummary(t *testing.T) {
	lines := []entity.SOLine{
		{QuantityOrdered: 100, QuantityAllocated: 100},
		{QuantityOrdered: 50, QuantityAllocated: 20},
		{QuantityOrdered: 30, QuantityAllocated: 0},
	}
	s := service.CalculateAllocationSummary(lines)

	assert.Equal(t, 3, s.TotalLines)
	assert.Equal(t, 1, s.FullyAllocated)
	assert.Equal(t, 1, s.PartiallyAllocated)
	assert.Equal(t, 1, s.NotAllocated)
	assert.Equal(t, 180.0, s.TotalOrdered)
	assert.Equal(t, 120.0, s.TotalAllocated)
	assert.Equal(t, 60.0, s.TotalShortfall)
	assert.Equal(t, 2, s.ShortfallLines)
	assert.Equal(t, 66.67, s.FulfillmentPct)
	assert.False(t, s.AllocationComplete)
}

func TestCalculateAllocationSummaryComplete(t *testing.T) {
	lines := []entity.SOLine{{QuantityOrdered: 10, QuantityAllocated: 10}}
	s := service.CalculateAllocationSummary(lines)
	assert.True(t, s.AllocationComplete)
	assert.Equal(t, 100.0, s.FulfillmentPct)
	assert.Equal(t, 0, s.ShortfallLines)
}
