package service

import (
	"time"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/shopspring/decimal"
)

// AllocationSummary 订单级分配汇总
type AllocationSummary struct {
	TotalLines         int     `json:"total_lines"`
	FullyAllocated     int     `json:"fully_allocated_lines"`
	PartiallyAllocated int     `json:"partially_allocated_lines"`
	NotAllocated       int     `json:"not_allocated_lines"`
	TotalOrdered       float64 `json:"total_qty_ordered"`
	TotalAllocated     float64 `json:"total_qty_allocated"`
	TotalShortfall     float64 `json:"total_shortfall"`
	ShortfallLines     int     `json:"shortfall_lines"`
	FulfillmentPct     float64 `json:"fulfillment_pct"`
	AllocationComplete bool    `json:"allocation_complete"`
}

// CalculateBackorderQty 订单行的缺货数量 = max(0, ordered - allocated)
func CalculateBackorderQty(ordered, allocated float64) float64 {
	if ordered <= allocated {
		return 0
	}
	return ordered - allocated
}

// CalculateFulfillmentPct 履约率 = 100 * sum(allocated) / sum(ordered)
// 空需求按100处理。保留两位小数、四舍五入，所有调用点保持一致以便UI与审计对账
func CalculateFulfillmentPct(lines []entity.SOLine) float64 {
	var ordered, allocated decimal.Decimal
	for _, l := range lines {
		ordered = ordered.Add(decimal.NewFromFloat(l.QuantityOrdered))
		allocated = allocated.Add(decimal.NewFromFloat(l.QuantityAllocated))
	}
	if ordered.IsZero() {
		return 100
	}
	pct, _ := allocated.Mul(decimal.NewFromInt(100)).Div(ordered).Round(2).Float64()
	return pct
}

// CalculateExpiryDaysRemaining 距离过期的天数（向上取整），expiry为nil时ok=false
func CalculateExpiryDaysRemaining(expiry *time.Time, asOf time.Time) (int, bool) {
	if expiry == nil {
		return 0, false
	}
	from := entity.DayStart(asOf)
	to := entity.DayStart(*expiry)
	days := to.Sub(from).Hours() / 24
	d := int(days)
	if days > float64(d) {
		d++
	}
	return d, true
}

// CalculateAllocationSummary 聚合各行结果为订单级汇总
func CalculateAllocationSummary(lines []entity.SOLine) AllocationSummary {
	s := AllocationSummary{TotalLines: len(lines)}
	for _, l := range lines {
		s.TotalOrdered += l.QuantityOrdered
		s.TotalAllocated += l.QuantityAllocated
		shortfall := CalculateBackorderQty(l.QuantityOrdered, l.QuantityAllocated)
		s.TotalShortfall += shortfall
		if shortfall > 0 {
			s.ShortfallLines++
		}
		switch {
		case l.QuantityOrdered > 0 && l.QuantityAllocated >= l.QuantityOrdered:
			s.FullyAllocated++
		case l.QuantityAllocated > 0:
			s.PartiallyAllocated++
		default:
			s.NotAllocated++
		}
	}
	s.FulfillmentPct = CalculateFulfillmentPct(lines)
	s.AllocationComplete = s.FulfillmentPct >= 100
	return s
}

